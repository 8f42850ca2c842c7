package buffer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNotifies(t *testing.T) {
	b := New("hello")
	assert.Equal(t, "hello", b.Text())

	var first, second []Change
	b.Subscribe(func(c Change) { first = append(first, c) })
	unsubscribe := b.Subscribe(func(c Change) { second = append(second, c) })

	b.Set("hello world", OriginUser)
	b.Set("hello world", OriginNetwork)

	exp := []Change{
		{Text: "hello world", Origin: OriginUser},
		{Text: "hello world", Origin: OriginNetwork},
	}
	assert.Equal(t, exp, first)
	assert.Equal(t, exp, second)
	assert.Equal(t, "hello world", b.Text())

	unsubscribe()
	unsubscribe()
	b.Set("bye", OriginUser)
	assert.Len(t, first, 3)
	assert.Len(t, second, 2)
}

func TestObserverSeesNewText(t *testing.T) {
	b := New("")
	var seen string
	b.Subscribe(func(Change) { seen = b.Text() })
	b.Set("abc", OriginUser)
	assert.Equal(t, "abc", seen)
}

func TestUpdate(t *testing.T) {
	b := New("hello")
	var seen []Change
	b.Subscribe(func(c Change) { seen = append(seen, c) })

	text := b.Update(func(text string) string { return text + "\nworld" }, OriginUser)
	assert.Equal(t, "hello\nworld", text)
	assert.Equal(t, "hello\nworld", b.Text())
	assert.Equal(t, []Change{{Text: "hello\nworld", Origin: OriginUser}}, seen)
}

func TestConcurrentWritesNotifyInOrder(t *testing.T) {
	b := New("")

	var mu sync.Mutex
	var notified []string
	b.Subscribe(func(c Change) {
		mu.Lock()
		notified = append(notified, c.Text)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			origin := OriginUser
			if i%2 == 0 {
				origin = OriginNetwork
			}
			b.Set(fmt.Sprintf("text %d", i), origin)
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Update(func(text string) string { return text + "." }, OriginUser)
		}()
	}
	wg.Wait()

	require.Len(t, notified, 100)
	assert.Equal(t, b.Text(), notified[len(notified)-1])
}

func TestUpdateIsAtomic(t *testing.T) {
	b := New("")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Update(func(text string) string { return text + "x" }, OriginUser)
		}()
	}
	wg.Wait()
	assert.Len(t, b.Text(), 100)
}

func TestOriginString(t *testing.T) {
	assert.Equal(t, "user", OriginUser.String())
	assert.Equal(t, "network", OriginNetwork.String())
	assert.Equal(t, "unknown", Origin(9).String())
}
