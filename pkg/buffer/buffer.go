// Package buffer holds the client's copy of the document text and notifies
// observers whenever it changes.
package buffer

import (
	"sync"
)

// Origin tells observers who caused a change.
type Origin int

const (
	// OriginUser is a change made through the editing surface.
	OriginUser Origin = iota

	// OriginNetwork is a change written because the authority said so.
	OriginNetwork
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Change describes the buffer contents after a write.
type Change struct {
	Text   string
	Origin Origin
}

// Observer is called synchronously, in subscription order, after every write.
// Observers must not write to the buffer.
type Observer func(Change)

// Buffer is the full document text as currently believed by the client. It is
// safe for concurrent use. Observers see writes in the order they happened.
type Buffer struct {
	// writeMu is held across a write and its notifications.
	writeMu sync.Mutex

	mu        sync.Mutex
	text      string
	observers map[int]Observer
	order     []int
	nextID    int
}

// New returns a buffer holding text.
func New(text string) *Buffer {
	return &Buffer{text: text, observers: map[int]Observer{}}
}

// Text returns the current contents.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Set replaces the contents and notifies the observers, even if the text did
// not change.
func (b *Buffer) Set(text string, origin Origin) {
	b.Update(func(string) string { return text }, origin)
}

// Update replaces the contents with edit applied to them and notifies the
// observers. No other write can land between the read and the write, and
// edit must not call back into the buffer. It returns the new contents.
func (b *Buffer) Update(edit func(text string) string, origin Origin) string {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	text := edit(b.text)
	b.text = text
	observers := make([]Observer, 0, len(b.order))
	for _, id := range b.order {
		observers = append(observers, b.observers[id])
	}
	b.mu.Unlock()

	change := Change{Text: text, Origin: origin}
	for _, observer := range observers {
		observer(change)
	}
	return text
}

// Subscribe registers an observer and returns a function that removes it.
func (b *Buffer) Subscribe(observer Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = observer
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.observers[id]; !ok {
			return
		}
		delete(b.observers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}
