package create

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabtext/pkg/authoritytest"
	"collabtext/pkg/docs"
	"collabtext/pkg/errors"
	"collabtext/pkg/observe"
)

func TestCreate(t *testing.T) {
	authority := authoritytest.NewServer(authoritytest.Options{})
	defer authority.Close()

	var out bytes.Buffer
	rec := &observe.Recorder{}
	err := Main(context.Background(), docs.NewClient(authority.URL), rec, clockwork.NewFakeClock(), "Notes", &out)
	require.NoError(t, err)

	id := strings.TrimSpace(out.String())
	assert.NotEmpty(t, id)
	assert.Equal(t, "", authority.Text(id))
	assert.Empty(t, rec.Events())
}

func TestCreateFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "read only"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var out bytes.Buffer
	rec := &observe.Recorder{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	err := Main(context.Background(), docs.NewClient(server.URL), rec, clock, "Notes", &out)

	_, friendly := errors.GetFriendlyError(err)
	assert.True(t, friendly)
	assert.Contains(t, err.Error(), "read only")
	assert.Empty(t, out.String())

	failed, ok := rec.Last(observe.KindCreateFailed)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), failed.Time)
	assert.Contains(t, failed.Error, "unexpected status 503")
}
