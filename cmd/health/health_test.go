package health

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabtext/pkg/authoritytest"
	"collabtext/pkg/docs"
	"collabtext/pkg/errors"
)

func TestHealthy(t *testing.T) {
	authority := authoritytest.NewServer(authoritytest.Options{})
	defer authority.Close()

	var out bytes.Buffer
	require.NoError(t, Main(context.Background(), docs.NewClient(authority.URL), authority.URL, &out))
	assert.Equal(t, authority.URL+" is healthy\n", out.String())
}

func TestUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := Main(context.Background(), docs.NewClient(server.URL), server.URL, &bytes.Buffer{})
	_, friendly := errors.GetFriendlyError(err)
	assert.True(t, friendly)
	assert.Contains(t, err.Error(), "is not healthy")
}
