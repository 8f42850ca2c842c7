package get

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
)

func TestGet(t *testing.T) {
	authority := authoritytest.NewServer(authoritytest.Options{})
	defer authority.Close()
	id := authority.CreateDocument("Notes", "")
	authority.SetText(id, "line one\nline two")
	client := docs.NewClient(authority.URL)

	var out bytes.Buffer
	require.NoError(t, Main(context.Background(), client, id, false, &out))
	assert.Equal(t, "line one\nline two\n", out.String())

	out.Reset()
	require.NoError(t, Main(context.Background(), client, id, true, &out))
	assert.JSONEq(t, `{"id": "`+id+`", "text": "line one\nline two", "version": 1}`, out.String())
}

func TestGetMissing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := Main(context.Background(), docs.NewClient(server.URL), "nope", false, &bytes.Buffer{})
	assert.EqualError(t, err, `Document "nope" does not exist.`)
}
