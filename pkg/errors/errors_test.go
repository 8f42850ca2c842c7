package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	assert.NoError(t, WithContext(nil, "read"))

	err := WithContext(io.EOF, "read snapshot")
	assert.EqualError(t, err, "read snapshot: EOF")
	assert.True(t, Is(err, io.EOF))

	nested := WithContext(err, "connect")
	assert.EqualError(t, nested, "connect: read snapshot: EOF")
	assert.True(t, Is(nested, io.EOF))
}

func TestFriendlyError(t *testing.T) {
	err := NewFriendlyError("Could not reach %s: %s", "localhost:8000", io.ErrUnexpectedEOF)
	assert.EqualError(t, err, "Could not reach localhost:8000: unexpected EOF")
	assert.True(t, Is(err, io.ErrUnexpectedEOF))

	friendly, ok := GetFriendlyError(WithContext(err, "create document"))
	assert.True(t, ok)
	assert.Equal(t, err, friendly)

	_, ok = GetFriendlyError(io.EOF)
	assert.False(t, ok)
}

func TestMissingFieldError(t *testing.T) {
	var err error = MissingFieldError{Field: "server"}
	assert.EqualError(t, err, "missing required field: server")

	var missing MissingFieldError
	assert.True(t, As(WithContext(err, "validate"), &missing))
	assert.Equal(t, "server", missing.Field)
}
