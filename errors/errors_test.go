package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := NewCorruptInput("image/png", "truncated header")
	wrapped := fmt.Errorf("decode: %w", err)

	assert.True(t, errors.Is(wrapped, ErrCorruptInput))
	assert.False(t, errors.Is(wrapped, ErrUnsupportedFormat))
	assert.True(t, IsType(wrapped, ErrorTypeCorruptInput))
	assert.Equal(t, ErrorTypeCorruptInput, TypeOf(wrapped))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NewUnsupportedFormat("image/xyz", "encoder"), http.StatusUnsupportedMediaType},
		{NewCorruptInput("image/png", "bad"), http.StatusUnprocessableEntity},
		{NewInvalidPreset("custom", 0, 10), http.StatusBadRequest},
		{NewUnsupportedChannelLayout("image/jpeg", "rgba"), http.StatusUnprocessableEntity},
		{NewUnavailable("busy"), http.StatusServiceUnavailable},
		{io.EOF, http.StatusInternalServerError},
		{nil, http.StatusOK},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestErrorMessageIncludesInner(t *testing.T) {
	err := WrapWithType(io.ErrUnexpectedEOF, ErrorTypeCorruptInput, "decode png")

	assert.Equal(t, "decode png: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "CORRUPT_INPUT", err.Code)
}

func TestFromErrorForeign(t *testing.T) {
	appErr := FromError(io.EOF)

	assert.Equal(t, ErrorTypeUnknown, appErr.Type)
	assert.Equal(t, io.EOF, appErr.Unwrap())
	assert.Nil(t, FromError(nil))
}

func TestDetails(t *testing.T) {
	err := NewUnsupportedFormat("image/xyz", "decoder")

	assert.Equal(t, "image/xyz", err.Details["format"])
	assert.Equal(t, "decoder", err.Details["role"])
}
