package processor

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/media/format"
)

func TestNativeResize(t *testing.T) {
	np := NewNativeProcessor(format.DefaultRegistry(), 0)

	r, err := np.Resize(context.Background(), bytes.NewReader(pngFixture(t, 300, 100)), format.PNG, format.PNG, Small)
	require.NoError(t, err)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 21, cfg.Height)
}

func TestNativeGetDimensions(t *testing.T) {
	np := NewNativeProcessor(format.DefaultRegistry(), 0)

	w, h, err := np.GetDimensions(bytes.NewReader(pngFixture(t, 40, 30)), format.PNG)
	require.NoError(t, err)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
}

func TestNativeReadLimit(t *testing.T) {
	np := NewNativeProcessor(format.DefaultRegistry(), 16)

	_, err := np.Read(bytes.NewReader(make([]byte, 17)))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	data, err := np.Read(bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)
	assert.Len(t, data, 16)
}

func TestNativeProcessFileDetectsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, pngFixture(t, 50, 50), 0o600))

	np := NewNativeProcessor(format.DefaultRegistry(), 0)
	thumbs, err := np.ProcessFile(context.Background(), path, "", format.JPEG, []Preset{Icon})
	require.NoError(t, err)
	require.Len(t, thumbs, 1)
	assert.Equal(t, 32, thumbs[0].Width())
}

func TestNativeProcessFileUnknownContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	np := NewNativeProcessor(format.DefaultRegistry(), 0)
	_, err := np.ProcessFile(context.Background(), path, "", format.PNG, []Preset{Icon})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}
