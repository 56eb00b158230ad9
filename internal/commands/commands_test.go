package commands

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("THUMBNAILER_LOG_LEVEL", "error")
	t.Setenv("THUMBNAILER_METRICS_ENABLED", "false")

	var out bytes.Buffer
	root := NewRootCommand("test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	path := filepath.Join(dir, "photo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 300, 200)
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "generate", src, "--presets", "icon,small", "--out", out, "--config", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "photo_icon.png")
	assert.Contains(t, stdout, "64x42")

	f, err := os.Open(filepath.Join(out, "photo_small.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 42, cfg.Height)

	_, err = os.Stat(filepath.Join(out, "photo_icon.png"))
	assert.NoError(t, err)
}

func TestGenerateJPEGTarget(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 40, 40)

	stdout, err := execute(t, "generate", src, "-p", "larger", "-t", "image/jpeg", "-q", "70", "-o", dir, "-c", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "40x40", "never upscaled")
	_, err = os.Stat(filepath.Join(dir, "photo_larger.jpg"))
	assert.NoError(t, err)
}

func TestGenerateErrors(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 10, 10)

	_, err := execute(t, "generate", src, "--presets", "huge", "--config", t.TempDir())
	assert.Error(t, err)

	_, err = execute(t, "generate", filepath.Join(dir, "missing.png"), "--config", t.TempDir())
	assert.Error(t, err)

	_, err = execute(t, "generate", "--config", t.TempDir())
	assert.Error(t, err, "a file argument is required")
}

func TestEncryptLoop(t *testing.T) {
	stdout, err := execute(t, "encrypt-loop", "--iterations", "25")
	require.NoError(t, err)
	assert.Contains(t, stdout, `encrypted "hello world" 25 times`)
	assert.Contains(t, stdout, "ciphertext ")
}

func TestVersion(t *testing.T) {
	stdout, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "test")
}
