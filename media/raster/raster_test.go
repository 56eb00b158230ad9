package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutChannels(t *testing.T) {
	tests := []struct {
		layout   Layout
		channels int
		alpha    bool
	}{
		{Gray, 1, false},
		{GrayAlpha, 2, true},
		{RGB, 3, false},
		{RGBA, 4, true},
		{Layout(0), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			assert.Equal(t, tt.channels, tt.layout.Channels())
			assert.Equal(t, tt.alpha, tt.layout.HasAlpha())
		})
	}
}

func TestNewValidatesBuffer(t *testing.T) {
	_, err := New(2, 2, RGB, make([]byte, 12))
	require.NoError(t, err)

	_, err = New(2, 2, RGB, make([]byte, 11))
	assert.ErrorIs(t, err, ErrBufferSize)

	_, err = New(0, 2, RGB, nil)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = New(2, 2, Layout(9), make([]byte, 4))
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestBufferSizeOverflow(t *testing.T) {
	maxInt := int(^uint(0) >> 1)
	_, err := BufferSize(maxInt/2, 3, RGBA)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestCloneDoesNotShareMemory(t *testing.T) {
	img, err := New(1, 1, Gray, []byte{10})
	require.NoError(t, err)

	clone := img.Clone()
	clone.Pix[0] = 99
	assert.Equal(t, byte(10), img.Pix[0])
}

func TestDropAlpha(t *testing.T) {
	opaque, err := New(2, 1, RGBA, []byte{1, 2, 3, 255, 4, 5, 6, 255})
	require.NoError(t, err)

	out, ok := opaque.DropAlpha()
	require.True(t, ok)
	assert.Equal(t, RGB, out.Layout)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, out.Pix)

	translucent, err := New(1, 1, GrayAlpha, []byte{7, 128})
	require.NoError(t, err)

	same, ok := translucent.DropAlpha()
	assert.False(t, ok)
	assert.Equal(t, GrayAlpha, same.Layout)
}

func TestDetectLayout(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.Equal(t, Gray, DetectLayout(gray))

	opaque := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 3; i < len(opaque.Pix); i += 4 {
		opaque.Pix[i] = 0xff
	}
	assert.Equal(t, RGB, DetectLayout(opaque))

	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	assert.Equal(t, RGBA, DetectLayout(translucent))
}

func TestFromImageRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 90), B: 200, A: 0xff})
		}
	}

	img, err := FromImage(src)
	require.NoError(t, err)
	assert.Equal(t, RGB, img.Layout)
	assert.Equal(t, 3*2*3, len(img.Pix))

	back := img.ToImage()
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, src.At(x, y), back.At(x, y))
		}
	}
}

func TestFromImageSubImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}
	sub := src.SubImage(image.Rect(1, 1, 3, 3))

	img, err := FromImage(sub)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, []byte{5, 6, 9, 10}, img.Pix)
}

func TestGrayAlphaToImage(t *testing.T) {
	img, err := New(1, 1, GrayAlpha, []byte{100, 50})
	require.NoError(t, err)

	got := img.ToImage().At(0, 0).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 100, G: 100, B: 100, A: 50}, got)
}
