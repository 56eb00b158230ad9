// Package raster holds the in-memory pixel grid shared by the decoders,
// the resizer and the encoders.
package raster

import (
	"errors"
	"fmt"
)

// Layout is the channel layout of a raster. Every channel is 8 bits.
type Layout uint8

const (
	// Gray is a single luminance channel.
	Gray Layout = iota + 1
	// GrayAlpha is luminance followed by straight (non-premultiplied) alpha.
	GrayAlpha
	// RGB is three colour channels without alpha.
	RGB
	// RGBA is three colour channels followed by straight alpha.
	RGBA
)

var (
	ErrInvalidDimensions = errors.New("raster: width and height must be positive")
	ErrInvalidLayout     = errors.New("raster: unknown channel layout")
	ErrBufferSize        = errors.New("raster: pixel buffer does not match dimensions")
)

// Channels returns the number of bytes per pixel.
func (l Layout) Channels() int {
	switch l {
	case Gray:
		return 1
	case GrayAlpha:
		return 2
	case RGB:
		return 3
	case RGBA:
		return 4
	default:
		return 0
	}
}

// HasAlpha reports whether the last channel of the layout is alpha.
func (l Layout) HasAlpha() bool {
	return l == GrayAlpha || l == RGBA
}

// Valid reports whether l is one of the known layouts.
func (l Layout) Valid() bool {
	return l.Channels() > 0
}

// WithoutAlpha returns the layout with its alpha channel removed.
func (l Layout) WithoutAlpha() Layout {
	switch l {
	case GrayAlpha:
		return Gray
	case RGBA:
		return RGB
	default:
		return l
	}
}

func (l Layout) String() string {
	switch l {
	case Gray:
		return "gray"
	case GrayAlpha:
		return "gray_alpha"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// Image is a row-major pixel grid with no row padding.
//
// len(Pix) == Width*Height*Layout.Channels() holds for every Image returned
// by this package. Images are treated as immutable once built: operations
// that change pixels return a new Image with a freshly allocated buffer.
type Image struct {
	Width  int
	Height int
	Layout Layout
	Pix    []byte
}

// New validates and wraps pix. The returned Image takes ownership of pix;
// callers must not modify it afterwards.
func New(width, height int, layout Layout, pix []byte) (Image, error) {
	size, err := BufferSize(width, height, layout)
	if err != nil {
		return Image{}, err
	}
	if len(pix) != size {
		return Image{}, fmt.Errorf("%w: got %d bytes, want %d (%dx%d %s)",
			ErrBufferSize, len(pix), size, width, height, layout)
	}
	return Image{Width: width, Height: height, Layout: layout, Pix: pix}, nil
}

// Blank allocates a zeroed raster.
func Blank(width, height int, layout Layout) (Image, error) {
	size, err := BufferSize(width, height, layout)
	if err != nil {
		return Image{}, err
	}
	return Image{Width: width, Height: height, Layout: layout, Pix: make([]byte, size)}, nil
}

// BufferSize returns width*height*channels, rejecting degenerate dimensions
// and products that overflow int.
func BufferSize(width, height int, layout Layout) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if !layout.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLayout, uint8(layout))
	}
	channels := layout.Channels()
	maxInt := int(^uint(0) >> 1)
	if width > maxInt/height || width*height > maxInt/channels {
		return 0, fmt.Errorf("%w: %dx%d overflows", ErrInvalidDimensions, width, height)
	}
	return width * height * channels, nil
}

// Stride is the number of bytes in one row.
func (img Image) Stride() int {
	return img.Width * img.Layout.Channels()
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (img Image) PixOffset(x, y int) int {
	return y*img.Stride() + x*img.Layout.Channels()
}

// Empty reports whether img is the zero value.
func (img Image) Empty() bool {
	return img.Width == 0 || img.Height == 0 || len(img.Pix) == 0
}

// Clone returns a copy of img that shares no memory with it.
func (img Image) Clone() Image {
	pix := make([]byte, len(img.Pix))
	copy(pix, img.Pix)
	img.Pix = pix
	return img
}

// Opaque reports whether every alpha sample is 0xff. Layouts without alpha
// are always opaque.
func (img Image) Opaque() bool {
	if !img.Layout.HasAlpha() {
		return true
	}
	channels := img.Layout.Channels()
	for i := channels - 1; i < len(img.Pix); i += channels {
		if img.Pix[i] != 0xff {
			return false
		}
	}
	return true
}

// DropAlpha returns img without its alpha channel. ok is false when img has
// translucent pixels and dropping alpha would lose information; img is then
// returned unchanged.
func (img Image) DropAlpha() (out Image, ok bool) {
	if !img.Layout.HasAlpha() {
		return img, true
	}
	if !img.Opaque() {
		return img, false
	}

	layout := img.Layout.WithoutAlpha()
	src := img.Layout.Channels()
	dst := layout.Channels()
	pix := make([]byte, img.Width*img.Height*dst)
	for i, j := 0, 0; i < len(img.Pix); i, j = i+src, j+dst {
		copy(pix[j:j+dst], img.Pix[i:i+dst])
	}
	return Image{Width: img.Width, Height: img.Height, Layout: layout, Pix: pix}, true
}

// Validate checks the buffer invariant. It is useful for Images built by
// hand rather than through New.
func (img Image) Validate() error {
	_, err := New(img.Width, img.Height, img.Layout, img.Pix)
	return err
}
