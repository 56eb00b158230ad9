package raster

import (
	"image"
	"image/color"
)

// ToImage exposes img as a standard library image. Gray and RGBA rasters
// share their buffer with the result, which must therefore be treated as
// read-only. RGB and GrayAlpha rasters are expanded into a new *image.NRGBA.
func (img Image) ToImage() image.Image {
	rect := image.Rect(0, 0, img.Width, img.Height)
	switch img.Layout {
	case Gray:
		return &image.Gray{Pix: img.Pix, Stride: img.Stride(), Rect: rect}
	case RGBA:
		return &image.NRGBA{Pix: img.Pix, Stride: img.Stride(), Rect: rect}
	case RGB:
		dst := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(img.Pix); i, j = i+3, j+4 {
			dst.Pix[j] = img.Pix[i]
			dst.Pix[j+1] = img.Pix[i+1]
			dst.Pix[j+2] = img.Pix[i+2]
			dst.Pix[j+3] = 0xff
		}
		return dst
	case GrayAlpha:
		dst := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(img.Pix); i, j = i+2, j+4 {
			y := img.Pix[i]
			dst.Pix[j] = y
			dst.Pix[j+1] = y
			dst.Pix[j+2] = y
			dst.Pix[j+3] = img.Pix[i+1]
		}
		return dst
	default:
		return image.NewNRGBA(image.Rectangle{})
	}
}

// DetectLayout picks the smallest layout that represents src without loss
// of channels: gray colour models map to Gray, opaque images to RGB and
// everything else to RGBA.
func DetectLayout(src image.Image) Layout {
	switch src.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return Gray
	}
	if o, ok := src.(interface{ Opaque() bool }); ok {
		if o.Opaque() {
			return RGB
		}
		return RGBA
	}

	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := src.At(x, y).RGBA(); a != 0xffff {
				return RGBA
			}
		}
	}
	return RGB
}

// FromImage converts src into a raster using DetectLayout.
func FromImage(src image.Image) (Image, error) {
	return FromImageAs(src, DetectLayout(src))
}

// FromImageAs converts src into a raster with the given layout. Samples
// wider than 8 bits are truncated to their high byte.
func FromImageAs(src image.Image, layout Layout) (Image, error) {
	b := src.Bounds()
	dst, err := Blank(b.Dx(), b.Dy(), layout)
	if err != nil {
		return Image{}, err
	}

	switch s := src.(type) {
	case *image.Gray:
		if layout == Gray {
			for y := 0; y < dst.Height; y++ {
				off := s.PixOffset(b.Min.X, b.Min.Y+y)
				copy(dst.Pix[y*dst.Stride():(y+1)*dst.Stride()], s.Pix[off:off+dst.Width])
			}
			return dst, nil
		}
	case *image.NRGBA:
		if layout == RGBA {
			for y := 0; y < dst.Height; y++ {
				off := s.PixOffset(b.Min.X, b.Min.Y+y)
				copy(dst.Pix[y*dst.Stride():(y+1)*dst.Stride()], s.Pix[off:off+dst.Width*4])
			}
			return dst, nil
		}
	}

	channels := layout.Channels()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			writePixel(dst.Pix[i:i+channels], layout, src.At(x, y))
			i += channels
		}
	}
	return dst, nil
}

func writePixel(px []byte, layout Layout, c color.Color) {
	switch layout {
	case Gray:
		px[0] = color.GrayModel.Convert(c).(color.Gray).Y
	case GrayAlpha:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		px[0] = color.GrayModel.Convert(color.NRGBA{R: n.R, G: n.G, B: n.B, A: 0xff}).(color.Gray).Y
		px[1] = n.A
	case RGB:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		px[0], px[1], px[2] = n.R, n.G, n.B
	case RGBA:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		px[0], px[1], px[2], px[3] = n.R, n.G, n.B, n.A
	}
}
