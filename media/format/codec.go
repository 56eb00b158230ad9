package format

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/leeforge/thumbnailer/media/raster"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// DefaultJPEGQuality is used when EncodeOptions.Quality is zero.
const DefaultJPEGQuality = 85

// EncodeOptions tunes lossy encoders. Lossless encoders ignore it.
type EncodeOptions struct {
	// Quality ranges over 1-100; zero selects the codec default.
	Quality int `mapstructure:"quality" json:"quality" yaml:"quality" default:"85" validate:"gte=0,lte=100"`
}

// Codec describes what the engine can do with one format.
type Codec struct {
	Format    MediaFormat
	Aliases   []string
	Extension string

	// DecodeConfig parses the header only. Required when Decode is set.
	DecodeConfig func(r io.Reader) (image.Config, error)
	// Decode turns encoded bytes into an image. Nil for encode-only formats.
	Decode func(r io.Reader) (image.Image, error)
	// CheckSize rejects headers whose dimensions cannot be backed by
	// encodedLen bytes of payload, or that exceed a codec cap where the
	// format has no such bound. Decoders without one are held to
	// MaxUnboundedPixels.
	CheckSize func(cfg image.Config, encodedLen int) error

	// Encode writes img. Nil for decode-only formats.
	Encode func(w io.Writer, img image.Image, opts EncodeOptions) error
	// Layouts lists the channel layouts Encode represents without loss.
	Layouts []raster.Layout
}

// CanDecode reports whether the codec has a decoder.
func (c Codec) CanDecode() bool {
	return c.Decode != nil && c.DecodeConfig != nil
}

// CanEncode reports whether the codec has an encoder.
func (c Codec) CanEncode() bool {
	return c.Encode != nil
}

// Supports reports whether layout is natively encodable.
func (c Codec) Supports(layout raster.Layout) bool {
	for _, l := range c.Layouts {
		if l == layout {
			return true
		}
	}
	return false
}

// PNGCodec decodes and encodes PNG losslessly in every layout.
func PNGCodec() Codec {
	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	return Codec{
		Format:       PNG,
		Aliases:      []string{"image/x-png", "image/apng"},
		Extension:    ".png",
		DecodeConfig: png.DecodeConfig,
		Decode:       png.Decode,
		CheckSize:    checkDeflateSize,
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			return enc.Encode(w, img)
		},
		Layouts: []raster.Layout{raster.Gray, raster.GrayAlpha, raster.RGB, raster.RGBA},
	}
}

// JPEGCodec encodes baseline JPEG. It has no alpha channel.
func JPEGCodec() Codec {
	return Codec{
		Format:       JPEG,
		Aliases:      []string{"image/jpg", "image/pjpeg"},
		Extension:    ".jpg",
		DecodeConfig: jpeg.DecodeConfig,
		Decode:       jpeg.Decode,
		CheckSize:    checkJPEGSize,
		Encode: func(w io.Writer, img image.Image, opts EncodeOptions) error {
			quality := opts.Quality
			if quality <= 0 {
				quality = DefaultJPEGQuality
			}
			if quality > 100 {
				quality = 100
			}
			return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		},
		Layouts: []raster.Layout{raster.Gray, raster.RGB},
	}
}

// GIFCodec decodes the first frame of a GIF.
func GIFCodec() Codec {
	return Codec{
		Format:       GIF,
		Extension:    ".gif",
		DecodeConfig: gif.DecodeConfig,
		Decode:       gif.Decode,
		CheckSize:    checkGIFSize,
	}
}

// BMPCodec handles uncompressed Windows bitmaps.
func BMPCodec() Codec {
	return Codec{
		Format:       BMP,
		Aliases:      []string{"image/x-bmp", "image/x-ms-bmp"},
		Extension:    ".bmp",
		DecodeConfig: bmp.DecodeConfig,
		Decode:       bmp.Decode,
		CheckSize:    checkBitmapSize,
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			return bmp.Encode(w, img)
		},
		Layouts: []raster.Layout{raster.Gray, raster.RGB, raster.RGBA},
	}
}

// TIFFCodec encodes deflate-compressed TIFF with a horizontal predictor.
func TIFFCodec() Codec {
	opts := &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	return Codec{
		Format:       TIFF,
		Aliases:      []string{"image/tif", "image/x-tiff"},
		Extension:    ".tiff",
		DecodeConfig: tiff.DecodeConfig,
		Decode:       tiff.Decode,
		CheckSize:    checkTIFFSize,
		Encode: func(w io.Writer, img image.Image, _ EncodeOptions) error {
			return tiff.Encode(w, img, opts)
		},
		Layouts: []raster.Layout{raster.Gray, raster.GrayAlpha, raster.RGB, raster.RGBA},
	}
}

// WebPCodec decodes lossy and lossless WebP.
func WebPCodec() Codec {
	return Codec{
		Format:       WebP,
		Extension:    ".webp",
		DecodeConfig: webp.DecodeConfig,
		Decode:       webp.Decode,
		CheckSize:    capPixels(MaxUnboundedPixels),
	}
}

// BuiltinCodecs returns every codec shipped with the module.
func BuiltinCodecs() []Codec {
	return []Codec{PNGCodec(), JPEGCodec(), GIFCodec(), BMPCodec(), TIFFCodec(), WebPCodec()}
}

// maxDeflateRatio is the largest expansion a deflate stream can produce.
const maxDeflateRatio = 1032

// checkDeflateSize bounds PNG headers: every row carries a filter byte and
// at least one bit per pixel, and deflate cannot inflate more than 1032:1.
func checkDeflateSize(cfg image.Config, encodedLen int) error {
	w, h := int64(cfg.Width), int64(cfg.Height)
	minRaw := h * (1 + (w+7)/8)
	if minRaw > int64(encodedLen)*maxDeflateRatio {
		return fmt.Errorf("header declares %dx%d but %d bytes cannot hold it", cfg.Width, cfg.Height, encodedLen)
	}
	return nil
}

// checkBitmapSize bounds uncompressed bitmaps: rows are padded to 4 bytes
// and hold at least one bit per pixel.
func checkBitmapSize(cfg image.Config, encodedLen int) error {
	w, h := int64(cfg.Width), int64(cfg.Height)
	minRaw := h * ((w + 31) / 32 * 4)
	if minRaw > int64(encodedLen) {
		return fmt.Errorf("header declares %dx%d but only %d bytes follow", cfg.Width, cfg.Height, encodedLen)
	}
	return nil
}

// MaxUnboundedPixels caps formats whose entropy coders can represent a
// frame in a size independent of its dimensions: arithmetic coded VP8,
// VP8L with single-symbol codes, CCITT fax coded TIFF.
const MaxUnboundedPixels int64 = 16 << 20

// maxLZWRatio is the most output symbols one byte of 12-bit LZW codes can
// expand to: a code emits at most 4096 symbols.
const maxLZWRatio = 4096 * 8 / 12

func capPixels(limit int64) func(image.Config, int) error {
	return func(cfg image.Config, _ int) error {
		if int64(cfg.Width)*int64(cfg.Height) > limit {
			return fmt.Errorf("header declares %dx%d, over the %d pixel cap for this format", cfg.Width, cfg.Height, limit)
		}
		return nil
	}
}

// checkJPEGSize bounds JPEG headers: the full resolution component holds
// ceil(w/8)*ceil(h/8) blocks and every block costs at least one Huffman
// code, even in a progressive DC scan.
func checkJPEGSize(cfg image.Config, encodedLen int) error {
	w, h := int64(cfg.Width), int64(cfg.Height)
	blocks := ((w + 7) / 8) * ((h + 7) / 8)
	if minBytes := (blocks + 7) / 8; minBytes > int64(encodedLen) {
		return fmt.Errorf("header declares %dx%d but %d bytes cannot hold its %d blocks", cfg.Width, cfg.Height, encodedLen, blocks)
	}
	return nil
}

// checkGIFSize bounds GIF headers: every pixel is one LZW symbol. Frames
// smaller than the logical screen are rejected after decode.
func checkGIFSize(cfg image.Config, encodedLen int) error {
	if int64(cfg.Width)*int64(cfg.Height) > int64(encodedLen)*maxLZWRatio {
		return fmt.Errorf("header declares %dx%d but %d bytes cannot hold it", cfg.Width, cfg.Height, encodedLen)
	}
	return nil
}

// checkTIFFSize bounds TIFF headers by the least compact strip encoding
// x/image/tiff reads (LZW). Bilevel and palette images may be fax coded,
// which has no such bound, so they are capped instead.
func checkTIFFSize(cfg image.Config, encodedLen int) error {
	bits := minBitsPerPixel(cfg.ColorModel)
	if bits == 1 {
		if err := capPixels(MaxUnboundedPixels)(cfg, encodedLen); err != nil {
			return err
		}
	}
	w, h := int64(cfg.Width), int64(cfg.Height)
	minRaw := h * ((w*bits + 7) / 8)
	if minRaw > int64(encodedLen)*maxLZWRatio {
		return fmt.Errorf("header declares %dx%d but %d bytes cannot hold it", cfg.Width, cfg.Height, encodedLen)
	}
	return nil
}

// minBitsPerPixel is the smallest sample size x/image/tiff decodes into m.
func minBitsPerPixel(m color.Model) int64 {
	switch m {
	case color.Gray16Model:
		return 16
	case color.RGBAModel, color.NRGBAModel:
		return 24
	case color.CMYKModel:
		return 32
	case color.RGBA64Model, color.NRGBA64Model:
		return 48
	default:
		return 1
	}
}
