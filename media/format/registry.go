package format

import (
	"bytes"
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/media/raster"
)

// DefaultMaxPixels caps decoded images at 64 megapixels.
const DefaultMaxPixels int64 = 64 << 20

// Limits bound the memory a single decode may allocate.
type Limits struct {
	MaxPixels int64 `mapstructure:"max-pixels" json:"maxPixels" yaml:"max-pixels" default:"67108864" validate:"gt=0"`
}

// DecodeFunc turns encoded bytes into a raster.
type DecodeFunc func(data []byte) (raster.Image, error)

// EncodeFunc serialises a raster. Zero-valued opts fields fall back to the
// registry defaults.
type EncodeFunc func(img raster.Image, opts EncodeOptions) ([]byte, error)

// Info is the header-level description returned by Probe.
type Info struct {
	Format MediaFormat `json:"format"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithCodecs registers codecs. A later codec for the same format replaces
// an earlier one.
func WithCodecs(codecs ...Codec) Option {
	return func(r *Registry) {
		for _, c := range codecs {
			r.add(c)
		}
	}
}

// WithLimits overrides the decode limits.
func WithLimits(l Limits) Option {
	return func(r *Registry) {
		if l.MaxPixels > 0 {
			r.limits = l
		}
	}
}

// WithEncodeOptions sets the options used when a caller passes zero values.
func WithEncodeOptions(o EncodeOptions) Option {
	return func(r *Registry) {
		r.encodeDefaults = o
	}
}

// Registry resolves media types to guarded decode and encode functions.
type Registry struct {
	codecs         map[MediaFormat]Codec
	aliases        map[MediaFormat]MediaFormat
	limits         Limits
	encodeDefaults EncodeOptions
}

// NewRegistry builds an empty registry configured by opts.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		codecs:  make(map[MediaFormat]Codec),
		aliases: make(map[MediaFormat]MediaFormat),
		limits:  Limits{MaxPixels: DefaultMaxPixels},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultRegistry registers BuiltinCodecs and then applies opts.
func DefaultRegistry(opts ...Option) *Registry {
	return NewRegistry(append([]Option{WithCodecs(BuiltinCodecs()...)}, opts...)...)
}

func (r *Registry) add(c Codec) {
	r.codecs[c.Format] = c
	for _, a := range c.Aliases {
		r.aliases[Parse(a)] = c.Format
	}
}

// Limits returns the active decode limits.
func (r *Registry) Limits() Limits {
	return r.limits
}

func (r *Registry) lookup(mt MediaFormat) (Codec, bool) {
	mt = Parse(string(mt))
	if canonical, ok := r.aliases[mt]; ok {
		mt = canonical
	}
	c, ok := r.codecs[mt]
	return c, ok
}

// Codec returns the codec registered for mt, resolving aliases.
func (r *Registry) Codec(mt MediaFormat) (Codec, bool) {
	return r.lookup(mt)
}

// Extension returns the file extension for mt, or "" when unknown.
func (r *Registry) Extension(mt MediaFormat) string {
	c, ok := r.lookup(mt)
	if !ok {
		return ""
	}
	return c.Extension
}

// Decodable lists the formats with a decoder, sorted.
func (r *Registry) Decodable() []MediaFormat {
	return r.list(Codec.CanDecode)
}

// Encodable lists the formats with an encoder, sorted.
func (r *Registry) Encodable() []MediaFormat {
	return r.list(Codec.CanEncode)
}

func (r *Registry) list(keep func(Codec) bool) []MediaFormat {
	out := make([]MediaFormat, 0, len(r.codecs))
	for mt, c := range r.codecs {
		if keep(c) {
			out = append(out, mt)
		}
	}
	slices.Sort(out)
	return out
}

// Decoder returns a guarded decoder for mt. Unknown or encode-only formats
// yield an UnsupportedFormat error.
func (r *Registry) Decoder(mt MediaFormat) (DecodeFunc, error) {
	c, ok := r.lookup(mt)
	if !ok || !c.CanDecode() {
		return nil, apperrors.NewUnsupportedFormat(mt.String(), "decoder")
	}
	return func(data []byte) (raster.Image, error) {
		return r.decode(c, data)
	}, nil
}

// Encoder returns an encoder for mt that refuses layouts the format cannot
// represent without loss.
func (r *Registry) Encoder(mt MediaFormat) (EncodeFunc, error) {
	c, ok := r.lookup(mt)
	if !ok || !c.CanEncode() {
		return nil, apperrors.NewUnsupportedFormat(mt.String(), "encoder")
	}
	return func(img raster.Image, opts EncodeOptions) ([]byte, error) {
		return r.encode(c, img, opts)
	}, nil
}

// Probe validates the signature and header of data without decoding pixels.
func (r *Registry) Probe(data []byte, mt MediaFormat) (Info, error) {
	c, ok := r.lookup(mt)
	if !ok || !c.CanDecode() {
		return Info{}, apperrors.NewUnsupportedFormat(mt.String(), "decoder")
	}
	cfg, err := r.inspect(c, data)
	if err != nil {
		return Info{}, err
	}
	return Info{Format: c.Format, Width: cfg.Width, Height: cfg.Height}, nil
}

// inspect runs every check that can be done before allocating pixels.
func (r *Registry) inspect(c Codec, data []byte) (image.Config, error) {
	name := c.Format.String()
	if len(data) == 0 {
		return image.Config{}, apperrors.NewCorruptInput(name, "empty input")
	}
	if !matchesSignature(data, c) {
		detected := mimetype.Detect(data).String()
		return image.Config{}, apperrors.NewCorruptInput(name, "content does not carry a valid signature").
			WithDetail("detected", detected)
	}

	cfg, err := c.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, apperrors.NewCorruptInput(name, "unreadable header").WithInnerError(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, apperrors.NewCorruptInput(name,
			fmt.Sprintf("header declares %dx%d", cfg.Width, cfg.Height))
	}
	if int64(cfg.Width) > r.limits.MaxPixels/int64(cfg.Height) {
		return image.Config{}, apperrors.NewCorruptInput(name,
			fmt.Sprintf("%dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, r.limits.MaxPixels))
	}
	check := c.CheckSize
	if check == nil {
		check = capPixels(MaxUnboundedPixels)
	}
	if err := check(cfg, len(data)); err != nil {
		return image.Config{}, apperrors.NewCorruptInput(name, err.Error())
	}
	return cfg, nil
}

func (r *Registry) decode(c Codec, data []byte) (raster.Image, error) {
	cfg, err := r.inspect(c, data)
	if err != nil {
		return raster.Image{}, err
	}

	name := c.Format.String()
	img, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		return raster.Image{}, apperrors.NewCorruptInput(name, "decode failed").WithInnerError(err)
	}
	if b := img.Bounds(); b.Dx() != cfg.Width || b.Dy() != cfg.Height {
		return raster.Image{}, apperrors.NewCorruptInput(name,
			fmt.Sprintf("decoded %dx%d but header declared %dx%d", b.Dx(), b.Dy(), cfg.Width, cfg.Height))
	}

	out, err := raster.FromImage(img)
	if err != nil {
		return raster.Image{}, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "convert "+name)
	}
	return out, nil
}

func (r *Registry) encode(c Codec, img raster.Image, opts EncodeOptions) ([]byte, error) {
	name := c.Format.String()
	if err := img.Validate(); err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "encode "+name)
	}

	img, err := adaptLayout(c, img)
	if err != nil {
		return nil, err
	}

	if opts.Quality == 0 {
		opts.Quality = r.encodeDefaults.Quality
	}

	var buf bytes.Buffer
	if err := c.Encode(&buf, img.ToImage(), opts); err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "encode "+name)
	}
	return buf.Bytes(), nil
}

// wider lists, per layout, the layouts that hold it without loss, narrowest
// first.
var wider = map[raster.Layout][]raster.Layout{
	raster.Gray:      {raster.GrayAlpha, raster.RGB, raster.RGBA},
	raster.GrayAlpha: {raster.RGBA},
	raster.RGB:       {raster.RGBA},
}

// adaptLayout returns img in a layout c can encode, or an
// UnsupportedChannelLayout error when every option would lose data.
func adaptLayout(c Codec, img raster.Image) (raster.Image, error) {
	if c.Supports(img.Layout) {
		return img, nil
	}
	if img.Layout.HasAlpha() && c.Supports(img.Layout.WithoutAlpha()) {
		if out, ok := img.DropAlpha(); ok {
			return out, nil
		}
	}
	for _, l := range wider[img.Layout] {
		if c.Supports(l) {
			out, err := raster.FromImageAs(img.ToImage(), l)
			if err != nil {
				return raster.Image{}, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "widen layout")
			}
			return out, nil
		}
	}
	return raster.Image{}, apperrors.NewUnsupportedChannelLayout(c.Format.String(), img.Layout.String())
}

// matchesSignature sniffs data and accepts it when the detected type, or
// one of its parents, is the codec's format or an alias of it.
func matchesSignature(data []byte, c Codec) bool {
	accepted := append([]string{c.Format.String()}, c.Aliases...)
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for _, want := range accepted {
			if m.Is(want) || strings.EqualFold(m.String(), want) {
				return true
			}
		}
	}
	return false
}
