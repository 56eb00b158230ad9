package processor

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/media/raster"
)

// Engine selects the resampling library.
type Engine string

const (
	EngineNfnt    Engine = "nfnt"
	EngineImaging Engine = "imaging"
)

// Filter names a resampling kernel.
type Filter string

const (
	FilterNearest  Filter = "nearest"
	FilterBilinear Filter = "bilinear"
	FilterBicubic  Filter = "bicubic"
	FilterMitchell Filter = "mitchell"
	FilterLanczos2 Filter = "lanczos2"
	FilterLanczos3 Filter = "lanczos3"
)

// ResizeConfig selects the resampling backend.
type ResizeConfig struct {
	Engine Engine `mapstructure:"engine" json:"engine" yaml:"engine" default:"nfnt" validate:"oneof=nfnt imaging"`
	Filter Filter `mapstructure:"filter" json:"filter" yaml:"filter" default:"lanczos3" validate:"oneof=nearest bilinear bicubic mitchell lanczos2 lanczos3"`
}

var nfntFilters = map[Filter]resize.InterpolationFunction{
	FilterNearest:  resize.NearestNeighbor,
	FilterBilinear: resize.Bilinear,
	FilterBicubic:  resize.Bicubic,
	FilterMitchell: resize.MitchellNetravali,
	FilterLanczos2: resize.Lanczos2,
	FilterLanczos3: resize.Lanczos3,
}

// imaging has a single Lanczos kernel (a=3).
var imagingFilters = map[Filter]imaging.ResampleFilter{
	FilterNearest:  imaging.NearestNeighbor,
	FilterBilinear: imaging.Linear,
	FilterBicubic:  imaging.CatmullRom,
	FilterMitchell: imaging.MitchellNetravali,
	FilterLanczos2: imaging.Lanczos,
	FilterLanczos3: imaging.Lanczos,
}

// Resizer scales rasters down to fit a preset. It is immutable and safe for
// concurrent use.
type Resizer struct {
	cfg    ResizeConfig
	sample func(src image.Image, w, h int) image.Image
}

// NewResizer builds a resizer. Empty fields select nfnt with Lanczos3.
func NewResizer(cfg ResizeConfig) (*Resizer, error) {
	if cfg.Engine == "" {
		cfg.Engine = EngineNfnt
	}
	if cfg.Filter == "" {
		cfg.Filter = FilterLanczos3
	}

	r := &Resizer{cfg: cfg}
	switch cfg.Engine {
	case EngineNfnt:
		interp, ok := nfntFilters[cfg.Filter]
		if !ok {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown filter %q", cfg.Filter))
		}
		r.sample = func(src image.Image, w, h int) image.Image {
			return resize.Resize(uint(w), uint(h), src, interp)
		}
	case EngineImaging:
		filter, ok := imagingFilters[cfg.Filter]
		if !ok {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown filter %q", cfg.Filter))
		}
		r.sample = func(src image.Image, w, h int) image.Image {
			return imaging.Resize(src, w, h, filter)
		}
	default:
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown resize engine %q", cfg.Engine))
	}
	return r, nil
}

// DefaultResizer returns the nfnt Lanczos3 resizer.
func DefaultResizer() *Resizer {
	r, _ := NewResizer(ResizeConfig{})
	return r
}

// Config returns the effective configuration.
func (r *Resizer) Config() ResizeConfig {
	return r.cfg
}

// String names the backend as engine/filter, e.g. "nfnt/lanczos3".
func (c ResizeConfig) String() string {
	return string(c.Engine) + "/" + string(c.Filter)
}

// Resize returns img scaled to fit inside p with its aspect ratio kept.
// Images that already fit are returned as an unchanged copy. The result
// never shares memory with img and keeps its channel layout.
func (r *Resizer) Resize(img raster.Image, p Preset) (raster.Image, error) {
	if err := p.Validate(); err != nil {
		return raster.Image{}, err
	}
	if err := img.Validate(); err != nil {
		return raster.Image{}, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "resize "+p.Name)
	}

	w, h := FitDimensions(img.Width, img.Height, p.Width, p.Height)
	if w == img.Width && h == img.Height {
		return img.Clone(), nil
	}

	scaled := r.sample(img.ToImage(), w, h)
	out, err := raster.FromImageAs(scaled, img.Layout)
	if err != nil {
		return raster.Image{}, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "resize "+p.Name)
	}
	if out.Width != w || out.Height != h {
		return raster.Image{}, apperrors.Newf(apperrors.ErrorTypeInternal,
			"resize %s produced %dx%d, want %dx%d", p.Name, out.Width, out.Height, w, h)
	}
	return out, nil
}

// FitDimensions returns the largest size with the aspect ratio of w×h that
// fits inside boxW×boxH, never larger than w×h and never below 1×1.
// Fractional results are floored.
func FitDimensions(w, h, boxW, boxH int) (int, int) {
	if w <= 0 || h <= 0 || boxW <= 0 || boxH <= 0 {
		return 0, 0
	}
	if w <= boxW && h <= boxH {
		return w, h
	}

	var nw, nh int64
	if int64(boxW)*int64(h) <= int64(boxH)*int64(w) {
		nw = int64(boxW)
		nh = int64(h) * int64(boxW) / int64(w)
	} else {
		nh = int64(boxH)
		nw = int64(w) * int64(boxH) / int64(h)
	}
	return int(max(nw, 1)), int(max(nh, 1))
}
