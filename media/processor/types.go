package processor

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	apperrors "github.com/leeforge/thumbnailer/errors"
)

// Preset is a bounding box a thumbnail must fit inside.
type Preset struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Standard sizes, smallest first.
var (
	Icon   = Preset{Name: "icon", Width: 32, Height: 32}
	Small  = Preset{Name: "small", Width: 64, Height: 64}
	Medium = Preset{Name: "medium", Width: 128, Height: 128}
	Large  = Preset{Name: "large", Width: 256, Height: 256}
	Larger = Preset{Name: "larger", Width: 512, Height: 512}
)

// Presets returns the standard sizes in ascending order.
func Presets() []Preset {
	return []Preset{Icon, Small, Medium, Large, Larger}
}

// Custom returns a caller-defined box named "<w>x<h>". It is not validated
// until it reaches the resizer.
func Custom(width, height int) Preset {
	return Preset{Name: fmt.Sprintf("%dx%d", width, height), Width: width, Height: height}
}

// Validate rejects boxes with a zero or negative side.
func (p Preset) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return apperrors.NewInvalidPreset(p.Name, p.Width, p.Height)
	}
	return nil
}

// Standard reports whether p is one of the named sizes.
func (p Preset) Standard() bool {
	for _, s := range Presets() {
		if p == s {
			return true
		}
	}
	return false
}

func (p Preset) String() string {
	return p.Name
}

var fold = cases.Fold()

// ParsePreset accepts a standard name in any case or a "<w>x<h>" box.
func ParsePreset(s string) (Preset, error) {
	name := fold.String(strings.TrimSpace(s))
	for _, p := range Presets() {
		if p.Name == name {
			return p, nil
		}
	}

	ws, hs, ok := strings.Cut(name, "x")
	if !ok {
		return Preset{}, apperrors.NewValidation(fmt.Sprintf("unknown preset %q", s)).WithDetail("preset", s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil {
		return Preset{}, apperrors.NewValidation(fmt.Sprintf("unknown preset %q", s)).WithDetail("preset", s)
	}
	p := Custom(w, h)
	return p, p.Validate()
}

// ParsePresets splits a comma-separated list, keeping caller order.
func ParsePresets(list string) ([]Preset, error) {
	var out []Preset
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		p, err := ParsePreset(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, apperrors.NewValidation("at least one preset is required")
	}
	return out, nil
}
