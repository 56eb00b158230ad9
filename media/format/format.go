// Package format maps media types to decoders and encoders.
//
// A Registry is built once from a set of Codecs and is read-only afterwards,
// so a single instance can be shared by any number of concurrent pipelines.
// Adding a format means adding a Codec; callers never branch on format
// identity.
package format

import (
	"mime"
	"strings"
)

// MediaFormat identifies an encoding by its MIME type.
type MediaFormat string

// Built-in formats.
const (
	PNG  MediaFormat = "image/png"
	JPEG MediaFormat = "image/jpeg"
	GIF  MediaFormat = "image/gif"
	BMP  MediaFormat = "image/bmp"
	TIFF MediaFormat = "image/tiff"
	WebP MediaFormat = "image/webp"
)

// Parse normalises a MIME string: parameters are stripped and the type is
// lower-cased. Aliases are resolved by the Registry, not here.
func Parse(s string) MediaFormat {
	s = strings.TrimSpace(s)
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return MediaFormat(mt)
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return MediaFormat(strings.ToLower(strings.TrimSpace(s)))
}

func (f MediaFormat) String() string {
	return string(f)
}
