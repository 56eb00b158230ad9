package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/media/format"
)

// DefaultMaxInputBytes caps the encoded size read from a stream.
const DefaultMaxInputBytes int64 = 64 << 20

// NativeProcessor is a stream and file oriented front for a Pipeline. It
// uses only pure Go codecs, so the binary builds without cgo.
type NativeProcessor struct {
	pipeline *Pipeline
	registry *format.Registry
	maxBytes int64
}

// NewNativeProcessor wires a pipeline over registry.
func NewNativeProcessor(registry *format.Registry, maxBytes int64, opts ...PipelineOption) *NativeProcessor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInputBytes
	}
	return &NativeProcessor{
		pipeline: NewPipeline(registry, opts...),
		registry: registry,
		maxBytes: maxBytes,
	}
}

// Pipeline returns the underlying pipeline.
func (p *NativeProcessor) Pipeline() *Pipeline {
	return p.pipeline
}

// Read drains reader, refusing inputs larger than the configured limit.
func (p *NativeProcessor) Read(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, p.maxBytes+1))
	if err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "read input")
	}
	if int64(len(data)) > p.maxBytes {
		return nil, apperrors.NewValidation(fmt.Sprintf("input exceeds %d bytes", p.maxBytes))
	}
	return data, nil
}

// Detect returns the media type sniffed from data, or "" when it is not a
// format the registry can decode.
func (p *NativeProcessor) Detect(data []byte) format.MediaFormat {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if c, ok := p.registry.Codec(format.Parse(m.String())); ok && c.CanDecode() {
			return c.Format
		}
	}
	return ""
}

// Resize produces a single thumbnail from reader.
func (p *NativeProcessor) Resize(ctx context.Context, reader io.Reader, source, target format.MediaFormat, preset Preset) (io.Reader, error) {
	data, err := p.Read(reader)
	if err != nil {
		return nil, err
	}
	thumbs, err := p.pipeline.CreateThumbnails(ctx, Request{
		Data:    data,
		Source:  source,
		Target:  target,
		Presets: []Preset{preset},
	})
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(thumbs[0].Data), nil
}

// GetDimensions returns the size declared by the image header without
// decoding pixels.
func (p *NativeProcessor) GetDimensions(reader io.Reader, source format.MediaFormat) (int, int, error) {
	data, err := p.Read(reader)
	if err != nil {
		return 0, 0, err
	}
	info, err := p.registry.Probe(data, source)
	if err != nil {
		return 0, 0, err
	}
	return info.Width, info.Height, nil
}

// ProcessFile runs the pipeline on a file. An empty source is sniffed
// from the file content.
func (p *NativeProcessor) ProcessFile(ctx context.Context, path string, source, target format.MediaFormat, presets []Preset) ([]Thumbnail, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeValidation, "open "+path)
	}
	defer f.Close()

	data, err := p.Read(f)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = p.Detect(data)
		if source == "" {
			return nil, apperrors.NewUnsupportedFormat(mimetype.Detect(data).String(), "decoder")
		}
	}

	return p.pipeline.CreateThumbnails(ctx, Request{
		Data:    data,
		Source:  source,
		Target:  target,
		Presets: presets,
	})
}
