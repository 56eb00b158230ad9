package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
)

// Published is a stored thumbnail.
type Published struct {
	Preset string
	Key    string
	URL    string
	Reused bool
}

// Publisher stores thumbnails under content-addressed keys:
// <digest[:2]>/<digest>/<preset><ext>.
type Publisher struct {
	provider  Provider
	extension func(format.MediaFormat) string
}

// NewPublisher resolves file extensions through extension, typically
// (*format.Registry).Extension.
func NewPublisher(provider Provider, extension func(format.MediaFormat) string) *Publisher {
	return &Publisher{provider: provider, extension: extension}
}

// Provider returns the underlying provider.
func (p *Publisher) Provider() Provider {
	return p.provider
}

// ObjectKey returns the key a thumbnail of digest is stored under.
func (p *Publisher) ObjectKey(digest string, thumb processor.Thumbnail) string {
	ext := p.extension(thumb.Format)
	if ext == "" {
		ext = ".bin"
	}
	shard := digest
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return fmt.Sprintf("%s/%s/%s%s", shard, digest, thumb.Preset.Name, ext)
}

// Publish uploads every thumbnail, skipping objects that already exist.
// The first failure aborts; objects already written are left in place
// since their keys are content addressed.
func (p *Publisher) Publish(ctx context.Context, digest string, thumbs []processor.Thumbnail) ([]Published, error) {
	out := make([]Published, 0, len(thumbs))
	for _, thumb := range thumbs {
		key := p.ObjectKey(digest, thumb)

		exists, err := p.provider.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", key, err)
		}
		if exists {
			out = append(out, Published{Preset: thumb.Preset.Name, Key: key, URL: p.provider.URL(key), Reused: true})
			continue
		}

		url, err := p.provider.Upload(ctx, bytes.NewReader(thumb.Data), key, thumb.Format.String())
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}
		out = append(out, Published{Preset: thumb.Preset.Name, Key: key, URL: url})
	}
	return out, nil
}
