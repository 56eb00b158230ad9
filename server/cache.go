package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/leeforge/thumbnailer/cache"
	"github.com/leeforge/thumbnailer/json"
	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
)

// result is a produced thumbnail in the form kept by the cache.
type result struct {
	Preset string `json:"preset"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

func resultOf(t processor.Thumbnail) result {
	return result{
		Preset: t.Preset.Name,
		Width:  t.Width(),
		Height: t.Height(),
		Format: t.Format.String(),
		Data:   t.Data,
	}
}

// thumbnail rebuilds enough of a processor.Thumbnail to publish it.
func (r result) thumbnail() processor.Thumbnail {
	return processor.Thumbnail{
		Preset: processor.Preset{Name: r.Preset},
		Data:   r.Data,
		Format: format.MediaFormat(r.Format),
	}
}

func (s *Server) cacheKey(j job) string {
	names := make([]string, len(j.presets))
	for i, p := range j.presets {
		names[i] = p.Name
	}
	resampler := s.processor.Pipeline().Resizer().Config().String()
	return cache.Key(s.cacheCfg.Prefix, j.digest, j.source.String(), j.target.String(), resampler, names, j.encode.Quality)
}

// lookup treats cache errors as misses; the pipeline is the source of
// truth.
func (s *Server) lookup(ctx context.Context, key string) ([]result, bool) {
	if s.cache == nil {
		return nil, false
	}
	results, hit := s.read(ctx, key)
	if s.collector != nil {
		s.collector.RecordCacheHit(s.cacheDriver(), hit)
	}
	return results, hit
}

func (s *Server) read(ctx context.Context, key string) ([]result, bool) {
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logging.FromContext(ctx).Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	var results []result
	if err := json.Unmarshal(raw, &results); err != nil || len(results) == 0 {
		logging.FromContext(ctx).Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return results, true
}

func (s *Server) store(ctx context.Context, key string, results []result) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(results)
	if err == nil {
		err = s.cache.Set(ctx, key, raw, s.cacheCfg.TTL)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("cache set failed",
			zap.String("key", key),
			zap.Int("bytes", len(raw)),
			zap.Error(err),
		)
	}
}

func (s *Server) cacheDriver() string {
	if s.cacheCfg.Driver == "" {
		return cache.DriverMemory
	}
	return s.cacheCfg.Driver
}
