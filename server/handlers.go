package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leeforge/thumbnailer/cache"
	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/http/binding"
	"github.com/leeforge/thumbnailer/http/responder"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/processor"
)

// presetList binds ?presets=small,64x32 (or repeated parameters).
type presetList []processor.Preset

func (p *presetList) UnmarshalQuery(s string) error {
	presets, err := processor.ParsePresets(s)
	if err != nil {
		return err
	}
	*p = presets
	return nil
}

type thumbnailQuery struct {
	Presets  presetList `query:"presets"`
	Target   string     `query:"target"`
	Quality  *int       `query:"quality" validate:"omitempty,gte=0,lte=100"`
	OmitData bool       `query:"omit_data"`
}

// encodedSource is the JSON body alternative to a raw upload.
type encodedSource struct {
	Data   string `json:"data" validate:"required,base64"`
	Source string `json:"source"`
}

type thumbnailResponse struct {
	Preset string `json:"preset"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int    `json:"size"`
	SHA256 string `json:"sha256"`
	URL    string `json:"url,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

type thumbnailsResponse struct {
	Source     string              `json:"source"`
	SHA256     string              `json:"sha256"`
	Cached     bool                `json:"cached"`
	Thumbnails []thumbnailResponse `json:"thumbnails"`
}

// job is one resolved request.
type job struct {
	data    []byte
	digest  string
	source  format.MediaFormat
	target  format.MediaFormat
	presets []processor.Preset
	encode  format.EncodeOptions
}

func (s *Server) createThumbnails(w http.ResponseWriter, r *http.Request) {
	var q thumbnailQuery
	if err := binding.Query(r, &q); err != nil {
		s.fail(w, r, err)
		return
	}
	j, err := s.newJob(w, r, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	results, cached, err := s.generate(r.Context(), j)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	urls, err := s.publish(r.Context(), j.digest, results)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := thumbnailsResponse{
		Source:     j.source.String(),
		SHA256:     j.digest,
		Cached:     cached,
		Thumbnails: make([]thumbnailResponse, 0, len(results)),
	}
	for i, res := range results {
		item := thumbnailResponse{
			Preset: res.Preset,
			Width:  res.Width,
			Height: res.Height,
			Format: res.Format,
			Size:   len(res.Data),
			SHA256: cache.Digest(res.Data),
			URL:    urls[i],
		}
		if !q.OmitData {
			item.Data = res.Data
		}
		out.Thumbnails = append(out.Thumbnails, item)
	}
	responder.OK(w, r, out)
}

// createThumbnail returns one encoded thumbnail as the response body.
func (s *Server) createThumbnail(w http.ResponseWriter, r *http.Request) {
	preset, err := processor.ParsePreset(chi.URLParam(r, "preset"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var q thumbnailQuery
	if err := binding.Query(r, &q); err != nil {
		s.fail(w, r, err)
		return
	}
	q.Presets = presetList{preset}

	j, err := s.newJob(w, r, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	results, cached, err := s.generate(r.Context(), j)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res := results[0]
	h := w.Header()
	h.Set("Content-Type", res.Format)
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("X-Thumbnail-Width", strconv.Itoa(res.Width))
	h.Set("X-Thumbnail-Height", strconv.Itoa(res.Height))
	if cached {
		h.Set("X-Thumbnail-Cache", "hit")
	} else {
		h.Set("X-Thumbnail-Cache", "miss")
	}
	h.Set("ETag", `"`+cache.Digest(res.Data)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

// probe reports the format and declared size of the uploaded image.
func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	data, source, err := s.readSource(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.registry.Probe(data, source)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	responder.OK(w, r, map[string]any{
		"format": info.Format.String(),
		"width":  info.Width,
		"height": info.Height,
		"size":   len(data),
	})
}

func (s *Server) newJob(w http.ResponseWriter, r *http.Request, q thumbnailQuery) (job, error) {
	data, source, err := s.readSource(w, r)
	if err != nil {
		return job{}, err
	}

	j := job{
		data:    data,
		digest:  cache.Digest(data),
		source:  source,
		target:  s.defaultTarget,
		presets: []processor.Preset(q.Presets),
		encode:  s.encode,
	}
	if q.Target != "" {
		j.target = format.Parse(q.Target)
	}
	if len(j.presets) == 0 {
		j.presets = s.defaultPresets
	}
	if q.Quality != nil {
		j.encode.Quality = *q.Quality
	}
	return j, nil
}

// readSource reads the upload. A JSON body carries base64 data and an
// optional source type; any other body is the image itself, typed by
// Content-Type. Octet-stream or missing types are sniffed.
func (s *Server) readSource(w http.ResponseWriter, r *http.Request) ([]byte, format.MediaFormat, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	contentType := format.Parse(r.Header.Get("Content-Type"))

	var (
		data   []byte
		source format.MediaFormat
		err    error
	)
	if contentType == "application/json" {
		var body encodedSource
		if err := binding.JSON(r, &body); err != nil {
			return nil, "", err
		}
		data, err = base64.StdEncoding.DecodeString(body.Data)
		if err != nil {
			return nil, "", apperrors.NewValidation("data is not valid base64")
		}
		source = format.Parse(body.Source)
	} else {
		data, err = s.processor.Read(r.Body)
		if err != nil {
			return nil, "", err
		}
		source = contentType
	}

	if len(data) == 0 {
		return nil, "", apperrors.NewValidation("request body is empty")
	}
	if source == "" || source == "application/octet-stream" {
		source = s.processor.Detect(data)
		if source == "" {
			return nil, "", apperrors.NewUnsupportedFormat("application/octet-stream", "decoder")
		}
	}
	return data, source, nil
}

// generate serves j from the cache or runs the pipeline under the
// concurrency limit.
func (s *Server) generate(ctx context.Context, j job) ([]result, bool, error) {
	key := s.cacheKey(j)
	if results, ok := s.lookup(ctx, key); ok {
		return results, true, nil
	}

	if err := s.acquire(ctx); err != nil {
		return nil, false, err
	}
	thumbs, err := s.processor.Pipeline().CreateThumbnails(ctx, processor.Request{
		Data:    j.data,
		Source:  j.source,
		Target:  j.target,
		Presets: j.presets,
		Encode:  j.encode,
	})
	s.release()
	if err != nil {
		return nil, false, err
	}

	results := make([]result, len(thumbs))
	for i, t := range thumbs {
		results[i] = resultOf(t)
	}
	s.store(ctx, key, results)
	return results, false, nil
}

func (s *Server) acquire(ctx context.Context) error {
	if s.cfg.AcquireTimeout <= 0 {
		if !s.slots.TryAcquire(1) {
			return apperrors.NewUnavailable("all pipeline slots are busy")
		}
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
		defer cancel()
		if err := s.slots.Acquire(waitCtx, 1); err != nil {
			return apperrors.WrapWithType(err, apperrors.ErrorTypeUnavailable, "all pipeline slots are busy")
		}
	}
	if s.collector != nil {
		s.collector.AddGauge("pipeline_slots_in_use", 1, nil)
	}
	return nil
}

func (s *Server) release() {
	s.slots.Release(1)
	if s.collector != nil {
		s.collector.AddGauge("pipeline_slots_in_use", -1, nil)
	}
}

// publish returns one URL per result, all empty without a publisher.
func (s *Server) publish(ctx context.Context, digest string, results []result) ([]string, error) {
	urls := make([]string, len(results))
	if s.publisher == nil {
		return urls, nil
	}

	thumbs := make([]processor.Thumbnail, len(results))
	for i, res := range results {
		thumbs[i] = res.thumbnail()
	}
	published, err := s.publisher.Publish(ctx, digest, thumbs)
	if err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "publish thumbnails")
	}
	for i, p := range published {
		urls[i] = p.URL
	}
	return urls, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		maxErr  *http.MaxBytesError
		verrs   binding.ValidationErrors
		bindErr *binding.BindError
	)
	switch {
	case errors.As(err, &maxErr):
		responder.TooLarge(w, r, maxErr.Limit)
	case errors.As(err, &verrs):
		responder.ValidationError(w, r, verrs)
	case errors.As(err, &bindErr):
		responder.BindError(w, r, bindErr)
	default:
		responder.Fail(w, r, err)
	}
}
