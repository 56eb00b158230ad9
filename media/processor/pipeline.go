package processor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/thumbnailer/errors"
	"github.com/leeforge/thumbnailer/logging"
	"github.com/leeforge/thumbnailer/media/format"
	"github.com/leeforge/thumbnailer/media/raster"
)

// Codecs resolves media types to decode and encode functions.
// *format.Registry satisfies it.
type Codecs interface {
	Decoder(mt format.MediaFormat) (format.DecodeFunc, error)
	Encoder(mt format.MediaFormat) (format.EncodeFunc, error)
}

// Request asks for one thumbnail per preset, in order.
type Request struct {
	Data    []byte
	Source  format.MediaFormat
	Target  format.MediaFormat
	Presets []Preset
	Encode  format.EncodeOptions
}

// Thumbnail is one resized and encoded image.
type Thumbnail struct {
	Preset Preset
	Image  raster.Image
	Data   []byte
	Format format.MediaFormat
}

// Width of the resized image.
func (t Thumbnail) Width() int { return t.Image.Width }

// Height of the resized image.
func (t Thumbnail) Height() int { return t.Image.Height }

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithResizer replaces the default nfnt Lanczos3 resizer.
func WithResizer(r *Resizer) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.resizer = r
		}
	}
}

// WithObserver registers a state transition observer.
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithLogger sets the pipeline logger. Stages log at debug level and
// failures at warn level.
func WithLogger(l logging.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline turns one source image into a list of thumbnails. A Pipeline
// holds no per-call state and may be shared between goroutines.
type Pipeline struct {
	codecs    Codecs
	resizer   *Resizer
	observers []Observer
	logger    logging.Logger
}

// NewPipeline builds a pipeline over codecs.
func NewPipeline(codecs Codecs, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		codecs:  codecs,
		resizer: DefaultResizer(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resizer returns the resizer used for every preset.
func (p *Pipeline) Resizer() *Resizer {
	return p.resizer
}

// run is the per-call state of a pipeline invocation.
type run struct {
	p      *Pipeline
	req    Request
	state  State
	since  time.Time
	logger logging.Logger
}

func (p *Pipeline) start(ctx context.Context, req Request) *run {
	return &run{
		p:     p,
		req:   req,
		state: StateIdle,
		since: time.Now(),
		logger: logging.WithContext(p.logger, ctx).With(
			zap.String("source", req.Source.String()),
			zap.String("target", req.Target.String()),
		),
	}
}

func (r *run) transition(to State, preset Preset, err error) {
	now := time.Now()
	t := Transition{
		From:    r.state,
		To:      to,
		Preset:  preset,
		Err:     err,
		Elapsed: now.Sub(r.since),
	}
	r.state, r.since = to, now
	for _, o := range r.p.observers {
		o.OnTransition(t)
	}
}

func (r *run) fail(stage string, preset Preset, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Details["stage"] == nil {
		appErr.WithDetail("stage", stage)
	}
	r.logger.Warn("thumbnail pipeline failed",
		zap.String("stage", stage),
		zap.String("preset", preset.Name),
		zap.String("kind", string(apperrors.TypeOf(err))),
		zap.Error(err),
	)
	r.transition(StateFailed, preset, err)
	return err
}

// prepare validates the request, resolves the codecs and decodes the
// source. The encoder is resolved first so an unsupported target never
// costs a decode.
func (r *run) prepare() (raster.Image, format.EncodeFunc, error) {
	if len(r.req.Presets) == 0 {
		return raster.Image{}, nil, r.fail("validate", Preset{}, apperrors.NewValidation("at least one preset is required"))
	}

	encode, err := r.p.codecs.Encoder(r.req.Target)
	if err != nil {
		return raster.Image{}, nil, r.fail("resolve", Preset{}, err)
	}
	decode, err := r.p.codecs.Decoder(r.req.Source)
	if err != nil {
		return raster.Image{}, nil, r.fail("resolve", Preset{}, err)
	}

	r.transition(StateDecoding, Preset{}, nil)
	src, err := decode(r.req.Data)
	if err != nil {
		return raster.Image{}, nil, r.fail("decode", Preset{}, err)
	}
	r.logger.Debug("source decoded",
		zap.Int("width", src.Width),
		zap.Int("height", src.Height),
		zap.Stringer("layout", src.Layout),
	)
	r.transition(StateDecoded, Preset{}, nil)
	return src, encode, nil
}

// skip records a failed preset of CreateThumbnailsEach. The run returns to
// StateDecoded with the error attached instead of ending.
func (r *run) skip(stage string, preset Preset, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Details["stage"] == nil {
		appErr.WithDetail("stage", stage)
	}
	r.logger.Warn("thumbnail preset failed",
		zap.String("stage", stage),
		zap.String("preset", preset.Name),
		zap.String("kind", string(apperrors.TypeOf(err))),
		zap.Error(err),
	)
	r.transition(StateDecoded, preset, err)
}

// render produces one thumbnail from the shared decoded source. On error
// it reports the failing stage and leaves the state transition to the
// caller.
func (r *run) render(src raster.Image, encode format.EncodeFunc, preset Preset) (Thumbnail, string, error) {
	r.transition(StateResizing, preset, nil)
	img, err := r.p.resizer.Resize(src, preset)
	if err != nil {
		return Thumbnail{}, "resize", err
	}

	r.transition(StateEncoding, preset, nil)
	data, err := encode(img, r.req.Encode)
	if err != nil {
		return Thumbnail{}, "encode", err
	}

	r.logger.Debug("thumbnail encoded",
		zap.String("preset", preset.Name),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Int("bytes", len(data)),
	)
	return Thumbnail{Preset: preset, Image: img, Data: data, Format: r.req.Target}, "", nil
}

// CreateThumbnails decodes req.Data once and returns one thumbnail per
// preset in request order. The first failing step aborts the call and no
// partial results are returned. ctx is checked between presets.
func (p *Pipeline) CreateThumbnails(ctx context.Context, req Request) ([]Thumbnail, error) {
	r := p.start(ctx, req)

	src, encode, err := r.prepare()
	if err != nil {
		return nil, err
	}

	out := make([]Thumbnail, 0, len(req.Presets))
	for _, preset := range req.Presets {
		if err := ctx.Err(); err != nil {
			return nil, r.fail("cancel", preset, apperrors.WrapWithType(err, apperrors.ErrorTypeUnavailable, "cancelled"))
		}
		thumb, stage, err := r.render(src, encode, preset)
		if err != nil {
			return nil, r.fail(stage, preset, err)
		}
		out = append(out, thumb)
	}

	r.transition(StateDone, Preset{}, nil)
	return out, nil
}

// Outcome is the result for a single preset of CreateThumbnailsEach.
type Outcome struct {
	Preset    Preset
	Thumbnail Thumbnail
	Err       error
}

// ResultSet holds one Outcome per requested preset, in request order.
type ResultSet []Outcome

// Thumbnails returns the successful results, in order.
func (rs ResultSet) Thumbnails() []Thumbnail {
	out := make([]Thumbnail, 0, len(rs))
	for _, o := range rs {
		if o.Err == nil {
			out = append(out, o.Thumbnail)
		}
	}
	return out
}

// Err returns the first per-preset error, if any.
func (rs ResultSet) Err() error {
	for _, o := range rs {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// CreateThumbnailsEach is the non-aborting variant of CreateThumbnails:
// request, codec and decode failures still fail the whole call, but a
// failing preset only fails its own Outcome. Such a preset moves the run
// back to StateDecoded with Transition.Err set; the run still ends in
// StateDone.
func (p *Pipeline) CreateThumbnailsEach(ctx context.Context, req Request) (ResultSet, error) {
	r := p.start(ctx, req)

	src, encode, err := r.prepare()
	if err != nil {
		return nil, err
	}

	out := make(ResultSet, 0, len(req.Presets))
	for _, preset := range req.Presets {
		if err := ctx.Err(); err != nil {
			return nil, r.fail("cancel", preset, apperrors.WrapWithType(err, apperrors.ErrorTypeUnavailable, "cancelled"))
		}
		thumb, stage, err := r.render(src, encode, preset)
		if err != nil {
			r.skip(stage, preset, err)
		}
		out = append(out, Outcome{Preset: preset, Thumbnail: thumb, Err: err})
	}

	r.transition(StateDone, Preset{}, nil)
	return out, nil
}
