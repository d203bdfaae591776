// Package export produces redacted output documents.
//
// Every page without annotations is copied verbatim from the source. Every
// page with annotations is re-rendered, overpainted and replaced by a single
// opaque image, so no text, vector path or font of the original survives on
// it. Any failure on such a page aborts the whole export.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/raster"
	"github.com/OPWeb-ui/EZtify-sub000/source"
)

// MinScale is the lowest render multiplier that keeps flattened text legible.
const MinScale = 2

// Page is one page of the export input.
type Page struct {
	ID          annotation.PageID
	SourceIndex int
	Annotations []annotation.Annotation
}

// Config controls rendering and serialization.
type Config struct {
	Scale       float64
	JPEGQuality int
	// Compress flate-encodes generated content streams.
	Compress bool
	// VerifyOutput re-reads every flattened page and fails with ErrLeak when
	// text operators or fonts are found.
	VerifyOutput bool
	// Name is the base of the suggested file name.
	Name     string
	Producer string
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{Scale: MinScale, JPEGQuality: 92, Compress: true, VerifyOutput: true}
}

func (c Config) validate() error {
	if c.Scale < MinScale {
		return fmt.Errorf("%w: scale %v below %d", ErrInvalidConfig, c.Scale, MinScale)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("%w: jpeg quality %d", ErrInvalidConfig, c.JPEGQuality)
	}
	return nil
}

// Filename returns the suggested output file name for base.
func Filename(base string) string {
	base = strings.TrimSuffix(filepath.Base(base), filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return base + "-redacted.pdf"
}

// Pipeline exports pages of one source document.
type Pipeline struct {
	src     source.Document
	cfg     Config
	painter *raster.Painter
	logger  observability.Logger
	tracer  observability.Tracer
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l observability.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithPainter shares a painter, and its parsed label font, with other users.
func WithPainter(pt *raster.Painter) Option {
	return func(p *Pipeline) {
		if pt != nil {
			p.painter = pt
		}
	}
}

// New validates cfg and returns a pipeline over src.
func New(src source.Document, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		src:     src,
		cfg:     cfg,
		painter: raster.NewPainter(),
		logger:  observability.NopLogger{},
		tracer:  observability.NopTracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Phase is a step of the per-page work.
type Phase int

const (
	PhaseCopy Phase = iota
	PhaseRender
	PhaseComposite
	PhaseEncode
	PhaseEmit
	PhaseSerialize
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseCopy:
		return "copy"
	case PhaseRender:
		return "render"
	case PhaseComposite:
		return "composite"
	case PhaseEncode:
		return "encode"
	case PhaseEmit:
		return "emit"
	case PhaseSerialize:
		return "serialize"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Event reports progress. PageIndex is the position in the export input and
// equals Total for document-level phases.
type Event struct {
	PageIndex int
	Total     int
	Phase     Phase
}

// eventsPerPage bounds the events one page can emit.
const eventsPerPage = 4

// Job is an export running in its own goroutine.
type Job struct {
	pages  []Page
	events chan Event
	done   chan struct{}
	result *Result
	err    error
}

// Events returns the progress stream. It is buffered for the whole export, so
// a job never waits on a slow reader, and closed when the job ends.
func (j *Job) Events() <-chan Event { return j.events }

// Done is closed when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Pages returns the annotation snapshot the job exports.
func (j *Job) Pages() []Page {
	out := make([]Page, len(j.pages))
	for i, pg := range j.pages {
		pg.Annotations = slices.Clone(pg.Annotations)
		out[i] = pg
	}
	return out
}

// Wait blocks until the job ends and returns either a complete result or an
// error, never both.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	return j.result, j.err
}

// Start snapshots pages and exports them in the background. Cancel ctx to
// stop at the next page boundary with ErrCancelled.
func (p *Pipeline) Start(ctx context.Context, pages []Page) *Job {
	snapshot := make([]Page, len(pages))
	for i, pg := range pages {
		pg.Annotations = append([]annotation.Annotation(nil), pg.Annotations...)
		snapshot[i] = pg
	}
	j := &Job{
		pages:  snapshot,
		events: make(chan Event, len(pages)*eventsPerPage+2),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(j.done)
		defer close(j.events)
		j.result, j.err = p.run(ctx, snapshot, j.events)
	}()
	return j
}

// Export runs an export to completion, discarding progress events.
func (p *Pipeline) Export(ctx context.Context, pages []Page) (*Result, error) {
	return p.Start(ctx, pages).Wait()
}
