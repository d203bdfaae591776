// Package session is the application surface of the redaction subsystem: one
// editing session over one source document.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/config"
	"github.com/OPWeb-ui/EZtify-sub000/editor"
	"github.com/OPWeb-ui/EZtify-sub000/export"
	"github.com/OPWeb-ui/EZtify-sub000/locator"
	"github.com/OPWeb-ui/EZtify-sub000/metrics"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/preview"
	"github.com/OPWeb-ui/EZtify-sub000/raster"
	"github.com/OPWeb-ui/EZtify-sub000/source"
)

var (
	// ErrSourceUnreadable reports a source that failed validation in Open.
	ErrSourceUnreadable = errors.New("session: source unreadable")

	// ErrExportInProgress reports an edit attempted while an export runs.
	ErrExportInProgress = errors.New("session: export in progress")

	// ErrPageRange reports a page position outside the session.
	ErrPageRange = errors.New("session: page position out of range")
)

// PageInfo describes a page of the session.
type PageInfo struct {
	ID          annotation.PageID
	SourceIndex int
	Size        source.Size
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l observability.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(s *Session) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithName sets the base of exported file names. Sources exposing Name() are
// used otherwise.
func WithName(name string) Option { return func(s *Session) { s.name = name } }

// Session owns the annotation store and the interaction state of one
// document. Its methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	src    source.Document
	cfg    config.Config
	name   string
	logger observability.Logger
	tracer observability.Tracer

	store    *annotation.Store
	editor   *editor.Editor
	locator  *locator.Locator
	pipeline *export.Pipeline
	painter  *raster.Painter

	pages        []PageInfo
	active       int
	fill         annotation.Color
	verification bool
	job          *export.Job
}

// Open validates src and starts a session. A source that cannot be read fails
// with ErrSourceUnreadable before any editing is possible.
func Open(ctx context.Context, src source.Document, cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	s := &Session{
		src:     src,
		cfg:     cfg,
		logger:  observability.NopLogger{},
		tracer:  observability.NopTracer(),
		painter: raster.NewPainter(),
	}
	if named, ok := src.(interface{ Name() string }); ok {
		s.name = named.Name()
	}
	for _, opt := range opts {
		opt(s)
	}

	_, span := s.tracer.StartSpan(ctx, observability.SpanSourceVerify)
	err := source.Verify(src)
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	s.store = annotation.NewStore(annotation.WithMinSize(cfg.Redaction.MinRegionPercent))
	for i := 0; i < src.PageCount(); i++ {
		size, _ := src.PageSize(i)
		info := PageInfo{ID: annotation.PageID(uuid.NewString()), SourceIndex: i, Size: size}
		s.store.AddPage(info.ID)
		s.pages = append(s.pages, info)
	}

	s.editor = editor.New(s.store, editor.WithLogger(s.logger))
	s.fill = cfg.DefaultColor()
	s.editor.SetFill(s.fill)
	s.locator = locator.New(src,
		locator.WithOptions(locator.Options{
			MinQueryLength: cfg.Search.MinQueryLength,
			Padding:        cfg.Search.Padding,
			AscentFactor:   cfg.Search.AscentFactor,
			HeightFactor:   cfg.Search.HeightFactor,
		}),
		locator.WithLogger(s.logger),
		locator.WithTracer(s.tracer))
	s.pipeline, err = export.New(src, export.Config{
		Scale:        cfg.Export.Scale,
		JPEGQuality:  cfg.Export.JPEGQuality,
		Compress:     cfg.Export.Compress,
		VerifyOutput: cfg.Export.VerifyOutput,
		Name:         s.name,
	}, export.WithLogger(s.logger), export.WithTracer(s.tracer), export.WithPainter(s.painter))
	if err != nil {
		return nil, err
	}
	s.setActive(0)

	s.logger.Info("session opened", observability.Int("pages", len(s.pages)), observability.String("name", s.name))
	return s, nil
}

// Pages lists the pages in document order.
func (s *Session) Pages() []PageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PageInfo(nil), s.pages...)
}

// PageID returns the id of the page at position.
func (s *Session) PageID(position int) (annotation.PageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPosition(position); err != nil {
		return "", err
	}
	return s.pages[position].ID, nil
}

func (s *Session) checkPosition(position int) error {
	if position < 0 || position >= len(s.pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, position, len(s.pages))
	}
	return nil
}

// exporting reports whether an export job is still running. Callers hold mu.
func (s *Session) exporting() bool {
	if s.job == nil {
		return false
	}
	select {
	case <-s.job.Done():
		s.job = nil
		return false
	default:
		return true
	}
}

func (s *Session) mutable() error {
	if s.exporting() {
		return ErrExportInProgress
	}
	return nil
}

// DrawAnnotation adds a region to page.
func (s *Session) DrawAnnotation(page annotation.PageID, region annotation.Region, fill annotation.Color, label string) (annotation.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return "", err
	}
	return s.add(page, region, fill, label)
}

func (s *Session) add(page annotation.PageID, region annotation.Region, fill annotation.Color, label string) (annotation.ID, error) {
	id, err := s.store.Add(page, region, fill, label)
	if err != nil {
		metrics.AnnotationMutationsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}
	metrics.AnnotationMutationsTotal.WithLabelValues("add").Inc()
	return id, nil
}

// RemoveAnnotation deletes one annotation.
func (s *Session) RemoveAnnotation(page annotation.PageID, id annotation.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if err := s.store.Remove(page, id); err != nil {
		return err
	}
	metrics.AnnotationMutationsTotal.WithLabelValues("remove").Inc()
	return nil
}

// UndoLast removes the most recent annotation of page.
func (s *Session) UndoLast(page annotation.PageID) (annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return annotation.Annotation{}, err
	}
	ann, err := s.store.UndoLast(page)
	if err != nil {
		return annotation.Annotation{}, err
	}
	metrics.AnnotationMutationsTotal.WithLabelValues("undo").Inc()
	return ann, nil
}

// Annotations lists the annotations of page in insertion order.
func (s *Session) Annotations(page annotation.PageID) []annotation.Annotation {
	return s.store.List(page)
}

// Search finds query in the pages of the session. Match.PageIndex is the
// page position in the session.
func (s *Session) Search(ctx context.Context, query string) ([]locator.Match, error) {
	matches, err := s.locator.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	positions := make(map[int]int, len(s.pages))
	for pos, p := range s.pages {
		positions[p.SourceIndex] = pos
	}
	out := matches[:0]
	for _, m := range matches {
		pos, ok := positions[m.PageIndex]
		if !ok {
			continue
		}
		m.PageIndex = pos
		out = append(out, m)
	}
	return out, nil
}

// ApplyMatch turns a search match into an annotation with the editor's
// current fill and makes its page the active one.
func (s *Session) ApplyMatch(m locator.Match) (annotation.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return "", err
	}
	if err := s.checkPosition(m.PageIndex); err != nil {
		return "", err
	}
	id, err := s.add(s.pages[m.PageIndex].ID, m.Region, s.fill, "")
	if err != nil {
		return "", err
	}
	s.setActive(m.PageIndex)
	return id, nil
}

// Pointer feeds one pointer event to the region editor of the active page.
// Cancel is always accepted so a gesture can be abandoned mid-export. Any
// other event rejected during an export leaves the editor idle.
func (s *Session) Pointer(ev editor.Event) (annotation.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Kind != editor.PointerCancel {
		if err := s.mutable(); err != nil {
			s.editor.Cancel()
			return "", err
		}
	}
	id, err := s.editor.Handle(ev)
	if id != "" {
		metrics.AnnotationMutationsTotal.WithLabelValues("add").Inc()
	}
	return id, err
}

// SetTool switches the editor tool.
func (s *Session) SetTool(t editor.Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.SetTool(t)
}

// SetFill sets the color of new annotations.
func (s *Session) SetFill(c annotation.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.SetFill(c)
	s.fill = c
}

// SetLabel sets the label of annotations drawn from now on.
func (s *Session) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.SetLabel(label)
}

// SetActivePage makes the page at position the target of pointer events.
// The interactive surface is the preview raster of that page.
func (s *Session) SetActivePage(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPosition(position); err != nil {
		return err
	}
	s.setActive(position)
	return nil
}

func (s *Session) setActive(position int) {
	s.active = position
	p := s.pages[position]
	s.editor.SetSurface(p.ID, p.Size.Width*s.cfg.Preview.Scale, p.Size.Height*s.cfg.Preview.Scale)
}

// ActivePage returns the position of the active page.
func (s *Session) ActivePage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetVerificationMode toggles the audit display of annotations. It has no
// effect on stored annotations or export output.
func (s *Session) SetVerificationMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verification = enabled
}

// VerificationMode reports the audit display flag.
func (s *Session) VerificationMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verification
}

// Preview renders the page at position with its annotations drawn in the
// current display mode.
func (s *Session) Preview(ctx context.Context, position int) (*image.RGBA, error) {
	s.mu.Lock()
	if err := s.checkPosition(position); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	p := s.pages[position]
	verification := s.verification
	s.mu.Unlock()

	img, err := s.src.RenderPage(ctx, p.SourceIndex, s.cfg.Preview.Scale)
	if err != nil {
		return nil, fmt.Errorf("preview page %d: %w", position, err)
	}
	return preview.Compose(img, s.store.List(p.ID), s.painter, preview.Options{Verification: verification})
}

// ExportSecure snapshots the annotations and starts an export. A drag in
// progress is abandoned and edits are rejected with ErrExportInProgress until
// the job ends.
func (s *Session) ExportSecure(ctx context.Context) (*export.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting() {
		return nil, ErrExportInProgress
	}
	snap := s.store.Snapshot()
	pages := make([]export.Page, len(s.pages))
	for i, p := range s.pages {
		pages[i] = export.Page{ID: p.ID, SourceIndex: p.SourceIndex, Annotations: snap.For(p.ID)}
	}
	s.editor.Cancel()
	s.job = s.pipeline.Start(ctx, pages)
	return s.job, nil
}

// RemovePage drops the page at position and its annotations.
func (s *Session) RemovePage(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if err := s.checkPosition(position); err != nil {
		return err
	}
	if len(s.pages) == 1 {
		return fmt.Errorf("%w: cannot remove the last page", ErrPageRange)
	}
	s.store.RemovePage(s.pages[position].ID)
	s.pages = append(s.pages[:position:position], s.pages[position+1:]...)
	if s.active >= len(s.pages) {
		s.active = len(s.pages) - 1
	} else if s.active > position {
		s.active--
	}
	s.setActive(s.active)
	return nil
}
