package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/config"
	"github.com/OPWeb-ui/EZtify-sub000/editor"
	"github.com/OPWeb-ui/EZtify-sub000/export"
	"github.com/OPWeb-ui/EZtify-sub000/memdoc"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/source"
)

func loadStatement(t *testing.T) *memdoc.Document {
	t.Helper()
	doc, err := memdoc.LoadFile("../memdoc/testdata/statement.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Export.Compress = false
	return cfg
}

func open(t *testing.T, src source.Document) *Session {
	t.Helper()
	s, err := Open(context.Background(), src, testConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

type emptyDoc struct{ *memdoc.Document }

func (emptyDoc) PageCount() int { return 0 }

// gatedRenderer holds every render until release is closed.
type gatedRenderer struct {
	*memdoc.Document
	release chan struct{}
}

func (g gatedRenderer) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Document.RenderPage(ctx, index, scale)
}

func TestOpen_UnreadableSource(t *testing.T) {
	_, err := Open(context.Background(), emptyDoc{loadStatement(t)}, testConfig())
	if !errors.Is(err, ErrSourceUnreadable) || !errors.Is(err, source.ErrUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
}

// recordingSpan drops calls made after Finish, as exporting tracers do.
type recordingSpan struct {
	name     string
	err      error
	finished bool
}

func (s *recordingSpan) SetTag(string, any) {}

func (s *recordingSpan) SetError(err error) {
	if !s.finished {
		s.err = err
	}
}

func (s *recordingSpan) Finish() { s.finished = true }

type recordingTracer struct{ spans []*recordingSpan }

func (r *recordingTracer) StartSpan(ctx context.Context, name string) (context.Context, observability.Span) {
	sp := &recordingSpan{name: name}
	r.spans = append(r.spans, sp)
	return ctx, sp
}

func TestOpen_VerifySpanRecordsError(t *testing.T) {
	tr := &recordingTracer{}
	if _, err := Open(context.Background(), emptyDoc{loadStatement(t)}, testConfig(), WithTracer(tr)); err == nil {
		t.Fatal("expected open to fail")
	}
	if len(tr.spans) != 1 || tr.spans[0].name != observability.SpanSourceVerify {
		t.Fatalf("unexpected spans %+v", tr.spans)
	}
	if sp := tr.spans[0]; !sp.finished || !errors.Is(sp.err, source.ErrUnreadable) {
		t.Fatalf("span finished=%v err=%v", sp.finished, sp.err)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Export.Scale = 1
	if _, err := Open(context.Background(), loadStatement(t), cfg); err == nil {
		t.Fatal("expected config error")
	}
}

func TestOpen_Pages(t *testing.T) {
	s := open(t, loadStatement(t))
	pages := s.Pages()
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	seen := map[annotation.PageID]bool{}
	for i, p := range pages {
		if p.SourceIndex != i || p.Size != (source.Size{Width: 612, Height: 792}) {
			t.Fatalf("page %d: %+v", i, p)
		}
		if p.ID == "" || seen[p.ID] {
			t.Fatalf("page %d id %q not unique", i, p.ID)
		}
		seen[p.ID] = true
	}
	if s.ActivePage() != 0 {
		t.Fatalf("active page = %d", s.ActivePage())
	}
}

func TestSession_SearchAndApply(t *testing.T) {
	s := open(t, loadStatement(t))
	matches, err := s.Search(context.Background(), "123-45-6789")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].PageIndex != 1 {
		t.Fatalf("expected one match on page 1, got %+v", matches)
	}
	id, err := s.ApplyMatch(matches[0])
	if err != nil || id == "" {
		t.Fatalf("apply: %q, %v", id, err)
	}
	pages := s.Pages()
	for i, p := range pages {
		want := 0
		if i == 1 {
			want = 1
		}
		if got := len(s.Annotations(p.ID)); got != want {
			t.Fatalf("page %d has %d annotations, want %d", i, got, want)
		}
	}
	ann := s.Annotations(pages[1].ID)[0]
	if ann.Region != matches[0].Region || ann.Fill != annotation.Black || ann.Label != "" {
		t.Fatalf("unexpected annotation %+v", ann)
	}
	if s.ActivePage() != 1 {
		t.Fatalf("active page = %d, want 1", s.ActivePage())
	}
}

func TestSession_ApplyMatchUsesCurrentFill(t *testing.T) {
	s := open(t, loadStatement(t))
	matches, err := s.Search(context.Background(), "Balance")
	if err != nil || len(matches) != 1 {
		t.Fatalf("search: %v, %v", matches, err)
	}
	s.SetFill(annotation.Gray)
	if _, err := s.ApplyMatch(matches[0]); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := s.Annotations(s.Pages()[1].ID)[0].Fill; got != annotation.Gray {
		t.Fatalf("fill = %s, want gray", got)
	}
}

func TestSession_DrawRemoveUndo(t *testing.T) {
	s := open(t, loadStatement(t))
	page := s.Pages()[0].ID
	a, err := s.DrawAnnotation(page, annotation.Region{X: 10, Y: 10, Width: 20, Height: 5}, annotation.Black, "A")
	if err != nil {
		t.Fatalf("draw a: %v", err)
	}
	b, err := s.DrawAnnotation(page, annotation.Region{X: 40, Y: 10, Width: 20, Height: 5}, annotation.White, "")
	if err != nil {
		t.Fatalf("draw b: %v", err)
	}
	if _, err := s.DrawAnnotation(page, annotation.Region{X: 1, Y: 1, Width: 0.2, Height: 5}, annotation.Black, ""); !errors.Is(err, annotation.ErrRegionTooSmall) {
		t.Fatalf("expected ErrRegionTooSmall, got %v", err)
	}
	undone, err := s.UndoLast(page)
	if err != nil || undone.ID != b {
		t.Fatalf("undo returned %+v, %v", undone, err)
	}
	if err := s.RemoveAnnotation(page, a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n := len(s.Annotations(page)); n != 0 {
		t.Fatalf("expected empty page, got %d", n)
	}
	if _, err := s.UndoLast(page); !errors.Is(err, annotation.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestSession_PointerDrawsOnActivePage(t *testing.T) {
	s := open(t, loadStatement(t))
	if err := s.SetActivePage(2); err != nil {
		t.Fatalf("set active: %v", err)
	}
	s.SetTool(editor.ToolDraw)
	s.SetLabel("sig")
	events := []editor.Event{
		{Kind: editor.PointerDown, Point: editor.Point{X: 61.2, Y: 79.2}},
		{Kind: editor.PointerMove, Point: editor.Point{X: 150, Y: 120}},
		{Kind: editor.PointerUp, Point: editor.Point{X: 183.6, Y: 158.4}},
	}
	var id annotation.ID
	for _, ev := range events {
		got, err := s.Pointer(ev)
		if err != nil {
			t.Fatalf("%s: %v", ev.Kind, err)
		}
		if got != "" {
			id = got
		}
	}
	anns := s.Annotations(s.Pages()[2].ID)
	if id == "" || len(anns) != 1 || anns[0].ID != id {
		t.Fatalf("expected one committed annotation, got %q %+v", id, anns)
	}
	want := annotation.Region{X: 10, Y: 10, Width: 20, Height: 10}
	r := anns[0].Region
	for _, d := range []float64{r.X - want.X, r.Y - want.Y, r.Width - want.Width, r.Height - want.Height} {
		if math.Abs(d) > 1e-9 {
			t.Fatalf("region = %s, want %s", r, want)
		}
	}
	if anns[0].Label != "sig" {
		t.Fatalf("label = %q", anns[0].Label)
	}
}

func TestSession_ExportInProgress(t *testing.T) {
	release := make(chan struct{})
	s := open(t, gatedRenderer{Document: loadStatement(t), release: release})
	page := s.Pages()[1].ID
	region := annotation.Region{X: 10, Y: 20, Width: 60, Height: 6}
	if _, err := s.DrawAnnotation(page, region, annotation.Black, ""); err != nil {
		t.Fatalf("draw: %v", err)
	}

	job, err := s.ExportSecure(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := s.ExportSecure(context.Background()); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("second export: expected ErrExportInProgress, got %v", err)
	}
	if _, err := s.DrawAnnotation(page, region, annotation.Black, ""); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("draw: expected ErrExportInProgress, got %v", err)
	}
	if _, err := s.UndoLast(page); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("undo: expected ErrExportInProgress, got %v", err)
	}
	if err := s.RemovePage(0); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("remove page: expected ErrExportInProgress, got %v", err)
	}
	if _, err := s.Pointer(editor.Event{Kind: editor.PointerDown}); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("pointer: expected ErrExportInProgress, got %v", err)
	}
	if _, err := s.Pointer(editor.Event{Kind: editor.PointerCancel}); err != nil {
		t.Fatalf("cancel should pass during export: %v", err)
	}

	close(release)
	res, err := job.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.IsFlattened(1) || res.IsFlattened(0) || res.Pages != 3 {
		t.Fatalf("unexpected result pages=%d flattened=%v", res.Pages, res.Flattened())
	}
	if res.Filename != "statement-redacted.pdf" {
		t.Fatalf("filename = %q", res.Filename)
	}
	if _, err := s.UndoLast(page); err != nil {
		t.Fatalf("undo after export: %v", err)
	}
}

func TestSession_DragDoesNotSurviveExport(t *testing.T) {
	release := make(chan struct{})
	s := open(t, gatedRenderer{Document: loadStatement(t), release: release})
	page := s.Pages()[0].ID
	if _, err := s.DrawAnnotation(page, annotation.Region{X: 10, Y: 10, Width: 10, Height: 10}, annotation.Black, ""); err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, ev := range []editor.Event{
		{Kind: editor.PointerDown, Point: editor.Point{X: 30, Y: 30}},
		{Kind: editor.PointerMove, Point: editor.Point{X: 200, Y: 200}},
	} {
		if _, err := s.Pointer(ev); err != nil {
			t.Fatalf("%s: %v", ev.Kind, err)
		}
	}

	job, err := s.ExportSecure(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := s.Pointer(editor.Event{Kind: editor.PointerUp, Point: editor.Point{X: 250, Y: 250}}); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("up: expected ErrExportInProgress, got %v", err)
	}
	close(release)
	if _, err := job.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	before := len(s.Annotations(page))
	for _, ev := range []editor.Event{
		{Kind: editor.PointerMove, Point: editor.Point{X: 300, Y: 300}},
		{Kind: editor.PointerUp, Point: editor.Point{X: 300, Y: 300}},
	} {
		id, err := s.Pointer(ev)
		if err != nil {
			t.Fatalf("%s after export: %v", ev.Kind, err)
		}
		if id != "" {
			t.Fatalf("gesture started before export committed %s", id)
		}
	}
	if after := len(s.Annotations(page)); after != before {
		t.Fatalf("annotation count changed %d->%d", before, after)
	}
}

func TestSession_ExportCancelsDrag(t *testing.T) {
	s := open(t, loadStatement(t))
	if _, err := s.Pointer(editor.Event{Kind: editor.PointerDown, Point: editor.Point{X: 30, Y: 30}}); err != nil {
		t.Fatalf("down: %v", err)
	}
	job, err := s.ExportSecure(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := job.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if id, err := s.Pointer(editor.Event{Kind: editor.PointerUp, Point: editor.Point{X: 300, Y: 300}}); err != nil || id != "" {
		t.Fatalf("up after export: %q, %v", id, err)
	}
	if n := len(s.Annotations(s.Pages()[0].ID)); n != 0 {
		t.Fatalf("expected no annotations, got %d", n)
	}
}

func TestSession_ExportNamedSource(t *testing.T) {
	s := open(t, loadStatement(t))
	job, err := s.ExportSecure(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	res, err := job.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Filename != "statement-redacted.pdf" || len(res.Flattened()) != 0 {
		t.Fatalf("unexpected result %q %v", res.Filename, res.Flattened())
	}
	if !strings.HasPrefix(string(res.Bytes()), "%PDF-") {
		t.Fatal("output is not a PDF")
	}
}

func TestSession_ExportCancelled(t *testing.T) {
	s := open(t, gatedRenderer{Document: loadStatement(t), release: make(chan struct{})})
	page := s.Pages()[0].ID
	if _, err := s.DrawAnnotation(page, annotation.Region{X: 10, Y: 10, Width: 10, Height: 10}, annotation.Black, ""); err != nil {
		t.Fatalf("draw: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	job, err := s.ExportSecure(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	cancel()
	if res, err := job.Wait(); res != nil || !errors.Is(err, export.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v, %v", res, err)
	}
	if n := len(s.Annotations(page)); n != 1 {
		t.Fatalf("cancelled export changed annotations: %d", n)
	}
}

func TestSession_PreviewModes(t *testing.T) {
	s := open(t, loadStatement(t))
	page := s.Pages()[0].ID
	if _, err := s.DrawAnnotation(page, annotation.Region{X: 10, Y: 10, Width: 20, Height: 20}, annotation.Black, ""); err != nil {
		t.Fatalf("draw: %v", err)
	}
	img, err := s.Preview(context.Background(), 0)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if img.Bounds().Dx() != 612 || img.Bounds().Dy() != 792 {
		t.Fatalf("preview size %v", img.Bounds())
	}
	x, y := 612*20/100, 792*20/100
	if got := img.RGBAAt(x, y); got != (color.RGBA{0, 0, 0, 0xff}) {
		t.Fatalf("normal mode pixel = %v, want opaque black", got)
	}

	s.SetVerificationMode(true)
	if !s.VerificationMode() {
		t.Fatal("verification flag not set")
	}
	img, err = s.Preview(context.Background(), 0)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	got := img.RGBAAt(x, y)
	if got.R == 0 || got.R == 0xff {
		t.Fatalf("verification pixel = %v, want translucent fill", got)
	}
	if n := len(s.Annotations(page)); n != 1 {
		t.Fatalf("verification mode changed annotations: %d", n)
	}
}

func TestSession_RemovePage(t *testing.T) {
	s := open(t, loadStatement(t))
	removed := s.Pages()[1].ID
	if _, err := s.DrawAnnotation(removed, annotation.Region{X: 10, Y: 10, Width: 10, Height: 10}, annotation.Black, ""); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if err := s.SetActivePage(2); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := s.RemovePage(1); err != nil {
		t.Fatalf("remove page: %v", err)
	}
	pages := s.Pages()
	if len(pages) != 2 || pages[1].SourceIndex != 2 {
		t.Fatalf("unexpected pages %+v", pages)
	}
	if s.ActivePage() != 1 {
		t.Fatalf("active page = %d, want 1", s.ActivePage())
	}
	if _, err := s.DrawAnnotation(removed, annotation.Region{X: 10, Y: 10, Width: 10, Height: 10}, annotation.Black, ""); !errors.Is(err, annotation.ErrUnknownPage) {
		t.Fatalf("expected ErrUnknownPage, got %v", err)
	}
	matches, err := s.Search(context.Background(), "123-45-6789")
	if err != nil || len(matches) != 0 {
		t.Fatalf("search on removed page: %v, %v", matches, err)
	}
	matches, err = s.Search(context.Background(), "Thank you")
	if err != nil || len(matches) != 1 || matches[0].PageIndex != 1 {
		t.Fatalf("expected match at position 1, got %+v, %v", matches, err)
	}

	job, err := s.ExportSecure(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	res, err := job.Wait()
	if err != nil || res.Pages != 2 {
		t.Fatalf("export: %v, %v", res, err)
	}
	if err := s.RemovePage(5); !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}
