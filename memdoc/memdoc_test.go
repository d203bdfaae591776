package memdoc

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
	"github.com/OPWeb-ui/EZtify-sub000/source"
)

func loadStatement(t *testing.T) *Document {
	t.Helper()
	doc, err := LoadFile("testdata/statement.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return doc
}

func TestLoadFile(t *testing.T) {
	doc := loadStatement(t)
	if doc.Name() != "statement" {
		t.Fatalf("unexpected name %q", doc.Name())
	}
	if doc.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.PageCount())
	}
	size, err := doc.PageSize(1)
	if err != nil || size != (source.Size{Width: 612, Height: 792}) {
		t.Fatalf("unexpected size %v, %v", size, err)
	}
	if _, err := doc.PageSize(3); !errors.Is(err, source.ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
	if err := source.Verify(doc); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestParseRejectsUnreadable(t *testing.T) {
	cases := map[string]string{
		"no pages":  "name: empty\npages: []\n",
		"bad yaml":  "pages: [",
		"zero size": "pages:\n  - {width: 0, height: 10}\n",
		"bad color": "pages:\n  - width: 10\n    height: 10\n    boxes: [{x: 0, y: 0, width: 1, height: 1, color: red}]\n",
	}
	for name, data := range cases {
		if _, err := Parse([]byte(data)); !errors.Is(err, source.ErrUnreadable) {
			t.Fatalf("%s: expected ErrUnreadable, got %v", name, err)
		}
	}
}

func TestTextLayer(t *testing.T) {
	doc := loadStatement(t)
	runs, err := doc.TextLayer(context.Background(), 1)
	if err != nil {
		t.Fatalf("text layer: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	ssn := runs[0]
	if ssn.Text != "SSN: 123-45-6789" || ssn.BaselineX != 72 || ssn.BaselineY != 615 || ssn.FontSize != 12 {
		t.Fatalf("unexpected run %+v", ssn)
	}
	// Go Regular digits are roughly half an em wide.
	if ssn.Advance < 50 || ssn.Advance > 150 {
		t.Fatalf("implausible advance %v", ssn.Advance)
	}
}

func TestTextLayer_MatrixScalesFontSize(t *testing.T) {
	doc, err := New(Spec{Pages: []PageSpec{{
		Width: 200, Height: 200,
		Text: []TextSpec{{Text: "rotated", Size: 1, Matrix: []float64{0, 12, -12, 0, 100, 50}}},
	}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	runs, err := doc.TextLayer(context.Background(), 0)
	if err != nil {
		t.Fatalf("text layer: %v", err)
	}
	if len(runs) != 1 || math.Abs(runs[0].FontSize-12) > 1e-9 {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].BaselineX != 100 || runs[0].BaselineY != 50 {
		t.Fatalf("unexpected origin %+v", runs[0])
	}
}

func TestTextLayer_MalformedContent(t *testing.T) {
	doc, err := New(Spec{Pages: []PageSpec{
		{Width: 100, Height: 100, Content: "BT (no font) Tj ET"},
		{Width: 100, Height: 100, Content: "BT /F1 12 Tf (unterminated"},
	}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := doc.TextLayer(context.Background(), 0); !errors.Is(err, errNoFont) {
		t.Fatalf("expected errNoFont, got %v", err)
	}
	if _, err := doc.TextLayer(context.Background(), 1); !errors.Is(err, contentstream.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestTextLayer_Cancelled(t *testing.T) {
	doc := loadStatement(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := doc.TextLayer(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRenderPage(t *testing.T) {
	doc, err := New(Spec{Pages: []PageSpec{{
		Width: 500, Height: 700,
		Boxes: []BoxSpec{{X: 100, Y: 100, Width: 50, Height: 50, Color: "#ff0000"}},
		Text:  []TextSpec{{Text: "HELLO", X: 50, Y: 600, Size: 24}},
	}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	img, err := doc.RenderPage(context.Background(), 0, 2)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 1000, 1400) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	// Box spans x 200..300, y (700-150)*2=1100..1200 in pixels.
	r, g, b, _ := img.At(250, 1150).RGBA()
	if r>>8 != 0xff || g != 0 || b != 0 {
		t.Fatalf("box pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = img.At(5, 5).RGBA()
	if r>>8 != 0xff || g>>8 != 0xff || b>>8 != 0xff {
		t.Fatalf("background not white")
	}
	dark := 0
	for y := 150; y < 200; y++ {
		for x := 100; x < 300; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r>>8 < 0x80 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatalf("text was not rendered")
	}
	if _, err := doc.RenderPage(context.Background(), 0, 0); err == nil {
		t.Fatalf("expected error for zero scale")
	}
}

func TestPageObject(t *testing.T) {
	doc := loadStatement(t)
	src, ref, err := doc.PageObject(2)
	if err != nil {
		t.Fatalf("page object: %v", err)
	}
	page := src.Dict(raw.RefObj{R: ref})
	if page == nil {
		t.Fatalf("page %s missing", ref)
	}
	typ, _ := page.Lookup("Type")
	if n, ok := typ.(raw.NameObj); !ok || n.Value() != "Page" {
		t.Fatalf("unexpected type %v", typ)
	}
	if _, ok := page.Lookup("Resources"); ok {
		t.Fatalf("resources should be inherited from the page tree")
	}
	contents, _ := page.Lookup("Contents")
	stream, ok := src.Resolve(contents).(*raw.StreamObj)
	if !ok {
		t.Fatalf("contents not a stream")
	}
	text, err := contentstream.ExtractText(stream.Data)
	if err != nil || text != "Thank you for banking with us." {
		t.Fatalf("unexpected content text %q, %v", text, err)
	}
}
