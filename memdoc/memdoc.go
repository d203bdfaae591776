// Package memdoc is an in-memory page source. Documents are declared in YAML,
// compiled to a PDF object graph with real content streams, and rendered with
// the Go fonts. Every read (text layer, raster) interprets the page's content
// stream, so raw content supplied by the caller behaves like any other page.
package memdoc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
	"github.com/OPWeb-ui/EZtify-sub000/source"
)

// Spec describes a document.
type Spec struct {
	Name  string     `yaml:"name"`
	Pages []PageSpec `yaml:"pages"`
}

// PageSpec describes one page. Sizes and positions are in points with a
// bottom-up origin. When Content is set it replaces the generated content
// stream.
type PageSpec struct {
	Width   float64    `yaml:"width"`
	Height  float64    `yaml:"height"`
	Text    []TextSpec `yaml:"text,omitempty"`
	Boxes   []BoxSpec  `yaml:"boxes,omitempty"`
	Content string     `yaml:"content,omitempty"`
}

// TextSpec places a line of text. Matrix, when present, is the full text
// matrix and overrides X and Y.
type TextSpec struct {
	Text   string    `yaml:"text"`
	X      float64   `yaml:"x"`
	Y      float64   `yaml:"y"`
	Size   float64   `yaml:"size"`
	Matrix []float64 `yaml:"matrix,omitempty"`
}

// BoxSpec is a filled rectangle. Color is #rrggbb, black by default.
type BoxSpec struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Color  string  `yaml:"color,omitempty"`
}

// FontResource is the resource name generated pages select their font with.
const FontResource = "F1"

const defaultFontSize = 12

type page struct {
	ref     raw.ObjectRef
	size    source.Size
	content []byte
}

// Document is a source.Document backed by an in-memory PDF object graph.
type Document struct {
	name   string
	raw    *raw.Document
	pages  []page
	shaper *shaper
}

var _ source.Document = (*Document)(nil)

// Parse decodes a YAML document description.
func Parse(data []byte) (*Document, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", source.ErrUnreadable, err)
	}
	return New(spec)
}

// Load reads a YAML document description from r.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a YAML document description from path. The file name stands
// in for the document name when the description has none.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.name == "" {
		doc.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// New compiles spec into a document.
func New(spec Spec) (*Document, error) {
	if len(spec.Pages) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", source.ErrUnreadable)
	}
	d := &Document{name: spec.Name, raw: raw.NewDocument(), shaper: defaultShaper}

	catalog, pagesRef, fontRef := raw.ObjectRef{Num: 1}, raw.ObjectRef{Num: 2}, raw.ObjectRef{Num: 3}
	d.raw.Objects[fontRef] = &raw.DictObj{KV: map[string]raw.Object{
		"Type":     raw.NameLiteral("Font"),
		"Subtype":  raw.NameLiteral("Type1"),
		"BaseFont": raw.NameLiteral("Helvetica"),
		"Encoding": raw.NameLiteral("WinAnsiEncoding"),
	}}

	kids := raw.NewArray()
	next := 4
	for i, ps := range spec.Pages {
		if ps.Width <= 0 || ps.Height <= 0 {
			return nil, fmt.Errorf("%w: page %d has size %gx%g", source.ErrUnreadable, i, ps.Width, ps.Height)
		}
		content := []byte(ps.Content)
		if ps.Content == "" {
			var err error
			if content, err = generate(ps); err != nil {
				return nil, fmt.Errorf("%w: page %d: %w", source.ErrUnreadable, i, err)
			}
		}
		pageRef, contentRef := raw.ObjectRef{Num: next}, raw.ObjectRef{Num: next + 1}
		next += 2
		d.raw.Objects[contentRef] = raw.NewStream(nil, content)
		d.raw.Objects[pageRef] = &raw.DictObj{KV: map[string]raw.Object{
			"Type":     raw.NameLiteral("Page"),
			"Parent":   raw.RefObj{R: pagesRef},
			"MediaBox": raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), num(ps.Width), num(ps.Height)),
			"Contents": raw.RefObj{R: contentRef},
		}}
		kids.Append(raw.RefObj{R: pageRef})
		d.pages = append(d.pages, page{
			ref:     pageRef,
			size:    source.Size{Width: ps.Width, Height: ps.Height},
			content: content,
		})
	}

	// Resources live on the Pages node and are inherited by every page.
	d.raw.Objects[pagesRef] = &raw.DictObj{KV: map[string]raw.Object{
		"Type":  raw.NameLiteral("Pages"),
		"Kids":  kids,
		"Count": raw.NumberInt(int64(len(d.pages))),
		"Resources": &raw.DictObj{KV: map[string]raw.Object{
			"Font":    &raw.DictObj{KV: map[string]raw.Object{FontResource: raw.RefObj{R: fontRef}}},
			"ProcSet": raw.NewArray(raw.NameLiteral("PDF"), raw.NameLiteral("Text")),
		}},
	}}
	d.raw.Objects[catalog] = &raw.DictObj{KV: map[string]raw.Object{
		"Type":  raw.NameLiteral("Catalog"),
		"Pages": raw.RefObj{R: pagesRef},
	}}
	d.raw.Trailer = &raw.DictObj{KV: map[string]raw.Object{
		"Size": raw.NumberInt(int64(next)),
		"Root": raw.RefObj{R: catalog},
	}}
	return d, nil
}

func generate(ps PageSpec) ([]byte, error) {
	var ops []contentstream.Operation
	for _, b := range ps.Boxes {
		r, g, bl, err := parseHexColor(b.Color)
		if err != nil {
			return nil, err
		}
		ops = append(ops,
			contentstream.Op("q"),
			contentstream.Op("rg", contentstream.Num(r), contentstream.Num(g), contentstream.Num(bl)),
			contentstream.Op("re", contentstream.Num(b.X), contentstream.Num(b.Y), contentstream.Num(b.Width), contentstream.Num(b.Height)),
			contentstream.Op("f"),
			contentstream.Op("Q"),
		)
	}
	for _, t := range ps.Text {
		size := t.Size
		if size <= 0 {
			size = defaultFontSize
		}
		m := []float64{1, 0, 0, 1, t.X, t.Y}
		if len(t.Matrix) > 0 {
			if len(t.Matrix) != 6 {
				return nil, fmt.Errorf("text %q: matrix needs 6 values, got %d", t.Text, len(t.Matrix))
			}
			m = t.Matrix
		}
		tm := make([]contentstream.Operand, 6)
		for i, v := range m {
			tm[i] = contentstream.Num(v)
		}
		ops = append(ops,
			contentstream.Op("BT"),
			contentstream.Op("Tf", contentstream.Name(FontResource), contentstream.Num(size)),
			contentstream.Op("Tm", tm...),
			contentstream.Op("Tj", contentstream.Str(t.Text)),
			contentstream.Op("ET"),
		)
	}
	return contentstream.Encode(ops), nil
}

func parseHexColor(s string) (r, g, b float64, err error) {
	if s == "" {
		return 0, 0, 0, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("color %q: %w", s, err)
	}
	return float64(v>>16&0xff) / 255, float64(v>>8&0xff) / 255, float64(v&0xff) / 255, nil
}

func num(v float64) raw.NumberObj {
	if v == float64(int64(v)) {
		return raw.NumberInt(int64(v))
	}
	return raw.NumberFloat(v)
}

// Name is the document name, used to derive output file names.
func (d *Document) Name() string { return d.name }

// Raw returns the underlying object graph.
func (d *Document) Raw() *raw.Document { return d.raw }

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) PageSize(index int) (source.Size, error) {
	if err := source.CheckIndex(d, index); err != nil {
		return source.Size{}, err
	}
	return d.pages[index].size, nil
}

func (d *Document) PageObject(index int) (*raw.Document, raw.ObjectRef, error) {
	if err := source.CheckIndex(d, index); err != nil {
		return nil, raw.ObjectRef{}, err
	}
	return d.raw, d.pages[index].ref, nil
}

// TextLayer interprets the page's content stream and returns its text runs
// in drawing order.
func (d *Document) TextLayer(ctx context.Context, index int) ([]source.TextRun, error) {
	list, err := d.display(ctx, index)
	if err != nil {
		return nil, err
	}
	runs := make([]source.TextRun, 0, len(list.runs))
	for _, r := range list.runs {
		o := r.trm.Origin()
		runs = append(runs, source.TextRun{
			Text:      r.text,
			BaselineX: o.X,
			BaselineY: o.Y,
			Advance:   r.advance,
			FontSize:  r.fontSize,
		})
	}
	return runs, nil
}

func (d *Document) display(ctx context.Context, index int) (displayList, error) {
	if err := ctx.Err(); err != nil {
		return displayList{}, err
	}
	if err := source.CheckIndex(d, index); err != nil {
		return displayList{}, err
	}
	list, err := newInterpreter(d.shaper).run(d.pages[index].content)
	if err != nil {
		return displayList{}, fmt.Errorf("page %d content: %w", index, err)
	}
	return list, nil
}
