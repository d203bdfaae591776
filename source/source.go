// Package source defines the read-only page collaborator consumed by search,
// preview and export.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
)

var (
	// ErrUnreadable reports a document that cannot be parsed, for example a
	// corrupt or encrypted input.
	ErrUnreadable = errors.New("source: document unreadable")

	// ErrPageRange reports a page index outside [0, PageCount).
	ErrPageRange = errors.New("source: page index out of range")
)

// Size is a page's physical size in PDF points.
type Size struct {
	Width  float64
	Height float64
}

func (s Size) String() string { return fmt.Sprintf("%gx%gpt", s.Width, s.Height) }

// TextRun is one positioned piece of text on a page. Coordinates are in
// points with a bottom-up origin.
type TextRun struct {
	Text      string
	BaselineX float64
	BaselineY float64
	// Advance is the horizontal extent of the run.
	Advance float64
	// FontSize is the effective size derived from the text transform.
	FontSize float64
}

// TextSource exposes page geometry and text layers.
type TextSource interface {
	PageCount() int
	PageSize(index int) (Size, error)
	TextLayer(ctx context.Context, index int) ([]TextRun, error)
}

// Renderer rasterizes a page at scale pixels per point.
type Renderer interface {
	RenderPage(ctx context.Context, index int, scale float64) (image.Image, error)
}

// PageObjects exposes the underlying page object for verbatim copies.
type PageObjects interface {
	PageObject(index int) (*raw.Document, raw.ObjectRef, error)
}

// Document is a complete page source.
type Document interface {
	TextSource
	Renderer
	PageObjects
}

// CheckIndex returns ErrPageRange when index is not a page of src.
func CheckIndex(src interface{ PageCount() int }, index int) error {
	if index < 0 || index >= src.PageCount() {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, index, src.PageCount())
	}
	return nil
}

// Verify checks that src has pages and every page reports a usable size.
func Verify(src TextSource) error {
	n := src.PageCount()
	if n <= 0 {
		return fmt.Errorf("%w: no pages", ErrUnreadable)
	}
	for i := 0; i < n; i++ {
		size, err := src.PageSize(i)
		if err != nil {
			return fmt.Errorf("%w: page %d: %w", ErrUnreadable, i, err)
		}
		if size.Width <= 0 || size.Height <= 0 {
			return fmt.Errorf("%w: page %d has size %s", ErrUnreadable, i, size)
		}
	}
	return nil
}
