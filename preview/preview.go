// Package preview renders the interactive view of annotated pages.
//
// The verification flag is display policy only: it changes how overlays are
// drawn and never touches stored annotations or export output.
package preview

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/raster"
)

// FillStyle selects how an overlay's interior is drawn.
type FillStyle int

const (
	FillSolid       FillStyle = iota // opaque, as exported
	FillTranslucent                  // see-through, for auditing coverage
)

const (
	translucentAlpha = 0x60
	outlineWidth     = 2
)

// OutlineColor marks annotation edges in verification mode.
var OutlineColor = color.RGBA{0xe0, 0x1e, 0x5a, 0xff}

// Overlay is one annotation mapped onto a preview surface.
type Overlay struct {
	ID      annotation.ID
	Rect    image.Rectangle
	Fill    color.RGBA // premultiplied
	Style   FillStyle
	Outline bool
	Label   string
}

// Options controls Compose.
type Options struct {
	Verification bool
	// Width and Height set the output size. Zero keeps the page size; one zero
	// dimension preserves the aspect ratio.
	Width, Height int
}

// Overlays maps anns onto a width x height surface in insertion order.
func Overlays(anns []annotation.Annotation, width, height int, verification bool) []Overlay {
	out := make([]Overlay, 0, len(anns))
	for _, ann := range anns {
		o := Overlay{
			ID:    ann.ID,
			Rect:  ann.Region.Pixels(width, height),
			Fill:  ann.Fill.RGBA(),
			Label: ann.Label,
		}
		if verification {
			o.Style = FillTranslucent
			o.Fill = premultiply(ann.Fill.RGBA(), translucentAlpha)
			o.Outline = true
		}
		out = append(out, o)
	}
	return out
}

func premultiply(c color.RGBA, alpha uint8) color.RGBA {
	scale := func(v uint8) uint8 { return uint8(uint16(v) * uint16(alpha) / 0xff) }
	return color.RGBA{scale(c.R), scale(c.G), scale(c.B), alpha}
}

// Compose returns a new image of page with anns drawn on top. In normal mode
// the result looks like the exported page; in verification mode regions are
// translucent and outlined. page is not modified.
func Compose(page image.Image, anns []annotation.Annotation, painter *raster.Painter, opts Options) (*image.RGBA, error) {
	b := page.Bounds()
	if b.Empty() {
		return nil, raster.ErrEmptyRaster
	}
	w, h := targetSize(b.Dx(), b.Dy(), opts.Width, opts.Height)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), page, b.Min, draw.Over)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), page, b, draw.Over, nil)
	}

	if !opts.Verification {
		if painter == nil {
			painter = raster.NewPainter()
		}
		if err := painter.Redact(dst, anns); err != nil {
			return nil, err
		}
		return dst, nil
	}
	for _, o := range Overlays(anns, w, h, true) {
		draw.Draw(dst, o.Rect, image.NewUniform(o.Fill), image.Point{}, draw.Over)
		if o.Outline {
			strokeRect(dst, o.Rect, OutlineColor, outlineWidth)
		}
	}
	return dst, nil
}

func targetSize(srcW, srcH, w, h int) (int, int) {
	switch {
	case w <= 0 && h <= 0:
		return srcW, srcH
	case w <= 0:
		w = max(1, srcW*h/srcH)
	case h <= 0:
		h = max(1, srcH*w/srcW)
	}
	return w, h
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.RGBA, width int) {
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}
