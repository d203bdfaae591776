package memdoc

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	goRegularOnce sync.Once
	goRegular     *opentype.Font
	goRegularErr  error
)

func regularFont() (*opentype.Font, error) {
	goRegularOnce.Do(func() {
		goRegular, goRegularErr = opentype.Parse(goregular.TTF)
	})
	return goRegular, goRegularErr
}

// RenderPage rasterizes page index at scale pixels per point on a white
// background.
func (d *Document) RenderPage(ctx context.Context, index int, scale float64) (image.Image, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("render page %d: invalid scale %v", index, scale)
	}
	list, err := d.display(ctx, index)
	if err != nil {
		return nil, err
	}
	size := d.pages[index].size
	w, h := int(math.Round(size.Width*scale)), int(math.Round(size.Height*scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render page %d: empty raster %dx%d", index, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	toPixel := func(x, y float64) (float64, float64) {
		return x * scale, (size.Height - y) * scale
	}
	for _, r := range list.rects {
		x0, y0 := toPixel(r.x, r.y)
		x1, y1 := toPixel(r.x+r.w, r.y+r.h)
		rect := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
		draw.Draw(dst, rect.Canon(), image.NewUniform(r.fill), image.Point{}, draw.Over)
	}

	if len(list.runs) == 0 {
		return dst, nil
	}
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index, err)
	}
	faces := make(map[float64]font.Face)
	defer func() {
		for _, face := range faces {
			face.Close()
		}
	}()
	drawer := font.Drawer{Dst: dst, Src: image.NewUniform(color.Black)}
	for _, run := range list.runs {
		px := run.fontSize * scale
		if px <= 0 {
			continue
		}
		face, ok := faces[px]
		if !ok {
			face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: px, DPI: 72, Hinting: font.HintingNone})
			if err != nil {
				return nil, fmt.Errorf("render page %d: %w", index, err)
			}
			faces[px] = face
		}
		o := run.trm.Origin()
		x, y := toPixel(o.X, o.Y)
		drawer.Face = face
		drawer.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
		drawer.DrawString(run.text)
	}
	return dst, nil
}
