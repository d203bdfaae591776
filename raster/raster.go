// Package raster composites redaction rectangles onto page rasters and
// encodes the result.
package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
)

// ErrEmptyRaster reports a raster with no pixels.
var ErrEmptyRaster = errors.New("raster: empty raster")

const (
	// labelHeightRatio sizes labels relative to the rectangle height.
	labelHeightRatio = 0.6
	// labelWidthRatio caps the label width inside the rectangle.
	labelWidthRatio = 0.9
	minLabelPixels  = 4
)

// Painter paints annotations onto rasters. The zero value is not usable;
// call NewPainter.
type Painter struct {
	once sync.Once
	font *opentype.Font
	err  error
}

func NewPainter() *Painter { return &Painter{} }

func (p *Painter) labelFont() (*opentype.Font, error) {
	p.once.Do(func() {
		p.font, p.err = opentype.Parse(gobold.TTF)
		if p.err != nil {
			p.err = fmt.Errorf("raster: parse label font: %w", p.err)
		}
	})
	return p.font, p.err
}

// Redact paints anns onto dst in order, so later annotations cover earlier
// ones. Rectangles are computed against dst's own pixel size and painted
// with opaque Src compositing.
func (p *Painter) Redact(dst *image.RGBA, anns []annotation.Annotation) error {
	b := dst.Bounds()
	if b.Empty() {
		return ErrEmptyRaster
	}
	for i, ann := range anns {
		if !ann.Fill.Valid() {
			return fmt.Errorf("annotation %d: %w", i, annotation.ErrUnknownColor)
		}
		rect := ann.Region.Pixels(b.Dx(), b.Dy()).Add(b.Min)
		if rect.Empty() {
			continue
		}
		draw.Draw(dst, rect, image.NewUniform(ann.Fill.RGBA()), image.Point{}, draw.Src)
		if ann.Label == "" {
			continue
		}
		if err := p.label(dst, rect, ann); err != nil {
			return fmt.Errorf("annotation %d label: %w", i, err)
		}
	}
	return nil
}

func (p *Painter) label(dst *image.RGBA, rect image.Rectangle, ann annotation.Annotation) error {
	f, err := p.labelFont()
	if err != nil {
		return err
	}
	size := float64(rect.Dy()) * labelHeightRatio
	if size < minLabelPixels {
		return nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return err
	}
	width := fixedToFloat(font.MeasureString(face, ann.Label))
	if limit := float64(rect.Dx()) * labelWidthRatio; width > limit && width > 0 {
		face.Close()
		size *= limit / width
		if size < minLabelPixels {
			return nil
		}
		face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			return err
		}
		width = fixedToFloat(font.MeasureString(face, ann.Label))
	}
	defer face.Close()

	m := face.Metrics()
	ascent, descent := fixedToFloat(m.Ascent), fixedToFloat(m.Descent)
	x := float64(rect.Min.X) + (float64(rect.Dx())-width)/2
	y := float64(rect.Min.Y) + (float64(rect.Dy())+ascent-descent)/2

	clip, ok := dst.SubImage(rect).(*image.RGBA)
	if !ok {
		return fmt.Errorf("raster: unexpected sub-image type %T", dst.SubImage(rect))
	}
	d := font.Drawer{
		Dst:  clip,
		Src:  image.NewUniform(ann.Fill.Contrast()),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(ann.Label)
	return nil
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

// ToRGBA returns an opaque RGBA copy of img anchored at the origin.
// Transparent areas become white.
func ToRGBA(img image.Image) (*image.RGBA, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyRaster
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst, nil
}

// EncodeJPEG encodes img as a baseline JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img.Bounds().Empty() {
		return nil, ErrEmptyRaster
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("raster: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Digest is a BLAKE2b-256 hash of a raster's size and pixels.
type Digest [blake2b.Size256]byte

func (d Digest) String() string { return fmt.Sprintf("%x", d[:]) }

// Sum hashes the pixels of img row by row, ignoring stride padding.
func Sum(img *image.RGBA) Digest {
	h, _ := blake2b.New256(nil)
	b := img.Bounds()
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(hdr[4:], uint32(b.Dy()))
	h.Write(hdr[:])
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		h.Write(img.Pix[off : off+b.Dx()*4])
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}
