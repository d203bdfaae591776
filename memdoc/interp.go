package memdoc

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/coords"
)

var errNoFont = errors.New("text shown before Tf")

// glyphRun is a text-showing operation resolved to page space.
type glyphRun struct {
	text string
	// trm is the text rendering matrix without the font size.
	trm      coords.Matrix
	fontSize float64
	advance  float64 // page units
}

type fillRect struct {
	x, y, w, h float64 // page units, bottom-up
	fill       color.RGBA
}

type displayList struct {
	runs  []glyphRun
	rects []fillRect
}

type gstate struct {
	ctm  coords.Matrix
	fill color.RGBA
}

// interpreter evaluates the subset of content-stream operators memdoc pages
// use: graphics state, rectangles with fills, and simple text.
type interpreter struct {
	shaper *shaper
	proc   *contentstream.Processor
	out    displayList

	gs      gstate
	stack   []gstate
	path    []fillRect
	tm, tlm coords.Matrix
	font    string
	size    float64
	leading float64
}

func newInterpreter(sh *shaper) *interpreter {
	in := &interpreter{
		shaper: sh,
		proc:   contentstream.NewProcessor(),
		gs:     gstate{ctm: coords.Identity(), fill: color.RGBA{A: 0xff}},
	}
	in.register("q", in.save)
	in.register("Q", in.restore)
	in.register("cm", in.concat)
	in.register("rg", in.setRGB)
	in.register("g", in.setGray)
	in.register("re", in.rect)
	in.register("f", in.fill)
	in.register("n", func([]contentstream.Operand) error { in.path = nil; return nil })
	in.register("BT", in.beginText)
	in.register("ET", func([]contentstream.Operand) error { return nil })
	in.register("Tf", in.setFont)
	in.register("TL", in.setLeading)
	in.register("Tm", in.setMatrix)
	in.register("Td", in.moveText)
	in.register("T*", func([]contentstream.Operand) error { return in.nextLine() })
	in.register("Tj", in.showText)
	in.register("'", in.nextLineShow)
	in.register("TJ", in.showArray)
	return in
}

func (in *interpreter) register(op string, fn func([]contentstream.Operand) error) {
	in.proc.RegisterHandler(op, contentstream.HandlerFunc(func(o contentstream.Operation) error {
		return fn(o.Operands)
	}))
}

func (in *interpreter) run(content []byte) (displayList, error) {
	if err := in.proc.Process(content); err != nil {
		return displayList{}, err
	}
	return in.out, nil
}

func numbers(ops []contentstream.Operand, n int) ([]float64, error) {
	if len(ops) != n {
		return nil, fmt.Errorf("want %d operands, got %d", n, len(ops))
	}
	out := make([]float64, n)
	for i, op := range ops {
		num, ok := op.(contentstream.NumberOperand)
		if !ok {
			return nil, fmt.Errorf("operand %d is %s, want number", i, op.Type())
		}
		out[i] = num.Value
	}
	return out, nil
}

func (in *interpreter) save([]contentstream.Operand) error {
	in.stack = append(in.stack, in.gs)
	return nil
}

func (in *interpreter) restore([]contentstream.Operand) error {
	if len(in.stack) == 0 {
		return errors.New("unbalanced Q")
	}
	in.gs = in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	return nil
}

func (in *interpreter) concat(ops []contentstream.Operand) error {
	v, err := numbers(ops, 6)
	if err != nil {
		return err
	}
	in.gs.ctm = coords.Matrix(v).Multiply(in.gs.ctm)
	return nil
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

func (in *interpreter) setRGB(ops []contentstream.Operand) error {
	v, err := numbers(ops, 3)
	if err != nil {
		return err
	}
	in.gs.fill = color.RGBA{channel(v[0]), channel(v[1]), channel(v[2]), 0xff}
	return nil
}

func (in *interpreter) setGray(ops []contentstream.Operand) error {
	v, err := numbers(ops, 1)
	if err != nil {
		return err
	}
	c := channel(v[0])
	in.gs.fill = color.RGBA{c, c, c, 0xff}
	return nil
}

func (in *interpreter) rect(ops []contentstream.Operand) error {
	v, err := numbers(ops, 4)
	if err != nil {
		return err
	}
	p := in.gs.ctm.Transform(coords.Point{X: v[0], Y: v[1]})
	q := in.gs.ctm.Transform(coords.Point{X: v[0] + v[2], Y: v[1] + v[3]})
	in.path = append(in.path, fillRect{x: p.X, y: p.Y, w: q.X - p.X, h: q.Y - p.Y})
	return nil
}

func (in *interpreter) fill([]contentstream.Operand) error {
	for _, r := range in.path {
		r.fill = in.gs.fill
		in.out.rects = append(in.out.rects, r)
	}
	in.path = nil
	return nil
}

func (in *interpreter) beginText([]contentstream.Operand) error {
	in.tm, in.tlm = coords.Identity(), coords.Identity()
	return nil
}

func (in *interpreter) setFont(ops []contentstream.Operand) error {
	if len(ops) != 2 {
		return fmt.Errorf("want 2 operands, got %d", len(ops))
	}
	name, ok := ops[0].(contentstream.NameOperand)
	if !ok {
		return fmt.Errorf("font operand is %s", ops[0].Type())
	}
	size, ok := ops[1].(contentstream.NumberOperand)
	if !ok {
		return fmt.Errorf("size operand is %s", ops[1].Type())
	}
	in.font, in.size = name.Value, size.Value
	return nil
}

func (in *interpreter) setLeading(ops []contentstream.Operand) error {
	v, err := numbers(ops, 1)
	if err != nil {
		return err
	}
	in.leading = v[0]
	return nil
}

func (in *interpreter) setMatrix(ops []contentstream.Operand) error {
	v, err := numbers(ops, 6)
	if err != nil {
		return err
	}
	in.tm = coords.Matrix(v)
	in.tlm = in.tm
	return nil
}

func (in *interpreter) moveText(ops []contentstream.Operand) error {
	v, err := numbers(ops, 2)
	if err != nil {
		return err
	}
	in.tlm = coords.Translate(v[0], v[1]).Multiply(in.tlm)
	in.tm = in.tlm
	return nil
}

func (in *interpreter) nextLine() error {
	in.tlm = coords.Translate(0, -in.leading).Multiply(in.tlm)
	in.tm = in.tlm
	return nil
}

func (in *interpreter) nextLineShow(ops []contentstream.Operand) error {
	if err := in.nextLine(); err != nil {
		return err
	}
	return in.showText(ops)
}

func (in *interpreter) showText(ops []contentstream.Operand) error {
	if len(ops) != 1 {
		return fmt.Errorf("want 1 operand, got %d", len(ops))
	}
	s, ok := ops[0].(contentstream.StringOperand)
	if !ok {
		return fmt.Errorf("operand is %s, want string", ops[0].Type())
	}
	return in.show(string(s.Value))
}

func (in *interpreter) showArray(ops []contentstream.Operand) error {
	if len(ops) != 1 {
		return fmt.Errorf("want 1 operand, got %d", len(ops))
	}
	arr, ok := ops[0].(contentstream.ArrayOperand)
	if !ok {
		return fmt.Errorf("operand is %s, want array", ops[0].Type())
	}
	for _, item := range arr.Values {
		switch v := item.(type) {
		case contentstream.StringOperand:
			if err := in.show(string(v.Value)); err != nil {
				return err
			}
		case contentstream.NumberOperand:
			in.tm = coords.Translate(-v.Value/1000*in.size, 0).Multiply(in.tm)
		}
	}
	return nil
}

func (in *interpreter) show(text string) error {
	if in.font == "" {
		return errNoFont
	}
	if text == "" {
		return nil
	}
	units, err := in.shaper.advance(text)
	if err != nil {
		return err
	}
	trm := in.tm.Multiply(in.gs.ctm)
	width := units / 1000 * in.size
	in.out.runs = append(in.out.runs, glyphRun{
		text:     text,
		trm:      trm,
		fontSize: in.size * trm.VerticalScale(),
		advance:  width * trm.HorizontalScale(),
	})
	in.tm = coords.Translate(width, 0).Multiply(in.tm)
	return nil
}
