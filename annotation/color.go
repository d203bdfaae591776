package annotation

import (
	"fmt"
	"image/color"
	"strings"
)

// Color is a fill from the fixed redaction palette.
type Color int

const (
	Black Color = iota
	White
	Gray
)

var palette = map[Color]struct {
	name     string
	fill     color.RGBA
	contrast color.RGBA
}{
	Black: {"black", color.RGBA{0, 0, 0, 0xff}, color.RGBA{0xff, 0xff, 0xff, 0xff}},
	White: {"white", color.RGBA{0xff, 0xff, 0xff, 0xff}, color.RGBA{0, 0, 0, 0xff}},
	Gray:  {"gray", color.RGBA{0x80, 0x80, 0x80, 0xff}, color.RGBA{0xff, 0xff, 0xff, 0xff}},
}

// Valid reports whether c is part of the palette.
func (c Color) Valid() bool {
	_, ok := palette[c]
	return ok
}

// RGBA returns the opaque fill color.
func (c Color) RGBA() color.RGBA {
	return palette[c].fill
}

// Contrast returns the color labels are drawn in on top of c.
func (c Color) Contrast() color.RGBA {
	return palette[c].contrast
}

func (c Color) String() string {
	if p, ok := palette[c]; ok {
		return p.name
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

// ParseColor maps a palette name to its Color.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, p := range palette {
		if p.name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownColor, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
