package memdoc

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// shaper measures text with HarfBuzz shaping of the Go Regular face, which
// also renders memdoc pages.
type shaper struct {
	once  sync.Once
	err   error
	input shaping.Input

	mu sync.Mutex
	hb shaping.HarfbuzzShaper
}

var defaultShaper = &shaper{}

func (s *shaper) load() error {
	s.once.Do(func() {
		face, err := gofont.ParseTTF(bytes.NewReader(goregular.TTF))
		if err != nil {
			s.err = fmt.Errorf("parse go regular: %w", err)
			return
		}
		s.input = shaping.Input{
			Direction: di.DirectionLTR,
			Face:      face,
			Size:      fixed.Int26_6(1000 * 64),
			Script:    language.Latin,
			Language:  language.DefaultLanguage(),
		}
	})
	return s.err
}

// advance returns the horizontal advance of text in 1/1000 em.
func (s *shaper) advance(text string) (float64, error) {
	if err := s.load(); err != nil {
		return 0, err
	}
	in := s.input
	in.Text = []rune(text)
	in.RunStart, in.RunEnd = 0, len(in.Text)
	s.mu.Lock()
	out := s.hb.Shape(in)
	s.mu.Unlock()
	return float64(out.Advance) / 64, nil
}
