package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var (
	successMark = color.New(color.FgGreen)
	errorMark   = color.New(color.FgRed)
	infoMark    = color.New(color.FgCyan)
	highlight   = color.New(color.FgYellow)
	muted       = color.New(color.Faint)
)

// progress shows a spinner on stderr in quiet mode and nothing otherwise,
// where log lines already report what happens.
type progress struct {
	s *spinner.Spinner
}

func startProgress(message string, enabled bool) *progress {
	if !enabled {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return &progress{s: s}
}

func (p *progress) update(message string) {
	if p.s == nil {
		return
	}
	p.s.Lock()
	p.s.Suffix = " " + message
	p.s.Unlock()
}

func (p *progress) stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

// done stops the progress display and prints msg to w.
func (p *progress) done(w io.Writer, msg string) {
	p.stop()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	_, _ = io.WriteString(w, msg)
}
