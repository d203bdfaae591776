// Package report summarizes a finished export for audit: which pages were
// copied, which were flattened, the regions painted on each and the digest
// of every flattened raster.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/export"
)

// Page is one output page of the report.
type Page struct {
	Position    int
	SourceIndex int
	Flattened   bool
	Digest      string
	Annotations []annotation.Annotation
}

// Report is the audit record of one export.
type Report struct {
	Filename  string
	Size      int
	Generated time.Time
	Pages     []Page
}

// Build pairs the export input with its result.
func Build(res *export.Result, pages []export.Page, generated time.Time) Report {
	r := Report{
		Filename:  res.Filename,
		Size:      res.Len(),
		Generated: generated.UTC(),
		Pages:     make([]Page, 0, len(pages)),
	}
	for i, pg := range pages {
		p := Page{
			Position:    i,
			SourceIndex: pg.SourceIndex,
			Flattened:   res.IsFlattened(i),
			Annotations: pg.Annotations,
		}
		if d, ok := res.Digest(i); ok {
			p.Digest = d.String()
		}
		r.Pages = append(r.Pages, p)
	}
	return r
}

// Regions counts the annotations painted over the whole document.
func (r Report) Regions() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Annotations)
	}
	return n
}

// Markdown renders the report as GitHub-flavored Markdown.
func (r Report) Markdown() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Redaction report: %s\n\n", escape(r.Filename))
	fmt.Fprintf(&b, "Generated %s. Output is %d bytes with %d pages and %d redacted regions.\n\n",
		r.Generated.Format(time.RFC3339), r.Size, len(r.Pages), r.Regions())

	b.WriteString("## Pages\n\n")
	b.WriteString("| Page | Source page | Output | Regions | Raster digest |\n")
	b.WriteString("| ---: | ---: | --- | ---: | --- |\n")
	for _, p := range r.Pages {
		mode, digest := "copied", "-"
		if p.Flattened {
			mode, digest = "flattened", "`"+p.Digest+"`"
		}
		fmt.Fprintf(&b, "| %d | %d | %s | %d | %s |\n", p.Position+1, p.SourceIndex+1, mode, len(p.Annotations), digest)
	}

	for _, p := range r.Pages {
		if len(p.Annotations) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## Page %d regions\n\n", p.Position+1)
		b.WriteString("| Region | Fill | Label |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, a := range p.Annotations {
			label := a.Label
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", a.Region, a.Fill, escape(label))
		}
	}
	return []byte(b.String())
}

// markdown drops raw HTML, so labels cannot inject markup.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders the report as an HTML fragment.
func (r Report) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WriteHTML(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the report as an HTML fragment to w.
func (r Report) WriteHTML(w io.Writer) error {
	if err := markdown.Convert(r.Markdown(), w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "|", `\|`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`, "\n", " ",
)

func escape(s string) string { return mdEscaper.Replace(s) }
