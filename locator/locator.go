// Package locator finds literal text matches in a page source's text layers
// and converts them into candidate redaction regions.
package locator

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/metrics"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/source"
)

// ErrQueryTooShort reports a query below the minimum length. No page is read.
var ErrQueryTooShort = errors.New("locator: query too short")

// Match is a candidate region derived from a text run. It becomes an
// annotation only when applied.
type Match struct {
	PageIndex int               `json:"pageIndex"`
	Region    annotation.Region `json:"region"`
	Text      string            `json:"matchedText"`
}

// Options tunes the baseline-to-box conversion. Lengths are in points.
type Options struct {
	MinQueryLength int
	Padding        float64
	// AscentFactor times the font size approximates the run's ascent.
	AscentFactor float64
	// HeightFactor times the font size is the region height.
	HeightFactor float64
}

// DefaultOptions returns the stock conversion settings.
func DefaultOptions() Options {
	return Options{MinQueryLength: 2, Padding: 2, AscentFactor: 1, HeightFactor: 1.5}
}

// Locator searches a TextSource.
type Locator struct {
	src    source.TextSource
	opts   Options
	logger observability.Logger
	tracer observability.Tracer
}

// Option configures a Locator.
type Option func(*Locator)

func WithOptions(o Options) Option { return func(l *Locator) { l.opts = o } }

func WithLogger(lg observability.Logger) Option {
	return func(l *Locator) {
		if lg != nil {
			l.logger = lg
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(l *Locator) {
		if t != nil {
			l.tracer = t
		}
	}
}

func New(src source.TextSource, opts ...Option) *Locator {
	l := &Locator{
		src:    src,
		opts:   DefaultOptions(),
		logger: observability.NopLogger{},
		tracer: observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Search returns every match of query in document order.
func (l *Locator) Search(ctx context.Context, query string) ([]Match, error) {
	var out []Match
	for m, err := range l.Scan(ctx, query) {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	metrics.SearchMatchesTotal.Add(float64(len(out)))
	return out, nil
}

// Scan yields matches page by page. Pages whose text layer cannot be read are
// logged and skipped. A short query or a cancelled context is yielded as the
// final error.
func (l *Locator) Scan(ctx context.Context, query string) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		query = strings.TrimSpace(query)
		if utf8.RuneCountInString(query) < l.opts.MinQueryLength {
			yield(Match{}, fmt.Errorf("%w: %q needs at least %d characters", ErrQueryTooShort, query, l.opts.MinQueryLength))
			return
		}
		ctx, span := l.tracer.StartSpan(ctx, observability.SpanSearch)
		defer span.Finish()
		needle := strings.ToLower(query)

		pages := l.src.PageCount()
		span.SetTag("pages", pages)
		for i := 0; i < pages; i++ {
			if err := ctx.Err(); err != nil {
				span.SetError(err)
				yield(Match{}, err)
				return
			}
			matches, err := l.page(ctx, i, needle)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					span.SetError(ctxErr)
					yield(Match{}, ctxErr)
					return
				}
				metrics.SearchPagesSkippedTotal.Inc()
				l.logger.Warn("skipping page in search",
					observability.Int("page", i),
					observability.Error("error", err))
				continue
			}
			for _, m := range matches {
				if !yield(m, nil) {
					return
				}
			}
		}
	}
}

func (l *Locator) page(ctx context.Context, index int, needle string) ([]Match, error) {
	size, err := l.src.PageSize(index)
	if err != nil {
		return nil, err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("page %d has size %s", index, size)
	}
	runs, err := l.src.TextLayer(ctx, index)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, run := range runs {
		if !strings.Contains(strings.ToLower(run.Text), needle) {
			continue
		}
		region, ok := l.region(run, size)
		if !ok {
			continue
		}
		out = append(out, Match{PageIndex: index, Region: region, Text: run.Text})
	}
	return out, nil
}

// region converts a run's baseline box into a top-left percent region. The
// ascent is approximated from the font size, so rotated or unusually scaled
// text gets an imprecise box.
func (l *Locator) region(run source.TextRun, size source.Size) (annotation.Region, bool) {
	left := run.BaselineX - l.opts.Padding
	right := run.BaselineX + run.Advance + l.opts.Padding
	top := size.Height - run.BaselineY - run.FontSize*l.opts.AscentFactor
	bottom := top + run.FontSize*l.opts.HeightFactor
	r := annotation.RegionFromPoints(
		left/size.Width*100, top/size.Height*100,
		right/size.Width*100, bottom/size.Height*100,
	)
	return r, r.Width > 0 && r.Height > 0
}
