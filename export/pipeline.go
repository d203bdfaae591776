package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/OPWeb-ui/EZtify-sub000/metrics"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/raster"
	"github.com/OPWeb-ui/EZtify-sub000/writer"
)

func (p *Pipeline) run(ctx context.Context, pages []Page, events chan<- Event) (res *Result, err error) {
	start := p.now()
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanExport)
	span.SetTag("pages", len(pages))
	defer func() {
		status := "ok"
		switch {
		case errors.Is(err, ErrCancelled):
			status = "cancelled"
		case errors.Is(err, ErrLeak):
			status = "leak"
		case errors.Is(err, ErrRender):
			status = "render_error"
		case errors.Is(err, ErrCopy):
			status = "copy_error"
		case errors.Is(err, ErrSerialize):
			status = "serialize_error"
		}
		metrics.ExportsTotal.WithLabelValues(status).Inc()
		metrics.ExportDuration.Observe(p.now().Sub(start).Seconds())
		if err != nil {
			span.SetError(err)
			p.logger.Error("export failed", observability.String("status", status), observability.Error("error", err))
		}
		span.Finish()
	}()

	total := len(pages)
	emit := func(i int, ph Phase) { events <- Event{PageIndex: i, Total: total, Phase: ph} }

	out := writer.New(writer.Config{Compress: p.cfg.Compress, Producer: p.cfg.Producer})
	res = &Result{Filename: Filename(p.cfg.Name), Pages: total, digests: make(map[int]raster.Digest)}

	for i, pg := range pages {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("%w: before page %d: %w", ErrCancelled, i, cerr)
		}
		if len(pg.Annotations) == 0 {
			emit(i, PhaseCopy)
			if err := p.copyPage(out, i, pg); err != nil {
				return nil, err
			}
			metrics.ExportPagesTotal.WithLabelValues("copied").Inc()
		} else {
			digest, err := p.flattenPage(ctx, out, i, pg, emit)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil && !errors.Is(err, ErrLeak) {
					return nil, fmt.Errorf("%w: page %d: %w", ErrCancelled, i, cerr)
				}
				return nil, err
			}
			res.flattened = append(res.flattened, i)
			res.digests[i] = digest
			metrics.ExportPagesTotal.WithLabelValues("flattened").Inc()
		}
		emit(i, PhaseEmit)
	}

	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("%w: before serialize: %w", ErrCancelled, cerr)
	}
	emit(total, PhaseSerialize)
	_, sspan := p.tracer.StartSpan(ctx, observability.SpanSerialize)
	data, err := out.Bytes()
	sspan.Finish()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	res.data = data
	emit(total, PhaseDone)

	p.logger.Info("export finished",
		observability.Int("pages", total),
		observability.Int("flattened", len(res.flattened)),
		observability.Int("bytes", len(data)),
		observability.Duration("elapsed", p.now().Sub(start)))
	return res, nil
}

func (p *Pipeline) copyPage(out *writer.Document, i int, pg Page) error {
	src, ref, err := p.src.PageObject(pg.SourceIndex)
	if err != nil {
		return pageErr(ErrCopy, "copy", i, err)
	}
	dst, err := out.CopyPage(src, ref)
	if err != nil {
		return pageErr(ErrCopy, "copy", i, err)
	}
	if err := out.AppendPage(dst); err != nil {
		return pageErr(ErrCopy, "copy", i, err)
	}
	p.logger.Debug("page copied", observability.Int("page", i), observability.Int("source", pg.SourceIndex))
	return nil
}

func (p *Pipeline) flattenPage(ctx context.Context, out *writer.Document, i int, pg Page, emit func(int, Phase)) (raster.Digest, error) {
	ctx, span := p.tracer.StartSpan(ctx, observability.SpanExportPage)
	defer span.Finish()
	span.SetTag("page", i)
	span.SetTag("annotations", len(pg.Annotations))

	fail := func(kind error, op string, err error) (raster.Digest, error) {
		err = pageErr(kind, op, i, err)
		span.SetError(err)
		return raster.Digest{}, err
	}

	size, err := p.src.PageSize(pg.SourceIndex)
	if err != nil {
		return fail(ErrRender, "render", err)
	}

	emit(i, PhaseRender)
	img, err := p.src.RenderPage(ctx, pg.SourceIndex, p.cfg.Scale)
	if err != nil {
		return fail(ErrRender, "render", err)
	}
	if img == nil {
		return fail(ErrRender, "render", errors.New("renderer returned no image"))
	}

	emit(i, PhaseComposite)
	canvas, err := raster.ToRGBA(img)
	if err != nil {
		return fail(ErrRender, "composite", err)
	}
	if err := p.painter.Redact(canvas, pg.Annotations); err != nil {
		return fail(ErrRender, "composite", err)
	}
	digest := raster.Sum(canvas)

	emit(i, PhaseEncode)
	data, err := raster.EncodeJPEG(canvas, p.cfg.JPEGQuality)
	if err != nil {
		return fail(ErrRender, "encode", err)
	}
	b := canvas.Bounds()
	imgRef, err := out.EmbedJPEG(data, b.Dx(), b.Dy())
	if err != nil {
		return fail(ErrRender, "encode", err)
	}
	ref, err := out.AddImagePage(size.Width, size.Height, imgRef)
	if err != nil {
		return fail(ErrRender, "emit", err)
	}
	if p.cfg.VerifyOutput {
		if err := verifyFlattened(out, ref); err != nil {
			return fail(ErrLeak, "verify", err)
		}
	}
	p.logger.Debug("page flattened",
		observability.Int("page", i),
		observability.Int("annotations", len(pg.Annotations)),
		observability.Int("width", b.Dx()),
		observability.Int("height", b.Dy()),
		observability.String("digest", digest.String()))
	return digest, nil
}
