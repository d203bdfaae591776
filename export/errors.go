package export

import (
	"errors"
	"fmt"
)

var (
	// ErrRender reports a failure to render, composite or encode a page that
	// carries annotations. The export is aborted; the page is never copied
	// instead.
	ErrRender = errors.New("export: render failed")

	// ErrCopy reports a failure to copy an unannotated page.
	ErrCopy = errors.New("export: page copy failed")

	// ErrSerialize reports a failure to serialize the output document.
	ErrSerialize = errors.New("export: serialize failed")

	// ErrCancelled reports an export stopped through its context.
	ErrCancelled = errors.New("export: cancelled")

	// ErrLeak reports a flattened output page that still carries text
	// operators or fonts.
	ErrLeak = errors.New("export: flattened page retains text")

	// ErrInvalidConfig reports unusable pipeline settings.
	ErrInvalidConfig = errors.New("export: invalid config")
)

// PageError describes a failure on one page.
type PageError struct {
	Op   string // "copy", "render", "composite", "encode", "emit", "verify"
	Page int    // position in the export
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s page %d: %v", e.Op, e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

func pageErr(kind error, op string, page int, err error) error {
	return fmt.Errorf("%w: %w", kind, &PageError{Op: op, Page: page, Err: err})
}
