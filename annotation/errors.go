package annotation

import "errors"

var (
	// ErrRegionTooSmall reports a region below the minimum width or height.
	// Draw gestures discard it silently.
	ErrRegionTooSmall = errors.New("annotation: region too small")

	// ErrInvalidRegion reports a region outside [0,100] or without area.
	ErrInvalidRegion = errors.New("annotation: invalid region")

	// ErrUnknownColor reports a fill outside the palette.
	ErrUnknownColor = errors.New("annotation: unknown color")

	// ErrLabelTooLong reports a label longer than MaxLabelLength runes.
	ErrLabelTooLong = errors.New("annotation: label too long")

	// ErrUnknownPage reports a page id the store does not track.
	ErrUnknownPage = errors.New("annotation: unknown page")

	// ErrAnnotationNotFound reports a remove for an id not on the page.
	ErrAnnotationNotFound = errors.New("annotation: not found")

	// ErrNothingToUndo reports an undo on a page without annotations.
	ErrNothingToUndo = errors.New("annotation: nothing to undo")
)
