// Package editor turns generic pointer events into redaction regions.
//
// The editor is a two-state machine (Idle, Dragging) that knows nothing about
// the surface delivering the events. Points arrive in surface pixels and are
// converted to page percentages against the configured surface size; every
// move clamps the region to the page.
package editor

import (
	"errors"
	"fmt"

	"github.com/OPWeb-ui/EZtify-sub000/annotation"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
)

// Tool selects how pointer events are interpreted.
type Tool int

const (
	ToolSelect Tool = iota
	ToolDraw
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolDraw:
		return "draw"
	default:
		return fmt.Sprintf("Tool(%d)", int(t))
	}
}

// State is the editor's interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
)

func (s State) String() string {
	if s == StateDragging {
		return "dragging"
	}
	return "idle"
}

// EventKind enumerates pointer events.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	PointerCancel
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Point is a position on the interactive surface in pixels.
type Point struct{ X, Y float64 }

// Event is a pointer event. Point is ignored for PointerCancel. The Point of
// a PointerUp is the final corner of the committed region.
type Event struct {
	Kind  EventKind
	Point Point
}

// Committer receives finished regions. *annotation.Store satisfies it.
type Committer interface {
	Add(page annotation.PageID, region annotation.Region, fill annotation.Color, label string) (annotation.ID, error)
}

// ErrNoSurface reports a pointer event before SetSurface was called.
var ErrNoSurface = errors.New("editor: no active surface")

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used for gesture diagnostics.
func WithLogger(l observability.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTool sets the initial tool (default ToolDraw).
func WithTool(t Tool) Option { return func(e *Editor) { e.tool = t } }

// Editor is the region-drawing state machine. It is not safe for concurrent
// use; events are expected from a single goroutine.
type Editor struct {
	store  Committer
	logger observability.Logger

	tool  Tool
	state State
	fill  annotation.Color
	label string

	page          annotation.PageID
	width, height float64

	origin  Point // percent
	current annotation.Region
}

// New returns an idle editor committing into store.
func New(store Committer, opts ...Option) *Editor {
	e := &Editor{store: store, logger: observability.NopLogger{}, tool: ToolDraw, fill: annotation.Black}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSurface makes page active with the given surface size in pixels. A drag
// in progress is cancelled.
func (e *Editor) SetSurface(page annotation.PageID, width, height float64) {
	e.cancel()
	e.page, e.width, e.height = page, width, height
}

// SetTool switches the active tool. Leaving ToolDraw cancels a drag.
func (e *Editor) SetTool(t Tool) {
	if t != ToolDraw {
		e.cancel()
	}
	e.tool = t
}

// Cancel abandons a drag in progress.
func (e *Editor) Cancel() { e.cancel() }

// SetFill sets the color of regions committed from now on.
func (e *Editor) SetFill(c annotation.Color) { e.fill = c }

// SetLabel sets the label of regions committed from now on.
func (e *Editor) SetLabel(label string) { e.label = label }

// Tool returns the active tool.
func (e *Editor) Tool() Tool { return e.tool }

// State returns the interaction state.
func (e *Editor) State() State { return e.state }

// Page returns the active page.
func (e *Editor) Page() annotation.PageID { return e.page }

// Current returns the region being dragged, if any.
func (e *Editor) Current() (annotation.Region, bool) {
	return e.current, e.state == StateDragging
}

// Handle applies one event. It returns the id of a committed annotation, or
// an empty id when the event did not commit anything. Regions below the
// store's minimum size are discarded without error.
func (e *Editor) Handle(ev Event) (annotation.ID, error) {
	switch e.state {
	case StateIdle:
		if ev.Kind != PointerDown || e.tool != ToolDraw {
			return "", nil
		}
		if e.width <= 0 || e.height <= 0 {
			return "", ErrNoSurface
		}
		e.origin = e.percent(ev.Point)
		e.current = annotation.RegionFromPoints(e.origin.X, e.origin.Y, e.origin.X, e.origin.Y)
		e.state = StateDragging
	case StateDragging:
		switch ev.Kind {
		case PointerMove:
			e.move(ev.Point)
		case PointerUp:
			e.move(ev.Point)
			return e.commit()
		case PointerCancel:
			e.cancel()
		}
	}
	return "", nil
}

func (e *Editor) move(p Point) {
	pc := e.percent(p)
	e.current = annotation.RegionFromPoints(e.origin.X, e.origin.Y, pc.X, pc.Y)
}

func (e *Editor) commit() (annotation.ID, error) {
	region := e.current
	e.reset()
	id, err := e.store.Add(e.page, region, e.fill, e.label)
	switch {
	case errors.Is(err, annotation.ErrRegionTooSmall), errors.Is(err, annotation.ErrInvalidRegion):
		e.logger.Debug("discarding region", observability.String("page", string(e.page)),
			observability.String("region", region.String()))
		return "", nil
	case err != nil:
		return "", fmt.Errorf("commit region: %w", err)
	}
	return id, nil
}

func (e *Editor) cancel() {
	if e.state == StateDragging {
		e.logger.Debug("drag cancelled", observability.String("page", string(e.page)))
	}
	e.reset()
}

func (e *Editor) reset() {
	e.state = StateIdle
	e.origin = Point{}
	e.current = annotation.Region{}
}

func (e *Editor) percent(p Point) Point {
	return Point{X: p.X / e.width * 100, Y: p.Y / e.height * 100}
}
