package annotation

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxLabelLength bounds annotation labels, in runes.
const MaxLabelLength = 64

// PageID identifies a page for the lifetime of an editing session.
type PageID string

// ID identifies an annotation within its page.
type ID string

// Annotation is a redaction region plus its appearance.
type Annotation struct {
	ID     ID     `json:"id" yaml:"id"`
	Region Region `json:"region" yaml:"region"`
	Fill   Color  `json:"fill" yaml:"fill"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Option configures a Store.
type Option func(*Store)

// WithMinSize overrides DefaultMinSize.
func WithMinSize(percent float64) Option {
	return func(s *Store) { s.minSize = percent }
}

// WithIDGenerator replaces the random id source.
func WithIDGenerator(fn func() ID) Option {
	return func(s *Store) { s.newID = fn }
}

// Store keeps the ordered annotation list of every tracked page.
type Store struct {
	mu      sync.RWMutex
	minSize float64
	newID   func() ID
	pages   map[PageID][]Annotation
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		minSize: DefaultMinSize,
		newID:   func() ID { return ID(uuid.NewString()) },
		pages:   make(map[PageID][]Annotation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinSize returns the minimum region side length in percent.
func (s *Store) MinSize() float64 { return s.minSize }

// AddPage starts tracking a page. Adding a tracked page is a no-op.
func (s *Store) AddPage(page PageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page]; !ok {
		s.pages[page] = nil
	}
}

// RemovePage drops a page and all of its annotations.
func (s *Store) RemovePage(page PageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, page)
}

// HasPage reports whether page is tracked.
func (s *Store) HasPage(page PageID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[page]
	return ok
}

// Add appends an annotation to page and returns its id. Regions below the
// minimum size are rejected with ErrRegionTooSmall and leave the page
// unchanged.
func (s *Store) Add(page PageID, region Region, fill Color, label string) (ID, error) {
	if err := region.Validate(); err != nil {
		return "", err
	}
	if !region.MeetsMinimum(s.minSize) {
		return "", fmt.Errorf("%w: %s below %.2f%%", ErrRegionTooSmall, region, s.minSize)
	}
	if !fill.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownColor, int(fill))
	}
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return "", fmt.Errorf("%w: %d runes", ErrLabelTooLong, utf8.RuneCountInString(label))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.pages[page]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	ann := Annotation{ID: s.newID(), Region: region, Fill: fill, Label: label}
	s.pages[page] = append(list, ann)
	return ann.ID, nil
}

// Remove deletes one annotation, keeping the order of the rest.
func (s *Store) Remove(page PageID, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.pages[page]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	for i, ann := range list {
		if ann.ID != id {
			continue
		}
		out := make([]Annotation, 0, len(list)-1)
		out = append(out, list[:i]...)
		s.pages[page] = append(out, list[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s on page %s", ErrAnnotationNotFound, id, page)
}

// UndoLast removes and returns the most recently added annotation of page.
func (s *Store) UndoLast(page PageID) (Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.pages[page]
	if !ok {
		return Annotation{}, fmt.Errorf("%w: %s", ErrUnknownPage, page)
	}
	if len(list) == 0 {
		return Annotation{}, fmt.Errorf("%w: page %s", ErrNothingToUndo, page)
	}
	last := list[len(list)-1]
	s.pages[page] = list[:len(list)-1:len(list)-1]
	return last, nil
}

// List returns a copy of the annotations of page in insertion order.
func (s *Store) List(page PageID) []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Annotation(nil), s.pages[page]...)
}

// Count returns the number of annotations on page.
func (s *Store) Count(page PageID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages[page])
}

// Snapshot is a read-only copy of the store taken at one instant.
type Snapshot map[PageID][]Annotation

// For returns the annotations of page in insertion order.
func (s Snapshot) For(page PageID) []Annotation { return s[page] }

// Snapshot copies every page's annotation list.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.pages))
	for page, list := range s.pages {
		out[page] = append([]Annotation(nil), list...)
	}
	return out
}
