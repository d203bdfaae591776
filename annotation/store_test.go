package annotation

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() ID {
		n++
		return ID(fmt.Sprintf("a%d", n))
	})
}

func TestStore_UndoIsLIFO(t *testing.T) {
	s := NewStore(sequentialIDs())
	s.AddPage("p1")
	var ids []ID
	for i := 0; i < 5; i++ {
		id, err := s.Add("p1", Region{X: float64(i * 10), Y: 10, Width: 5, Height: 5}, Black, "")
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	undone, err := s.UndoLast("p1")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if undone.ID != ids[4] {
		t.Fatalf("undo removed %s, want %s", undone.ID, ids[4])
	}
	got := s.List("p1")
	if len(got) != 4 {
		t.Fatalf("expected 4 annotations after undo, got %d", len(got))
	}
	for i, ann := range got {
		if ann.ID != ids[i] {
			t.Fatalf("annotation %d = %s, want %s", i, ann.ID, ids[i])
		}
	}
}

func TestStore_UndoEmptyPage(t *testing.T) {
	s := NewStore()
	s.AddPage("p1")
	if _, err := s.UndoLast("p1"); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
	if _, err := s.UndoLast("missing"); !errors.Is(err, ErrUnknownPage) {
		t.Fatalf("expected ErrUnknownPage, got %v", err)
	}
}

func TestStore_MinimumSizeBoundary(t *testing.T) {
	s := NewStore()
	s.AddPage("p1")
	cases := []struct {
		name   string
		region Region
		ok     bool
	}{
		{"exact minimum", Region{X: 1, Y: 1, Width: 0.5, Height: 0.5}, true},
		{"narrow", Region{X: 1, Y: 1, Width: 0.49, Height: 10}, false},
		{"short", Region{X: 1, Y: 1, Width: 10, Height: 0.1}, false},
		{"large", Region{X: 0, Y: 0, Width: 100, Height: 100}, true},
	}
	for _, tc := range cases {
		before := s.Count("p1")
		_, err := s.Add("p1", tc.region, Black, "")
		after := s.Count("p1")
		if tc.ok {
			if err != nil || after != before+1 {
				t.Fatalf("%s: expected add, err=%v count %d->%d", tc.name, err, before, after)
			}
			continue
		}
		if !errors.Is(err, ErrRegionTooSmall) {
			t.Fatalf("%s: expected ErrRegionTooSmall, got %v", tc.name, err)
		}
		if after != before {
			t.Fatalf("%s: list length changed %d->%d", tc.name, before, after)
		}
	}
}

func TestStore_AddRejectsInvalidInput(t *testing.T) {
	s := NewStore()
	s.AddPage("p1")
	long := make([]rune, MaxLabelLength+1)
	for i := range long {
		long[i] = 'x'
	}
	cases := []struct {
		name   string
		page   PageID
		region Region
		fill   Color
		label  string
		want   error
	}{
		{"unknown page", "nope", Region{Width: 10, Height: 10}, Black, "", ErrUnknownPage},
		{"outside page", "p1", Region{X: 95, Y: 0, Width: 10, Height: 10}, Black, "", ErrInvalidRegion},
		{"negative", "p1", Region{X: -1, Y: 0, Width: 10, Height: 10}, Black, "", ErrInvalidRegion},
		{"empty", "p1", Region{X: 1, Y: 1}, Black, "", ErrInvalidRegion},
		{"bad color", "p1", Region{Width: 10, Height: 10}, Color(42), "", ErrUnknownColor},
		{"long label", "p1", Region{Width: 10, Height: 10}, Black, string(long), ErrLabelTooLong},
	}
	for _, tc := range cases {
		if _, err := s.Add(tc.page, tc.region, tc.fill, tc.label); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if n := s.Count("p1"); n != 0 {
		t.Fatalf("rejected adds mutated the store: %d annotations", n)
	}
}

func TestStore_RemoveKeepsOrder(t *testing.T) {
	s := NewStore(sequentialIDs())
	s.AddPage("p1")
	for i := 0; i < 3; i++ {
		if _, err := s.Add("p1", Region{X: 1, Y: float64(i * 10), Width: 5, Height: 5}, White, "x"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.Remove("p1", "a2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got := s.List("p1")
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Fatalf("unexpected list after remove: %+v", got)
	}
	if err := s.Remove("p1", "a2"); !errors.Is(err, ErrAnnotationNotFound) {
		t.Fatalf("expected ErrAnnotationNotFound, got %v", err)
	}
}

func TestStore_ListAndSnapshotAreCopies(t *testing.T) {
	s := NewStore()
	s.AddPage("p1")
	if _, err := s.Add("p1", Region{X: 1, Y: 1, Width: 5, Height: 5}, Black, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	list := s.List("p1")
	list[0].Label = "mutated"
	snap := s.Snapshot()
	if _, err := s.Add("p1", Region{X: 10, Y: 1, Width: 5, Height: 5}, Black, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := s.List("p1")[0].Label; got != "" {
		t.Fatalf("list aliases store: label %q", got)
	}
	if n := len(snap.For("p1")); n != 1 {
		t.Fatalf("snapshot changed after add: %d annotations", n)
	}
}

func TestStore_RemovePageDropsAnnotations(t *testing.T) {
	s := NewStore()
	s.AddPage("p1")
	s.AddPage("p2")
	if _, err := s.Add("p1", Region{Width: 10, Height: 10}, Black, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.RemovePage("p1")
	if s.HasPage("p1") || s.Count("p1") != 0 {
		t.Fatalf("page p1 still tracked")
	}
	if !s.HasPage("p2") {
		t.Fatalf("page p2 lost")
	}
}

func TestStore_ConcurrentSnapshot(t *testing.T) {
	s := NewStore()
	s.AddPage("p1")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_, _ = s.Add("p1", Region{Width: 1, Height: 1}, Black, "")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = s.Snapshot()
		}
	}()
	wg.Wait()
	if n := s.Count("p1"); n != 100 {
		t.Fatalf("expected 100 annotations, got %d", n)
	}
}

func TestRegion_PixelsScenario(t *testing.T) {
	r := Region{X: 10, Y: 20, Width: 30, Height: 5}
	got := r.Pixels(1000, 1400)
	want := image.Rect(100, 280, 400, 350)
	if got != want {
		t.Fatalf("pixels = %v, want %v", got, want)
	}
}

func TestRegionFromPoints_NormalizesAndClamps(t *testing.T) {
	r := RegionFromPoints(80, 90, -5, 120)
	want := Region{X: 0, Y: 90, Width: 80, Height: 10}
	if r != want {
		t.Fatalf("region = %+v, want %+v", r, want)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("clamped region invalid: %v", err)
	}
}

func TestParseColor(t *testing.T) {
	for _, c := range []Color{Black, White, Gray} {
		parsed, err := ParseColor(" " + c.String() + " ")
		if err != nil || parsed != c {
			t.Fatalf("parse %s: got %v, %v", c, parsed, err)
		}
	}
	if _, err := ParseColor("purple"); !errors.Is(err, ErrUnknownColor) {
		t.Fatalf("expected ErrUnknownColor, got %v", err)
	}
	if Black.Contrast() != White.RGBA() {
		t.Fatalf("black labels should be drawn in white")
	}
}
