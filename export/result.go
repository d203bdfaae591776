package export

import (
	"bytes"
	"io"
	"maps"
	"slices"

	"github.com/OPWeb-ui/EZtify-sub000/raster"
)

// Result is a finished export. It is never modified after the job returns it.
type Result struct {
	data []byte

	// Filename is the suggested name for the output file.
	Filename string
	// Pages is the number of pages in the output.
	Pages int

	flattened []int
	digests   map[int]raster.Digest
}

// Bytes returns a copy of the serialized document.
func (r *Result) Bytes() []byte { return bytes.Clone(r.data) }

// Len is the size of the serialized document.
func (r *Result) Len() int { return len(r.data) }

// WriteTo writes the serialized document to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// IsFlattened reports whether the page at position i was rasterized.
func (r *Result) IsFlattened(i int) bool {
	_, ok := slices.BinarySearch(r.flattened, i)
	return ok
}

// Flattened lists, in order, the positions of pages replaced by images.
func (r *Result) Flattened() []int { return slices.Clone(r.flattened) }

// Digest returns the BLAKE2b-256 of the raster flattened at position i.
func (r *Result) Digest(i int) (raster.Digest, bool) {
	d, ok := r.digests[i]
	return d, ok
}

// Digests returns the raster digest of every flattened page by position.
func (r *Result) Digests() map[int]raster.Digest { return maps.Clone(r.digests) }
