// Package raw is the PDF object graph shared by page sources and the output
// writer: direct objects, indirect references and the document that owns the
// numbered objects.
package raw

import "fmt"

// ObjectRef identifies an indirect object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is any PDF value. Type names the PDF kind ("dict", "name", ...).
type Object interface {
	Type() string
}

// Document holds numbered objects and the trailer.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string
}

// NewDocument returns an empty PDF 1.7 document.
func NewDocument() *Document {
	return &Document{Objects: make(map[ObjectRef]Object), Version: "1.7"}
}

// maxIndirection bounds reference chains so cycles terminate.
const maxIndirection = 32

// Resolve follows references until it reaches a direct object. Dangling or
// cyclic references resolve to nil.
func (d *Document) Resolve(obj Object) Object {
	for hops := 0; ; hops++ {
		ref, ok := obj.(RefObj)
		if !ok {
			return obj
		}
		if d == nil || hops >= maxIndirection {
			return nil
		}
		obj = d.Objects[ref.R]
	}
}

// Dict resolves obj to a dictionary. Streams are not dictionaries here.
func (d *Document) Dict(obj Object) *DictObj {
	dict, _ := d.Resolve(obj).(*DictObj)
	return dict
}

// MaxObjectNumber returns the highest object number in use.
func (d *Document) MaxObjectNumber() int {
	n := 0
	for ref := range d.Objects {
		n = max(n, ref.Num)
	}
	return n
}
