package writer

import (
	"bytes"
	"fmt"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
)

// inheritable page attributes that may live on an ancestor Pages node.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// prunable resource categories are keyed by names that content operators use.
var prunable = []string{"Font", "XObject", "ExtGState", "Pattern", "Shading", "Properties"}

// CopyPage copies the page at ref in src, together with every object it
// transitively references, into d. Inherited attributes are materialized on
// the copy and the Parent link is dropped; references to other pages of src
// become null. Inherited resources shared with other pages are narrowed to the
// names the page content uses. The copy is not part of the page tree until
// AppendPage.
func (d *Document) CopyPage(src *raw.Document, ref raw.ObjectRef) (raw.ObjectRef, error) {
	if src == nil {
		return raw.ObjectRef{}, fmt.Errorf("%w: nil source document", ErrUnknownObject)
	}
	pageDict, ok := src.Objects[ref].(*raw.DictObj)
	if !ok || !isPage(pageDict) {
		return raw.ObjectRef{}, fmt.Errorf("%w: source %s", ErrNotPage, ref)
	}

	flat := raw.Dict()
	for k, v := range pageDict.KV {
		if k == "Parent" {
			continue
		}
		flat.KV[k] = v
	}
	for _, key := range inheritable {
		if _, ok := flat.KV[key]; ok {
			continue
		}
		if v, ok := inherited(src, pageDict, key); ok {
			if key == "Resources" {
				v = pruneResources(src, pageDict, v)
			}
			flat.KV[key] = v
		}
	}

	c := &pageCopier{
		src:     src,
		dst:     d,
		page:    ref,
		mapping: make(map[raw.ObjectRef]raw.ObjectRef),
	}
	dstPage := d.reserve()
	c.mapping[ref] = dstPage
	d.objects[dstPage] = raw.Clone(flat, c.remap)
	if err := c.drain(); err != nil {
		return raw.ObjectRef{}, err
	}
	return dstPage, nil
}

func inherited(src *raw.Document, page *raw.DictObj, key string) (raw.Object, bool) {
	node := page
	for depth := 0; depth < 64; depth++ {
		parent, ok := node.Lookup("Parent")
		if !ok {
			return nil, false
		}
		node = src.Dict(parent)
		if node == nil {
			return nil, false
		}
		if v, ok := node.Lookup(key); ok {
			return v, true
		}
	}
	return nil, false
}

// pruneResources keeps only the entries of the name-keyed categories of res
// that the content of page refers to. res is returned as is when the content
// cannot be decoded.
func pruneResources(src *raw.Document, page *raw.DictObj, res raw.Object) raw.Object {
	dict := src.Dict(res)
	if dict == nil {
		return res
	}
	used, ok := contentNames(src, page)
	if !ok {
		return res
	}
	out := raw.Dict()
	for k, v := range dict.KV {
		out.KV[k] = v
	}
	for _, category := range prunable {
		v, ok := dict.Lookup(category)
		if !ok {
			continue
		}
		entries := src.Dict(v)
		if entries == nil {
			continue
		}
		kept := raw.Dict()
		for name, entry := range entries.KV {
			if used[name] {
				kept.KV[name] = entry
			}
		}
		out.KV[category] = kept
	}
	return out
}

func contentNames(src *raw.Document, page *raw.DictObj) (map[string]bool, bool) {
	contents, _ := page.Lookup("Contents")
	var streams []*raw.StreamObj
	switch v := src.Resolve(contents).(type) {
	case nil:
	case *raw.StreamObj:
		streams = append(streams, v)
	case *raw.ArrayObj:
		for _, item := range v.Items {
			s, ok := src.Resolve(item).(*raw.StreamObj)
			if !ok {
				return nil, false
			}
			streams = append(streams, s)
		}
	default:
		return nil, false
	}
	var data bytes.Buffer
	for _, s := range streams {
		decoded, err := decodeStream(s)
		if err != nil {
			return nil, false
		}
		data.Write(decoded)
		data.WriteByte('\n')
	}
	ops, err := contentstream.Parse(data.Bytes())
	if err != nil {
		return nil, false
	}
	return contentstream.Names(ops), true
}

type pageCopier struct {
	src     *raw.Document
	dst     *Document
	page    raw.ObjectRef
	mapping map[raw.ObjectRef]raw.ObjectRef
	queue   []raw.ObjectRef
}

// remap assigns a destination number to a source reference the first time it
// is seen and schedules the referenced object for copying.
func (c *pageCopier) remap(ref raw.ObjectRef) raw.ObjectRef {
	if out, ok := c.mapping[ref]; ok {
		return out
	}
	out := c.dst.reserve()
	c.mapping[ref] = out
	c.queue = append(c.queue, ref)
	return out
}

func (c *pageCopier) drain() error {
	for len(c.queue) > 0 {
		ref := c.queue[0]
		c.queue = c.queue[1:]
		dstRef := c.mapping[ref]
		obj, ok := c.src.Objects[ref]
		if !ok {
			c.dst.objects[dstRef] = raw.NullObj{}
			continue
		}
		if dict, ok := obj.(*raw.DictObj); ok && ref != c.page && (isPage(dict) || isPages(dict)) {
			// Another page of the source, e.g. a link destination.
			c.dst.objects[dstRef] = raw.NullObj{}
			continue
		}
		c.dst.objects[dstRef] = raw.Clone(obj, c.remap)
	}
	return nil
}

func isPages(dict *raw.DictObj) bool {
	typ, _ := dict.Lookup("Type")
	name, ok := typ.(raw.NameObj)
	return ok && name.Value() == "Pages"
}
