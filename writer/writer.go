package writer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
)

type PDFVersion string

const (
	PDF17 PDFVersion = "1.7"
)

// Config controls how the output document is assembled and serialized.
type Config struct {
	Version PDFVersion
	// Compress flate-encodes content streams generated by the writer. Streams
	// copied from a source document are emitted exactly as they were read.
	Compress bool
	// Compression is the zlib level used when Compress is set.
	Compression int
	Producer    string
}

var (
	ErrNotPage       = errors.New("writer: object is not a page")
	ErrNotJPEG       = errors.New("writer: image data is not a JPEG stream")
	ErrEmptyDocument = errors.New("writer: document has no pages")
	ErrUnknownObject = errors.New("writer: unknown object")
	ErrBadPageSize   = errors.New("writer: page size must be positive")
)

// Document is a writable output document. Objects are numbered as they are
// added; pages are emitted in the order they were appended.
type Document struct {
	cfg        Config
	objects    map[raw.ObjectRef]raw.Object
	nextNum    int
	catalogRef raw.ObjectRef
	pagesRef   raw.ObjectRef
	pages      []raw.ObjectRef
	appended   map[raw.ObjectRef]bool
}

// New creates an empty output document.
func New(cfg Config) *Document {
	if cfg.Version == "" {
		cfg.Version = PDF17
	}
	if cfg.Compression == 0 {
		cfg.Compression = zlib.DefaultCompression
	}
	d := &Document{
		cfg:      cfg,
		objects:  make(map[raw.ObjectRef]raw.Object),
		nextNum:  1,
		appended: make(map[raw.ObjectRef]bool),
	}
	d.catalogRef = d.reserve()
	d.pagesRef = d.reserve()
	return d
}

func (d *Document) reserve() raw.ObjectRef {
	ref := raw.ObjectRef{Num: d.nextNum}
	d.nextNum++
	return ref
}

func (d *Document) add(obj raw.Object) raw.ObjectRef {
	ref := d.reserve()
	d.objects[ref] = obj
	return ref
}

// Object returns the object stored under ref.
func (d *Document) Object(ref raw.ObjectRef) (raw.Object, bool) {
	obj, ok := d.objects[ref]
	return obj, ok
}

// Pages returns the appended page references in output order.
func (d *Document) Pages() []raw.ObjectRef {
	return append([]raw.ObjectRef(nil), d.pages...)
}

// AppendPage adds a page object created by CopyPage or AddImagePage to the end
// of the page tree.
func (d *Document) AppendPage(ref raw.ObjectRef) error {
	dict, ok := d.objects[ref].(*raw.DictObj)
	if !ok || !isPage(dict) {
		return fmt.Errorf("%w: %s", ErrNotPage, ref)
	}
	if d.appended[ref] {
		return fmt.Errorf("writer: page %s appended twice", ref)
	}
	dict.Set("Parent", raw.RefObj{R: d.pagesRef})
	d.pages = append(d.pages, ref)
	d.appended[ref] = true
	return nil
}

// EmbedJPEG stores baseline JPEG data as an opaque RGB image XObject.
func (d *Document) EmbedJPEG(data []byte, width, height int) (raw.ObjectRef, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return raw.ObjectRef{}, ErrNotJPEG
	}
	if width <= 0 || height <= 0 {
		return raw.ObjectRef{}, fmt.Errorf("writer: invalid image size %dx%d", width, height)
	}
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("XObject"))
	dict.Set("Subtype", raw.NameLiteral("Image"))
	dict.Set("Width", raw.NumberInt(int64(width)))
	dict.Set("Height", raw.NumberInt(int64(height)))
	dict.Set("ColorSpace", raw.NameLiteral("DeviceRGB"))
	dict.Set("BitsPerComponent", raw.NumberInt(8))
	dict.Set("Filter", raw.NameLiteral("DCTDecode"))
	return d.add(raw.NewStream(dict, append([]byte(nil), data...))), nil
}

// AddImagePage creates a page of the given physical size (in points) whose only
// content is img painted over the full media box, and appends it.
func (d *Document) AddImagePage(width, height float64, img raw.ObjectRef) (raw.ObjectRef, error) {
	if width <= 0 || height <= 0 {
		return raw.ObjectRef{}, fmt.Errorf("%w: %gx%g", ErrBadPageSize, width, height)
	}
	if _, ok := d.objects[img].(*raw.StreamObj); !ok {
		return raw.ObjectRef{}, fmt.Errorf("%w: image %s", ErrUnknownObject, img)
	}
	const imgName = "Im0"
	content := contentstream.Encode([]contentstream.Operation{
		contentstream.Op("q"),
		contentstream.Op("cm",
			contentstream.Num(width), contentstream.Num(0),
			contentstream.Num(0), contentstream.Num(height),
			contentstream.Num(0), contentstream.Num(0)),
		contentstream.Op("Do", contentstream.Name(imgName)),
		contentstream.Op("Q"),
	})
	contentRef, err := d.addContentStream(content)
	if err != nil {
		return raw.ObjectRef{}, err
	}

	xobjects := raw.Dict()
	xobjects.Set(imgName, raw.RefObj{R: img})
	resources := raw.Dict()
	resources.Set("XObject", xobjects)
	resources.Set("ProcSet", raw.NewArray(raw.NameLiteral("PDF"), raw.NameLiteral("ImageC")))

	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), number(width), number(height)))
	page.Set("Resources", resources)
	page.Set("Contents", raw.RefObj{R: contentRef})
	ref := d.add(page)
	if err := d.AppendPage(ref); err != nil {
		return raw.ObjectRef{}, err
	}
	return ref, nil
}

func (d *Document) addContentStream(content []byte) (raw.ObjectRef, error) {
	dict := raw.Dict()
	if d.cfg.Compress {
		encoded, err := flateEncode(content, d.cfg.Compression)
		if err != nil {
			return raw.ObjectRef{}, fmt.Errorf("compress content: %w", err)
		}
		dict.Set("Filter", raw.NameLiteral("FlateDecode"))
		content = encoded
	}
	return d.add(raw.NewStream(dict, content)), nil
}

// PageContent returns the decoded, concatenated content streams of an output
// page.
func (d *Document) PageContent(ref raw.ObjectRef) ([]byte, error) {
	dict, ok := d.objects[ref].(*raw.DictObj)
	if !ok || !isPage(dict) {
		return nil, fmt.Errorf("%w: %s", ErrNotPage, ref)
	}
	contents, _ := dict.Lookup("Contents")
	var streams []*raw.StreamObj
	switch v := d.resolve(contents).(type) {
	case *raw.StreamObj:
		streams = append(streams, v)
	case *raw.ArrayObj:
		for _, item := range v.Items {
			if s, ok := d.resolve(item).(*raw.StreamObj); ok {
				streams = append(streams, s)
			}
		}
	}
	var out bytes.Buffer
	for _, s := range streams {
		data, err := decodeStream(s)
		if err != nil {
			return nil, err
		}
		out.Write(data)
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}

// PageResources returns the resolved resource dictionary of an output page.
func (d *Document) PageResources(ref raw.ObjectRef) *raw.DictObj {
	dict, ok := d.objects[ref].(*raw.DictObj)
	if !ok {
		return nil
	}
	res, _ := dict.Lookup("Resources")
	out, _ := d.resolve(res).(*raw.DictObj)
	return out
}

func (d *Document) resolve(obj raw.Object) raw.Object {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(raw.RefObj)
		if !ok {
			return obj
		}
		obj = d.objects[ref.R]
	}
	return nil
}

func decodeStream(s *raw.StreamObj) ([]byte, error) {
	filter, _ := s.Dict.Lookup("Filter")
	switch f := filter.(type) {
	case nil:
		return s.Data, nil
	case raw.NameObj:
		if f.Value() == "FlateDecode" {
			return flateDecode(s.Data)
		}
		return nil, fmt.Errorf("writer: unsupported content filter %s", f.Value())
	default:
		return nil, fmt.Errorf("writer: unsupported content filter chain")
	}
}

func flateEncode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flateDecode(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("writer: flate decode: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func isPage(dict *raw.DictObj) bool {
	typ, _ := dict.Lookup("Type")
	name, ok := typ.(raw.NameObj)
	return ok && name.Value() == "Page"
}

func number(v float64) raw.NumberObj {
	if v == float64(int64(v)) {
		return raw.NumberInt(int64(v))
	}
	return raw.NumberFloat(v)
}
