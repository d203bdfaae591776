package writer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/OPWeb-ui/EZtify-sub000/contentstream"
	"github.com/OPWeb-ui/EZtify-sub000/ir/raw"
)

// Bytes serializes the document: header, numbered objects, a classic xref
// table and the trailer.
func (d *Document) Bytes() ([]byte, error) {
	if len(d.pages) == 0 {
		return nil, ErrEmptyDocument
	}
	objects := make(map[raw.ObjectRef]raw.Object, len(d.objects)+3)
	for ref, obj := range d.objects {
		objects[ref] = obj
	}

	kids := raw.NewArray()
	for _, ref := range d.pages {
		kids.Append(raw.RefObj{R: ref})
	}
	pagesDict := raw.Dict()
	pagesDict.Set("Type", raw.NameLiteral("Pages"))
	pagesDict.Set("Count", raw.NumberInt(int64(len(d.pages))))
	pagesDict.Set("Kids", kids)
	objects[d.pagesRef] = pagesDict

	catalogDict := raw.Dict()
	catalogDict.Set("Type", raw.NameLiteral("Catalog"))
	catalogDict.Set("Pages", raw.RefObj{R: d.pagesRef})
	objects[d.catalogRef] = catalogDict

	var infoRef *raw.ObjectRef
	if d.cfg.Producer != "" {
		ref := raw.ObjectRef{Num: d.nextNum}
		info := raw.Dict()
		info.Set("Producer", raw.Str([]byte(d.cfg.Producer)))
		objects[ref] = info
		infoRef = &ref
	}

	ordered := make([]raw.ObjectRef, 0, len(objects))
	for ref := range objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + string(d.cfg.Version) + "\n%\xE2\xE3\xCF\xD3\n")
	offsets := make(map[int]int64, len(ordered))
	for _, ref := range ordered {
		offsets[ref.Num] = int64(buf.Len())
		buf.Write(SerializeObject(ref, objects[ref]))
	}

	xrefOffset := buf.Len()
	maxObjNum := ordered[len(ordered)-1].Num
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d 00000 n \n", off)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	buf.WriteString("trailer\n<<")
	fmt.Fprintf(&buf, "/Size %d /Root %d 0 R", maxObjNum+1, d.catalogRef.Num)
	if infoRef != nil {
		fmt.Fprintf(&buf, " /Info %d 0 R", infoRef.Num)
	}
	fmt.Fprintf(&buf, ">>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes(), nil
}

// WriteTo serializes the document into w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// SerializeObject renders one indirect object definition.
func SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte("/" + pdfNameLiteral(v.Value()))
	case raw.NumberObj:
		if v.IsInteger() {
			return []byte(strconv.FormatInt(v.Int(), 10))
		}
		return []byte(strconv.FormatFloat(v.Float(), 'f', -1, 64))
	case raw.BoolObj:
		return []byte(strconv.FormatBool(v.Value()))
	case raw.NullObj:
		return []byte("null")
	case raw.StringObj:
		if v.IsHex() {
			return []byte("<" + strings.ToUpper(hex.EncodeToString(v.Value())) + ">")
		}
		return contentstream.EscapeLiteralString(v.Value())
	case *raw.ArrayObj:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.Write(serializePrimitive(it))
		}
		b.WriteByte(']')
		return b.Bytes()
	case *raw.DictObj:
		var b bytes.Buffer
		b.WriteString("<<")
		for _, k := range v.SortedKeys() {
			b.WriteString("/" + pdfNameLiteral(k) + " ")
			b.Write(serializePrimitive(v.KV[k]))
			b.WriteByte(' ')
		}
		b.WriteString(">>")
		return b.Bytes()
	case *raw.StreamObj:
		dict := raw.Dict()
		if v.Dict != nil {
			for k, val := range v.Dict.KV {
				dict.KV[k] = val
			}
		}
		dict.Set("Length", raw.NumberInt(int64(len(v.Data))))
		var b bytes.Buffer
		b.Write(serializePrimitive(dict))
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes()
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.R.Num, v.R.Gen))
	default:
		return []byte("null")
	}
}

func pdfNameLiteral(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.' || ch == '+' || ch == '*' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}
