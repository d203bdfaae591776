package raw

import "sort"

type NameObj struct{ Val string }

func NameLiteral(v string) NameObj { return NameObj{Val: v} }

func (NameObj) Type() string    { return "name" }
func (n NameObj) Value() string { return n.Val }

// NumberObj keeps integers and reals apart so they serialize as written.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func NumberInt(i int64) NumberObj     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj { return NumberObj{F: f} }

func (NumberObj) Type() string      { return "number" }
func (n NumberObj) IsInteger() bool { return n.IsInt }

func (n NumberObj) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}

func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

type BoolObj struct{ V bool }

func Bool(v bool) BoolObj { return BoolObj{V: v} }

func (BoolObj) Type() string  { return "boolean" }
func (b BoolObj) Value() bool { return b.V }

type NullObj struct{}

func (NullObj) Type() string { return "null" }

// StringObj is a byte string. Hex strings are written as <..>.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func Str(b []byte) StringObj    { return StringObj{Bytes: b} }
func HexStr(b []byte) StringObj { return StringObj{Bytes: b, Hex: true} }

func (StringObj) Type() string    { return "string" }
func (s StringObj) Value() []byte { return s.Bytes }
func (s StringObj) IsHex() bool   { return s.Hex }

type ArrayObj struct{ Items []Object }

func NewArray(items ...Object) *ArrayObj { return &ArrayObj{Items: items} }

func (*ArrayObj) Type() string      { return "array" }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// DictObj maps key names, without the leading slash, to values.
type DictObj struct{ KV map[string]Object }

func Dict() *DictObj { return &DictObj{KV: make(map[string]Object)} }

func (*DictObj) Type() string { return "dict" }

func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

// Lookup is safe on a nil dictionary.
func (d *DictObj) Lookup(key string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	o, ok := d.KV[key]
	return o, ok
}

// SortedKeys returns the keys in byte order, the order the writer emits.
func (d *DictObj) SortedKeys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StreamObj holds undecoded stream data. Length is set by the writer.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func NewStream(dict *DictObj, data []byte) *StreamObj {
	if dict == nil {
		dict = Dict()
	}
	return &StreamObj{Dict: dict, Data: data}
}

func (*StreamObj) Type() string { return "stream" }

type RefObj struct{ R ObjectRef }

func Ref(num, gen int) RefObj { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }

func (RefObj) Type() string { return "ref" }
