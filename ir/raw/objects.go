package raw

// Concrete implementations for raw objects.

// Name object
type NameObj struct{ Val string }

func (n NameObj) Type() string  { return "name" }
func (n NameObj) Value() string { return n.Val }

// Number object
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Int() int64   { return n.I }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }

// Boolean object
type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }
func (b BoolObj) Value() bool  { return b.V }

// Null object
type NullObj struct{}

func (n NullObj) Type() string { return "null" }

// String object (literal)
type StringObj struct{ Bytes []byte }

func (s StringObj) Type() string  { return "string" }
func (s StringObj) Value() []byte { return s.Bytes }
func (s StringObj) IsHex() bool   { return false }

// Hex string object
type HexStringObj struct{ Bytes []byte }

func (s HexStringObj) Type() string  { return "hexstring" }
func (s HexStringObj) Value() []byte { return s.Bytes }
func (s HexStringObj) IsHex() bool   { return true }

// Array object
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string { return "array" }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// Dictionary object
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }
func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}
func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}
func (d *DictObj) Delete(key string) { delete(d.KV, key) }
func (d *DictObj) Len() int          { return len(d.KV) }

// Name returns the string value of a name entry.
func (d *DictObj) Name(key string) (string, bool) {
	n, ok := d.KV[key].(NameObj)
	if !ok {
		return "", false
	}
	return n.Val, true
}

// Int returns the integer value of a numeric entry.
func (d *DictObj) Int(key string) (int64, bool) {
	n, ok := d.KV[key].(NumberObj)
	if !ok || !n.IsInt {
		return 0, false
	}
	return n.I, true
}

// Stream object
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string { return "stream" }

// Reference object
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string   { return "ref" }
func (r RefObj) Ref() ObjectRef { return r.R }

// Helpers
func NameLiteral(v string) NameObj    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj { return NumberObj{F: f, IsInt: false} }
func Bool(v bool) BoolObj             { return BoolObj{V: v} }
func Str(bytes []byte) StringObj      { return StringObj{Bytes: bytes} }
func NewArray(items ...Object) *ArrayObj {
	// Copy the variadic slice: callers expand existing slices, and a
	// later Append must not write through into their backing arrays.
	return &ArrayObj{Items: append([]Object(nil), items...)}
}
func Dict() *DictObj { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj {
	if dict == nil {
		dict = Dict()
	}
	dict.Set("Length", NumberInt(int64(len(data))))
	return &StreamObj{Dict: dict, Data: data}
}
func Ref(num, gen int) RefObj { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }

// Clone deep-copies dictionaries and arrays. References, streams, and
// scalar objects are shared: a cloned page keeps pointing at the same
// content streams and font objects as the original.
func Clone(obj Object) Object {
	switch o := obj.(type) {
	case *DictObj:
		out := Dict()
		for k, v := range o.KV {
			out.KV[k] = Clone(v)
		}
		return out
	case *ArrayObj:
		out := &ArrayObj{Items: make([]Object, len(o.Items))}
		for i, v := range o.Items {
			out.Items[i] = Clone(v)
		}
		return out
	default:
		return obj
	}
}
