// Package raw models the low-level PDF object graph: names, numbers,
// strings, arrays, dictionaries, streams, and indirect references, plus
// the Document container that holds them keyed by object number.
package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
}

// Document is the root container for raw PDF objects.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g. "1.7"
}

// NewDocument returns an empty document with version v.
func NewDocument(v string) *Document {
	if v == "" {
		v = "1.7"
	}
	return &Document{Objects: make(map[ObjectRef]Object), Trailer: Dict(), Version: v}
}

// MaxObjectNumber reports the highest object number in use, 0 when empty.
func (d *Document) MaxObjectNumber() int {
	max := 0
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

// Resolve follows indirect references until a direct object is reached.
// Unresolvable references yield NullObj.
func (d *Document) Resolve(obj Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(RefObj)
		if !ok {
			return obj
		}
		obj, ok = d.Objects[ref.R]
		if !ok {
			return NullObj{}
		}
	}
	return NullObj{}
}

// ResolveDict resolves obj and asserts it is a dictionary.
func (d *Document) ResolveDict(obj Object) (*DictObj, bool) {
	dict, ok := d.Resolve(obj).(*DictObj)
	return dict, ok
}
