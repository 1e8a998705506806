// Package placement models where each record field is stamped on a page.
//
// Field boxes are declared with the origin at the page's top-left corner
// and Y increasing downward. PDF pages use a bottom-left origin with Y
// increasing upward, so consumers convert with NativeY.
package placement

import "fmt"

// Kind selects how a field's value is rendered.
type Kind int

const (
	KindQR Kind = iota
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindQR:
		return "QR"
	case KindText:
		return "Text"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a kind tag to its Kind. Only the exact tags "QR" and
// "Text" are accepted.
func ParseKind(tag string) (Kind, error) {
	switch tag {
	case "QR":
		return KindQR, nil
	case "Text":
		return KindText, nil
	default:
		return 0, &InvalidFieldKindError{Tag: tag}
	}
}

// InvalidFieldKindError reports a field whose kind tag or box is not
// well formed.
type InvalidFieldKindError struct {
	Field  string
	Tag    string
	Reason string
}

func (e *InvalidFieldKindError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: invalid kind tag %q", e.Field, e.Tag)
}

// FieldSpec is one field's box and kind. Coordinates are points in the
// top-left/Y-down input convention.
type FieldSpec struct {
	X, Y, W, H float64
	Kind       Kind
}

// NativeY converts the box's anchor to the PDF bottom-left convention.
// The box is anchored at its top edge in the input convention, so its
// height is subtracted along with its Y offset.
func (f FieldSpec) NativeY(pageHeight float64) float64 {
	return pageHeight - f.Y - f.H
}

// Schema is the validated set of field placements for a run. FieldOrder
// preserves the declaration order of the configuration.
type Schema struct {
	Fields     map[string]FieldSpec
	FieldOrder []string
	Font       string
}

// NewSchema validates the given fields and returns a Schema. Field
// boxes must have strictly positive width and height.
func NewSchema(fields map[string]FieldSpec, order []string, font string) (*Schema, error) {
	for _, name := range order {
		spec, ok := fields[name]
		if !ok {
			return nil, &InvalidFieldKindError{Field: name, Reason: "declared in order but missing a spec"}
		}
		if spec.Kind != KindQR && spec.Kind != KindText {
			return nil, &InvalidFieldKindError{Field: name, Tag: spec.Kind.String()}
		}
		if spec.W <= 0 || spec.H <= 0 {
			return nil, &InvalidFieldKindError{Field: name, Reason: fmt.Sprintf("box %gx%g is not positive", spec.W, spec.H)}
		}
	}
	return &Schema{Fields: fields, FieldOrder: order, Font: font}, nil
}

// TextFields returns the names of Text-kind fields in declaration order.
func (s *Schema) TextFields() []string {
	var out []string
	for _, name := range s.FieldOrder {
		if s.Fields[name].Kind == KindText {
			out = append(out, name)
		}
	}
	return out
}
