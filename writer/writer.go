// Package writer serializes a raw object graph back into PDF bytes
// with a freshly computed classic cross-reference table.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/kcrt/qr-code-print/ir/raw"
)

// Write serializes doc to out. Objects are emitted in ascending object
// number order and dictionary keys are sorted, so equal graphs produce
// identical bytes.
func Write(out io.Writer, doc *raw.Document) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", doc.Version)

	ordered := make([]raw.ObjectRef, 0, len(doc.Objects))
	for ref := range doc.Objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	offsets := make(map[int]int64, len(ordered))
	gens := make(map[int]int, len(ordered))
	for _, ref := range ordered {
		offsets[ref.Num] = int64(buf.Len())
		gens[ref.Num] = ref.Gen
		serialized, err := SerializeObject(ref, doc.Objects[ref])
		if err != nil {
			return err
		}
		buf.Write(serialized)
	}

	maxObjNum := 0
	if len(ordered) > 0 {
		maxObjNum = ordered[len(ordered)-1].Num
	}
	// Free entries form a linked list: object 0 heads it, each free
	// entry names the next free object number, the last points back to 0.
	nextFree := make(map[int]int)
	prevFree := 0
	for i := 1; i <= maxObjNum; i++ {
		if _, ok := offsets[i]; !ok {
			nextFree[prevFree] = i
			prevFree = i
		}
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObjNum+1)
	fmt.Fprintf(&buf, "%010d 65535 f \n", nextFree[0])
	for i := 1; i <= maxObjNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, gens[i])
		} else {
			fmt.Fprintf(&buf, "%010d 65535 f \n", nextFree[i])
		}
	}

	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(maxObjNum+1)))
	if doc.Trailer != nil {
		if root, ok := doc.Trailer.Get("Root"); ok {
			trailer.Set("Root", root)
		}
		if info, ok := doc.Trailer.Get("Info"); ok {
			trailer.Set("Info", info)
		}
	}
	if _, ok := trailer.Get("Root"); !ok {
		return &raw.GraphError{Op: "write", Err: fmt.Errorf("document has no Root")}
	}
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

// SerializeObject renders one indirect object.
func SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes(), nil
}

func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte("/" + nameLiteral(v.Val))
	case raw.NumberObj:
		if v.IsInteger() {
			return []byte(strconv.FormatInt(v.I, 10))
		}
		return []byte(formatFloat(v.F))
	case raw.BoolObj:
		if v.V {
			return []byte("true")
		}
		return []byte("false")
	case raw.NullObj:
		return []byte("null")
	case raw.StringObj:
		return []byte("(" + escapeLiteralString(v.Bytes) + ")")
	case raw.HexStringObj:
		var b bytes.Buffer
		b.WriteByte('<')
		for _, c := range v.Bytes {
			fmt.Fprintf(&b, "%02X", c)
		}
		b.WriteByte('>')
		return b.Bytes()
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
		keys := make([]string, 0, len(v.KV))
		for k := range v.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("/" + nameLiteral(k) + " ")
			b.Write(serializePrimitive(v.KV[k]))
		}
		b.WriteString(">>")
		return b.Bytes()
	case *raw.StreamObj:
		var b bytes.Buffer
		b.Write(serializePrimitive(v.Dict))
		b.WriteString("stream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes()
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.R.Num, v.R.Gen))
	default:
		return []byte("null")
	}
}

// formatFloat renders a real number without exponent notation, the only
// numeric form PDF accepts.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	return s
}

func nameLiteral(value string) string {
	var b bytes.Buffer
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch <= ' ' || ch > '~' || ch == '#' || isNameDelimiter(ch) {
			fmt.Fprintf(&b, "#%02X", ch)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isNameDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func escapeLiteralString(data []byte) string {
	var b bytes.Buffer
	for _, c := range data {
		switch c {
		case '(':
			b.WriteString(`\(`)
		case ')':
			b.WriteString(`\)`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
