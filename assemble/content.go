package assemble

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/kcrt/qr-code-print/config"
	"github.com/kcrt/qr-code-print/ir/raw"
	"github.com/kcrt/qr-code-print/placement"
	"github.com/kcrt/qr-code-print/qr"
)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// buildOverlay composes the overlay content stream for one record,
// walking the schema fields in declaration order. It returns the
// operator bytes and the image resources the page must reference.
func (a *Assembler) buildOverlay(rec config.Record, font *fontResource) ([]byte, map[string]raw.ObjectRef, error) {
	var parts []string
	xobjects := make(map[string]raw.ObjectRef)
	for _, name := range a.schema.FieldOrder {
		spec := a.schema.Fields[name]
		value := rec[name] // missing values render as empty strings
		switch spec.Kind {
		case placement.KindQR:
			if value == "" {
				// An absent value contributes no paint instruction.
				continue
			}
			imgName, imgRef, err := a.paintQR(value, spec)
			if err != nil {
				return nil, nil, fmt.Errorf("field %q: %w", name, err)
			}
			xobjects[imgName] = imgRef
			parts = append(parts, fmt.Sprintf("q %s 0 0 %s %s %s cm /%s Do Q",
				num(spec.W), num(spec.H), num(spec.X), num(spec.NativeY(a.pageH)), imgName))
		case placement.KindText:
			parts = append(parts, a.paintText(name, value, spec, font))
		}
	}
	return []byte(strings.Join(parts, "\n")), xobjects, nil
}

func (a *Assembler) paintQR(payload string, spec placement.FieldSpec) (string, raw.ObjectRef, error) {
	matrix, err := qr.Encode(payload)
	if err != nil {
		return "", raw.ObjectRef{}, err
	}
	ref, err := a.embedImage(qr.Rasterize(matrix))
	if err != nil {
		return "", raw.ObjectRef{}, err
	}
	return fmt.Sprintf("Im%d", ref.Num), ref, nil
}

// paintText renders one text-show instruction. The baseline sits one
// font size below the box's top edge.
func (a *Assembler) paintText(name, value string, spec placement.FieldSpec, font *fontResource) string {
	size, ok := a.sizes[name]
	if !ok {
		size = min(spec.H, spec.W*0.5)
	}
	y := a.pageH - spec.Y - size
	if font != nil && font.cid {
		return fmt.Sprintf("q BT 0 g /%s %s Tf %s %s Td <%s> Tj ET Q",
			font.resourceName, num(size), num(spec.X), num(y), utf16Hex(value))
	}
	resName := "F1"
	if font != nil {
		resName = font.resourceName
	}
	return fmt.Sprintf("q BT 0 g /%s %s Tf %s %s Td (%s) Tj ET Q",
		resName, num(size), num(spec.X), num(y), escapeText(value))
}

// num renders a coordinate without exponent notation.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// escapeText escapes a literal string for a content stream.
func escapeText(s string) string {
	var b bytes.Buffer
	for _, c := range []byte(s) {
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

// utf16Hex encodes text as upper-case hex UTF-16BE code units, the form
// Identity-H text-show operators consume.
func utf16Hex(s string) string {
	encoded, err := utf16be.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// The UTF-16 encoder only fails on invalid UTF-8; replace and go on.
		encoded, _ = utf16be.NewEncoder().Bytes([]byte(strings.ToValidUTF8(s, "�")))
	}
	return strings.ToUpper(hex.EncodeToString(encoded))
}
