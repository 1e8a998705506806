package assemble

import (
	"github.com/kcrt/qr-code-print/filters"
	"github.com/kcrt/qr-code-print/ir/raw"
	"github.com/kcrt/qr-code-print/qr"
)

// embedImage writes a 1-bit DeviceGray image XObject for the bitmap and
// returns its reference. Every call writes a new object; identical
// payloads are not pooled.
func (a *Assembler) embedImage(bm *qr.Bitmap) (raw.ObjectRef, error) {
	data, err := filters.FlateEncode(bm.Data)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("XObject"))
	dict.Set("Subtype", raw.NameLiteral("Image"))
	dict.Set("Width", raw.NumberInt(int64(bm.Width)))
	dict.Set("Height", raw.NumberInt(int64(bm.Height)))
	dict.Set("ColorSpace", raw.NameLiteral("DeviceGray"))
	dict.Set("BitsPerComponent", raw.NumberInt(1))
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))

	ref := a.allocRef()
	a.doc.Objects[ref] = raw.NewStream(dict, data)
	return ref, nil
}
