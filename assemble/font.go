package assemble

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/kcrt/qr-code-print/filters"
	"github.com/kcrt/qr-code-print/fonts"
	"github.com/kcrt/qr-code-print/ir/raw"
	"github.com/kcrt/qr-code-print/observability"
)

// fontResource is an embedded font ready for content-stream use.
type fontResource struct {
	ref          raw.ObjectRef
	resourceName string
	cid          bool
}

// ensureFont embeds the font a plan calls for, once. Repeated calls
// with an equivalent plan return the cached resource without touching
// the object graph.
func (a *Assembler) ensureFont(plan fonts.Plan, texts []string) (*fontResource, error) {
	if cached, ok := a.fontCache[plan.Key()]; ok {
		return cached, nil
	}
	var res *fontResource
	var err error
	if plan.Kind == fonts.UseCIDEmbed {
		res, err = a.embedCIDFontFromSystem(plan, texts)
	} else {
		res = a.embedStandardFont(plan.Standard)
	}
	if err != nil {
		return nil, err
	}
	a.fontCache[plan.Key()] = res
	return res, nil
}

// embedStandardFont writes a minimal Type1 dictionary for a built-in
// font. No font program is embedded.
func (a *Assembler) embedStandardFont(std fonts.StandardFont) *fontResource {
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("Font"))
	dict.Set("Subtype", raw.NameLiteral("Type1"))
	dict.Set("BaseFont", raw.NameLiteral(std.BaseFont()))
	ref := a.allocRef()
	a.doc.Objects[ref] = dict
	a.log.Debug("standard font embedded", observability.String("base", std.BaseFont()))
	return &fontResource{ref: ref, resourceName: "F1"}
}

// embedCIDFontFromSystem locates a CID-capable system font, parses it,
// and embeds it as a Type0 composite font.
func (a *Assembler) embedCIDFontFromSystem(plan fonts.Plan, texts []string) (*fontResource, error) {
	candidates := fonts.CIDFamilyCandidates(plan.Requested)
	match, err := a.finder.Find(candidates)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, &fonts.NoCIDFontError{Candidates: candidates}
	}
	info, err := fonts.LoadTrueType(match.Family, match.Data, texts)
	if err != nil {
		return nil, err
	}
	a.log.Info("embedding CID font",
		observability.String("family", match.Family),
		observability.String("path", match.Path),
		observability.Int("bytes", len(info.Program)))
	ref, err := a.embedCIDFont(info)
	if err != nil {
		return nil, err
	}
	return &fontResource{ref: ref, resourceName: "F1", cid: true}, nil
}

// embedCIDFont writes the full Type0 object cluster: font program,
// descriptor, CIDToGIDMap, descendant CIDFontType2, ToUnicode CMap, and
// the root font dictionary, in that order.
func (a *Assembler) embedCIDFont(info *fonts.CIDFontInfo) (raw.ObjectRef, error) {
	program, err := filters.FlateEncode(info.Program)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	fileDict := raw.Dict()
	fileDict.Set("Filter", raw.NameLiteral("FlateDecode"))
	fileDict.Set("Length1", raw.NumberInt(int64(len(info.Program))))
	fileRef := a.allocRef()
	a.doc.Objects[fileRef] = raw.NewStream(fileDict, program)

	descriptor := raw.Dict()
	descriptor.Set("Type", raw.NameLiteral("FontDescriptor"))
	descriptor.Set("FontName", raw.NameLiteral(info.BaseFont))
	descriptor.Set("Flags", raw.NumberInt(4))
	descriptor.Set("ItalicAngle", raw.NumberFloat(info.ItalicAngle))
	descriptor.Set("Ascent", raw.NumberFloat(info.Ascent))
	descriptor.Set("Descent", raw.NumberFloat(info.Descent))
	descriptor.Set("CapHeight", raw.NumberFloat(info.CapHeight))
	descriptor.Set("StemV", raw.NumberInt(80))
	descriptor.Set("FontBBox", raw.NewArray(
		raw.NumberFloat(info.BBox[0]),
		raw.NumberFloat(info.BBox[1]),
		raw.NumberFloat(info.BBox[2]),
		raw.NumberFloat(info.BBox[3])))
	descriptor.Set("FontFile2", raw.Ref(fileRef.Num, fileRef.Gen))
	descRef := a.allocRef()
	a.doc.Objects[descRef] = descriptor

	cidToGID, err := filters.FlateEncode(info.CIDToGID)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	gidDict := raw.Dict()
	gidDict.Set("Filter", raw.NameLiteral("FlateDecode"))
	gidRef := a.allocRef()
	a.doc.Objects[gidRef] = raw.NewStream(gidDict, cidToGID)

	sysInfo := raw.Dict()
	sysInfo.Set("Registry", raw.Str([]byte("Adobe")))
	sysInfo.Set("Ordering", raw.Str([]byte("Identity")))
	sysInfo.Set("Supplement", raw.NumberInt(0))

	descendant := raw.Dict()
	descendant.Set("Type", raw.NameLiteral("Font"))
	descendant.Set("Subtype", raw.NameLiteral("CIDFontType2"))
	descendant.Set("BaseFont", raw.NameLiteral(info.BaseFont))
	descendant.Set("CIDSystemInfo", sysInfo)
	descendant.Set("DW", raw.NumberInt(int64(info.DefaultWidth)))
	descendant.Set("W", encodeCIDWidths(info.Widths))
	descendant.Set("FontDescriptor", raw.Ref(descRef.Num, descRef.Gen))
	descendant.Set("CIDToGIDMap", raw.Ref(gidRef.Num, gidRef.Gen))
	descendantRef := a.allocRef()
	a.doc.Objects[descendantRef] = descendant

	cmap, err := filters.FlateEncode(buildToUnicodeCMap(info.BaseFont, info.ToUnicode))
	if err != nil {
		return raw.ObjectRef{}, err
	}
	cmapDict := raw.Dict()
	cmapDict.Set("Filter", raw.NameLiteral("FlateDecode"))
	cmapRef := a.allocRef()
	a.doc.Objects[cmapRef] = raw.NewStream(cmapDict, cmap)

	root := raw.Dict()
	root.Set("Type", raw.NameLiteral("Font"))
	root.Set("Subtype", raw.NameLiteral("Type0"))
	root.Set("BaseFont", raw.NameLiteral(info.BaseFont))
	root.Set("Encoding", raw.NameLiteral("Identity-H"))
	root.Set("DescendantFonts", raw.NewArray(raw.Ref(descendantRef.Num, descendantRef.Gen)))
	root.Set("ToUnicode", raw.Ref(cmapRef.Num, cmapRef.Gen))
	rootRef := a.allocRef()
	a.doc.Objects[rootRef] = root
	return rootRef, nil
}

// encodeCIDWidths compresses a CID width map into the W array form:
// runs of consecutive equal widths become start end width triplets.
func encodeCIDWidths(widths map[int]int) *raw.ArrayObj {
	arr := raw.NewArray()
	if len(widths) == 0 {
		return arr
	}
	codes := make([]int, 0, len(widths))
	for c := range widths {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	start, prev, current := codes[0], codes[0], widths[codes[0]]
	flush := func() {
		arr.Append(raw.NumberInt(int64(start)))
		arr.Append(raw.NumberInt(int64(prev)))
		arr.Append(raw.NumberInt(int64(current)))
	}
	for _, code := range codes[1:] {
		w := widths[code]
		if w == current && code == prev+1 {
			prev = code
			continue
		}
		flush()
		start, prev, current = code, code, w
	}
	flush()
	return arr
}

// buildToUnicodeCMap renders the ToUnicode CMap stream body mapping
// CIDs back to Unicode for text extraction.
func buildToUnicodeCMap(baseFont string, toUnicode map[int][]rune) []byte {
	keys := make([]int, 0, len(toUnicode))
	for cid := range toUnicode {
		keys = append(keys, cid)
	}
	sort.Ints(keys)

	var buf bytes.Buffer
	buf.WriteString("/CIDInit /ProcSet findresource begin\n")
	buf.WriteString("12 dict begin\n")
	buf.WriteString("begincmap\n")
	buf.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> def\n")
	fmt.Fprintf(&buf, "/CMapName /%s-UTF16 def\n", baseFont)
	buf.WriteString("/CMapType 2 def\n")
	buf.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for i := 0; i < len(keys); {
		chunk := len(keys) - i
		if chunk > 100 {
			chunk = 100
		}
		fmt.Fprintf(&buf, "%d beginbfchar\n", chunk)
		for j := 0; j < chunk; j++ {
			cid := keys[i+j]
			fmt.Fprintf(&buf, "<%04X> <%s>\n", cid, utf16Hex(string(toUnicode[cid])))
		}
		buf.WriteString("endbfchar\n")
		i += chunk
	}
	buf.WriteString("endcmap\n")
	buf.WriteString("CMapName currentdict /CMap defineresource pop\n")
	buf.WriteString("end\nend\n")
	return buf.Bytes()
}
