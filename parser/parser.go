// Package parser loads a PDF file into a raw object graph. It reads
// classic cross-reference tables, cross-reference streams, and object
// streams, and falls back to a full-file repair scan when the xref
// structure is unusable.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kcrt/qr-code-print/filters"
	"github.com/kcrt/qr-code-print/ir/raw"
)

const maxParseDepth = 128

// Load parses data into a document. Encrypted files are rejected.
func Load(data []byte) (*raw.Document, error) {
	doc, err := loadViaXRef(data)
	if err != nil {
		if _, ok := err.(*encryptedError); ok {
			return nil, &raw.GraphError{Op: "load template", Err: err}
		}
		doc, err = repairScan(data)
	}
	if err != nil {
		return nil, &raw.GraphError{Op: "load template", Err: err}
	}
	if _, ok := doc.Trailer.Get("Root"); !ok {
		return nil, &raw.GraphError{Op: "load template", Err: fmt.Errorf("no document root")}
	}
	if _, ok := doc.Trailer.Get("Encrypt"); ok {
		return nil, &raw.GraphError{Op: "load template", Err: fmt.Errorf("encrypted documents are not supported")}
	}
	return doc, nil
}

type encryptedError struct{}

func (*encryptedError) Error() string { return "encrypted documents are not supported" }

func loadViaXRef(data []byte) (*raw.Document, error) {
	start, err := findStartXRef(data)
	if err != nil {
		return nil, err
	}
	entries, trailer, err := readXRefChain(data, start)
	if err != nil {
		return nil, err
	}
	if _, ok := trailer.Get("Encrypt"); ok {
		return nil, &encryptedError{}
	}
	ld := &loader{
		data:     data,
		entries:  entries,
		cache:    make(map[int]raw.Object),
		pipeline: filters.NewPipeline(),
	}
	doc := raw.NewDocument(headerVersion(data))
	doc.Trailer = trailer
	for num := range entries {
		obj, err := ld.load(num)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", num, err)
		}
		if _, isNull := obj.(raw.NullObj); isNull {
			continue
		}
		// Xref and object stream containers describe the file layout
		// being replaced; their members are stored individually.
		if stm, ok := obj.(*raw.StreamObj); ok {
			if t, _ := stm.Dict.Name("Type"); t == "XRef" || t == "ObjStm" {
				continue
			}
		}
		doc.Objects[raw.ObjectRef{Num: num, Gen: entries[num].gen}] = obj
	}
	return doc, nil
}

func headerVersion(data []byte) string {
	head := data
	if len(head) > 16 {
		head = head[:16]
	}
	if m := regexp.MustCompile(`%PDF-(\d\.\d)`).FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return "1.7"
}

func findStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("no startxref marker")
	}
	s := &scanner{data: tail, pos: idx + len("startxref")}
	tok, err := s.next()
	if err != nil || tok.kind != tokNumber || !tok.isInt {
		return 0, fmt.Errorf("malformed startxref")
	}
	if tok.i < 0 || tok.i >= int64(len(data)) {
		return 0, fmt.Errorf("startxref offset %d out of range", tok.i)
	}
	return tok.i, nil
}

// xrefEntry locates one object: directly by byte offset, or inside an
// object stream.
type xrefEntry struct {
	inStream bool
	offset   int64
	gen      int
	stmNum   int
	stmIdx   int
}

// loader materializes indirect objects on demand, memoizing results so
// Length references and object streams resolve only once.
type loader struct {
	data     []byte
	entries  map[int]xrefEntry
	cache    map[int]raw.Object
	loading  map[int]bool
	pipeline *filters.Pipeline
}

func (ld *loader) load(num int) (raw.Object, error) {
	if obj, ok := ld.cache[num]; ok {
		return obj, nil
	}
	if ld.loading == nil {
		ld.loading = make(map[int]bool)
	}
	if ld.loading[num] {
		return nil, fmt.Errorf("reference cycle through object %d", num)
	}
	ld.loading[num] = true
	defer delete(ld.loading, num)

	entry, ok := ld.entries[num]
	if !ok {
		return raw.NullObj{}, nil
	}
	var obj raw.Object
	var err error
	if entry.inStream {
		obj, err = ld.loadFromObjectStream(entry.stmNum, entry.stmIdx, num)
	} else {
		obj, _, err = ld.loadAt(entry.offset, num)
	}
	if err != nil {
		return nil, err
	}
	ld.cache[num] = obj
	return obj, nil
}

// loadAt parses "num gen obj ... endobj" at offset. wantNum < 0 skips
// the object-number check.
func (ld *loader) loadAt(offset int64, wantNum int) (raw.Object, int, error) {
	s := &scanner{data: ld.data, pos: int(offset)}
	numTok, err := s.next()
	if err != nil || numTok.kind != tokNumber || !numTok.isInt {
		return nil, 0, fmt.Errorf("offset %d: expected object number", offset)
	}
	genTok, err := s.next()
	if err != nil || genTok.kind != tokNumber || !genTok.isInt {
		return nil, 0, fmt.Errorf("offset %d: expected generation number", offset)
	}
	kw, err := s.next()
	if err != nil || kw.kind != tokKeyword || kw.name != "obj" {
		return nil, 0, fmt.Errorf("offset %d: expected obj keyword", offset)
	}
	if wantNum >= 0 && int(numTok.i) != wantNum {
		return nil, 0, fmt.Errorf("offset %d: found object %d, want %d", offset, numTok.i, wantNum)
	}
	obj, err := ld.parseValue(s, 0)
	if err != nil {
		return nil, 0, err
	}
	if dict, ok := obj.(*raw.DictObj); ok {
		save := s.pos
		tok, err := s.next()
		if err == nil && tok.kind == tokKeyword && tok.name == "stream" {
			stm, err := ld.readStreamBody(s, dict)
			if err != nil {
				return nil, 0, err
			}
			return stm, int(numTok.i), nil
		}
		s.pos = save
	}
	return obj, int(numTok.i), nil
}

// readStreamBody consumes the stream data following a "stream" keyword.
// The scanner sits just past the keyword.
func (ld *loader) readStreamBody(s *scanner, dict *raw.DictObj) (*raw.StreamObj, error) {
	if s.pos < len(s.data) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < len(s.data) && s.data[s.pos] == '\n' {
		s.pos++
	}
	start := s.pos
	length, ok := ld.streamLength(dict)
	if ok && start+length <= len(s.data) {
		tail := s.data[start+length:]
		if endstreamFollows(tail) {
			s.pos = start + length
			return &raw.StreamObj{Dict: dict, Data: append([]byte(nil), s.data[start:start+length]...)}, nil
		}
	}
	// Length missing or wrong: scan for the endstream keyword.
	idx := bytes.Index(s.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("offset %d: unterminated stream", start)
	}
	end := start + idx
	for end > start && (s.data[end-1] == '\n' || s.data[end-1] == '\r') {
		end--
	}
	s.pos = start + idx
	return &raw.StreamObj{Dict: dict, Data: append([]byte(nil), s.data[start:end]...)}, nil
}

func endstreamFollows(tail []byte) bool {
	for i := 0; i < len(tail) && i < 4; i++ {
		if isWhitespace(tail[i]) {
			continue
		}
		return bytes.HasPrefix(tail[i:], []byte("endstream"))
	}
	return false
}

func (ld *loader) streamLength(dict *raw.DictObj) (int, bool) {
	v, ok := dict.Get("Length")
	if !ok {
		return 0, false
	}
	if ref, isRef := v.(raw.RefObj); isRef {
		obj, err := ld.load(ref.R.Num)
		if err != nil {
			return 0, false
		}
		v = obj
	}
	num, isNum := v.(raw.NumberObj)
	if !isNum || !num.IsInt || num.I < 0 {
		return 0, false
	}
	return int(num.I), true
}

func (ld *loader) loadFromObjectStream(stmNum, idx, wantNum int) (raw.Object, error) {
	container, err := ld.load(stmNum)
	if err != nil {
		return nil, err
	}
	stm, ok := container.(*raw.StreamObj)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", stmNum)
	}
	decoded, err := ld.pipeline.DecodeStream(stm, ld.resolveShallow)
	if err != nil {
		return nil, fmt.Errorf("decode object stream %d: %w", stmNum, err)
	}
	n, okN := stm.Dict.Int("N")
	first, okF := stm.Dict.Int("First")
	if !okN || !okF {
		return nil, fmt.Errorf("object stream %d missing N or First", stmNum)
	}
	s := &scanner{data: decoded}
	var objOffset int64 = -1
	for i := int64(0); i < n; i++ {
		numTok, err := s.next()
		if err != nil || !numTok.isInt {
			return nil, fmt.Errorf("object stream %d: bad header", stmNum)
		}
		offTok, err := s.next()
		if err != nil || !offTok.isInt {
			return nil, fmt.Errorf("object stream %d: bad header", stmNum)
		}
		if i == int64(idx) {
			if int(numTok.i) != wantNum {
				return nil, fmt.Errorf("object stream %d: slot %d holds object %d, want %d", stmNum, idx, numTok.i, wantNum)
			}
			objOffset = offTok.i
		}
	}
	if objOffset < 0 {
		return nil, fmt.Errorf("object stream %d has no slot %d", stmNum, idx)
	}
	s = &scanner{data: decoded, pos: int(first + objOffset)}
	return ld.parseValue(s, 0)
}

func (ld *loader) resolveShallow(obj raw.Object) raw.Object {
	ref, ok := obj.(raw.RefObj)
	if !ok {
		return obj
	}
	loaded, err := ld.load(ref.R.Num)
	if err != nil {
		return raw.NullObj{}
	}
	return loaded
}

// parseValue parses one object value, turning "int int R" into a
// reference by lookahead.
func (ld *loader) parseValue(s *scanner, depth int) (raw.Object, error) {
	if depth > maxParseDepth {
		return nil, fmt.Errorf("offset %d: structure too deep", s.pos)
	}
	tok, err := s.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokNumber:
		if tok.isInt {
			save := s.pos
			genTok, err1 := s.next()
			if err1 == nil && genTok.kind == tokNumber && genTok.isInt {
				kw, err2 := s.next()
				if err2 == nil && kw.kind == tokKeyword && kw.name == "R" {
					return raw.Ref(int(tok.i), int(genTok.i)), nil
				}
			}
			s.pos = save
			return raw.NumberInt(tok.i), nil
		}
		return raw.NumberFloat(tok.f), nil
	case tokName:
		return raw.NameLiteral(tok.name), nil
	case tokString:
		return raw.Str(tok.bytes), nil
	case tokHexString:
		return raw.HexStringObj{Bytes: tok.bytes}, nil
	case tokArrayOpen:
		arr := raw.NewArray()
		for {
			save := s.pos
			peek, err := s.next()
			if err != nil {
				return nil, err
			}
			if peek.kind == tokArrayClose {
				return arr, nil
			}
			s.pos = save
			item, err := ld.parseValue(s, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Append(item)
		}
	case tokDictOpen:
		dict := raw.Dict()
		for {
			keyTok, err := s.next()
			if err != nil {
				return nil, err
			}
			if keyTok.kind == tokDictClose {
				return dict, nil
			}
			if keyTok.kind != tokName {
				return nil, fmt.Errorf("offset %d: dictionary key is not a name", keyTok.pos)
			}
			val, err := ld.parseValue(s, depth+1)
			if err != nil {
				return nil, err
			}
			dict.Set(keyTok.name, val)
		}
	case tokKeyword:
		switch tok.name {
		case "true":
			return raw.Bool(true), nil
		case "false":
			return raw.Bool(false), nil
		case "null":
			return raw.NullObj{}, nil
		}
		return nil, fmt.Errorf("offset %d: unexpected keyword %q", tok.pos, tok.name)
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of input")
	default:
		return nil, fmt.Errorf("offset %d: unexpected token", tok.pos)
	}
}

var objHeaderRe = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)

// repairScan rebuilds the object map by scanning the whole file for
// object headers. Later definitions win, matching how incremental
// updates append to a file.
func repairScan(data []byte) (*raw.Document, error) {
	ld := &loader{
		data:     data,
		entries:  make(map[int]xrefEntry),
		cache:    make(map[int]raw.Object),
		pipeline: filters.NewPipeline(),
	}
	doc := raw.NewDocument(headerVersion(data))
	matches := objHeaderRe.FindAllSubmatchIndex(data, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no objects found")
	}
	for _, m := range matches {
		num, err := strconv.Atoi(string(data[m[2]:m[3]]))
		if err != nil {
			continue
		}
		gen, err := strconv.Atoi(string(data[m[4]:m[5]]))
		if err != nil {
			continue
		}
		obj, _, err := ld.loadAt(int64(m[0]), num)
		if err != nil {
			continue
		}
		// Drop any lower-generation duplicate.
		for ref := range doc.Objects {
			if ref.Num == num {
				delete(doc.Objects, ref)
			}
		}
		doc.Objects[raw.ObjectRef{Num: num, Gen: gen}] = obj
	}
	if len(doc.Objects) == 0 {
		return nil, fmt.Errorf("no readable objects found")
	}
	doc.Trailer = repairTrailer(data, ld, doc)
	return doc, nil
}

// repairTrailer recovers a usable trailer: the last parseable trailer
// dictionary, or a synthesized one pointing at a catalog object.
func repairTrailer(data []byte, ld *loader, doc *raw.Document) *raw.DictObj {
	pos := len(data)
	for {
		idx := bytes.LastIndex(data[:pos], []byte("trailer"))
		if idx < 0 {
			break
		}
		s := &scanner{data: data, pos: idx + len("trailer")}
		obj, err := ld.parseValue(s, 0)
		if err == nil {
			if dict, ok := obj.(*raw.DictObj); ok {
				if _, hasRoot := dict.Get("Root"); hasRoot {
					return dict
				}
			}
		}
		pos = idx
	}
	trailer := raw.Dict()
	for ref, obj := range doc.Objects {
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			continue
		}
		if t, _ := dict.Name("Type"); t == "Catalog" {
			trailer.Set("Root", raw.Ref(ref.Num, ref.Gen))
			break
		}
	}
	trailer.Set("Size", raw.NumberInt(int64(doc.MaxObjectNumber()+1)))
	return trailer
}
