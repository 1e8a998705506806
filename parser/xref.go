package parser

import (
	"fmt"

	"github.com/kcrt/qr-code-print/filters"
	"github.com/kcrt/qr-code-print/ir/raw"
)

// readXRefChain walks a cross-reference chain, classic tables and xref
// streams alike, following Prev and hybrid XRefStm links. The newest
// definition of an object wins, and free entries are dropped.
func readXRefChain(data []byte, start int64) (map[int]xrefEntry, *raw.DictObj, error) {
	entries := make(map[int]xrefEntry)
	trailer := raw.Dict()
	visited := make(map[int64]bool)
	offsets := []int64{start}

	for len(offsets) > 0 {
		offset := offsets[0]
		offsets = offsets[1:]
		if visited[offset] {
			continue
		}
		visited[offset] = true
		if offset < 0 || offset >= int64(len(data)) {
			return nil, nil, fmt.Errorf("xref offset %d out of range", offset)
		}
		section, err := readXRefSection(data, offset)
		if err != nil {
			return nil, nil, err
		}
		for num, e := range section.entries {
			if _, seen := entries[num]; !seen {
				entries[num] = e
			}
		}
		for k, v := range section.trailer.KV {
			if _, seen := trailer.Get(k); !seen {
				trailer.Set(k, v)
			}
		}
		if stm, ok := section.trailer.Int("XRefStm"); ok {
			offsets = append(offsets, stm)
		}
		if prev, ok := section.trailer.Int("Prev"); ok {
			offsets = append(offsets, prev)
		}
	}
	return entries, trailer, nil
}

type xrefSection struct {
	entries map[int]xrefEntry
	trailer *raw.DictObj
}

func readXRefSection(data []byte, offset int64) (*xrefSection, error) {
	s := &scanner{data: data, pos: int(offset)}
	save := s.pos
	tok, err := s.next()
	if err == nil && tok.kind == tokKeyword && tok.name == "xref" {
		return readClassicTable(s)
	}
	s.pos = save
	return readXRefStream(data, offset)
}

func readClassicTable(s *scanner) (*xrefSection, error) {
	sec := &xrefSection{entries: make(map[int]xrefEntry), trailer: raw.Dict()}
	for {
		tok, err := s.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokKeyword && tok.name == "trailer" {
			ld := &loader{data: s.data, pipeline: filters.NewPipeline()}
			obj, err := ld.parseValue(s, 0)
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			dict, ok := obj.(*raw.DictObj)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary")
			}
			sec.trailer = dict
			return sec, nil
		}
		if tok.kind != tokNumber || !tok.isInt {
			return nil, fmt.Errorf("offset %d: malformed xref subsection header", tok.pos)
		}
		first := tok.i
		countTok, err := s.next()
		if err != nil || countTok.kind != tokNumber || !countTok.isInt {
			return nil, fmt.Errorf("malformed xref subsection count")
		}
		for i := int64(0); i < countTok.i; i++ {
			offTok, err := s.next()
			if err != nil || !offTok.isInt {
				return nil, fmt.Errorf("malformed xref entry offset")
			}
			genTok, err := s.next()
			if err != nil || !genTok.isInt {
				return nil, fmt.Errorf("malformed xref entry generation")
			}
			kindTok, err := s.next()
			if err != nil || kindTok.kind != tokKeyword {
				return nil, fmt.Errorf("malformed xref entry kind")
			}
			num := int(first + i)
			switch kindTok.name {
			case "n":
				if _, seen := sec.entries[num]; !seen {
					sec.entries[num] = xrefEntry{offset: offTok.i, gen: int(genTok.i)}
				}
			case "f":
				// free entry
			default:
				return nil, fmt.Errorf("offset %d: xref entry kind %q", kindTok.pos, kindTok.name)
			}
		}
	}
}

func readXRefStream(data []byte, offset int64) (*xrefSection, error) {
	ld := &loader{data: data, cache: make(map[int]raw.Object), entries: map[int]xrefEntry{}, pipeline: filters.NewPipeline()}
	obj, _, err := ld.loadAt(offset, -1)
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	stm, ok := obj.(*raw.StreamObj)
	if !ok {
		return nil, fmt.Errorf("offset %d holds no xref table or stream", offset)
	}
	if t, _ := stm.Dict.Name("Type"); t != "XRef" {
		return nil, fmt.Errorf("offset %d: stream is not an xref stream", offset)
	}
	decoded, err := ld.pipeline.DecodeStream(stm, nil)
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %w", err)
	}

	wArr, ok := stm.Dict.Get("W")
	if !ok {
		return nil, fmt.Errorf("xref stream missing W")
	}
	w, err := intSlice(wArr)
	if err != nil || len(w) < 3 {
		return nil, fmt.Errorf("malformed xref stream W")
	}
	size, ok := stm.Dict.Int("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing Size")
	}
	index := []int64{0, size}
	if idxArr, ok := stm.Dict.Get("Index"); ok {
		if index, err = intSlice(idxArr); err != nil || len(index)%2 != 0 {
			return nil, fmt.Errorf("malformed xref stream Index")
		}
	}

	sec := &xrefSection{entries: make(map[int]xrefEntry), trailer: stm.Dict}
	rowLen := int(w[0] + w[1] + w[2])
	pos := 0
	for pair := 0; pair < len(index); pair += 2 {
		first, count := index[pair], index[pair+1]
		for i := int64(0); i < count; i++ {
			if pos+rowLen > len(decoded) {
				return nil, fmt.Errorf("xref stream data truncated")
			}
			f1 := readField(decoded[pos:], w[0], 1)
			f2 := readField(decoded[pos+int(w[0]):], w[1], 0)
			f3 := readField(decoded[pos+int(w[0]+w[1]):], w[2], 0)
			pos += rowLen
			num := int(first + i)
			if _, seen := sec.entries[num]; seen {
				continue
			}
			switch f1 {
			case 0:
				// free entry
			case 1:
				sec.entries[num] = xrefEntry{offset: f2, gen: int(f3)}
			case 2:
				sec.entries[num] = xrefEntry{inStream: true, stmNum: int(f2), stmIdx: int(f3)}
			}
		}
	}
	return sec, nil
}

// readField decodes a big-endian field of width bytes; zero width means
// the default value.
func readField(data []byte, width, def int64) int64 {
	if width == 0 {
		return def
	}
	var v int64
	for i := int64(0); i < width; i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}

func intSlice(obj raw.Object) ([]int64, error) {
	arr, ok := obj.(*raw.ArrayObj)
	if !ok {
		return nil, fmt.Errorf("not an array")
	}
	out := make([]int64, 0, arr.Len())
	for _, item := range arr.Items {
		num, ok := item.(raw.NumberObj)
		if !ok || !num.IsInt {
			return nil, fmt.Errorf("not an integer array")
		}
		out = append(out, num.I)
	}
	return out, nil
}
