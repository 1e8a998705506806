// Package filters decodes and encodes PDF stream filters.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/kcrt/qr-code-print/ir/raw"
)

// Decoder turns one filter's encoded bytes back into plain bytes.
type Decoder interface {
	Name() string
	Decode(input []byte, params *raw.DictObj) ([]byte, error)
}

// Pipeline applies a filter chain in order.
type Pipeline struct {
	decoders map[string]Decoder
}

// NewPipeline returns a pipeline with the default decoders registered.
func NewPipeline() *Pipeline {
	p := &Pipeline{decoders: make(map[string]Decoder)}
	p.Register(NewFlateDecoder())
	p.Register(NewASCIIHexDecoder())
	p.Register(NewASCII85Decoder())
	return p
}

func (p *Pipeline) Register(d Decoder) { p.decoders[d.Name()] = d }

func (p *Pipeline) Decode(input []byte, filterNames []string, params []*raw.DictObj) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		dec, ok := p.decoders[name]
		if !ok {
			return nil, errors.New("unknown filter: " + name)
		}
		var param *raw.DictObj
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(data, param)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		data = out
	}
	return data, nil
}

// DecodeStream resolves a stream's Filter and DecodeParms entries and
// decodes its data. resolve maps indirect references to direct objects.
func (p *Pipeline) DecodeStream(stm *raw.StreamObj, resolve func(raw.Object) raw.Object) ([]byte, error) {
	if resolve == nil {
		resolve = func(o raw.Object) raw.Object { return o }
	}
	var names []string
	var params []*raw.DictObj

	if f, ok := stm.Dict.Get("Filter"); ok {
		switch fv := resolve(f).(type) {
		case raw.NameObj:
			names = append(names, fv.Val)
		case *raw.ArrayObj:
			for _, item := range fv.Items {
				n, ok := resolve(item).(raw.NameObj)
				if !ok {
					return nil, errors.New("Filter array entry is not a name")
				}
				names = append(names, n.Val)
			}
		}
	}
	if dp, ok := stm.Dict.Get("DecodeParms"); ok {
		switch pv := resolve(dp).(type) {
		case *raw.DictObj:
			params = append(params, pv)
		case *raw.ArrayObj:
			for _, item := range pv.Items {
				d, _ := resolve(item).(*raw.DictObj)
				params = append(params, d)
			}
		}
	}
	return p.Decode(stm.Data, names, params)
}

type flateDecoder struct{}

func (flateDecoder) Name() string { return "FlateDecode" }

// NewFlateDecoder returns a FlateDecode decoder that understands both
// zlib-wrapped and raw deflate bodies, with PNG predictor support.
func NewFlateDecoder() Decoder { return flateDecoder{} }

func (flateDecoder) Decode(in []byte, params *raw.DictObj) ([]byte, error) {
	var out bytes.Buffer
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err == nil {
		_, err = io.Copy(&out, zr)
		zr.Close()
	}
	if err != nil {
		// Some producers emit headerless deflate despite the spec.
		out.Reset()
		fr := flate.NewReader(bytes.NewReader(in))
		if _, err := io.Copy(&out, fr); err != nil {
			fr.Close()
			return nil, err
		}
		fr.Close()
	}
	return applyPredictor(out.Bytes(), params)
}

// applyPredictor undoes the PNG row predictors described by the
// Predictor, Columns, Colors, and BitsPerComponent parameters.
func applyPredictor(data []byte, params *raw.DictObj) ([]byte, error) {
	if params == nil {
		return data, nil
	}
	predictor, _ := params.Int("Predictor")
	if predictor <= 1 {
		return data, nil
	}
	if predictor < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}
	columns := int64(1)
	if c, ok := params.Int("Columns"); ok {
		columns = c
	}
	colors := int64(1)
	if c, ok := params.Int("Colors"); ok {
		colors = c
	}
	bpc := int64(8)
	if b, ok := params.Int("BitsPerComponent"); ok {
		bpc = b
	}
	bpp := int((colors*bpc + 7) / 8)
	rowLen := int((columns*colors*bpc + 7) / 8)
	if rowLen <= 0 {
		return nil, errors.New("predictor columns out of range")
	}

	var out bytes.Buffer
	prev := make([]byte, rowLen)
	for pos := 0; pos+1 <= len(data); pos += rowLen + 1 {
		if pos+1+rowLen > len(data) {
			return nil, errors.New("truncated predictor row")
		}
		tag := data[pos]
		row := append([]byte(nil), data[pos+1:pos+1+rowLen]...)
		switch tag {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				row[i] += row[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				row[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				left, upLeft := 0, 0
				if i >= bpp {
					left = int(row[i-bpp])
					upLeft = int(prev[i-bpp])
				}
				row[i] += paeth(left, int(prev[i]), upLeft)
			}
		default:
			return nil, fmt.Errorf("unknown PNG predictor tag %d", tag)
		}
		out.Write(row)
		prev = row
	}
	return out.Bytes(), nil
}

func paeth(a, b, c int) byte {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return byte(a)
	}
	if pb <= pc {
		return byte(b)
	}
	return byte(c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }
func (ascii85Decoder) Decode(in []byte, params *raw.DictObj) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	if bytes.HasPrefix(trimmed, []byte("<~")) {
		trimmed = trimmed[2:]
	}
	if i := bytes.Index(trimmed, []byte("~>")); i >= 0 {
		trimmed = trimmed[:i]
	}
	out := make([]byte, len(trimmed)*2)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }
func (asciiHexDecoder) Decode(in []byte, params *raw.DictObj) ([]byte, error) {
	trimmed := bytes.Map(dropWhitespace, in)
	if i := bytes.IndexByte(trimmed, '>'); i >= 0 {
		trimmed = trimmed[:i]
	}
	if len(trimmed)%2 == 1 {
		trimmed = append(trimmed, '0')
	}
	result := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(result, trimmed)
	if err != nil {
		return nil, err
	}
	return result[:n], nil
}
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

func dropWhitespace(r rune) rune {
	switch r {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return -1
	}
	return r
}

// FlateEncode compresses data with a zlib wrapper at best compression,
// the form emitted for every stream this module writes.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
