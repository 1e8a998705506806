// Package fonts resolves requested font names into render plans and
// loads TrueType font files for CID embedding.
package fonts

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf16"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ParseError reports a font file whose table structure could not be
// parsed.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse font %q: %v", e.Name, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// CIDFontInfo holds everything the embedder needs to write a
// Type0/CIDFontType2 composite font with Identity-H encoding, where
// character codes are UTF-16BE code units.
type CIDFontInfo struct {
	BaseFont     string
	Program      []byte
	Widths       map[int]int // CID -> width, 1000 units per em
	DefaultWidth int
	CIDToGID     []byte // 2 bytes per CID over the BMP, big endian
	ToUnicode    map[int][]rune
	Ascent       float64
	Descent      float64
	CapHeight    float64
	ItalicAngle  float64
	BBox         [4]float64
}

// LoadTrueType parses a TrueType/OpenType font file, extracts metrics,
// and builds the CID mapping tables. Widths are computed only for the
// code units appearing in texts; everything else renders at the default
// width. The full font program is embedded, no subsetting. TrueType
// collections are parsed at their first face with the whole collection
// embedded.
func LoadTrueType(name string, data []byte, texts []string) (*CIDFontInfo, error) {
	if len(data) == 0 {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("font data is empty")}
	}
	font, err := parseFace(data)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}
	unitsPerEm := font.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("invalid unitsPerEm")}
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(int32(unitsPerEm) << 6)

	baseName := strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	if ps, _ := font.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "EmbeddedTT"
	}

	widths, toUnicode := usedWidths(font, buf, unitsPerEm, ppem, texts)
	metrics, err := font.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}
	bounds, _ := font.Bounds(buf, ppem, xfont.HintingNone)

	return &CIDFontInfo{
		BaseFont:     baseName,
		Program:      data,
		Widths:       widths,
		DefaultWidth: 1000,
		CIDToGID:     cidToGIDMap(font, buf),
		ToUnicode:    toUnicode,
		Ascent:       scaleFixed(metrics.Ascent, unitsPerEm),
		Descent:      -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight:    scaleFixed(metrics.CapHeight, unitsPerEm),
		ItalicAngle:  italicAngle(font),
		BBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
	}, nil
}

func parseFace(data []byte) (*sfnt.Font, error) {
	if bytes.HasPrefix(data, []byte("ttcf")) {
		coll, err := sfnt.ParseCollection(data)
		if err != nil {
			return nil, err
		}
		return coll.Font(0)
	}
	return sfnt.Parse(data)
}

// usedWidths computes advance widths for the UTF-16 code units of the
// given texts, keyed by CID. The space character is always included.
func usedWidths(font *sfnt.Font, buf *sfnt.Buffer, unitsPerEm sfnt.Units, ppem fixed.Int26_6, texts []string) (map[int]int, map[int][]rune) {
	widths := make(map[int]int)
	toUnicode := make(map[int][]rune)
	seen := map[rune]bool{' ': false}
	for _, s := range texts {
		for _, r := range s {
			if _, ok := seen[r]; !ok {
				seen[r] = false
			}
		}
	}
	for r := range seen {
		units := utf16.Encode([]rune{r})
		if len(units) != 1 {
			// Supplementary plane: code units are surrogates with no
			// single-glyph width of their own.
			continue
		}
		cid := int(units[0])
		gid, err := font.GlyphIndex(buf, r)
		if err != nil || gid == 0 {
			continue
		}
		adv, err := font.GlyphAdvance(buf, gid, ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[cid] = int(math.Round(scaleFixed(adv, unitsPerEm)))
		toUnicode[cid] = []rune{r}
	}
	return widths, toUnicode
}

// cidToGIDMap builds the CIDToGIDMap stream body: a big-endian glyph
// index for every CID in the basic multilingual plane.
func cidToGIDMap(font *sfnt.Font, buf *sfnt.Buffer) []byte {
	out := make([]byte, 2*0x10000)
	for c := rune(0); c <= 0xFFFF; c++ {
		if c >= 0xD800 && c <= 0xDFFF {
			continue
		}
		gid, err := font.GlyphIndex(buf, c)
		if err != nil || gid == 0 {
			continue
		}
		out[2*c] = byte(gid >> 8)
		out[2*c+1] = byte(gid)
	}
	return out
}

func italicAngle(font *sfnt.Font) float64 {
	post := font.PostTable()
	if post == nil {
		return 0
	}
	return post.ItalicAngle
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}
