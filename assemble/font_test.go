package assemble

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kcrt/qr-code-print/filters"
	"github.com/kcrt/qr-code-print/fonts"
	"github.com/kcrt/qr-code-print/ir/raw"
	"github.com/kcrt/qr-code-print/sysfont"
)

func TestEncodeCIDWidths(t *testing.T) {
	cases := []struct {
		name   string
		widths map[int]int
		want   []int64
	}{
		{"empty", map[int]int{}, nil},
		{"single", map[int]int{32: 250}, []int64{32, 32, 250}},
		{"run merged", map[int]int{65: 500, 66: 500, 68: 600}, []int64{65, 66, 500, 68, 68, 600}},
		{"same width not adjacent", map[int]int{65: 500, 67: 500}, []int64{65, 65, 500, 67, 67, 500}},
		{"long run", map[int]int{10: 700, 11: 700, 12: 700, 13: 800}, []int64{10, 12, 700, 13, 13, 800}},
	}
	for _, tc := range cases {
		arr := encodeCIDWidths(tc.widths)
		var got []int64
		for _, item := range arr.Items {
			got = append(got, item.(raw.NumberObj).Int())
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: W array (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestBuildToUnicodeCMap(t *testing.T) {
	body := string(buildToUnicodeCMap("TestFont", map[int][]rune{
		0x3042: {'あ'},
		0x0041: {'A'},
	}))
	for _, want := range []string{
		"/CMapName /TestFont-UTF16 def",
		"1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange",
		"2 beginbfchar",
		"<0041> <0041>",
		"<3042> <3042>",
		"endbfchar",
		"endcmap",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("CMap missing %q:\n%s", want, body)
		}
	}
}

func TestBuildToUnicodeCMapChunks(t *testing.T) {
	toUnicode := make(map[int][]rune, 150)
	for cid := 0x4E00; cid < 0x4E00+150; cid++ {
		toUnicode[cid] = []rune{rune(cid)}
	}
	body := string(buildToUnicodeCMap("Chunky", toUnicode))
	if !strings.Contains(body, "100 beginbfchar") {
		t.Fatalf("first chunk header missing:\n%s", body[:200])
	}
	if !strings.Contains(body, "50 beginbfchar") {
		t.Fatalf("remainder chunk header missing")
	}
	if got := strings.Count(body, "endbfchar"); got != 2 {
		t.Fatalf("endbfchar count = %d, want 2", got)
	}
}

func TestEmbedCIDFontWritesCluster(t *testing.T) {
	doc := testTemplate()
	a, err := New(doc, testSchema(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info := &fonts.CIDFontInfo{
		BaseFont:     "TestGothic",
		Program:      []byte("not a real font program"),
		Widths:       map[int]int{0x3042: 1000, 0x3043: 1000},
		DefaultWidth: 1000,
		CIDToGID:     []byte{0, 1, 0, 2},
		ToUnicode:    map[int][]rune{0x3042: {'あ'}},
		Ascent:       880,
		Descent:      -120,
		CapHeight:    700,
		BBox:         [4]float64{-100, -200, 1100, 900},
	}
	before := len(doc.Objects)
	rootRef, err := a.embedCIDFont(info)
	if err != nil {
		t.Fatalf("embedCIDFont: %v", err)
	}
	// Program, descriptor, CIDToGIDMap, descendant, ToUnicode, root.
	if got := len(doc.Objects) - before; got != 6 {
		t.Fatalf("cluster wrote %d objects, want 6", got)
	}

	root := doc.Objects[rootRef].(*raw.DictObj)
	if name, _ := root.Name("Subtype"); name != "Type0" {
		t.Fatalf("root Subtype = %q", name)
	}
	if name, _ := root.Name("Encoding"); name != "Identity-H" {
		t.Fatalf("root Encoding = %q", name)
	}

	descObj, _ := root.Get("DescendantFonts")
	descRefObj, _ := descObj.(*raw.ArrayObj).Get(0)
	descendant, ok := doc.ResolveDict(descRefObj)
	if !ok {
		t.Fatal("descendant font not resolvable")
	}
	if name, _ := descendant.Name("Subtype"); name != "CIDFontType2" {
		t.Fatalf("descendant Subtype = %q", name)
	}
	if dw, _ := descendant.Int("DW"); dw != 1000 {
		t.Fatalf("DW = %d", dw)
	}
	wObj, _ := descendant.Get("W")
	if w := wObj.(*raw.ArrayObj); w.Len() != 3 {
		t.Fatalf("W array len = %d, want one run of 3", w.Len())
	}

	descriptorObj, _ := descendant.Get("FontDescriptor")
	descriptor, _ := doc.ResolveDict(descriptorObj)
	if flags, _ := descriptor.Int("Flags"); flags != 4 {
		t.Fatalf("descriptor Flags = %d", flags)
	}

	pipeline := filters.NewPipeline()

	fileObj, _ := descriptor.Get("FontFile2")
	file := doc.Resolve(fileObj).(*raw.StreamObj)
	if n, _ := file.Dict.Int("Length1"); n != int64(len(info.Program)) {
		t.Fatalf("FontFile2 Length1 = %d, want %d", n, len(info.Program))
	}
	program, err := pipeline.DecodeStream(file, doc.Resolve)
	if err != nil {
		t.Fatalf("decode FontFile2: %v", err)
	}
	if !bytes.Equal(program, info.Program) {
		t.Fatal("FontFile2 does not round-trip the font program")
	}

	gidObj, _ := descendant.Get("CIDToGIDMap")
	gidMap, err := pipeline.DecodeStream(doc.Resolve(gidObj).(*raw.StreamObj), doc.Resolve)
	if err != nil {
		t.Fatalf("decode CIDToGIDMap: %v", err)
	}
	if !bytes.Equal(gidMap, info.CIDToGID) {
		t.Fatal("CIDToGIDMap does not round-trip")
	}

	cmapObj, _ := root.Get("ToUnicode")
	cmap, err := pipeline.DecodeStream(doc.Resolve(cmapObj).(*raw.StreamObj), doc.Resolve)
	if err != nil {
		t.Fatalf("decode ToUnicode: %v", err)
	}
	if !strings.Contains(string(cmap), "<3042> <3042>") {
		t.Fatalf("ToUnicode CMap missing mapping:\n%s", cmap)
	}
}

// trapFinder fails the test on any lookup.
type trapFinder struct{ t *testing.T }

func (f trapFinder) Find(candidates []string) (*sysfont.Match, error) {
	f.t.Fatal("Find called for a cached font plan")
	return nil, nil
}

func TestEnsureFontCIDPlanHitsCache(t *testing.T) {
	doc := testTemplate()
	a, err := New(doc, testSchema(t), WithFinder(trapFinder{t}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plan := fonts.Resolve("Noto Sans CJK JP", []string{"あ"})
	if plan.Kind != fonts.UseCIDEmbed {
		t.Fatalf("plan kind = %v, want CID embed", plan.Kind)
	}
	seeded := &fontResource{ref: raw.ObjectRef{Num: 99}, resourceName: "F1", cid: true}
	a.fontCache[plan.Key()] = seeded

	before := len(doc.Objects)
	got, err := a.ensureFont(plan, []string{"あ"})
	if err != nil {
		t.Fatalf("ensureFont: %v", err)
	}
	if got != seeded {
		t.Fatal("cached CID plan returned a distinct resource")
	}
	if len(doc.Objects) != before {
		t.Fatal("cached CID lookup grew the graph")
	}
}

type emptyFinder struct{}

func (emptyFinder) Find(candidates []string) (*sysfont.Match, error) { return nil, nil }

func TestEnsureFontNoCIDFontAvailable(t *testing.T) {
	doc := testTemplate()
	a, err := New(doc, testSchema(t), WithFinder(emptyFinder{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plan := fonts.Resolve("Meiryo", []string{"漢"})
	_, err = a.ensureFont(plan, []string{"漢"})
	var missing *fonts.NoCIDFontError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v, want NoCIDFontError", err)
	}
	if len(missing.Candidates) == 0 || missing.Candidates[0] != "Meiryo" {
		t.Fatalf("candidates = %v, want requested family first", missing.Candidates)
	}
}
