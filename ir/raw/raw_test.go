package raw

import (
	"errors"
	"testing"
)

func twoLevelDoc() *Document {
	doc := NewDocument("1.7")

	catalog := Dict()
	catalog.Set("Type", NameLiteral("Catalog"))
	catalog.Set("Pages", Ref(2, 0))
	doc.Objects[ObjectRef{Num: 1}] = catalog

	root := Dict()
	root.Set("Type", NameLiteral("Pages"))
	root.Set("Kids", NewArray(Ref(3, 0)))
	root.Set("Count", NumberInt(1))
	root.Set("MediaBox", NewArray(NumberInt(0), NumberInt(0), NumberInt(612), NumberInt(792)))
	doc.Objects[ObjectRef{Num: 2}] = root

	inner := Dict()
	inner.Set("Type", NameLiteral("Pages"))
	inner.Set("Parent", Ref(2, 0))
	inner.Set("Kids", NewArray(Ref(4, 0)))
	inner.Set("Count", NumberInt(1))
	doc.Objects[ObjectRef{Num: 3}] = inner

	page := Dict()
	page.Set("Type", NameLiteral("Page"))
	page.Set("Parent", Ref(3, 0))
	doc.Objects[ObjectRef{Num: 4}] = page

	doc.Trailer.Set("Root", Ref(1, 0))
	return doc
}

func TestFirstPageWalksNestedKids(t *testing.T) {
	doc := twoLevelDoc()
	ref, page, err := doc.FirstPage()
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if ref != (ObjectRef{Num: 4}) {
		t.Fatalf("FirstPage ref = %v, want object 4", ref)
	}
	if kind, _ := page.Name("Type"); kind != "Page" {
		t.Fatalf("FirstPage Type = %q", kind)
	}
}

func TestMediaBoxInheritedFromAncestor(t *testing.T) {
	doc := twoLevelDoc()
	_, page, err := doc.FirstPage()
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	box, err := doc.MediaBox(page)
	if err != nil {
		t.Fatalf("MediaBox: %v", err)
	}
	want := [4]float64{0, 0, 612, 792}
	if box != want {
		t.Fatalf("MediaBox = %v, want %v", box, want)
	}
}

func TestMediaBoxMissingEverywhere(t *testing.T) {
	doc := twoLevelDoc()
	root := doc.Objects[ObjectRef{Num: 2}].(*DictObj)
	root.Delete("MediaBox")
	_, page, _ := doc.FirstPage()
	_, err := doc.MediaBox(page)
	var ge *GraphError
	if !errors.As(err, &ge) {
		t.Fatalf("error = %v, want GraphError", err)
	}
}

func TestResolveFollowsChainsAndBreaksCycles(t *testing.T) {
	doc := NewDocument("")
	doc.Objects[ObjectRef{Num: 1}] = Ref(2, 0)
	doc.Objects[ObjectRef{Num: 2}] = NumberInt(7)
	got := doc.Resolve(Ref(1, 0))
	if n, ok := got.(NumberObj); !ok || n.Int() != 7 {
		t.Fatalf("Resolve = %v, want 7", got)
	}

	doc.Objects[ObjectRef{Num: 5}] = Ref(6, 0)
	doc.Objects[ObjectRef{Num: 6}] = Ref(5, 0)
	if _, ok := doc.Resolve(Ref(5, 0)).(NullObj); !ok {
		t.Fatal("cyclic reference should resolve to null")
	}

	if _, ok := doc.Resolve(Ref(99, 0)).(NullObj); !ok {
		t.Fatal("dangling reference should resolve to null")
	}
}

func TestCloneIsolatesDictsAndArrays(t *testing.T) {
	orig := Dict()
	orig.Set("Kids", NewArray(Ref(3, 0)))
	orig.Set("Count", NumberInt(1))

	copied := Clone(orig).(*DictObj)
	copiedKids, _ := copied.Get("Kids")
	copiedKids.(*ArrayObj).Append(Ref(4, 0))
	copied.Set("Count", NumberInt(2))

	origKids, _ := orig.Get("Kids")
	if origKids.(*ArrayObj).Len() != 1 {
		t.Fatal("Clone shares nested array storage")
	}
	if n, _ := orig.Int("Count"); n != 1 {
		t.Fatalf("Clone shares dict storage, Count = %d", n)
	}
}

func TestNewArrayCopiesItsInput(t *testing.T) {
	base := make([]Object, 2, 4) // spare capacity, as a copied slice may have
	base[0], base[1] = Ref(1, 0), Ref(2, 0)

	first := NewArray(base...)
	first.Append(Ref(10, 0))
	second := NewArray(base...)
	second.Append(Ref(20, 0))

	got, _ := first.Get(2)
	if got.(RefObj).Ref() != (ObjectRef{Num: 10}) {
		t.Fatalf("first array's append = %v, clobbered by a later array", got)
	}
}

func TestMaxObjectNumber(t *testing.T) {
	doc := NewDocument("")
	if got := doc.MaxObjectNumber(); got != 0 {
		t.Fatalf("empty document MaxObjectNumber = %d", got)
	}
	doc.Objects[ObjectRef{Num: 3}] = NumberInt(0)
	doc.Objects[ObjectRef{Num: 41}] = NumberInt(0)
	if got := doc.MaxObjectNumber(); got != 41 {
		t.Fatalf("MaxObjectNumber = %d, want 41", got)
	}
}
