package raw

import "fmt"

// GraphError reports a structural defect in the object graph, such as a
// missing catalog or an empty page tree.
type GraphError struct {
	Op  string
	Err error
}

func (e *GraphError) Error() string { return fmt.Sprintf("object graph: %s: %v", e.Op, e.Err) }
func (e *GraphError) Unwrap() error { return e.Err }

func graphErrorf(op, format string, args ...interface{}) error {
	return &GraphError{Op: op, Err: fmt.Errorf(format, args...)}
}

// Catalog returns the document catalog dictionary from the trailer Root.
func (d *Document) Catalog() (*DictObj, error) {
	if d.Trailer == nil {
		return nil, graphErrorf("catalog", "missing trailer")
	}
	root, ok := d.Trailer.Get("Root")
	if !ok {
		return nil, graphErrorf("catalog", "trailer has no Root")
	}
	cat, ok := d.ResolveDict(root)
	if !ok {
		return nil, graphErrorf("catalog", "Root is not a dictionary")
	}
	return cat, nil
}

// PageTree returns the root Pages dictionary and its reference.
func (d *Document) PageTree() (ObjectRef, *DictObj, error) {
	cat, err := d.Catalog()
	if err != nil {
		return ObjectRef{}, nil, err
	}
	pagesObj, ok := cat.Get("Pages")
	if !ok {
		return ObjectRef{}, nil, graphErrorf("pages", "catalog has no Pages")
	}
	ref, ok := pagesObj.(RefObj)
	if !ok {
		return ObjectRef{}, nil, graphErrorf("pages", "Pages is not an indirect reference")
	}
	pages, ok := d.ResolveDict(pagesObj)
	if !ok {
		return ObjectRef{}, nil, graphErrorf("pages", "Pages is not a dictionary")
	}
	return ref.R, pages, nil
}

// FirstPage walks the page tree and returns the first leaf page.
func (d *Document) FirstPage() (ObjectRef, *DictObj, error) {
	rootRef, pages, err := d.PageTree()
	if err != nil {
		return ObjectRef{}, nil, err
	}
	if t, _ := pages.Name("Type"); t == "Page" {
		return rootRef, pages, nil
	}
	node := pages
	for depth := 0; depth < 64; depth++ {
		kidsObj, ok := node.Get("Kids")
		if !ok {
			return ObjectRef{}, nil, graphErrorf("first page", "page tree node has no Kids")
		}
		kids, ok := d.Resolve(kidsObj).(*ArrayObj)
		if !ok || kids.Len() == 0 {
			return ObjectRef{}, nil, graphErrorf("first page", "page tree has no pages")
		}
		first, _ := kids.Get(0)
		ref, ok := first.(RefObj)
		if !ok {
			return ObjectRef{}, nil, graphErrorf("first page", "kid is not an indirect reference")
		}
		kid, ok := d.ResolveDict(first)
		if !ok {
			return ObjectRef{}, nil, graphErrorf("first page", "kid %s is not a dictionary", ref.R)
		}
		if t, _ := kid.Name("Type"); t == "Page" {
			return ref.R, kid, nil
		}
		node = kid
	}
	return ObjectRef{}, nil, graphErrorf("first page", "no leaf page found")
}

// MediaBox returns the effective media box of page, consulting inherited
// attributes up the Parent chain.
func (d *Document) MediaBox(page *DictObj) ([4]float64, error) {
	node := page
	for depth := 0; depth < 64; depth++ {
		if mb, ok := node.Get("MediaBox"); ok {
			arr, ok := d.Resolve(mb).(*ArrayObj)
			if !ok || arr.Len() != 4 {
				return [4]float64{}, graphErrorf("media box", "malformed MediaBox")
			}
			var box [4]float64
			for i := 0; i < 4; i++ {
				item, _ := arr.Get(i)
				num, ok := d.Resolve(item).(NumberObj)
				if !ok {
					return [4]float64{}, graphErrorf("media box", "MediaBox entry %d is not numeric", i)
				}
				box[i] = num.Float()
			}
			return box, nil
		}
		parent, ok := node.Get("Parent")
		if !ok {
			break
		}
		node, ok = d.ResolveDict(parent)
		if !ok {
			break
		}
	}
	return [4]float64{}, graphErrorf("media box", "no MediaBox on page or ancestors")
}
