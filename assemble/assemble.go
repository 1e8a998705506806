// Package assemble drives document assembly: for every input record it
// synthesizes one output page that overlays QR codes and text onto a
// clone of the template's first page.
package assemble

import (
	"fmt"

	"github.com/kcrt/qr-code-print/config"
	"github.com/kcrt/qr-code-print/fonts"
	"github.com/kcrt/qr-code-print/ir/raw"
	"github.com/kcrt/qr-code-print/observability"
	"github.com/kcrt/qr-code-print/placement"
	"github.com/kcrt/qr-code-print/sysfont"
)

// Assembler owns the shared object graph for one run: the identifier
// counter, the font cache, and the template page being cloned. It is
// not safe for concurrent use.
type Assembler struct {
	doc    *raw.Document
	schema *placement.Schema
	sizes  map[string]float64
	finder sysfont.Finder
	log    observability.Logger

	nextNum  int
	pagesRef raw.ObjectRef
	pageRef  raw.ObjectRef
	pageH    float64

	// basePage and baseContents are pristine copies taken before the
	// first page is mutated.
	basePage     *raw.DictObj
	baseContents []raw.Object

	fontCache map[string]*fontResource
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithFinder replaces the system font discovery collaborator.
func WithFinder(f sysfont.Finder) Option { return func(a *Assembler) { a.finder = f } }

// WithLogger sets the run logger.
func WithLogger(l observability.Logger) Option { return func(a *Assembler) { a.log = l } }

// WithFontSizes sets per-field font size overrides in points.
func WithFontSizes(sizes map[string]float64) Option {
	return func(a *Assembler) { a.sizes = sizes }
}

// New prepares an assembler over doc. The document must have at least
// one page with a resolvable media box.
func New(doc *raw.Document, schema *placement.Schema, opts ...Option) (*Assembler, error) {
	a := &Assembler{
		doc:       doc,
		schema:    schema,
		finder:    sysfont.NewSystemFinder(),
		log:       observability.NopLogger{},
		fontCache: make(map[string]*fontResource),
	}
	for _, opt := range opts {
		opt(a)
	}

	pagesRef, _, err := doc.PageTree()
	if err != nil {
		return nil, err
	}
	pageRef, page, err := doc.FirstPage()
	if err != nil {
		return nil, err
	}
	box, err := doc.MediaBox(page)
	if err != nil {
		return nil, err
	}
	a.pagesRef = pagesRef
	a.pageRef = pageRef
	a.pageH = box[3] - box[1]
	a.basePage = raw.Clone(page).(*raw.DictObj)
	a.baseContents = contentRefs(doc, page)
	a.nextNum = doc.MaxObjectNumber() + 1
	return a, nil
}

// PageHeight reports the template page height in points.
func (a *Assembler) PageHeight() float64 { return a.pageH }

func (a *Assembler) allocRef() raw.ObjectRef {
	ref := raw.ObjectRef{Num: a.nextNum}
	a.nextNum++
	return ref
}

// Run synthesizes one page per record, in record order, then rewires
// the page tree. Any failure aborts the whole run.
func (a *Assembler) Run(records []config.Record) error {
	font, err := a.resolveRunFont(records)
	if err != nil {
		return err
	}

	newPages := make([]raw.ObjectRef, 0, len(records))
	for i, rec := range records {
		pageRef, err := a.synthesizePage(i, rec, font)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if i > 0 {
			newPages = append(newPages, pageRef)
		}
		a.log.Debug("page synthesized", observability.Int("record", i), observability.Int("object", pageRef.Num))
	}

	if err := a.appendKids(newPages); err != nil {
		return err
	}
	a.log.Info("assembly complete",
		observability.Int("pages", len(records)),
		observability.Int("objects", a.nextNum-1))
	return nil
}

// resolveRunFont builds the font plan over every Text value in the run
// and embeds the font once. Runs without Text fields need no font.
func (a *Assembler) resolveRunFont(records []config.Record) (*fontResource, error) {
	textFields := a.schema.TextFields()
	if len(textFields) == 0 {
		return nil, nil
	}
	var texts []string
	for _, rec := range records {
		for _, name := range textFields {
			texts = append(texts, rec[name])
		}
	}
	plan := fonts.Resolve(a.schema.Font, texts)
	font, err := a.ensureFont(plan, texts)
	if err != nil {
		return nil, err
	}
	return font, nil
}

// synthesizePage builds the overlay for one record and attaches it to
// the template page (first record) or to a fresh clone.
func (a *Assembler) synthesizePage(index int, rec config.Record, font *fontResource) (raw.ObjectRef, error) {
	overlay, xobjects, err := a.buildOverlay(rec, font)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	overlayRef := a.allocRef()
	a.doc.Objects[overlayRef] = raw.NewStream(raw.Dict(), overlay)

	var pageRef raw.ObjectRef
	var page *raw.DictObj
	if index == 0 {
		pageRef = a.pageRef
		page, _ = a.doc.Objects[pageRef].(*raw.DictObj)
		if page == nil {
			return raw.ObjectRef{}, &raw.GraphError{Op: "synthesize", Err: fmt.Errorf("first page vanished from graph")}
		}
	} else {
		pageRef = a.allocRef()
		page = raw.Clone(a.basePage).(*raw.DictObj)
		page.Set("Parent", raw.Ref(a.pagesRef.Num, a.pagesRef.Gen))
		a.doc.Objects[pageRef] = page
	}

	contents := raw.NewArray(a.baseContents...)
	contents.Append(raw.Ref(overlayRef.Num, overlayRef.Gen))
	page.Set("Contents", contents)

	a.mergeResources(page, font, xobjects)
	return pageRef, nil
}

// mergeResources gives page its own resources dictionary carrying the
// template's entries plus the run font and the page's images.
func (a *Assembler) mergeResources(page *raw.DictObj, font *fontResource, xobjects map[string]raw.ObjectRef) {
	res := raw.Dict()
	if existing, ok := page.Get("Resources"); ok {
		if dict, ok := a.doc.ResolveDict(existing); ok {
			res = raw.Clone(dict).(*raw.DictObj)
		}
	}
	if font != nil {
		fontDict := raw.Dict()
		if existing, ok := res.Get("Font"); ok {
			if dict, ok := a.doc.ResolveDict(existing); ok {
				fontDict = raw.Clone(dict).(*raw.DictObj)
			}
		}
		fontDict.Set(font.resourceName, raw.Ref(font.ref.Num, font.ref.Gen))
		res.Set("Font", fontDict)
	}
	if len(xobjects) > 0 {
		xobjDict := raw.Dict()
		if existing, ok := res.Get("XObject"); ok {
			if dict, ok := a.doc.ResolveDict(existing); ok {
				xobjDict = raw.Clone(dict).(*raw.DictObj)
			}
		}
		for name, ref := range xobjects {
			xobjDict.Set(name, raw.Ref(ref.Num, ref.Gen))
		}
		res.Set("XObject", xobjDict)
	}
	page.Set("Resources", res)
}

// appendKids adds the cloned pages to the root page tree node.
func (a *Assembler) appendKids(newPages []raw.ObjectRef) error {
	if len(newPages) == 0 {
		return nil
	}
	_, pages, err := a.doc.PageTree()
	if err != nil {
		return err
	}
	kids := raw.NewArray()
	if existing, ok := pages.Get("Kids"); ok {
		if arr, isArr := a.doc.Resolve(existing).(*raw.ArrayObj); isArr {
			kids = raw.NewArray(arr.Items...)
		}
	}
	count := int64(kids.Len())
	if c, ok := pages.Int("Count"); ok {
		count = c
	}
	for _, ref := range newPages {
		kids.Append(raw.Ref(ref.Num, ref.Gen))
	}
	pages.Set("Kids", kids)
	pages.Set("Count", raw.NumberInt(count+int64(len(newPages))))
	return nil
}

// contentRefs normalizes a page's Contents entry to a flat slice of
// references.
func contentRefs(doc *raw.Document, page *raw.DictObj) []raw.Object {
	obj, ok := page.Get("Contents")
	if !ok {
		return nil
	}
	switch v := obj.(type) {
	case raw.RefObj:
		// Contents may be a reference to an array of stream refs.
		if arr, ok := doc.Resolve(v).(*raw.ArrayObj); ok {
			return append([]raw.Object(nil), arr.Items...)
		}
		return []raw.Object{v}
	case *raw.ArrayObj:
		return append([]raw.Object(nil), v.Items...)
	}
	return nil
}
