package pdf

import (
	"bytes"

	"github.com/juju/errgo"
)

// inheritable page attributes, §7.7.3.4
var inheritable = []Name{"Resources", "MediaBox", "CropBox", "Rotate"}

// Page is a leaf of the page tree. Dictionary holds the page's own
// entries merged with the attributes it inherits from its ancestors.
type Page struct {
	Reference ObjectReference
	Dictionary
}

// Pages returns the document's pages in order.
func (f *File) Pages() ([]Page, error) {
	catalog, ok, err := f.ResolveDictionary(f.Root)
	if err != nil {
		return nil, errgo.Notef(err, "catalog")
	}
	if !ok {
		return nil, errgo.New("catalog is missing")
	}

	root, ok := catalog.Reference("Pages")
	if !ok {
		return nil, errgo.New("catalog has no /Pages reference")
	}

	pages := []Page{}
	err = f.walkPages(root, Dictionary{}, map[uint]bool{}, &pages)
	if err != nil {
		return nil, errgo.Mask(err)
	}
	return pages, nil
}

func (f *File) walkPages(ref ObjectReference, inherited Dictionary, seen map[uint]bool, pages *[]Page) error {
	if seen[ref.ObjectNumber] {
		return errgo.Newf("page tree loop at %v", ref)
	}
	seen[ref.ObjectNumber] = true

	node, ok, err := f.ResolveDictionary(ref)
	if err != nil {
		return errgo.Notef(err, "page tree node %v", ref)
	}
	if !ok {
		return errgo.Newf("page tree node %v is missing", ref)
	}

	// nodes without /Type are classified by the presence of /Kids
	_, hasKids := node[Name("Kids")]
	isPage := node.HasType("Page") || (!node.HasType("Pages") && !hasKids)

	if isPage {
		page := node.Clone()
		for _, key := range inheritable {
			if _, ok := page[key]; !ok {
				if value, ok := inherited[key]; ok {
					page[key] = value
				}
			}
		}
		*pages = append(*pages, Page{Reference: ref, Dictionary: page})
		return nil
	}

	next := inherited.Clone()
	for _, key := range inheritable {
		if value, ok := node[key]; ok {
			next[key] = value
		}
	}

	kidsObj, err := f.Resolve(node[Name("Kids")])
	if err != nil {
		return errgo.Notef(err, "/Kids of %v", ref)
	}
	kids, ok := kidsObj.(Array)
	if !ok {
		return errgo.Newf("/Kids of %v is a %T", ref, kidsObj)
	}

	for _, kid := range kids {
		kidRef, ok := kid.(ObjectReference)
		if !ok {
			return errgo.Newf("/Kids of %v holds a %T", ref, kid)
		}
		if err := f.walkPages(kidRef, next, seen, pages); err != nil {
			return err
		}
	}
	return nil
}

// Rectangle is a PDF rectangle normalized so that LLX <= URX and LLY <= URY.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// Width of the rectangle.
func (r Rectangle) Width() float64 { return r.URX - r.LLX }

// Height of the rectangle.
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Array returns the rectangle as a PDF array.
func (r Rectangle) Array() Array {
	return Array{Real(r.LLX), Real(r.LLY), Real(r.URX), Real(r.URY)}
}

// LetterSize is the MediaBox used when a page has none.
var LetterSize = Rectangle{0, 0, 612, 792}

// Rectangle converts a four element array of numbers, resolving indirect
// elements.
func (f *File) Rectangle(obj Object) (Rectangle, error) {
	resolved, err := f.Resolve(obj)
	if err != nil {
		return Rectangle{}, errgo.Mask(err)
	}
	array, ok := resolved.(Array)
	if !ok || len(array) != 4 {
		return Rectangle{}, errgo.Newf("rectangle is a %T of length %d", resolved, len(array))
	}

	var v [4]float64
	for i, item := range array {
		item, err := f.Resolve(item)
		if err != nil {
			return Rectangle{}, errgo.Mask(err)
		}
		number, ok := Number(item)
		if !ok {
			return Rectangle{}, errgo.Newf("rectangle element %d is a %T", i, item)
		}
		v[i] = number
	}

	return Rectangle{
		LLX: min(v[0], v[2]),
		LLY: min(v[1], v[3]),
		URX: max(v[0], v[2]),
		URY: max(v[1], v[3]),
	}, nil
}

// MediaBox returns the page's media box, or LetterSize when it has none.
func (f *File) MediaBox(page Page) (Rectangle, error) {
	obj, ok := page.Dictionary[Name("MediaBox")]
	if !ok {
		return LetterSize, nil
	}
	if resolved, err := f.Resolve(obj); err == nil {
		if _, isNull := resolved.(Null); isNull {
			return LetterSize, nil
		}
	}
	box, err := f.Rectangle(obj)
	if err != nil {
		return Rectangle{}, errgo.Notef(err, "/MediaBox")
	}
	return box, nil
}

// Contents returns the page's decoded content streams joined by newlines.
// A page without contents yields an empty slice.
func (f *File) Contents(page Page) ([]byte, error) {
	contents, err := f.Resolve(page.Dictionary[Name("Contents")])
	if err != nil {
		return nil, errgo.Notef(err, "/Contents")
	}

	var streams []Object
	switch typed := contents.(type) {
	case nil, Null:
		return []byte{}, nil
	case Stream:
		streams = []Object{typed}
	case Array:
		streams = typed
	default:
		return nil, errgo.Newf("/Contents is a %T", contents)
	}

	parts := make([][]byte, 0, len(streams))
	for i, item := range streams {
		resolved, err := f.Resolve(item)
		if err != nil {
			return nil, errgo.Notef(err, "content stream %d", i)
		}
		switch stream := resolved.(type) {
		case Stream:
			decoded, err := stream.Decode()
			if err != nil {
				return nil, errgo.WithCausef(err, errgo.Cause(err), "content stream %d", i)
			}
			parts = append(parts, decoded)
		case Null:
		default:
			return nil, errgo.Newf("content stream %d is a %T", i, resolved)
		}
	}

	return bytes.Join(parts, []byte("\n")), nil
}
