package compositor

import (
	"bytes"

	"github.com/juju/errgo"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
)

// PageHandle is a page that has been copied into a document. Its
// dictionary and everything it references live in that document.
type PageHandle struct {
	Ref      pdf.ObjectReference
	MediaBox pdf.Rectangle
	Which    Role // document the page was copied from
	Index    int  // index in that document

	doc  *Document
	dict pdf.Dictionary
}

// page keys that tie a page to the rest of its document
var detachedKeys = []pdf.Name{"Parent", "Annots", "B", "StructParents"}

// CopyPage deep-copies page index of src into dst. The result does not
// depend on src, which may be discarded afterwards.
func CopyPage(src *Document, index int, dst *Document) (PageHandle, error) {
	page, err := src.Page(index)
	if err != nil {
		return PageHandle{}, err
	}

	box, err := src.file.MediaBox(page)
	if err != nil {
		return PageHandle{}, &MalformedDocumentError{Which: src.role, Stage: "mediabox", Err: err}
	}

	dict := page.Dictionary.Clone()
	for _, key := range detachedKeys {
		delete(dict, key)
	}
	dict["MediaBox"] = box.Array()
	if _, ok := dict["Resources"]; !ok {
		dict["Resources"] = pdf.Dictionary{}
	}

	c := &copier{
		src:  src.file,
		dst:  dst.file,
		page: page.Reference,
		refs: map[pdf.ObjectReference]pdf.ObjectReference{},
	}

	copied, err := c.copy(dict)
	if err != nil {
		return PageHandle{}, &EmbedError{Which: src.role, Index: index, Err: err}
	}
	dict = copied.(pdf.Dictionary)

	ref, err := dst.file.Add(dict)
	if err != nil {
		return PageHandle{}, errgo.Mask(err)
	}

	return PageHandle{
		Ref:      ref,
		MediaBox: box,
		Which:    src.role,
		Index:    index,
		doc:      dst,
		dict:     dict,
	}, nil
}

// copier moves objects from one file to another, remembering which
// source references have already been copied.
// Objects are visited in a fixed order (array order, sorted dictionary
// keys) so copies are numbered the same way every time.
type copier struct {
	src, dst *pdf.File
	page     pdf.ObjectReference // page being copied, back references become null
	refs     map[pdf.ObjectReference]pdf.ObjectReference
}

func (c *copier) copy(obj pdf.Object) (pdf.Object, error) {
	switch t := obj.(type) {
	case pdf.ObjectReference:
		return c.copyReference(t)
	case pdf.Dictionary:
		out := make(pdf.Dictionary, len(t))
		for _, k := range t.Keys() {
			copied, err := c.copy(t[k])
			if err != nil {
				return nil, err
			}
			out[k] = copied
		}
		return out, nil
	case pdf.Array:
		out := make(pdf.Array, len(t))
		for i, v := range t {
			copied, err := c.copy(v)
			if err != nil {
				return nil, err
			}
			out[i] = copied
		}
		return out, nil
	case pdf.Stream:
		dict, err := c.copy(t.Dictionary)
		if err != nil {
			return nil, err
		}
		// the writer sets /Length from the data
		delete(dict.(pdf.Dictionary), "Length")
		return pdf.Stream{Dictionary: dict.(pdf.Dictionary), Stream: bytes.Clone(t.Stream)}, nil
	case pdf.String:
		return pdf.String(bytes.Clone(t)), nil
	case nil:
		return pdf.Null{}, nil
	default:
		// scalars can't have references
		return obj, nil
	}
}

func (c *copier) copyReference(ref pdf.ObjectReference) (pdf.Object, error) {
	if copied, ok := c.refs[ref]; ok {
		return copied, nil
	}
	if ref == c.page || !c.src.Exists(ref) {
		return pdf.Null{}, nil
	}

	obj, err := c.src.Get(ref)
	if err != nil {
		return nil, errgo.Notef(err, "copy %v", ref)
	}

	// pages and the page tree are not part of the copy
	if dict, ok := obj.(pdf.Dictionary); ok && (dict.HasType("Page") || dict.HasType("Pages")) {
		return pdf.Null{}, nil
	}

	// get an object reference for the copied obj
	// needed to break reference cycles
	newRef, err := c.dst.Add(pdf.Null{})
	if err != nil {
		return nil, errgo.Mask(err)
	}
	c.refs[ref] = newRef

	copied, err := c.copy(obj)
	if err != nil {
		return nil, err
	}

	if _, err := c.dst.Add(pdf.IndirectObject{ObjectReference: newRef, Object: copied}); err != nil {
		return nil, errgo.Mask(err)
	}
	return newRef, nil
}
