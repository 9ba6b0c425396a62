package compositor

import (
	"fmt"

	"github.com/juju/errgo"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
)

// Document is a parsed input or an output under construction. It owns
// every object in its file; pages copied in from another document never
// alias that document's objects.
type Document struct {
	role  Role
	file  *pdf.File
	pages []pdf.Page

	// output documents only
	pagesRef pdf.ObjectReference
	kids     pdf.Array
	frozen   bool
}

// Load parses data as the document playing role. It never keeps a
// reference to anything but data itself.
func Load(role Role, data []byte) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &MalformedDocumentError{Which: role, Stage: "parse", Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	file, err := pdf.Parse(data)
	if err != nil {
		return nil, &MalformedDocumentError{Which: role, Stage: "parse", Err: err}
	}

	pages, err := file.Pages()
	if err != nil {
		return nil, &MalformedDocumentError{Which: role, Stage: "pages", Err: err}
	}

	return &Document{role: role, file: file, pages: pages}, nil
}

// NewDocument returns an empty output document with a catalog and an
// empty page tree.
func NewDocument() (*Document, error) {
	file := pdf.New()

	pagesRef, err := file.Add(pdf.Dictionary{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{},
		"Count": pdf.Integer(0),
	})
	if err != nil {
		return nil, errgo.Mask(err)
	}

	root, err := file.Add(pdf.Dictionary{
		"Type":  pdf.Name("Catalog"),
		"Pages": pagesRef,
	})
	if err != nil {
		return nil, errgo.Mask(err)
	}
	file.Root = root

	return &Document{role: RoleOutput, file: file, pagesRef: pagesRef, kids: pdf.Array{}}, nil
}

// Role returns the role the document was loaded for.
func (d *Document) Role() Role { return d.role }

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	if d.role == RoleOutput {
		return len(d.kids)
	}
	return len(d.pages)
}

// Page returns page index with its inherited attributes resolved.
func (d *Document) Page(index int) (pdf.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return pdf.Page{}, &PageIndexOutOfRangeError{Which: d.role, Index: index, PageCount: len(d.pages)}
	}
	return d.pages[index], nil
}

// File exposes the underlying object store.
func (d *Document) File() *pdf.File { return d.file }

// AddPage appends a page copied into d to d's page tree.
func (d *Document) AddPage(page PageHandle) error {
	if d.role != RoleOutput {
		return errgo.Newf("cannot add pages to the %s document", d.role)
	}
	if d.frozen {
		return errgo.New("document already serialized")
	}
	if page.doc != d {
		return errgo.New("page belongs to another document")
	}

	page.dict["Parent"] = d.pagesRef
	if err := d.replace(page.Ref, page.dict); err != nil {
		return err
	}

	d.kids = append(d.kids, page.Ref)
	return d.replace(d.pagesRef, pdf.Dictionary{
		"Type":  pdf.Name("Pages"),
		"Kids":  append(pdf.Array{}, d.kids...),
		"Count": pdf.Integer(len(d.kids)),
	})
}

// replace stores obj under an existing reference of d.
func (d *Document) replace(ref pdf.ObjectReference, obj pdf.Object) error {
	_, err := d.file.Add(pdf.IndirectObject{ObjectReference: ref, Object: obj})
	return errgo.Mask(err)
}
