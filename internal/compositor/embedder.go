package compositor

import (
	"github.com/juju/errgo"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
)

// Drawable is a page turned into a Form XObject of its document. It can
// be drawn any number of times.
type Drawable struct {
	Ref    pdf.ObjectReference
	BBox   pdf.Rectangle
	Width  float64
	Height float64
	Which  Role
	Index  int
}

// Embed wraps page as a Form XObject in dst. Every call creates a new
// XObject, even for the same page.
func Embed(dst *Document, page PageHandle) (Drawable, error) {
	if page.doc != dst {
		return Drawable{}, errgo.New("page belongs to another document")
	}
	if page.MediaBox.Width() <= 0 || page.MediaBox.Height() <= 0 {
		return Drawable{}, &EmbedError{Which: page.Which, Index: page.Index, Err: errgo.Newf("empty media box %v", page.MediaBox)}
	}

	box := page.MediaBox
	form := pdf.Dictionary{
		"Type":      pdf.Name("XObject"),
		"Subtype":   pdf.Name("Form"),
		"FormType":  pdf.Integer(1),
		"BBox":      box.Array(),
		"Matrix":    pdf.Array{pdf.Integer(1), pdf.Integer(0), pdf.Integer(0), pdf.Integer(1), pdf.Real(-box.LLX), pdf.Real(-box.LLY)},
		"Resources": page.dict["Resources"],
	}

	stream, err := formContents(dst.file, page, form)
	if err != nil {
		return Drawable{}, &EmbedError{Which: page.Which, Index: page.Index, Err: err}
	}

	ref, err := dst.file.Add(stream)
	if err != nil {
		return Drawable{}, &EmbedError{Which: page.Which, Index: page.Index, Err: err}
	}

	return Drawable{
		Ref:    ref,
		BBox:   box,
		Width:  box.Width(),
		Height: box.Height(),
		Which:  page.Which,
		Index:  page.Index,
	}, nil
}

// formContents builds the XObject stream. A page with a single content
// stream keeps its encoded data and filters. Several streams are decoded,
// joined and compressed again.
func formContents(file *pdf.File, page PageHandle, form pdf.Dictionary) (pdf.Stream, error) {
	contents, err := file.Resolve(page.dict["Contents"])
	if err != nil {
		return pdf.Stream{}, errgo.Notef(err, "/Contents")
	}
	if array, ok := contents.(pdf.Array); ok && len(array) == 1 {
		contents, err = file.Resolve(array[0])
		if err != nil {
			return pdf.Stream{}, errgo.Notef(err, "/Contents")
		}
	}

	if single, ok := contents.(pdf.Stream); ok {
		for _, key := range []pdf.Name{"Filter", "DecodeParms"} {
			if value, ok := single.Dictionary[key]; ok {
				form[key] = value
			}
		}
		return pdf.Stream{Dictionary: form, Stream: single.Stream}, nil
	}

	data, err := file.Contents(pdf.Page{Reference: page.Ref, Dictionary: page.dict})
	if err != nil {
		return pdf.Stream{}, errgo.WithCausef(err, errgo.Cause(err), "page contents")
	}
	return pdf.NewFlateStream(form, data)
}
