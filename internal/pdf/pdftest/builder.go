// Package pdftest builds small PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
)

// Page describes one page of a generated document. The page is filled
// with a single rectangle of Color covering its MediaBox.
type Page struct {
	MediaBox pdf.Rectangle
	Color    [3]float64
}

// Options changes how a document is laid out in the file.
type Options struct {
	// XRefStream writes a cross-reference stream instead of a table.
	XRefStream bool
	// InheritMediaBox stores the MediaBox of the first page on the page
	// tree root rather than on each page.
	InheritMediaBox bool
	// SplitContents stores each page's contents as an array of streams.
	SplitContents bool
	// Compress stores content streams with FlateDecode.
	Compress bool
	// Nested puts the pages under intermediate page tree nodes of
	// at most this many kids.
	Nested int
	// Fonts gives each page this many indirect font resources.
	Fonts int
}

// Colors used by tests to tell pages apart.
var (
	Red   = [3]float64{1, 0, 0}
	Green = [3]float64{0, 1, 0}
	Blue  = [3]float64{0, 0, 1}
)

// Letter is a US Letter page.
var Letter = pdf.Rectangle{URX: 612, URY: 792}

// Pages returns n Letter pages of color.
func Pages(n int, color [3]float64) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{MediaBox: Letter, Color: color}
	}
	return pages
}

// FillColor is the operand list of the rg operator used for color.
func FillColor(color [3]float64) string {
	return fmt.Sprintf("%g %g %g rg", color[0], color[1], color[2])
}

// Content returns the content stream drawn for page.
func Content(page Page) []byte {
	box := page.MediaBox
	return []byte(fmt.Sprintf("%s\n%g %g %g %g re\nf\n",
		FillColor(page.Color), box.LLX, box.LLY, box.Width(), box.Height()))
}

// Build writes a document holding pages and returns its bytes.
func Build(tb testing.TB, pages []Page, opts Options) []byte {
	tb.Helper()

	file := pdf.New()
	add := func(obj pdf.Object) pdf.ObjectReference {
		ref, err := file.Add(obj)
		if err != nil {
			tb.Fatal(err)
		}
		return ref
	}

	// reserve the root so kids can point at it
	root := add(pdf.Null{})
	parents := []pdf.ObjectReference{root}
	if opts.Nested > 0 {
		parents = nil
		for i := 0; i < len(pages); i += opts.Nested {
			parents = append(parents, add(pdf.Null{}))
		}
	}

	kids := make([]pdf.Array, len(parents))
	for i, page := range pages {
		parent := 0
		if opts.Nested > 0 {
			parent = i / opts.Nested
		}

		var contents pdf.Object
		data := Content(page)
		if opts.SplitContents {
			parts := bytes.SplitAfter(data, []byte("\n"))
			array := pdf.Array{}
			for _, part := range parts {
				if len(part) == 0 {
					continue
				}
				array = append(array, add(stream(tb, part, opts.Compress)))
			}
			contents = array
		} else {
			contents = add(stream(tb, data, opts.Compress))
		}

		dict := pdf.Dictionary{
			"Type":      pdf.Name("Page"),
			"Parent":    parents[parent],
			"Resources": resources(add, opts.Fonts),
			"Contents":  contents,
		}
		if !opts.InheritMediaBox {
			dict["MediaBox"] = page.MediaBox.Array()
		}
		kids[parent] = append(kids[parent], add(dict))
	}

	rootDict := pdf.Dictionary{
		"Type":  pdf.Name("Pages"),
		"Count": pdf.Integer(len(pages)),
	}
	if opts.InheritMediaBox && len(pages) > 0 {
		rootDict["MediaBox"] = pages[0].MediaBox.Array()
	}

	if opts.Nested > 0 {
		rootKids := pdf.Array{}
		for i, parent := range parents {
			_, err := file.Add(pdf.IndirectObject{
				ObjectReference: parent,
				Object: pdf.Dictionary{
					"Type":   pdf.Name("Pages"),
					"Parent": root,
					"Kids":   kids[i],
					"Count":  pdf.Integer(len(kids[i])),
				},
			})
			if err != nil {
				tb.Fatal(err)
			}
			rootKids = append(rootKids, parent)
		}
		rootDict["Kids"] = rootKids
	} else {
		rootDict["Kids"] = kids[0]
	}

	_, err := file.Add(pdf.IndirectObject{ObjectReference: root, Object: rootDict})
	if err != nil {
		tb.Fatal(err)
	}

	file.Root = add(pdf.Dictionary{
		"Type":  pdf.Name("Catalog"),
		"Pages": root,
	})

	buf := &bytes.Buffer{}
	if _, err := file.Write(buf, pdf.WriteOptions{XRefStream: opts.XRefStream}); err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}

func resources(add func(pdf.Object) pdf.ObjectReference, fonts int) pdf.Dictionary {
	if fonts == 0 {
		return pdf.Dictionary{}
	}
	font := pdf.Dictionary{}
	for i := 1; i <= fonts; i++ {
		font[pdf.Name(fmt.Sprintf("F%d", i))] = add(pdf.Dictionary{
			"Type":     pdf.Name("Font"),
			"Subtype":  pdf.Name("Type1"),
			"BaseFont": pdf.Name("Helvetica"),
		})
	}
	return pdf.Dictionary{"Font": font}
}

func stream(tb testing.TB, data []byte, compress bool) pdf.Stream {
	if !compress {
		return pdf.Stream{Dictionary: pdf.Dictionary{}, Stream: data}
	}
	s, err := pdf.NewFlateStream(pdf.Dictionary{}, data)
	if err != nil {
		tb.Fatal(err)
	}
	return s
}
