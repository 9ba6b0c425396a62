package compositor

import (
	"fmt"

	"github.com/juju/errgo"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
)

// Canvas appends drawings to one page of an output document. Nothing
// reaches the page until Close.
type Canvas struct {
	doc      *Document
	page     PageHandle
	xobjects pdf.Dictionary
	content  *pdf.Content
	draws    int
	closed   bool
}

// NewCanvas starts drawing on page, which must belong to doc.
func NewCanvas(doc *Document, page PageHandle) (*Canvas, error) {
	if page.doc != doc {
		return nil, errgo.New("page belongs to another document")
	}

	xobjects := pdf.Dictionary{}
	resources, _, err := doc.file.ResolveDictionary(page.dict["Resources"])
	if err != nil {
		return nil, errgo.Notef(err, "page /Resources")
	}
	existing, _, err := doc.file.ResolveDictionary(resources["XObject"])
	if err != nil {
		return nil, errgo.Notef(err, "page /XObject resources")
	}
	for name, value := range existing {
		xobjects[name] = value
	}

	return &Canvas{
		doc:      doc,
		page:     page,
		xobjects: xobjects,
		content:  pdf.NewContent(),
	}, nil
}

// Draw renders d scaled and translated to fill p exactly. Draws are
// painted in call order.
func (c *Canvas) Draw(d Drawable, p Placement) error {
	if c.closed {
		return errgo.New("canvas is closed")
	}
	if !p.valid() {
		return errgo.Newf("invalid placement %v", p)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return errgo.Newf("drawable %v has no area", d.Ref)
	}

	name := c.register(d.Ref)
	c.content.
		Save().
		Concat(1, 0, 0, 1, p.X, p.Y).
		Concat(p.Width/d.Width, 0, 0, p.Height/d.Height, 0, 0).
		Do(name).
		Restore()
	c.draws++
	return nil
}

// register adds ref to the page's XObject resources under a name that
// is not already in use.
func (c *Canvas) register(ref pdf.ObjectReference) pdf.Name {
	for i := 0; ; i++ {
		name := pdf.Name(fmt.Sprintf("Spread%d", i))
		if _, used := c.xobjects[name]; !used {
			c.xobjects[name] = ref
			return name
		}
	}
}

// Draws returns the number of drawables painted so far.
func (c *Canvas) Draws() int { return c.draws }

// Close writes the drawings to the page. The page's existing content is
// wrapped in q/Q so its graphics state cannot leak into the drawings.
func (c *Canvas) Close() error {
	if c.closed {
		return errgo.New("canvas is closed")
	}
	if c.doc.frozen {
		return errgo.New("document already serialized")
	}
	c.closed = true

	file := c.doc.file
	dict := c.page.dict

	existing, err := file.Resolve(dict["Contents"])
	if err != nil {
		return errgo.Notef(err, "page /Contents")
	}
	var streams pdf.Array
	switch t := existing.(type) {
	case pdf.Array:
		streams = t
	case pdf.Stream:
		streams = pdf.Array{dict["Contents"]}
	case pdf.Null, nil:
	default:
		return errgo.Newf("page /Contents is a %T", existing)
	}

	draws, err := c.content.Bytes()
	if err != nil {
		return errgo.Mask(err)
	}

	contents := pdf.Array{}
	if len(streams) > 0 {
		open, err := c.addStream([]byte("q\n"))
		if err != nil {
			return err
		}
		contents = append(contents, open)
		contents = append(contents, streams...)
		draws = append([]byte("\nQ\n"), draws...)
	}
	body, err := c.addStream(draws)
	if err != nil {
		return err
	}
	contents = append(contents, body)

	resources, _, err := file.ResolveDictionary(dict["Resources"])
	if err != nil {
		return errgo.Notef(err, "page /Resources")
	}
	resources = resources.Clone()
	resources["XObject"] = c.xobjects

	dict["Contents"] = contents
	dict["Resources"] = resources
	return c.doc.replace(c.page.Ref, dict)
}

func (c *Canvas) addStream(data []byte) (pdf.ObjectReference, error) {
	stream, err := pdf.NewFlateStream(pdf.Dictionary{}, data)
	if err != nil {
		return pdf.ObjectReference{}, errgo.Mask(err)
	}
	ref, err := c.doc.file.Add(stream)
	return ref, errgo.Mask(err)
}
