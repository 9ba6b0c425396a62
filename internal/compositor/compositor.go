package compositor

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/logging"
)

// Compositor places two pages of a source document on a copy of the
// first page of a template. It holds only configuration and may be used
// by many goroutines at once.
type Compositor struct {
	geometry Geometry
	logger   *bolt.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithLogger sets the logger. The package default logger is used otherwise.
func WithLogger(logger *bolt.Logger) Option {
	return func(c *Compositor) {
		c.logger = logger
	}
}

// New returns a Compositor for geometry.
func New(geometry Geometry, opts ...Option) (*Compositor, error) {
	if err := geometry.Validate(); err != nil {
		return nil, err
	}

	c := &Compositor{geometry: geometry}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Get()
	}
	return c, nil
}

// Geometry returns the layout in use.
func (c *Compositor) Geometry() Geometry { return c.geometry }

// CheckTemplate reports whether template can be used for compositing,
// so a bad deployment fails at startup instead of on the first request.
func (c *Compositor) CheckTemplate(template []byte) error {
	doc, err := Load(RoleTemplate, template)
	if err != nil {
		return err
	}
	if _, err := doc.Page(c.geometry.TemplatePage); err != nil {
		return err
	}
	return nil
}

// Compose returns the cover spread built from template and source.
func (c *Compositor) Compose(template, source []byte) ([]byte, error) {
	out, _, err := c.ComposeTrace(template, source)
	return out, err
}

// ComposeTrace is Compose that also returns the states the call went
// through. On failure no output is returned.
func (c *Compositor) ComposeTrace(template, source []byte) ([]byte, Trace, error) {
	start := time.Now()

	r, err := startRun()
	if err != nil {
		return nil, Trace{}, err
	}

	out, err := c.compose(r, template, source)
	if err != nil {
		r.fail(err)
	} else {
		r.advance()
	}
	trace := r.stop()

	if err != nil {
		logging.NewEvent(c.logger.Error()).
			Add(logging.States(trace.Strings())).
			Add(logging.Duration(time.Since(start))).
			Add(logging.ErrorField(err)).
			Msg("compose failed")
		return nil, trace, err
	}

	logging.NewEvent(c.logger.Info()).
		Add(logging.Size("template_bytes", len(template))).
		Add(logging.Size("source_bytes", len(source))).
		Add(logging.Size("output_bytes", len(out))).
		Add(logging.Duration(time.Since(start))).
		Msg("compose finished")
	return out, trace, nil
}

func (c *Compositor) compose(r *run, templateData, sourceData []byte) ([]byte, error) {
	g := c.geometry

	template, err := Load(RoleTemplate, templateData)
	if err != nil {
		return nil, err
	}
	c.stage(r.advance(), logging.Role(string(RoleTemplate)), logging.PageCount(template.PageCount()))

	source, err := Load(RoleSource, sourceData)
	if err != nil {
		return nil, err
	}
	c.stage(r.advance(), logging.Role(string(RoleSource)), logging.PageCount(source.PageCount()))

	// check both indices before doing any work on the output
	for _, index := range []int{g.BackPage, g.FrontPage} {
		if _, err := source.Page(index); err != nil {
			return nil, err
		}
	}

	output, err := NewDocument()
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	c.stage(r.advance())

	spread, err := CopyPage(template, g.TemplatePage, output)
	if err != nil {
		return nil, err
	}
	if err := output.AddPage(spread); err != nil {
		return nil, &SerializationError{Err: err}
	}
	c.stage(r.advance(), logging.PageIndex(g.TemplatePage))

	back, err := CopyPage(source, g.BackPage, output)
	if err != nil {
		return nil, err
	}
	front, err := CopyPage(source, g.FrontPage, output)
	if err != nil {
		return nil, err
	}
	c.stage(r.advance())

	backForm, err := Embed(output, back)
	if err != nil {
		return nil, err
	}
	frontForm, err := Embed(output, front)
	if err != nil {
		return nil, err
	}
	c.stage(r.advance())

	canvas, err := NewCanvas(output, spread)
	if err != nil {
		return nil, &MalformedDocumentError{Which: RoleTemplate, Stage: "resources", Err: err}
	}
	left, right := g.Placements()
	if err := canvas.Draw(backForm, left); err != nil {
		return nil, &SerializationError{Err: err}
	}
	c.stage(r.advance(), logging.PageIndex(g.BackPage))
	if err := canvas.Draw(frontForm, right); err != nil {
		return nil, &SerializationError{Err: err}
	}
	if err := canvas.Close(); err != nil {
		return nil, &SerializationError{Err: err}
	}
	c.stage(r.advance(), logging.PageIndex(g.FrontPage))

	out, err := Save(output)
	if err != nil {
		return nil, err
	}
	c.stage(r.advance(), logging.Size("output_bytes", len(out)))

	return out, nil
}

func (c *Compositor) stage(stage Stage, fields ...logging.Field) {
	event := logging.NewEvent(c.logger.Debug()).Add(logging.Stage(string(stage)))
	for _, field := range fields {
		event.Add(field)
	}
	event.Msg("stage reached")
}
