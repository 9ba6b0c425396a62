package compositor

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/logging"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf/pdftest"
)

var spreadBox = pdf.Rectangle{URX: 1330, URY: 950}

func templateFixture(t *testing.T, opts pdftest.Options) []byte {
	t.Helper()
	return pdftest.Build(t, []pdftest.Page{{MediaBox: spreadBox, Color: [3]float64{1, 1, 1}}}, opts)
}

// sourceFixture has n pages, page 0 red and page 16 blue.
func sourceFixture(t *testing.T, n int, opts pdftest.Options) []byte {
	t.Helper()
	pages := pdftest.Pages(n, pdftest.Green)
	pages[0].Color = pdftest.Red
	if n > 16 {
		pages[16].Color = pdftest.Blue
	}
	return pdftest.Build(t, pages, opts)
}

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	logger := logging.New(logging.Config{Level: "error", Format: "json", Output: &bytes.Buffer{}})
	c, err := New(DefaultGeometry(), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// drawn is one "q cm cm /Name Do Q" group found on the output page.
type drawn struct {
	placement Placement
	contents  []byte
}

func drawings(t *testing.T, out []byte) []drawn {
	t.Helper()

	file, err := pdf.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := file.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 output page, got %d", len(pages))
	}
	page := pages[0]

	contents, err := file.Contents(page)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := pdf.ParseContent(contents)
	if err != nil {
		t.Fatal(err)
	}

	resources, _, err := file.ResolveDictionary(page.Dictionary["Resources"])
	if err != nil {
		t.Fatal(err)
	}
	xobjects, _, err := file.ResolveDictionary(resources["XObject"])
	if err != nil {
		t.Fatal(err)
	}

	numbers := func(op pdf.Operation) []float64 {
		out := []float64{}
		for _, operand := range op.Operands {
			n, ok := pdf.Number(operand)
			if !ok {
				t.Fatalf("non-numeric %s operand %#v", op.Operator, operand)
			}
			out = append(out, n)
		}
		return out
	}

	found := []drawn{}
	for i := 0; i+2 < len(ops); i++ {
		if ops[i].Operator != "cm" || ops[i+1].Operator != "cm" || ops[i+2].Operator != "Do" {
			continue
		}
		translate, scale := numbers(ops[i]), numbers(ops[i+1])
		name := ops[i+2].Operands[0].(pdf.Name)

		formObj, err := file.Resolve(xobjects[name])
		if err != nil {
			t.Fatal(err)
		}
		form, ok := formObj.(pdf.Stream)
		if !ok {
			t.Fatalf("/%s is a %T", name, formObj)
		}
		if subtype, _ := form.Dictionary.Name("Subtype"); subtype != "Form" {
			t.Errorf("/%s has subtype %s", name, subtype)
		}
		bbox, err := file.Rectangle(form.Dictionary["BBox"])
		if err != nil {
			t.Fatal(err)
		}
		data, err := form.Decode()
		if err != nil {
			t.Fatal(err)
		}

		found = append(found, drawn{
			placement: Placement{
				X:      translate[4],
				Y:      translate[5],
				Width:  scale[0] * bbox.Width(),
				Height: scale[3] * bbox.Height(),
			},
			contents: data,
		})
	}
	return found
}

func near(a, b Placement) bool {
	const epsilon = 1e-6
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon &&
		math.Abs(a.Width-b.Width) < epsilon && math.Abs(a.Height-b.Height) < epsilon
}

func TestComposeSpread(t *testing.T) {
	c := newTestCompositor(t)

	out, err := c.Compose(templateFixture(t, pdftest.Options{}), sourceFixture(t, 20, pdftest.Options{}))
	if err != nil {
		t.Fatal(err)
	}

	found := drawings(t, out)
	if len(found) != 2 {
		t.Fatalf("expected 2 drawings, got %d", len(found))
	}

	tests := []struct {
		name      string
		placement Placement
		fill      string
	}{
		{"back on the left", Placement{67, 165.90575, 597.525, 612.525}, pdftest.FillColor(pdftest.Blue)},
		{"front on the right", Placement{683.525, 165.90575, 597.525, 612.525}, pdftest.FillColor(pdftest.Red)},
	}
	for i, tt := range tests {
		if !near(found[i].placement, tt.placement) {
			t.Errorf("%s: expected placement %v, got %v", tt.name, tt.placement, found[i].placement)
		}
		if !bytes.Contains(found[i].contents, []byte(tt.fill)) {
			t.Errorf("%s: expected contents filled with %q, got %q", tt.name, tt.fill, found[i].contents)
		}
	}
}

func TestComposeKeepsTemplate(t *testing.T) {
	c := newTestCompositor(t)

	out, err := c.Compose(templateFixture(t, pdftest.Options{Compress: true}), sourceFixture(t, 17, pdftest.Options{}))
	if err != nil {
		t.Fatal(err)
	}

	file, err := pdf.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	pages, err := file.Pages()
	if err != nil {
		t.Fatal(err)
	}
	box, err := file.MediaBox(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if box != spreadBox {
		t.Errorf("expected the template MediaBox %v, got %v", spreadBox, box)
	}

	contents, err := file.Contents(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	ops, err := pdf.ParseContent(contents)
	if err != nil {
		t.Fatal(err)
	}
	// template drawing is wrapped in q/Q ahead of the drawings
	if ops[0].Operator != "q" || ops[1].Operator != "rg" {
		t.Errorf("expected the template content to open with q then rg, got %v %v", ops[0].Operator, ops[1].Operator)
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	c := newTestCompositor(t)
	template := templateFixture(t, pdftest.Options{})
	source := sourceFixture(t, 20, pdftest.Options{Compress: true})

	first, err := c.Compose(template, source)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compose(template, source)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("composing the same inputs twice gave different bytes")
	}
}

func TestComposeIsDeterministicWithSharedResources(t *testing.T) {
	c := newTestCompositor(t)
	template := templateFixture(t, pdftest.Options{Fonts: 4})
	source := sourceFixture(t, 20, pdftest.Options{Fonts: 6, SplitContents: true})

	first, err := c.Compose(template, source)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		out, err := c.Compose(template, source)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, out) {
			t.Fatalf("compose %d gave different bytes", i+1)
		}
	}
}

func TestComposeSourceLayouts(t *testing.T) {
	layouts := map[string]pdftest.Options{
		"xref stream":        {XRefStream: true},
		"compressed":         {Compress: true},
		"split contents":     {SplitContents: true, Compress: true},
		"inherited box":      {InheritMediaBox: true},
		"nested page tree":   {Nested: 5},
		"everything at once": {XRefStream: true, SplitContents: true, Compress: true, InheritMediaBox: true, Nested: 3},
	}

	c := newTestCompositor(t)
	template := templateFixture(t, pdftest.Options{})
	for name, opts := range layouts {
		t.Run(name, func(t *testing.T) {
			out, err := c.Compose(template, sourceFixture(t, 20, opts))
			if err != nil {
				t.Fatal(err)
			}
			found := drawings(t, out)
			if len(found) != 2 {
				t.Fatalf("expected 2 drawings, got %d", len(found))
			}
			if !bytes.Contains(found[0].contents, []byte(pdftest.FillColor(pdftest.Blue))) {
				t.Errorf("left drawing is not the blue page: %q", found[0].contents)
			}
			if !bytes.Contains(found[1].contents, []byte(pdftest.FillColor(pdftest.Red))) {
				t.Errorf("right drawing is not the red page: %q", found[1].contents)
			}
		})
	}
}

func TestComposeShortSource(t *testing.T) {
	c := newTestCompositor(t)

	for _, n := range []int{1, 16} {
		out, trace, err := c.ComposeTrace(templateFixture(t, pdftest.Options{}), sourceFixture(t, n, pdftest.Options{}))
		if out != nil {
			t.Errorf("%d pages: expected no output", n)
		}

		var outOfRange *PageIndexOutOfRangeError
		if !errors.As(err, &outOfRange) {
			t.Fatalf("%d pages: expected PageIndexOutOfRangeError, got %v", n, err)
		}
		if outOfRange.Which != RoleSource || outOfRange.Index != 16 || outOfRange.PageCount != n {
			t.Errorf("%d pages: unexpected error details %+v", n, outOfRange)
		}
		if !IsSourceFault(err) || IsFatal(err) {
			t.Errorf("%d pages: a short source should be a non-fatal source fault", n)
		}
		if trace.Last() != StageFailed {
			t.Errorf("%d pages: expected the call to end failed, got %v", n, trace.States)
		}
	}
}

func TestComposeMalformed(t *testing.T) {
	c := newTestCompositor(t)
	template := templateFixture(t, pdftest.Options{})
	source := sourceFixture(t, 20, pdftest.Options{})
	garbage := []byte("this is not a pdf at all")

	tests := []struct {
		name     string
		template []byte
		source   []byte
		which    Role
	}{
		{"template", garbage, source, RoleTemplate},
		{"source", template, garbage, RoleSource},
		{"empty source", template, nil, RoleSource},
		{"truncated source", template, source[:len(source)/3], RoleSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Compose(tt.template, tt.source)
			if out != nil {
				t.Error("expected no output")
			}
			var malformed *MalformedDocumentError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedDocumentError, got %v", err)
			}
			if malformed.Which != tt.which {
				t.Errorf("expected the %s to be blamed, got %s", tt.which, malformed.Which)
			}
		})
	}
}

func TestComposeTrace(t *testing.T) {
	c := newTestCompositor(t)

	_, trace, err := c.ComposeTrace(templateFixture(t, pdftest.Options{}), sourceFixture(t, 20, pdftest.Options{}))
	if err != nil {
		t.Fatal(err)
	}

	expected := []Stage{
		StageIdle,
		StageTemplateLoaded,
		StageSourceLoaded,
		StageOutputCreated,
		StageTemplatePageCopied,
		StagePagesExtracted,
		StagePagesEmbedded,
		StageDrawnLeft,
		StageDrawnRight,
		StageSerialized,
		StageDone,
	}
	if !reflect.DeepEqual(trace.States, expected) {
		t.Errorf("expected states %v, got %v", expected, trace.States)
	}
	if trace.Reason != "" {
		t.Errorf("expected no failure reason, got %q", trace.Reason)
	}
}

func TestComposeTraceFailure(t *testing.T) {
	c := newTestCompositor(t)

	_, trace, err := c.ComposeTrace(templateFixture(t, pdftest.Options{}), []byte("%PDF-1.4 nothing else"))
	if err == nil {
		t.Fatal("expected an error")
	}

	expected := []Stage{StageIdle, StageTemplateLoaded, StageFailed}
	if !reflect.DeepEqual(trace.States, expected) {
		t.Errorf("expected states %v, got %v", expected, trace.States)
	}
	if trace.Reason != err.Error() {
		t.Errorf("expected reason %q, got %q", err.Error(), trace.Reason)
	}
}

func TestComposeReadableByOtherReaders(t *testing.T) {
	c := newTestCompositor(t)

	out, err := c.Compose(templateFixture(t, pdftest.Options{}), sourceFixture(t, 20, pdftest.Options{Compress: true}))
	if err != nil {
		t.Fatal(err)
	}

	reader, err := lpdf.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatal(err)
	}
	if reader.NumPage() != 1 {
		t.Fatalf("expected 1 page, got %d", reader.NumPage())
	}

	box := reader.Page(1).V.Key("MediaBox")
	if box.Len() != 4 {
		t.Fatalf("expected a 4 element MediaBox, got %d", box.Len())
	}
	if box.Index(2).Float64() != spreadBox.URX || box.Index(3).Float64() != spreadBox.URY {
		t.Errorf("unexpected MediaBox [%v %v]", box.Index(2).Float64(), box.Index(3).Float64())
	}
}

func TestNewRejectsBadGeometry(t *testing.T) {
	g := DefaultGeometry()
	g.SpreadGap = -100
	if _, err := New(g); err == nil {
		t.Error("expected overlapping slots to be rejected")
	}
}

func TestCheckTemplate(t *testing.T) {
	c := newTestCompositor(t)

	if err := c.CheckTemplate(templateFixture(t, pdftest.Options{})); err != nil {
		t.Errorf("unexpected error %v", err)
	}

	err := c.CheckTemplate([]byte("not a pdf"))
	if !IsTemplateFault(err) {
		t.Errorf("expected a template fault, got %v", err)
	}
}
