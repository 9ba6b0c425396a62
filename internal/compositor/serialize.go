package compositor

import (
	"bytes"

	"github.com/juju/errgo"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf"
)

// Save serializes doc as a complete PDF with a cross-reference table.
// The document cannot be changed afterwards.
func Save(doc *Document) ([]byte, error) {
	return SaveWith(doc, pdf.WriteOptions{})
}

// SaveWith is Save with explicit write options.
func SaveWith(doc *Document, opts pdf.WriteOptions) ([]byte, error) {
	if doc.role != RoleOutput {
		return nil, &SerializationError{Err: errgo.Newf("the %s document is read only", doc.role)}
	}

	buf := &bytes.Buffer{}
	if _, err := doc.file.Write(buf, opts); err != nil {
		return nil, &SerializationError{Err: err}
	}
	doc.frozen = true
	return buf.Bytes(), nil
}
