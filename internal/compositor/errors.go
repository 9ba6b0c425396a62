package compositor

import (
	"errors"
	"fmt"
)

// Role names which document an error concerns.
type Role string

const (
	RoleTemplate Role = "template"
	RoleSource   Role = "source"
	RoleOutput   Role = "output"
)

// MalformedDocumentError reports a buffer that is not a usable PDF.
type MalformedDocumentError struct {
	Which Role
	Stage string // parse, pages
	Err   error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed %s document (%s): %v", e.Which, e.Stage, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// PageIndexOutOfRangeError reports a page index outside [0, PageCount).
type PageIndexOutOfRangeError struct {
	Which     Role
	Index     int
	PageCount int
}

func (e *PageIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s page index %d out of range: document has %d pages", e.Which, e.Index, e.PageCount)
}

// EmbedError reports a page that could not be copied or turned into a
// Form XObject, typically because of an unsupported stream filter.
type EmbedError struct {
	Which Role
	Index int
	Err   error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embed %s page %d: %v", e.Which, e.Index, e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// SerializationError reports an internal inconsistency found while
// writing the output document.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize output document: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// faultOf returns the document an error is attributed to.
func faultOf(err error) (Role, bool) {
	var malformed *MalformedDocumentError
	if errors.As(err, &malformed) {
		return malformed.Which, true
	}
	var outOfRange *PageIndexOutOfRangeError
	if errors.As(err, &outOfRange) {
		return outOfRange.Which, true
	}
	var embed *EmbedError
	if errors.As(err, &embed) {
		return embed.Which, true
	}
	var serialize *SerializationError
	if errors.As(err, &serialize) {
		return RoleOutput, true
	}
	return "", false
}

// IsSourceFault reports whether err was caused by the source document.
// Such failures are per request and worth reporting back to the caller.
func IsSourceFault(err error) bool {
	role, ok := faultOf(err)
	return ok && role == RoleSource
}

// IsTemplateFault reports whether err was caused by the template.
func IsTemplateFault(err error) bool {
	role, ok := faultOf(err)
	return ok && role == RoleTemplate
}

// IsFatal reports whether err points at a bug or bad deployment rather
// than bad input: a broken template or a serializer inconsistency.
func IsFatal(err error) bool {
	role, ok := faultOf(err)
	return !ok || role != RoleSource
}
