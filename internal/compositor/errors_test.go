package compositor

import (
	"errors"
	"fmt"
	"testing"
)

func TestFaultClassification(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		source   bool
		template bool
		fatal    bool
	}{
		{"malformed source", &MalformedDocumentError{Which: RoleSource, Stage: "parse", Err: cause}, true, false, false},
		{"malformed template", &MalformedDocumentError{Which: RoleTemplate, Stage: "parse", Err: cause}, false, true, true},
		{"short source", &PageIndexOutOfRangeError{Which: RoleSource, Index: 16, PageCount: 3}, true, false, false},
		{"empty template", &PageIndexOutOfRangeError{Which: RoleTemplate, Index: 0, PageCount: 0}, false, true, true},
		{"embed source", &EmbedError{Which: RoleSource, Index: 16, Err: cause}, true, false, false},
		{"serialize", &SerializationError{Err: cause}, false, false, true},
		{"wrapped", fmt.Errorf("request: %w", &EmbedError{Which: RoleSource, Err: cause}), true, false, false},
		{"unknown", cause, false, false, true},
	}

	for _, tt := range tests {
		if got := IsSourceFault(tt.err); got != tt.source {
			t.Errorf("%s: IsSourceFault = %v", tt.name, got)
		}
		if got := IsTemplateFault(tt.err); got != tt.template {
			t.Errorf("%s: IsTemplateFault = %v", tt.name, got)
		}
		if got := IsFatal(tt.err); got != tt.fatal {
			t.Errorf("%s: IsFatal = %v", tt.name, got)
		}
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	for _, err := range []error{
		&MalformedDocumentError{Which: RoleSource, Err: cause},
		&EmbedError{Which: RoleSource, Err: cause},
		&SerializationError{Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestPageIndexOutOfRangeMessage(t *testing.T) {
	err := &PageIndexOutOfRangeError{Which: RoleSource, Index: 16, PageCount: 16}
	expected := "source page index 16 out of range: document has 16 pages"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
