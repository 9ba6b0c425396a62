package template

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errgo"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/pdf/pdftest"
)

func TestOpen(t *testing.T) {
	data := pdftest.Build(t, pdftest.Pages(1, pdftest.Red), pdftest.Options{})
	path := filepath.Join(t.TempDir(), "cover_image.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(store.Bytes(), data) {
		t.Error("mapped bytes differ from the file")
	}
	if store.Path() != path {
		t.Errorf("expected path %s, got %s", path, store.Path())
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if store.Bytes() != nil {
		t.Error("expected no bytes after Close")
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(empty); err == nil {
		t.Error("expected an error for an empty template")
	}

	_, err := Open(filepath.Join(dir, "missing.pdf"))
	if err == nil {
		t.Fatal("expected an error for a missing template")
	}
	if !os.IsNotExist(errgo.Cause(err)) {
		t.Errorf("expected a not-exist cause, got %v", errgo.Cause(err))
	}
}

func TestFromBytes(t *testing.T) {
	store := FromBytes([]byte("%PDF-1.7"))
	if string(store.Bytes()) != "%PDF-1.7" {
		t.Errorf("unexpected bytes %q", store.Bytes())
	}
	if err := store.Close(); err != nil {
		t.Error(err)
	}
}
