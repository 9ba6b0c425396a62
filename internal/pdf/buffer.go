package pdf

import (
	"bytes"
	"fmt"
	"io"
)

// buffer remembers the first write error so that a run of writes can be
// checked once, at WriteTo or Bytes.
type buffer struct {
	b   *bytes.Buffer
	err error
}

func newBuffer() *buffer {
	return &buffer{b: &bytes.Buffer{}}
}

func (b *buffer) WriteTo(w io.Writer) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}

	return b.b.WriteTo(w)
}

func (b *buffer) WriteString(s string) {
	if b.err != nil {
		return
	}

	_, b.err = b.b.WriteString(s)
}

func (b *buffer) Write(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}

	var n int
	n, b.err = b.b.Write(p)
	return n, b.err
}

func (b *buffer) Printf(format string, a ...interface{}) {
	if b.err != nil {
		return
	}

	_, b.err = fmt.Fprintf(b.b, format, a...)
}

// fail records err unless an earlier error is already pending.
func (b *buffer) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *buffer) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.b.Bytes(), nil
}

func (b *buffer) Len() int {
	return b.b.Len()
}
