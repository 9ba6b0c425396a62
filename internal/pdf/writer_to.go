package pdf

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/juju/errgo"
)

// writeTo serializes the Boolean according to the rules in
// §7.3.2
func (b Boolean) writeTo(w io.Writer) (int64, error) {
	if b {
		return writeString(w, "true")
	}
	return writeString(w, "false")
}

// writeTo serializes the Integer according to the rules in
// §7.3.3
func (i Integer) writeTo(w io.Writer) (int64, error) {
	return writeString(w, strconv.Itoa(int(i)))
}

// writeTo serializes the Real according to the rules in
// §7.3.3
// PDF has no exponent notation, so reals are always written in fixed point.
func (r Real) writeTo(w io.Writer) (int64, error) {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errgo.Newf("cannot serialize real %v", f)
	}
	return writeString(w, formatReal(f))
}

// writeTo serializes the String according to the rules in
// §7.3.4
func (s String) writeTo(w io.Writer) (int64, error) {
	buf := &bytes.Buffer{}

	buf.WriteByte('(')
	for _, b := range []byte(s) {
		switch b {
		case '(':
			buf.WriteString("\\(")
		case ')':
			buf.WriteString("\\)")
		case '\\':
			buf.WriteString("\\\\")
		case '\r':
			buf.WriteString("\\r")
		case '\n':
			buf.WriteString("\\n")
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')

	return buf.WriteTo(w)
}

// writeTo serializes the Name according to the rules in
// §7.3.5
func (n Name) writeTo(w io.Writer) (int64, error) {
	buf := &bytes.Buffer{}

	buf.WriteByte('/')
	for _, b := range []byte(n) {
		if b < '!' || b > '~' || b == '#' || isDelimiter(b) {
			fmt.Fprintf(buf, "#%02X", b)
			continue
		}
		buf.WriteByte(b)
	}

	return buf.WriteTo(w)
}

// writeTo serializes the Array according to the rules in
// §7.3.6
func (a Array) writeTo(w io.Writer) (int64, error) {
	buf := &bytes.Buffer{}

	buf.WriteByte('[')
	for i, obj := range a {
		if i != 0 {
			buf.WriteByte(' ')
		}
		if _, err := writeObject(buf, obj); err != nil {
			return 0, errgo.Notef(err, "array element %d", i)
		}
	}
	buf.WriteByte(']')

	return buf.WriteTo(w)
}

// writeTo serializes the Dictionary according to the rules in
// §7.3.7
// Keys are written in sorted order so that the output is reproducible.
func (d Dictionary) writeTo(w io.Writer) (int64, error) {
	buf := &bytes.Buffer{}

	buf.WriteString("<<")
	for _, name := range d.Keys() {
		name.writeTo(buf)
		buf.WriteByte(' ')
		if _, err := writeObject(buf, d[name]); err != nil {
			return 0, errgo.Notef(err, "dictionary key /%s", name)
		}
	}
	buf.WriteString(">>")

	return buf.WriteTo(w)
}

// writeTo serializes the Stream according to the rules in
// §7.3.8
func (s Stream) writeTo(w io.Writer) (int64, error) {
	buf := &bytes.Buffer{}

	// update a copy of the dictionary, the original may be shared
	dict := s.Dictionary.Clone()
	dict[Name("Length")] = Integer(len(s.Stream))

	if _, err := dict.writeTo(buf); err != nil {
		return 0, errgo.Mask(err)
	}

	buf.WriteString("\nstream\n")
	buf.Write(s.Stream)
	buf.WriteString("\nendstream")

	return buf.WriteTo(w)
}

// writeTo serializes Null according to the rules in
// §7.3.9
func (null Null) writeTo(w io.Writer) (int64, error) {
	return writeString(w, "null")
}

// writeTo serializes the ObjectReference according to the rules in
// §7.3.10
func (objref ObjectReference) writeTo(w io.Writer) (int64, error) {
	return writeString(w, formatReference(objref))
}

// writeTo serializes the IndirectObject according to the rules in
// §7.3.10
func (inobj IndirectObject) writeTo(w io.Writer) (int64, error) {
	b := &buffer{b: &bytes.Buffer{}}
	b.Printf("%d %d obj\n", inobj.ObjectNumber, inobj.GenerationNumber)
	if _, err := writeObject(b, inobj.Object); err != nil {
		return 0, errgo.Notef(err, "object %v", inobj.ObjectReference)
	}
	b.WriteString("\nendobj\n")
	return b.WriteTo(w)
}

// writeObject writes obj, treating a nil interface as null.
func writeObject(w io.Writer, obj Object) (int64, error) {
	if obj == nil {
		return Null{}.writeTo(w)
	}
	return obj.writeTo(w)
}

func writeString(w io.Writer, s string) (int64, error) {
	n, err := io.WriteString(w, s)
	return int64(n), err
}

func formatReal(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatReference(objref ObjectReference) string {
	return fmt.Sprintf("%d %d R", objref.ObjectNumber, objref.GenerationNumber)
}
