package pdf

import (
	"io"
	"maps"
	"math"
	"slices"
)

// Object represents all of the types that can be handled
// by the object store. Those types (defined in this package) are:
//   - Boolean
//   - Integer
//   - Real
//   - String
//   - Name
//   - Array
//   - Dictionary
//   - Stream
//   - Null
//   - ObjectReference
type Object interface {
	// private to reduce the public api
	// and limit objects to those defined in this package
	writeTo(w io.Writer) (int64, error)
}

// Boolean objects represent the logical values of true and false.
// - §7.3.2
type Boolean bool

// Integer objects represent mathematical integers.
// - §7.3.3
type Integer int

// Real objects represent mathematical real numbers.
// - §7.3.3
type Real float64

// A String object consists of zero or more bytes.
// - §7.3.4
type String []byte

// A Name object is an atomic symbol uniquely defined by a sequence of
// any characters (8-bit values) except null (character code 0)
// - §7.3.5
type Name string

// An Array object is a one-dimensional collection of objects
// arranged sequentially.
// - §7.3.6
type Array []Object

// A Dictionary object is an associative table mapping Names to Objects.
// - §7.3.7
type Dictionary map[Name]Object

// A Stream object is a sequence of bytes.
// - §7.3.8
type Stream struct {
	Dictionary
	Stream []byte
}

// The Null object has a type and value that are unequal to any other object.
// - §7.3.9
type Null struct{}

// An ObjectReference references a specific Object with the exact
// ObjectNumber and GenerationNumbers specified.
type ObjectReference struct {
	ObjectNumber     uint // positive integer
	GenerationNumber uint // non-negative integer
}

// An IndirectObject gives an Object an ObjectReference by which
// other Objects can refer to it.
// - §7.3.10
type IndirectObject struct {
	ObjectReference
	Object
}

// Clone returns a copy of the dictionary. Values are shared.
func (d Dictionary) Clone() Dictionary {
	clone := make(Dictionary, len(d))
	for k, v := range d {
		clone[k] = v
	}
	return clone
}

// Keys returns the dictionary's keys in sorted order.
func (d Dictionary) Keys() []Name {
	return slices.Sorted(maps.Keys(d))
}

// Name returns the Name stored under key.
func (d Dictionary) Name(key Name) (Name, bool) {
	name, ok := d[key].(Name)
	return name, ok
}

// Reference returns the ObjectReference stored under key.
func (d Dictionary) Reference(key Name) (ObjectReference, bool) {
	ref, ok := d[key].(ObjectReference)
	return ref, ok
}

// HasType reports whether the dictionary's /Type entry equals typ.
func (d Dictionary) HasType(typ Name) bool {
	name, ok := d.Name("Type")
	return ok && name == typ
}

// Number converts an Integer or Real to a float64.
func Number(obj Object) (float64, bool) {
	switch typed := obj.(type) {
	case Integer:
		return float64(typed), true
	case Real:
		f := float64(typed)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String returns "n g R".
func (objref ObjectReference) String() string {
	return formatReference(objref)
}
