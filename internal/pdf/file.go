package pdf

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/juju/errgo"
)

type freeObject uint // generation number for next use of the object number where this is stored

// File manages access to the objects of one PDF document held in memory.
// Contains the non-managed keys from the file trailer.
type File struct {
	data []byte

	// cross reference for existing objects
	// indirect object for new objects
	// free object for newly freed objects
	// map key is the object number
	// make sure generation number is >= existing generation number when modifying
	objects  map[uint]interface{}
	size     uint // max object number + 1
	repaired bool

	// decoded object streams, by object number
	objectStreams map[uint]*objectStream

	// The catalog dictionary for the PDF document contained in the file.
	Root ObjectReference

	// The document's information dictionary
	Info ObjectReference

	// An array of two byte-strings constituting a file identifier for the file.
	ID Array
}

type objectStream struct {
	index []uint // object number, offset pairs
	first int
	data  []byte
}

// Parse reads the document in data. The File refers to data rather than
// copying it, so data must not be modified while the File is in use.
func Parse(data []byte) (*File, error) {
	header := data
	if len(header) > 1024 {
		header = header[:1024]
	}
	if !bytes.Contains(header, []byte("%PDF-")) {
		return nil, errgo.New("file does not have PDF header")
	}

	file := &File{
		data:          data,
		objects:       map[uint]interface{}{},
		objectStreams: map[uint]*objectStream{},
	}

	if err := file.loadReferences(); err != nil {
		if rerr := file.reconstruct(); rerr != nil {
			return nil, errgo.Notef(err, "cross-reference data unusable and reconstruction failed (%v)", rerr)
		}
		file.repaired = true
	}

	if _, err := file.Get(file.Root); err != nil {
		if file.repaired {
			return nil, errgo.Notef(err, "catalog")
		}
		// the cross-reference data pointed somewhere wrong
		if rerr := file.reconstruct(); rerr != nil {
			return nil, errgo.Notef(err, "catalog")
		}
		file.objectStreams = map[uint]*objectStream{}
		file.repaired = true
		if _, err := file.Get(file.Root); err != nil {
			return nil, errgo.Notef(err, "catalog")
		}
	}

	return file, nil
}

// New creates a new, empty PDF document.
func New() *File {
	return &File{
		objects:       map[uint]interface{}{},
		objectStreams: map[uint]*objectStream{},
		size:          1,
	}
}

// Repaired reports whether the cross-reference data had to be rebuilt
// by scanning the file.
func (f *File) Repaired() bool {
	return f.repaired
}

// Get returns the referenced object.
func (f *File) Get(reference ObjectReference) (Object, error) {
	objectRaw, ok := f.objects[reference.ObjectNumber]
	if !ok {
		return nil, errgo.Newf("%v not found", reference)
	}

	var object Object

	switch typed := objectRaw.(type) {
	case crossReference: // existing object
		switch typed[0] {
		case 0: // free entry
			return nil, errgo.Newf("%v is a free object", reference)
		case 1: // normal
			obj, err := f.parseAt(reference, typed[1])
			if err != nil {
				return nil, errgo.Mask(err)
			}
			object = obj
		case 2: // in object stream
			obj, err := f.getFromObjectStream(reference, typed[1], typed[2])
			if err != nil {
				return nil, errgo.Mask(err)
			}
			object = obj
		default:
			return nil, errgo.Newf("%v has unknown cross-reference type %d", reference, typed[0])
		}
	case IndirectObject: // new object
		object = typed.Object
	case freeObject: // newly freed object
		return nil, errgo.Newf("%v freed after pdf was loaded", reference)
	default:
		return nil, errgo.Newf("%v: unhandled entry %T", reference, typed)
	}

	if object == nil {
		return Null{}, nil
	}

	// deal with streams that have references to lengths
	if streamObj, ok := object.(Stream); ok {
		if lengthRef, ok := streamObj.Dictionary["Length"].(ObjectReference); ok && lengthRef != reference {
			if lengthObj, err := f.Get(lengthRef); err == nil {
				if length, ok := lengthObj.(Integer); ok && length >= 0 && int(length) <= len(streamObj.Stream) {
					streamObj.Dictionary = streamObj.Dictionary.Clone()
					streamObj.Dictionary["Length"] = length
					streamObj.Stream = streamObj.Stream[:int(length)]
				}
			}
		}
		object = streamObj
	}

	return object, nil
}

func (f *File) parseAt(reference ObjectReference, offset uint) (Object, error) {
	if offset >= uint(len(f.data)) {
		return nil, errgo.Newf("%v: offset %d out of range", reference, offset)
	}

	obj, _, err := parseIndirectObject(f.data[offset:])
	if err != nil {
		return nil, errgo.Notef(err, "error parsing %v", reference)
	}

	iobj := obj.(IndirectObject)
	if iobj.ObjectNumber != reference.ObjectNumber {
		return nil, errgo.Newf("%v: offset %d holds object %d", reference, offset, iobj.ObjectNumber)
	}

	return iobj.Object, nil
}

func (f *File) getFromObjectStream(reference ObjectReference, streamNumber, index uint) (Object, error) {
	os, err := f.loadObjectStream(streamNumber)
	if err != nil {
		return nil, errgo.Notef(err, "%v should be in object stream %d", reference, streamNumber)
	}

	// find the offset for the object we are looking for
	offset := -1
	if start := index * 2; start+1 < uint(len(os.index)) && os.index[start] == reference.ObjectNumber {
		offset = int(os.index[start+1])
	} else {
		// if the index from the cross reference is wrong,
		// find the correct offset
		for i := 0; i+1 < len(os.index); i += 2 {
			if os.index[i] == reference.ObjectNumber {
				offset = int(os.index[i+1])
				break
			}
		}
	}
	if offset == -1 || os.first+offset >= len(os.data) {
		return nil, errgo.Newf("%v not found in object stream %d", reference, streamNumber)
	}

	// grab the object
	object, _, err := parseObject(os.data[os.first+offset:])
	if err != nil {
		return nil, errgo.Notef(err, "unable to parse %v", reference)
	}
	return object, nil
}

func (f *File) loadObjectStream(streamNumber uint) (*objectStream, error) {
	if os, ok := f.objectStreams[streamNumber]; ok {
		return os, nil
	}

	// get the object stream
	raw, ok := f.objects[streamNumber].(crossReference)
	if !ok || raw[0] != 1 {
		return nil, errgo.Newf("object stream %d is not a stored object", streamNumber)
	}
	obj, err := f.parseAt(ObjectReference{ObjectNumber: streamNumber, GenerationNumber: raw[2]}, raw[1])
	if err != nil {
		return nil, errgo.Mask(err)
	}
	stream, ok := obj.(Stream)
	if !ok {
		return nil, errgo.Newf("object %d is not a stream", streamNumber)
	}

	N, ok1 := stream.Dictionary[Name("N")].(Integer)
	first, ok2 := stream.Dictionary[Name("First")].(Integer)
	if !ok1 || !ok2 || N < 0 || first < 0 {
		return nil, errgo.Newf("object stream %d has an invalid /N or /First", streamNumber)
	}

	decoded, err := stream.Decode()
	if err != nil {
		return nil, errgo.Notef(err, "could not decode object stream %d", streamNumber)
	}
	// every index pair takes at least four bytes
	if int(first) > len(decoded) || int(N) > len(decoded)/4 {
		return nil, errgo.Newf("object stream %d: /N %d or /First %d exceed its %d bytes", streamNumber, N, first, len(decoded))
	}

	// parse the index (object number and offset pairs)
	index := make([]uint, 0, int(N)*2)
	offset := 0
	for i := 0; i < int(N)*2 && offset < int(first) && offset < len(decoded); i++ {
		value, n, err := parseUnsigned(decoded[offset:])
		if err != nil {
			return nil, errgo.Notef(err, "object stream %d index", streamNumber)
		}
		index = append(index, value)
		offset += n
	}

	os := &objectStream{index: index, first: int(first), data: decoded}
	f.objectStreams[streamNumber] = os
	return os, nil
}

// Exists reports whether ref names an object that is in use.
func (f *File) Exists(ref ObjectReference) bool {
	switch typed := f.objects[ref.ObjectNumber].(type) {
	case crossReference:
		return typed[0] != 0
	case IndirectObject:
		return true
	}
	return false
}

// Resolve follows obj while it is an ObjectReference. References to
// missing objects resolve to Null, as §7.3.10 requires.
func (f *File) Resolve(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(ObjectReference)
		if !ok {
			return obj, nil
		}
		if !f.Exists(ref) {
			return Null{}, nil
		}
		resolved, err := f.Get(ref)
		if err != nil {
			return nil, errgo.Mask(err)
		}
		obj = resolved
	}
	return nil, errgo.New("reference chain too long")
}

// ResolveDictionary resolves obj and requires a Dictionary. A null or
// missing object yields (nil, false, nil).
func (f *File) ResolveDictionary(obj Object) (Dictionary, bool, error) {
	resolved, err := f.Resolve(obj)
	if err != nil {
		return nil, false, errgo.Mask(err)
	}
	switch typed := resolved.(type) {
	case Dictionary:
		return typed, true, nil
	case nil, Null:
		return nil, false, nil
	default:
		return nil, false, errgo.Newf("expected a dictionary, got %T", resolved)
	}
}

// Add returns the object reference of the object after adding it to the file.
// An IndirectObject's ObjectReference will be used,
// otherwise a free ObjectReference will be used.
//
// If an IndirectObject's ObjectReference also refers to an existing
// object, the newly added IndirectObject will mask the existing one.
// GenerationNumber must be greater than or equal to the largest existing
// GenerationNumber for that ObjectNumber.
func (f *File) Add(obj Object) (ObjectReference, error) {
	ref := ObjectReference{}

	switch typed := obj.(type) {
	case IndirectObject:
		ref = typed.ObjectReference
		if ref.ObjectNumber == 0 {
			return ref, errgo.New("object number 0 is reserved")
		}

		// check to see if the generation number works
		if existing, ok := f.objects[ref.ObjectNumber]; ok {
			// determine the minimum allowed generation number
			var minGenerationNumber uint
			switch typed := existing.(type) {
			case crossReference: // existing object
				if typed[0] != 2 {
					// objects in object streams have generation number 0
					minGenerationNumber = typed[2]
				}
			case IndirectObject: // new object
				minGenerationNumber = typed.GenerationNumber
			case freeObject: // newly freed object
				minGenerationNumber = uint(typed)
			}

			if ref.GenerationNumber < minGenerationNumber {
				return ref, errgo.Newf("generation number of %v is below %d", ref, minGenerationNumber)
			}
		}

		f.objects[ref.ObjectNumber] = typed
		if ref.ObjectNumber >= f.size {
			f.size = ref.ObjectNumber + 1
		}
	case nil:
		return ref, errgo.New("cannot add a nil object")
	default:
		objectNumber := f.size
		f.size++

		ref.ObjectNumber = objectNumber

		f.objects[objectNumber] = IndirectObject{
			ObjectReference: ref,
			Object:          obj,
		}
	}
	return ref, nil
}

// Free the object with the specified number.
// Will automatically determine and increment the generation number.
func (f *File) Free(objectNumber uint) {
	obj, ok := f.objects[objectNumber]
	if !ok {
		// object does not exist, and therefore is already free
		return
	}

	switch typed := obj.(type) {
	case crossReference: // existing object
		switch typed[0] {
		case 1: // normal
			f.objects[objectNumber] = freeObject(typed[2] + 1)
		case 2: // in object stream
			// objects in object streams must have a
			// generation number of 0
			f.objects[objectNumber] = freeObject(1)
		}
	case IndirectObject: // new object
		f.objects[objectNumber] = freeObject(typed.GenerationNumber + 1)
	}
}

// WriteOptions controls how a File is serialized.
type WriteOptions struct {
	// XRefStream writes a cross-reference stream (§7.5.8)
	// instead of a cross-reference table.
	XRefStream bool
}

// WriteTo serializes every object reachable from the trailer as a complete,
// non-incremental PDF file with a cross-reference table.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	return f.Write(w, WriteOptions{})
}

// Write serializes every object reachable from the trailer as a complete,
// non-incremental PDF file. Objects are written in ascending object number
// and object numbers are kept, so unreachable numbers become free entries.
func (f *File) Write(w io.Writer, opts WriteOptions) (int64, error) {
	if f.Root.ObjectNumber == 0 {
		return 0, errgo.New("file has no catalog")
	}

	live, err := f.reachable()
	if err != nil {
		return 0, errgo.Mask(err)
	}

	out := &countingWriter{w: w}
	fmt.Fprintf(out, "%%PDF-1.7\n%%\xe2\xe3\xcf\xd3\n")

	xrefs := map[uint]crossReference{}
	for _, objectNumber := range live {
		object, err := f.Get(ObjectReference{ObjectNumber: objectNumber})
		if err != nil {
			return out.n, errgo.Mask(err)
		}

		generation := f.generation(objectNumber)
		xrefs[objectNumber] = crossReference{1, uint(out.n), generation}
		iobj := IndirectObject{
			ObjectReference: ObjectReference{ObjectNumber: objectNumber, GenerationNumber: generation},
			Object:          object,
		}
		if _, err := iobj.writeTo(out); err != nil {
			return out.n, errgo.Mask(err)
		}
	}
	if out.err != nil {
		return out.n, errgo.Mask(out.err)
	}

	var maxObjNum uint
	if len(live) != 0 {
		maxObjNum = live[len(live)-1]
	}

	trailer := Dictionary{
		Name("Root"): f.Root,
	}
	if f.Info.ObjectNumber != 0 {
		trailer[Name("Info")] = f.Info
	}
	if len(f.ID) != 0 {
		trailer[Name("ID")] = f.ID
	}

	if opts.XRefStream {
		err = writeXrefStream(out, xrefs, maxObjNum, trailer)
	} else {
		err = writeXrefTable(out, xrefs, maxObjNum, trailer)
	}
	if err != nil {
		return out.n, errgo.Mask(err)
	}
	return out.n, errgo.Mask(out.err)
}

func (f *File) generation(objectNumber uint) uint {
	switch typed := f.objects[objectNumber].(type) {
	case crossReference:
		if typed[0] == 1 {
			return typed[2]
		}
	case IndirectObject:
		return typed.GenerationNumber
	}
	return 0
}

// reachable returns the sorted object numbers reachable from the trailer.
// A reference to an object that does not exist is an error.
func (f *File) reachable() ([]uint, error) {
	seen := map[uint]bool{}
	queue := []ObjectReference{f.Root}
	if f.Info.ObjectNumber != 0 {
		queue = append(queue, f.Info)
	}

	var visit func(obj Object)
	visit = func(obj Object) {
		switch typed := obj.(type) {
		case ObjectReference:
			queue = append(queue, typed)
		case Array:
			for _, item := range typed {
				visit(item)
			}
		case Dictionary:
			for _, value := range typed {
				visit(value)
			}
		case Stream:
			visit(typed.Dictionary)
		}
	}

	for len(queue) != 0 {
		ref := queue[0]
		queue = queue[1:]
		if seen[ref.ObjectNumber] {
			continue
		}

		object, err := f.Get(ref)
		if err != nil {
			return nil, errgo.Notef(err, "dangling reference")
		}
		seen[ref.ObjectNumber] = true
		visit(object)
	}

	live := make([]uint, 0, len(seen))
	for objectNumber := range seen {
		live = append(live, objectNumber)
	}
	slices.Sort(live)
	return live, nil
}

func writeXrefTable(out *countingWriter, xrefs map[uint]crossReference, maxObjNum uint, trailer Dictionary) error {
	offset := out.n
	entries := xrefEntries(xrefs, maxObjNum)

	fmt.Fprintf(out, "xref\n0 %d\n", len(entries))
	for _, xref := range entries {
		switch xref[0] {
		case 0:
			fmt.Fprintf(out, "%010d %05d f\r\n", xref[1], xref[2])
		default:
			fmt.Fprintf(out, "%010d %05d n\r\n", xref[1], xref[2])
		}
	}

	trailer[Name("Size")] = Integer(maxObjNum + 1)
	fmt.Fprintf(out, "trailer\n")
	if _, err := trailer.writeTo(out); err != nil {
		return errgo.Mask(err)
	}
	fmt.Fprintf(out, "\nstartxref\n%d\n%%%%EOF\n", offset)
	return nil
}

func writeXrefStream(out *countingWriter, xrefs map[uint]crossReference, maxObjNum uint, trailer Dictionary) error {
	offset := out.n

	// add an xref for the xrefstream itself
	xrefstreamObjectNumber := maxObjNum + 1
	xrefs[xrefstreamObjectNumber] = crossReference{1, uint(offset), 0}
	entries := xrefEntries(xrefs, xrefstreamObjectNumber)

	// layout for the stream (W)
	maxXref := [3]uint{}
	for _, xref := range entries {
		for i := range xref {
			if xref[i] > maxXref[i] {
				maxXref[i] = xref[i]
			}
		}
	}
	nBytes := [3]int{}
	for i := range nBytes {
		nBytes[i] = nBytesForInt(maxXref[i])
	}

	stream := &bytes.Buffer{}
	for _, xref := range entries {
		for i := range xref {
			stream.Write(intToBytes(xref[i], nBytes[i]))
		}
	}

	trailer[Name("Type")] = Name("XRef")
	trailer[Name("Size")] = Integer(len(entries))
	trailer[Name("W")] = Array{Integer(nBytes[0]), Integer(nBytes[1]), Integer(nBytes[2])}

	xrefstream := IndirectObject{
		ObjectReference: ObjectReference{ObjectNumber: xrefstreamObjectNumber},
		Object: Stream{
			Dictionary: trailer,
			Stream:     stream.Bytes(),
		},
	}
	if _, err := xrefstream.writeTo(out); err != nil {
		return errgo.Mask(err)
	}

	fmt.Fprintf(out, "startxref\n%d\n%%%%EOF\n", offset)
	return nil
}

// xrefEntries returns entries 0..maxObjNum, chaining the free entries into
// the linked list of §7.5.4.
func xrefEntries(xrefs map[uint]crossReference, maxObjNum uint) []crossReference {
	entries := make([]crossReference, maxObjNum+1)
	free := []uint{0}
	for objectNumber := uint(0); objectNumber <= maxObjNum; objectNumber++ {
		xref, ok := xrefs[objectNumber]
		if !ok || objectNumber == 0 {
			free = append(free, objectNumber)
			continue
		}
		entries[objectNumber] = xref
	}
	free = slices.Compact(free)

	for i, objectNumber := range free {
		next := uint(0)
		if i+1 < len(free) {
			next = free[i+1]
		}
		generation := uint(0)
		if objectNumber == 0 {
			generation = 65535
		}
		entries[objectNumber] = crossReference{0, next, generation}
	}
	return entries
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
