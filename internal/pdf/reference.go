package pdf

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/juju/errgo"
)

// crossReference holds the data described in Table 18
// type 0 = f entries in cross-reference table
// type 1 = n entries in cross-reference table
// type 2 not in cross-reference table
// 0 number_of_next_free_object generation_number_if_used_again
// 1 byte_offset_of_object generation_number
// 2 object_number_of_object_stream_containing_this_object index_of_this_object_in_object_stream
type crossReference [3]uint

// handles cross-references
//
//  1. Cross-Reference Table (§7.5.4) and File Trailer (§7.5.5)
//  2. Cross-Reference Streams (§7.5.8) (since PDF-1.5)
//  3. Hybrid (§7.5.8.4) (since PDF-1.5)
//
// The method used can be determined by following the
// startxref reference. If the referenced position is an
// indirect object, then method 2 is used. Otherwise if the
// trailer has an XRefStm entry, then method 3 is used.
// Otherwise method 1 is used.
func (f *File) loadReferences() error {
	xrefOffset, err := findStartXref(f.data)
	if err != nil {
		return errgo.Mask(err)
	}

	refs, trailer, err := f.parseReferences(xrefOffset, map[int]bool{})
	if err != nil {
		return errgo.Mask(err)
	}

	return f.applyTrailer(refs, trailer)
}

// findStartXref returns the offset named by the last startxref keyword.
func findStartXref(data []byte) (int, error) {
	// find EOF tag to ignore junk in the file after it
	eofOffset := bytes.LastIndex(data, []byte("%%EOF"))
	if eofOffset == -1 {
		eofOffset = len(data)
	}

	// find last startxref
	startxrefOffset := bytes.LastIndex(data[:eofOffset], []byte("startxref"))
	if startxrefOffset == -1 {
		return 0, errgo.New("could not find startxref")
	}

	token, _ := nextToken(data[startxrefOffset+len("startxref") : eofOffset])
	offset, err := strconv.ParseUint(string(token), 10, 0)
	if err != nil {
		return 0, errgo.Newf("invalid startxref offset %q", token)
	}
	if int(offset) >= len(data) {
		return 0, errgo.Newf("startxref offset %d is past the end of the file", offset)
	}

	return int(offset), nil
}

func (f *File) applyTrailer(refs map[uint]crossReference, trailer Dictionary) error {
	if _, ok := trailer[Name("Encrypt")]; ok {
		return errgo.New("encrypted documents are not supported")
	}

	f.objects = make(map[uint]interface{}, len(refs))
	var maxObjNum uint
	for objectNumber, xref := range refs {
		f.objects[objectNumber] = xref
		if objectNumber > maxObjNum {
			maxObjNum = objectNumber
		}
	}

	f.size = maxObjNum + 1
	if size, ok := trailer[Name("Size")].(Integer); ok && uint(size) > f.size {
		f.size = uint(size)
	}

	// fill in values from the trailer
	root, ok := trailer[Name("Root")].(ObjectReference)
	if !ok {
		return errgo.New("trailer has no /Root")
	}
	f.Root = root

	if info, ok := trailer[Name("Info")].(ObjectReference); ok {
		f.Info = info
	}

	if id, ok := trailer[Name("ID")].(Array); ok {
		f.ID = id
	}

	return nil
}

// parse and recursively load and merge references and trailer
func (f *File) parseReferences(xrefOffset int, seen map[int]bool) (map[uint]crossReference, Dictionary, error) {
	if seen[xrefOffset] {
		return nil, nil, errgo.Newf("cross-reference loop at offset %d", xrefOffset)
	}
	seen[xrefOffset] = true

	if xrefOffset < 0 || xrefOffset >= len(f.data) {
		return nil, nil, errgo.Newf("cross-reference offset %d out of range", xrefOffset)
	}

	var (
		refs    map[uint]crossReference
		trailer Dictionary
		err     error
	)

	start, _ := nextNonWhitespace(f.data[xrefOffset:])
	xrefOffset += start
	if xrefOffset >= len(f.data) {
		return nil, nil, errgo.New("cross-reference section is empty")
	}

	switch c := f.data[xrefOffset]; {
	case '0' <= c && c <= '9':
		// indirect object and therefore a cross-reference stream §7.5.8
		refs, trailer, err = f.parseXrefStream(xrefOffset)
	case c == 'x':
		// xref table §7.5.4
		refs, trailer, err = f.parseXrefTable(xrefOffset)
	default:
		err = errgo.Newf("no cross-reference section at offset %d", xrefOffset)
	}
	if err != nil {
		return nil, nil, errgo.Mask(err)
	}

	// hybrid references fill in what the table leaves free
	if hybrid, ok := trailer[Name("XRefStm")].(Integer); ok {
		hybridRefs, _, err := f.parseReferences(int(hybrid), seen)
		if err != nil {
			return nil, nil, errgo.Notef(err, "XRefStm")
		}

		for objectNumber, xref := range hybridRefs {
			if existing, ok := refs[objectNumber]; !ok || existing[0] == 0 {
				refs[objectNumber] = xref
			}
		}
	}

	// previous references are masked by the current one
	if prev, ok := trailer[Name("Prev")].(Integer); ok {
		prevRefs, prevTrailer, err := f.parseReferences(int(prev), seen)
		if err != nil {
			return nil, nil, errgo.Notef(err, "Prev")
		}

		for objectNumber, xref := range prevRefs {
			if _, ok := refs[objectNumber]; !ok {
				refs[objectNumber] = xref
			}
		}

		for name, value := range prevTrailer {
			if _, ok := trailer[name]; !ok {
				trailer[name] = value
			}
		}
	}

	return refs, trailer, nil
}

func (f *File) parseXrefTable(offset int) (map[uint]crossReference, Dictionary, error) {
	refs := map[uint]crossReference{}
	i := offset

	n, ok := match(f.data[i:], "xref")
	if !ok {
		return nil, nil, errgo.Newf("offset %d: could not match xref", offset)
	}
	i += n

	for {
		if n, ok := match(f.data[i:], "trailer"); ok {
			i += n
			break
		}

		block, n, err := parseXrefBlock(f.data[i:])
		if err != nil {
			return nil, nil, errgo.Mask(err)
		}
		for objectNumber, xref := range block {
			refs[objectNumber] = xref
		}
		i += n
	}

	trailerObj, _, err := parseObject(f.data[i:])
	if err != nil {
		return nil, nil, errgo.Notef(err, "trailer")
	}
	trailer, ok := trailerObj.(Dictionary)
	if !ok {
		return nil, nil, errgo.Newf("trailer is a %T, want a dictionary", trailerObj)
	}

	return refs, trailer, nil
}

func parseXrefBlock(slice []byte) (map[uint]crossReference, int, error) {
	references := map[uint]crossReference{}
	i := 0

	// object number
	objectNumber, n, err := parseUnsigned(slice[i:])
	if err != nil {
		return nil, i, errgo.Notef(err, "xref subsection start")
	}
	i += n

	// number of objects
	nObjects, n, err := parseUnsigned(slice[i:])
	if err != nil {
		return nil, i, errgo.Notef(err, "xref subsection length")
	}
	i += n

	for j := uint(0); j < nObjects; j++ {
		// offset
		offset, n, err := parseUnsigned(slice[i:])
		if err != nil {
			return nil, i, errgo.Notef(err, "xref entry %d", objectNumber)
		}
		i += n

		// generation number
		generation, n, err := parseUnsigned(slice[i:])
		if err != nil {
			return nil, i, errgo.Notef(err, "xref entry %d", objectNumber)
		}
		i += n

		// type
		entryType, n := nextToken(slice[i:])
		i += n

		var xref crossReference
		switch string(entryType) {
		case "f":
			xref[0] = 0
		case "n":
			xref[0] = 1
		default:
			return nil, i, errgo.Newf("xref entry %d has type %q", objectNumber, entryType)
		}

		xref[1] = offset
		xref[2] = generation

		// the first entry of an object number wins within one section
		if _, ok := references[objectNumber]; !ok {
			references[objectNumber] = xref
		}
		objectNumber++
	}

	return references, i, nil
}

func (f *File) parseXrefStream(offset int) (map[uint]crossReference, Dictionary, error) {
	obj, _, err := parseIndirectObject(f.data[offset:])
	if err != nil {
		return nil, nil, errgo.Notef(err, "cross-reference stream")
	}
	xrstream, ok := obj.(IndirectObject).Object.(Stream)
	if !ok {
		return nil, nil, errgo.Newf("offset %d is not a cross-reference stream", offset)
	}

	stream, err := xrstream.Decode()
	if err != nil {
		return nil, nil, errgo.Notef(err, "cross-reference stream")
	}

	trailer := xrstream.Dictionary.Clone()

	w, ok := trailer[Name("W")].(Array)
	if !ok || len(w) != 3 {
		return nil, nil, errgo.New("cross-reference stream has an invalid /W")
	}
	size, ok := trailer[Name("Size")].(Integer)
	if !ok {
		return nil, nil, errgo.New("cross-reference stream has no /Size")
	}

	widths := [3]int{}
	stride := 0
	for i, integer := range w {
		width, ok := integer.(Integer)
		if !ok || width < 0 || width > 8 {
			return nil, nil, errgo.New("cross-reference stream has an invalid /W")
		}
		widths[i] = int(width)
		stride += int(width)
	}
	if stride == 0 {
		return nil, nil, errgo.New("cross-reference stream has an empty /W")
	}

	type index struct {
		objectNumber int
		size         int
	}
	indexes := []index{}

	switch indexArray := trailer[Name("Index")].(type) {
	case Array:
		for i := 0; i+1 < len(indexArray); i += 2 {
			first, ok1 := indexArray[i].(Integer)
			count, ok2 := indexArray[i+1].(Integer)
			if !ok1 || !ok2 || first < 0 || count < 0 {
				return nil, nil, errgo.New("cross-reference stream has an invalid /Index")
			}
			indexes = append(indexes, index{int(first), int(count)})
		}
	default:
		// default when Index is not specified
		indexes = append(indexes, index{0, int(size)})
	}

	refs := map[uint]crossReference{}
	offsetInStream := 0
	for _, index := range indexes {
		objectNumber := index.objectNumber
		for n := 0; n < index.size; n++ {
			if offsetInStream+stride > len(stream) {
				return refs, trailer, nil
			}

			xref := crossReference{}
			for i, width := range widths {
				if width == 0 {
					// default values for missing fields
					if i == 0 {
						xref[i] = 1
					}
					continue
				}
				xref[i] = bytesToInt(stream[offsetInStream : offsetInStream+width])
				offsetInStream += width
			}
			if _, ok := refs[uint(objectNumber)]; !ok {
				refs[uint(objectNumber)] = xref
			}
			objectNumber++
		}
	}

	return refs, trailer, nil
}

func bytesToInt(bytesOfInt []byte) uint {
	var value uint
	for _, b := range bytesOfInt {
		value = value<<8 | uint(b)
	}
	return value
}

// Number of bytes required to encode value
func nBytesForInt(value uint) int {
	i := 1
	for i < 8 && value >= (1<<uint(8*i)) {
		i++
	}
	return i
}

func intToBytes(value uint, size int) []byte {
	out := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		out[i] = byte(value)
		value >>= 8
	}
	return out
}

var objectHeader = regexp.MustCompile(`(\d+)[\x00\t\n\f\r ]+(\d+)[\x00\t\n\f\r ]+obj\b`)

// reconstruct rebuilds the cross-reference information by scanning the
// whole file for indirect object headers. It is used when the file's own
// cross-reference data is missing or damaged. Later definitions win, as
// they would in an incrementally updated file.
func (f *File) reconstruct() error {
	refs := map[uint]crossReference{}
	for _, loc := range objectHeader.FindAllSubmatchIndex(f.data, -1) {
		if loc[0] > 0 && !isWhitespace(f.data[loc[0]-1]) && !isDelimiter(f.data[loc[0]-1]) {
			continue
		}
		objectNumber, err1 := strconv.ParseUint(string(f.data[loc[2]:loc[3]]), 10, 0)
		generation, err2 := strconv.ParseUint(string(f.data[loc[4]:loc[5]]), 10, 0)
		if err1 != nil || err2 != nil {
			continue
		}
		refs[uint(objectNumber)] = crossReference{1, uint(loc[0]), uint(generation)}
	}
	if len(refs) == 0 {
		return errgo.New("no objects found")
	}

	trailer := f.recoverTrailer(refs)
	if trailer == nil {
		return errgo.New("no trailer or catalog found")
	}

	return f.applyTrailer(refs, trailer)
}

// recoverTrailer finds the last trailer dictionary, the last cross-reference
// stream dictionary or, failing both, synthesizes one around the catalog.
func (f *File) recoverTrailer(refs map[uint]crossReference) Dictionary {
	if at := bytes.LastIndex(f.data, []byte("trailer")); at != -1 {
		obj, _, err := parseObject(f.data[at+len("trailer"):])
		if dict, ok := obj.(Dictionary); ok && err == nil {
			if _, ok := dict.Reference("Root"); ok {
				return dict
			}
		}
	}

	var (
		catalog      ObjectReference
		catalogAt    uint
		trailer      Dictionary
		trailerAt    uint
		foundCatalog bool
	)
	for objectNumber, xref := range refs {
		obj, _, err := parseIndirectObject(f.data[xref[1]:])
		if err != nil {
			continue
		}
		var dict Dictionary
		switch typed := obj.(IndirectObject).Object.(type) {
		case Dictionary:
			dict = typed
		case Stream:
			dict = typed.Dictionary
		default:
			continue
		}
		switch {
		case dict.HasType("XRef"):
			if _, ok := dict.Reference("Root"); ok && (trailer == nil || xref[1] > trailerAt) {
				trailer = dict.Clone()
				trailerAt = xref[1]
			}
		case dict.HasType("Catalog"):
			if !foundCatalog || xref[1] > catalogAt {
				catalog = ObjectReference{ObjectNumber: objectNumber, GenerationNumber: xref[2]}
				catalogAt = xref[1]
				foundCatalog = true
			}
		}
	}

	if trailer != nil {
		delete(trailer, Name("Prev"))
		delete(trailer, Name("XRefStm"))
		return trailer
	}
	if foundCatalog {
		return Dictionary{Name("Root"): catalog}
	}
	return nil
}
