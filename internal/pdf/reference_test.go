package pdf

import (
	"bytes"
	"testing"
)

func TestBytesToInt(t *testing.T) {
	type test struct {
		b []byte
		v uint
	}
	tests := []test{
		{[]byte{0x0, 0x0, 0x0}, 0},
		{[]byte{0x0, 0x0, 0x01}, 1},
		{[]byte{0x0, 0x01, 0x0}, 256},
		{[]byte{0x01, 0x0, 0x0}, 65536},
		{[]byte{0x01, 0x01, 0x0}, 65792},
	}

	for i, test := range tests {
		result := bytesToInt(test.b)
		if result != test.v {
			t.Errorf("%d: expected %v for %#v, got %v", i, test.v, test.b, result)
		}
	}
}

func TestIntToBytes(t *testing.T) {
	for _, v := range []uint{0, 1, 255, 256, 65535, 65792, 1 << 24} {
		n := nBytesForInt(v)
		b := intToBytes(v, n)
		if len(b) != n {
			t.Errorf("%d: expected %d bytes, got %d", v, n, len(b))
		}
		if got := bytesToInt(b); got != v {
			t.Errorf("%d: round trip gave %d", v, got)
		}
	}
}

func TestXrefBlock(t *testing.T) {
	block := []byte("0 3\n0000000000 65535 f\r\n0000000017 00000 n\r\n0000000081 00002 n\r\n")
	refs, n, err := parseXrefBlock(block)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(bytes.TrimRight(block, "\r\n")) {
		t.Errorf("expected to consume %d bytes, consumed %d", len(block)-2, n)
	}

	expected := map[uint]crossReference{
		0: {0, 0, 65535},
		1: {1, 17, 0},
		2: {1, 81, 2},
	}
	for objectNumber, xref := range expected {
		if refs[objectNumber] != xref {
			t.Errorf("object %d: expected %v, got %v", objectNumber, xref, refs[objectNumber])
		}
	}
}

func TestXrefEntriesFreeList(t *testing.T) {
	xrefs := map[uint]crossReference{
		1: {1, 15, 0},
		3: {1, 40, 0},
		5: {1, 90, 0},
	}
	entries := xrefEntries(xrefs, 5)

	expected := []crossReference{
		{0, 2, 65535},
		{1, 15, 0},
		{0, 4, 0},
		{1, 40, 0},
		{0, 0, 0},
		{1, 90, 0},
	}
	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %d", len(expected), len(entries))
	}
	for i := range expected {
		if entries[i] != expected[i] {
			t.Errorf("entry %d: expected %v, got %v", i, expected[i], entries[i])
		}
	}
}

// hybridFile holds a catalog (object 2) in an object stream declaring
// n objects that only the /XRefStm lists.
func hybridFile(n string) []byte {
	objStm := "2 0 <</Type /Catalog /Pages 3 0 R>>"
	var data bytes.Buffer
	data.WriteString("%PDF-1.5\n")

	offsets := map[uint]int{}
	offsets[3] = data.Len()
	data.WriteString("3 0 obj\n<</Type /Pages /Kids [] /Count 0>>\nendobj\n")
	offsets[4] = data.Len()
	data.WriteString("4 0 obj\n<</Type /ObjStm /N " + n + " /First 4 /Length " + itoa(len(objStm)) + ">>\nstream\n" + objStm + "\nendstream\nendobj\n")

	stm := Stream{
		Dictionary: Dictionary{
			"Type": Name("XRef"),
			"Size": Integer(5),
			"W":    Array{Integer(1), Integer(2), Integer(1)},
		},
		Stream: []byte{
			0, 0, 0, 255,
			0, 0, 0, 0,
			2, 0, 4, 0,
			1, 0, byte(offsets[3]), 0,
			1, 0, byte(offsets[4]), 0,
		},
	}
	xrefStmOffset := data.Len()
	IndirectObject{ObjectReference: ObjectReference{ObjectNumber: 5}, Object: stm}.writeTo(&data)

	xrefOffset := data.Len()
	data.WriteString("xref\n0 1\n0000000000 65535 f\r\n3 2\n")
	data.WriteString(pad10(offsets[3]) + " 00000 n\r\n")
	data.WriteString(pad10(offsets[4]) + " 00000 n\r\n")
	data.WriteString("trailer\n<</Size 6 /Root 2 0 R /XRefStm " + itoa(xrefStmOffset) + ">>\nstartxref\n" + itoa(xrefOffset) + "\n%%EOF\n")
	return data.Bytes()
}

func TestHybridReferences(t *testing.T) {
	file, err := Parse(hybridFile("1"))
	if err != nil {
		t.Fatal(err)
	}
	if file.Repaired() {
		t.Error("expected the hybrid cross-reference data to be used")
	}

	catalog, err := file.Get(file.Root)
	if err != nil {
		t.Fatal(err)
	}
	if dict, ok := catalog.(Dictionary); !ok || !dict.HasType("Catalog") {
		t.Errorf("expected the catalog, got %#v", catalog)
	}
}

func TestObjectStreamBounds(t *testing.T) {
	for _, n := range []string{"1000000000000", "9"} {
		if _, err := Parse(hybridFile(n)); err == nil {
			t.Errorf("/N %s: expected an error", n)
		}
	}
}

func itoa(i int) string {
	return formatReal(float64(i))
}

func pad10(i int) string {
	s := itoa(i)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
