package pdf

import (
	"bytes"
	"encoding/ascii85"
	"testing"

	"github.com/juju/errgo"
)

func TestDecodeFilters(t *testing.T) {
	plain := []byte("q 1 0 0 1 0 0 cm /Spread0 Do Q")
	flated, err := EncodeFlate(plain)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		stream Stream
	}{
		{"none", Stream{Dictionary{}, plain}},
		{"flate", Stream{Dictionary{"Filter": Name("FlateDecode")}, flated}},
		{"flate abbreviated", Stream{Dictionary{"Filter": Name("Fl")}, flated}},
		{"flate array", Stream{Dictionary{"Filter": Array{Name("FlateDecode")}}, flated}},
		{"hex", Stream{Dictionary{"Filter": Name("ASCIIHexDecode")}, []byte("71 2031 2030 2030 2031 2030 2030 20636d202f5370726561643020446f2051>")}},
		{"ascii85 then flate", Stream{
			Dictionary{"Filter": Array{Name("ASCII85Decode"), Name("FlateDecode")}},
			encodeASCII85(flated),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := tt.stream.Decode()
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(decoded, plain) {
				t.Errorf("expected %q, got %q", plain, decoded)
			}
		})
	}
}

func TestDecodeUnsupported(t *testing.T) {
	stream := Stream{Dictionary{"Filter": Name("JBIG2Decode")}, []byte{1, 2, 3}}
	_, err := stream.Decode()
	if err == nil {
		t.Fatal("expected an error")
	}
	if errgo.Cause(err) != ErrUnsupportedFilter {
		t.Errorf("expected ErrUnsupportedFilter as the cause, got %v", errgo.Cause(err))
	}
}

func TestPNGPredictor(t *testing.T) {
	// two rows of three bytes, Sub then Up
	predicted := []byte{
		1, 10, 5, 5,
		2, 1, 1, 1,
	}
	decoded, err := unpredict(predicted, Dictionary{
		"Predictor": Integer(12),
		"Columns":   Integer(3),
	})
	if err != nil {
		t.Fatal(err)
	}
	expected := []byte{10, 15, 20, 11, 16, 21}
	if !bytes.Equal(decoded, expected) {
		t.Errorf("expected %v, got %v", expected, decoded)
	}
}

func TestPredictorBounds(t *testing.T) {
	data := []byte{2, 1, 1, 1, 2, 1, 1, 1}
	tests := map[string]Dictionary{
		"huge columns":   {"Predictor": Integer(12), "Columns": Integer(1 << 40)},
		"row past data":  {"Predictor": Integer(12), "Columns": Integer(9)},
		"tiff overflow":  {"Predictor": Integer(2), "Colors": Integer(3), "Columns": Integer(1 << 60)},
		"too many color": {"Predictor": Integer(12), "Colors": Integer(1 << 40)},
	}
	for name, parms := range tests {
		if _, err := unpredict(data, parms); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestFlateStream(t *testing.T) {
	stream, err := NewFlateStream(nil, []byte("0 0 1 rg"))
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := stream.Dictionary.Name("Filter"); name != "FlateDecode" {
		t.Errorf("expected /FlateDecode, got %v", name)
	}
	decoded, err := stream.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "0 0 1 rg" {
		t.Errorf("unexpected round trip %q", decoded)
	}
}

func encodeASCII85(data []byte) []byte {
	var buf bytes.Buffer
	w := ascii85.NewEncoder(&buf)
	w.Write(data)
	w.Close()
	buf.WriteString("~>")
	return buf.Bytes()
}
