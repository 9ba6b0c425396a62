package pdf

import (
	"reflect"
	"testing"
)

func TestContentBuilder(t *testing.T) {
	data, err := NewContent().
		Save().
		Concat(1, 0, 0, 1, 67, 165.90575).
		Concat(0.5, 0, 0, 0.25, 0, 0).
		Do("Spread0").
		Restore().
		Bytes()
	if err != nil {
		t.Fatal(err)
	}

	expected := "q\n1 0 0 1 67 165.90575 cm\n0.5 0 0 0.25 0 0 cm\n/Spread0 Do\nQ\n"
	if string(data) != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, data)
	}
}

func TestContentBuilderRejectsNaN(t *testing.T) {
	zero := 0.0
	_, err := NewContent().Concat(zero/zero, 0, 0, 1, 0, 0).Bytes()
	if err == nil {
		t.Error("expected an error for a NaN operand")
	}
}

func TestParseContent(t *testing.T) {
	data := []byte(`q 1 0 0 1 -10 .5 cm
/Im0 Do % draw it
BI /W 2 /H 1 /BPC 8 /CS /G ID ab EI
BT /F1 12 Tf (Hi) Tj ET
[1 2] 0 d
Q`)

	ops, err := ParseContent(data)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Operation{
		{"q", []Object{}},
		{"cm", []Object{Integer(1), Integer(0), Integer(0), Integer(1), Integer(-10), Real(.5)}},
		{"Do", []Object{Name("Im0")}},
		{"BI", nil},
		{"BT", []Object{}},
		{"Tf", []Object{Name("F1"), Integer(12)}},
		{"Tj", []Object{String("Hi")}},
		{"ET", []Object{}},
		{"d", []Object{Array{Integer(1), Integer(2)}, Integer(0)}},
		{"Q", []Object{}},
	}
	if !reflect.DeepEqual(ops, expected) {
		t.Errorf("expected:\n%#v\ngot:\n%#v", expected, ops)
	}
}

func TestParseContentErrors(t *testing.T) {
	for _, literal := range []string{
		"1 0 0",
		"BI /W 1 ID abc",
		"(unterminated Tj",
	} {
		if _, err := ParseContent([]byte(literal)); err == nil {
			t.Errorf("%q: expected an error", literal)
		}
	}
}
