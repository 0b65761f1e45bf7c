package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParameterEquality(t *testing.T) {
	a := List{Params: []Parameter{
		String{Text: "'x'"},
		Integer{Text: "+-1"},
		Typed{TypeName: "LENGTH_MEASURE", Param: Real{Text: "3.0"}},
		EmptyList{},
		Omitted{},
		Unset{},
	}}
	b := List{Params: []Parameter{
		String{Text: "'x'"},
		Integer{Text: "+-1"},
		Typed{TypeName: "LENGTH_MEASURE", Param: Real{Text: "3.0"}},
		EmptyList{},
		Omitted{},
		Unset{},
	}}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("identical parameter lists compared unequal (-a +b):\n%s", diff)
	}

	c := b
	c.Params[1] = Integer{Text: "1"}
	if diff := cmp.Diff(a, c); diff == "" {
		t.Error("differing parameter lists compared equal")
	}
}

func TestHeaderStructure(t *testing.T) {
	h := Header{
		FileDescription: HeaderEntity{TypeName: "FILE_DESCRIPTION", Params: []Parameter{List{Params: []Parameter{String{Text: "'desc'"}}}, String{Text: "'2;1'"}}},
		FileName:        HeaderEntity{TypeName: "FILE_NAME"},
		FileSchema:      HeaderEntity{TypeName: "FILE_SCHEMA"},
	}
	if h.FileDescription.TypeName != "FILE_DESCRIPTION" {
		t.Fatalf("got %q, want FILE_DESCRIPTION", h.FileDescription.TypeName)
	}
	if len(h.ExtraHeaders) != 0 {
		t.Fatalf("got %d extra headers, want 0", len(h.ExtraHeaders))
	}
}
