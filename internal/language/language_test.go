package language

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseQuerySyntaxError(t *testing.T) {
	_, err := ParseQuery("syntaxerror")
	if err == nil {
		t.Fatal("expected syntax error")
	}
	list := AsErrorList(err)
	if len(list) != 1 {
		t.Fatalf("expected one error, got %d", len(list))
	}
	want := []Location{{Line: 1, Column: 1}}
	if diff := cmp.Diff(want, list[0].Locations); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateUnknownFields(t *testing.T) {
	ts, err := LoadSchema("test.graphql", `type Query { test: String }`)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	doc, err := ParseQuery("{ test, unknownOne, unknownTwo }")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	errs := Validate(ts, doc)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	got := [][]Location{errs[0].Locations, errs[1].Locations}
	want := [][]Location{{{Line: 1, Column: 9}}, {{Line: 1, Column: 21}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSchemaError(t *testing.T) {
	if _, err := LoadSchema("bad.graphql", `type Query { a: Missing }`); err == nil {
		t.Fatal("expected error for undefined type")
	}
}
