package jsonutil

import (
	"bytes"
	"testing"
)

func TestEncodePrettyIndents(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePretty(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestCompactKeepsAngleBrackets(t *testing.T) {
	got, err := Compact([]string{"<5 copies>"})
	if err != nil {
		t.Fatal(err)
	}
	if got != `["<5 copies>"]` {
		t.Fatalf("got %q", got)
	}
}
