package qs

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStream(t *testing.T) {
	in := Wrapper{Filters{Min: 3, Tags: []string{"a", "b"}}}
	want := "f[min]=3&f[tags][0]=a&f[tags][1]=b"

	var buf strings.Builder
	if err := NewEncoder(&buf).Encode(in); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := buf.String(); got != want {
		t.Fatalf("Encode = %q, want %q", got, want)
	}

	var out Wrapper
	if err := NewDecoder(strings.NewReader(buf.String())).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff(out, in); diff != "" {
		t.Fatalf("round trip mismatch (-got+want):\n%s", diff)
	}
}

func TestStreamConfig(t *testing.T) {
	conf := Config{MaxDepth: 5, UseFormEncoding: true}

	var buf strings.Builder
	if err := conf.NewEncoder(&buf).Encode(Text{"a b"}); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "q=a+b"; got != want {
		t.Fatalf("Encode = %q, want %q", got, want)
	}

	var out Text
	if err := conf.NewDecoder(strings.NewReader(buf.String())).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Q != "a b" {
		t.Fatalf("Decode = %q, want %q", out.Q, "a b")
	}
}
