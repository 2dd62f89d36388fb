package qs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnmarshalSemantics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		into any
		want any
	}{
		{
			name: "bare bool is true",
			in:   "B",
			into: &Simple{},
			want: &Simple{B: true},
		},
		{
			name: "empty bool is true",
			in:   "B=",
			into: &Simple{},
			want: &Simple{B: true},
		},
		{
			name: "numeric bool",
			in:   "B=1",
			into: &Simple{},
			want: &Simple{B: true},
		},
		{
			name: "false bool",
			in:   "B=0",
			into: &Simple{B: true},
			want: &Simple{},
		},
		{
			name: "last write wins",
			in:   "A=1&A=2",
			into: &Simple{},
			want: &Simple{A: 2},
		},
		{
			name: "scalar widens to slice",
			in:   "tags=solo",
			into: &Lists{},
			want: &Lists{Tags: []string{"solo"}},
		},
		{
			name: "unknown keys ignored",
			in:   "A=7&nope=1&other[x]=2",
			into: &Simple{},
			want: &Simple{A: 7},
		},
		{
			name: "partial decode keeps preset fields",
			in:   "A=7",
			into: &Simple{A: 1, B: true},
			want: &Simple{A: 7, B: true},
		},
		{
			name: "map merges into existing entries",
			in:   "b=2",
			into: &map[string]int{"a": 1},
			want: &map[string]int{"a": 1, "b": 2},
		},
		{
			name: "array from scalar",
			in:   "X=5",
			into: &struct{ X [1]int }{},
			want: &struct{ X [1]int }{X: [1]int{5}},
		},
		{
			name: "array exact length",
			in:   "X[0]=1&X[1]=2",
			into: &struct{ X [2]int }{},
			want: &struct{ X [2]int }{X: [2]int{1, 2}},
		},
		{
			name: "any target",
			in:   "a[b]=1&c=2&d",
			into: &map[string]any{},
			want: &map[string]any{
				"a": map[string]any{"b": "1"},
				"c": "2",
				"d": nil,
			},
		},
		{
			name: "interface field",
			in:   "V[x]=1",
			into: &struct {
				V any `qs:"V"`
			}{},
			want: &struct {
				V any `qs:"V"`
			}{V: map[string]any{"x": "1"}},
		},
		{
			name: "repeated keys into any",
			in:   "x=1&x=2",
			into: &map[string]any{},
			want: &map[string]any{"x": []any{"1", "2"}},
		},
		{
			name: "union replaces previous variant",
			in:   "c[Green]",
			into: &Paint{Color{Red: &struct{}{}}},
			want: &Paint{Color{Green: &struct{}{}}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := Unmarshal(tc.in, tc.into); err != nil {
				t.Fatalf("Unmarshal(%q) failed: %v", tc.in, err)
			}
			if diff := cmp.Diff(tc.into, tc.want); diff != "" {
				t.Fatalf("Unmarshal(%q) wrong result (-got+want):\n%s", tc.in, diff)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		into  any
		errIs error
	}{
		{name: "nil target", in: "a=1", into: nil},
		{name: "non-pointer target", in: "a=1", into: Simple{}},
		{name: "nil pointer target", in: "a=1", into: (*Simple)(nil)},
		{name: "scalar target", in: "a=1", into: new(int)},

		{name: "bad int", in: "A=x", into: &Simple{}, errIs: ErrInvalidNumber},
		{name: "empty int", in: "A=", into: &Simple{}, errIs: ErrInvalidNumber},
		{name: "bad map key", in: "x=1", into: &map[int]int{}, errIs: ErrInvalidNumber},
		{name: "overflow uint8", in: "A=300", into: &Nested{}, errIs: ErrInvalidNumber},

		{name: "bad bool", in: "B=maybe", into: &Simple{}, errIs: ErrTypeMismatch},
		{name: "container into scalar", in: "A[b]=1", into: &Simple{}, errIs: ErrTypeMismatch},
		{name: "array too short", in: "X[0]=1", into: &struct{ X [2]int }{}, errIs: ErrTypeMismatch},
		{name: "array too long", in: "X[0]=1&X[1]=2&X[2]=3", into: &struct{ X [2]int }{}, errIs: ErrTypeMismatch},
		{name: "two union variants", in: "c[Red]&c[Green]", into: &Paint{}, errIs: ErrTypeMismatch},
		{name: "unit variant with payload", in: "c[Red]=1", into: &Paint{}, errIs: ErrTypeMismatch},

		{name: "unknown variant", in: "c[Blue]=1", into: &Paint{}, errIs: ErrUnknownVariant},

		{name: "scalar then container", in: "a=1&a[b]=2", into: &map[string]any{}, errIs: ErrPathConflict},
		{name: "too deep", in: "a[b][c][d][e][f]=1", into: &map[string]any{}, errIs: ErrMaxDepthExceeded},
		{name: "malformed key", in: "a[=1", into: &map[string]any{}, errIs: ErrMalformedKey},
		{name: "bad escape", in: "a=%zz", into: &map[string]string{}, errIs: ErrInvalidEncoding},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Unmarshal(tc.in, tc.into)
			if err == nil {
				t.Fatalf("Unmarshal(%q) succeeded, wanted error", tc.in)
			}
			if tc.errIs != nil && !errors.Is(err, tc.errIs) {
				t.Fatalf("Unmarshal(%q) err = %v, want %v", tc.in, err, tc.errIs)
			}
		})
	}
}
