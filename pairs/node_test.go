package pairs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// shape converts a tree into plain maps, slices and strings for
// comparison. Bare-key leaves come out as nil.
func shape(n *Node) any {
	switch n.Kind() {
	case ScalarNode:
		v, ok := n.Scalar().GetOK()
		if !ok {
			return nil
		}
		return v
	case SeqNode:
		out := make([]any, n.Len())
		for i := range out {
			out[i] = shape(n.At(i))
		}
		return out
	default:
		out := map[string]any{}
		for _, k := range n.Keys() {
			c, _ := n.Get(k)
			out[k] = shape(c)
		}
		return out
	}
}

func mustScan(t *testing.T, in string) []Pair {
	t.Helper()
	ps, err := Scan(in, Minimal)
	if err != nil {
		t.Fatalf("Scan(%q) failed: %v", in, err)
	}
	return ps
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxDepth int
		want     any
		errIs    error
	}{
		{
			name: "empty", in: "", maxDepth: 5,
			want: map[string]any{},
		},
		{
			name: "flat scalars", in: "a=1&b=2", maxDepth: 5,
			want: map[string]any{"a": "1", "b": "2"},
		},
		{
			name: "bare key", in: "flag", maxDepth: 5,
			want: map[string]any{"flag": nil},
		},
		{
			name: "nested maps", in: "a[b]=1&a[c]=2", maxDepth: 5,
			want: map[string]any{"a": map[string]any{"b": "1", "c": "2"}},
		},
		{
			name: "indexed sequence", in: "s[0]=a&s[1]=b", maxDepth: 5,
			want: map[string]any{"s": []any{"a", "b"}},
		},
		{
			name: "append sequence", in: "s[]=a&s[]=b", maxDepth: 5,
			want: map[string]any{"s": []any{"a", "b"}},
		},
		{
			name: "out of order indices keep insertion order", in: "s[1]=b&s[0]=a", maxDepth: 5,
			want: map[string]any{"s": []any{"b", "a"}},
		},
		{
			name: "sparse indices", in: "s[5]=a&s[100]=b", maxDepth: 5,
			want: map[string]any{"s": []any{"a", "b"}},
		},
		{
			name: "index reused addresses same slot", in: "s[0][a]=1&s[0][b]=2", maxDepth: 5,
			want: map[string]any{"s": []any{map[string]any{"a": "1", "b": "2"}}},
		},
		{
			name: "repeated key promotes", in: "x=1&x=2&x=3", maxDepth: 5,
			want: map[string]any{"x": []any{"1", "2", "3"}},
		},
		{
			name: "repeated nested key promotes", in: "a[b]=1&a[b]=2", maxDepth: 5,
			want: map[string]any{"a": map[string]any{"b": []any{"1", "2"}}},
		},
		{
			name: "deep mix", in: "q[f][tags][0]=a&q[f][tags][1]=b&q[city]=oslo", maxDepth: 5,
			want: map[string]any{"q": map[string]any{
				"f":    map[string]any{"tags": []any{"a", "b"}},
				"city": "oslo",
			}},
		},
		{
			name: "flat mode", in: "a[b]=1&a[c]=2", maxDepth: 0,
			want: map[string]any{"a[b]": "1", "a[c]": "2"},
		},

		{name: "scalar then container", in: "a=1&a[b]=2", maxDepth: 5, errIs: ErrPathConflict},
		{name: "container then scalar", in: "a[b]=1&a=2", maxDepth: 5, errIs: ErrPathConflict},
		{name: "map then sequence", in: "a[b]=1&a[0]=2", maxDepth: 5, errIs: ErrPathConflict},
		{name: "repeat into indexed sequence", in: "a[0]=1&a=2", maxDepth: 5, errIs: ErrPathConflict},
		{name: "too deep", in: "a[b][c][d]=1", maxDepth: 3, errIs: ErrMaxDepthExceeded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root, err := Build(mustScan(t, tc.in), tc.maxDepth)
			if tc.errIs != nil {
				if !errors.Is(err, tc.errIs) {
					t.Fatalf("Build err = %v, want %v", err, tc.errIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if diff := cmp.Diff(shape(root), tc.want); diff != "" {
				t.Fatalf("wrong tree (-got+want):\n%s", diff)
			}
		})
	}
}

func TestBuildKeyOrder(t *testing.T) {
	root, err := Build(mustScan(t, "b=1&a=2&c=3"), 5)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "a", "c"}
	if diff := cmp.Diff(root.Keys(), want); diff != "" {
		t.Fatalf("wrong key order (-got+want):\n%s", diff)
	}
}
