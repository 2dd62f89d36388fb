package pairs

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// render flattens scanned pairs back to key=value strings, with bare
// keys rendered without '='. Values are shown decoded.
func render(ps []Pair) []string {
	var out []string
	for _, p := range ps {
		if v, ok := p.Value.GetOK(); ok {
			out = append(out, p.Key+"="+v)
		} else {
			out = append(out, p.Key)
		}
	}
	return out
}

func TestScan(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		mode  Mode
		want  []string
		errIs error
	}{
		{name: "empty", in: "", mode: Minimal, want: nil},
		{name: "single", in: "a=1", mode: Minimal, want: []string{"a=1"}},
		{name: "several", in: "a=1&b=2&c=3", mode: Minimal, want: []string{"a=1", "b=2", "c=3"}},
		{name: "bare key", in: "flag", mode: Minimal, want: []string{"flag"}},
		{name: "empty value", in: "a=", mode: Minimal, want: []string{"a="}},
		{name: "mixed bare", in: "a=1&flag&b=2", mode: Minimal, want: []string{"a=1", "flag", "b=2"}},
		{name: "empty segments", in: "a=1&&b=2&", mode: Minimal, want: []string{"a=1", "b=2"}},
		{name: "value keeps equals", in: "a=1=2", mode: Minimal, want: []string{"a=1=2"}},
		{name: "duplicates kept in order", in: "x=2&x=1&x=3", mode: Minimal, want: []string{"x=2", "x=1", "x=3"}},
		{name: "semicolon is not a separator", in: "a=1;b=2", mode: Minimal, want: []string{"a=1;b=2"}},

		{name: "value decoded", in: "a=b+c&d=%26", mode: Minimal, want: []string{"a=b c", "d=&"}},
		{name: "minimal key left raw", in: "a%5Bb%5D=1", mode: Minimal, want: []string{"a%5Bb%5D=1"}},
		{name: "form key decoded once", in: "a%5Bb%5D=1", mode: FormEncoded, want: []string{"a[b]=1"}},
		{name: "form key plus", in: "a+b=1", mode: FormEncoded, want: []string{"a b=1"}},

		{name: "bad value escape", in: "a=%zz", mode: Minimal, errIs: ErrInvalidEncoding},
		{name: "bad form key escape", in: "a%=1", mode: FormEncoded, errIs: ErrInvalidEncoding},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ps, err := Scan(tc.in, tc.mode)
			if tc.errIs != nil {
				if !errors.Is(err, tc.errIs) {
					t.Fatalf("Scan(%q) err = %v, want %v", tc.in, err, tc.errIs)
				}
				return
			}
			if err != nil {
				t.Fatalf("Scan(%q) failed: %v", tc.in, err)
			}
			if diff := cmp.Diff(render(ps), tc.want); diff != "" {
				t.Fatalf("Scan(%q) wrong pairs (-got+want):\n%s", tc.in, diff)
			}
		})
	}
}
