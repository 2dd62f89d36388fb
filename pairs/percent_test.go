package pairs

import (
	"errors"
	"testing"
)

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		in   string
		mode Mode
		want string
	}{
		{"plain", Minimal, "plain"},
		{"a b", Minimal, "a%20b"},
		{"a&b=c", Minimal, "a%26b=c"},
		{"1+1", Minimal, "1%2B1"},
		{"50%", Minimal, "50%25"},
		{"café", Minimal, "caf%C3%A9"},
		{"[x]", Minimal, "[x]"},

		{"plain", FormEncoded, "plain"},
		{"a b", FormEncoded, "a+b"},
		{"a&b=c", FormEncoded, "a%26b%3Dc"},
		{"[x]", FormEncoded, "%5Bx%5D"},
	}
	for _, tc := range tests {
		if got := EscapeValue(tc.in, tc.mode); got != tc.want {
			t.Errorf("EscapeValue(%q, %v) = %q, want %q", tc.in, tc.mode, got, tc.want)
		}
	}
}

func TestEscapeKeyText(t *testing.T) {
	tests := []struct {
		in   string
		mode Mode
		want string
	}{
		{"name", Minimal, "name"},
		{"a b", Minimal, "a%20b"},
		{"[x]", Minimal, "%5Bx%5D"},
		{"k=v", Minimal, "k%3Dv"},
		{"p&q", Minimal, "p%26q"},
		{"50%", Minimal, "50%25"},

		// Spaces stay for the whole-key form pass; everything else
		// matches the Minimal table.
		{"a b", FormEncoded, "a b"},
		{"[x]", FormEncoded, "%5Bx%5D"},
		{"p&q", FormEncoded, "p%26q"},
	}
	for _, tc := range tests {
		if got := EscapeKeyText(tc.in, tc.mode); got != tc.want {
			t.Errorf("EscapeKeyText(%q, %v) = %q, want %q", tc.in, tc.mode, got, tc.want)
		}
	}
}

func TestEscapeKey(t *testing.T) {
	// The whole-key pass leaves Minimal keys alone and form-encodes
	// assembled bracket syntax, producing the double-encoded form for
	// escaped segment text.
	if got := EscapeKey("a[%5Bx%5D]", Minimal); got != "a[%5Bx%5D]" {
		t.Errorf("Minimal EscapeKey = %q", got)
	}
	if got := EscapeKey("a[%5Bx%5D]", FormEncoded); got != "a%5B%255Bx%255D%5D" {
		t.Errorf("FormEncoded EscapeKey = %q", got)
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"plain", "plain", nil},
		{"a+b", "a b", nil},
		{"a%20b", "a b", nil},
		{"%2B", "+", nil},
		{"caf%C3%A9", "café", nil},
		{"%5Bx%5D", "[x]", nil},
		{"100%25", "100%", nil},

		{"%", "", ErrInvalidEncoding},
		{"%4", "", ErrInvalidEncoding},
		{"%zz", "", ErrInvalidEncoding},
		{"ab%G1cd", "", ErrInvalidEncoding},
		{"%FF", "", ErrInvalidUTF8},
		{"ok%C3", "", ErrInvalidUTF8},
	}
	for _, tc := range tests {
		got, err := Unescape(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Unescape(%q) err = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unescape(%q) failed: %v", tc.in, err)
		} else if got != tc.want {
			t.Errorf("Unescape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	inputs := []string{
		"simple",
		"with space",
		"sym&=[]%+#bols",
		"ünïcødé ♥",
	}
	for _, in := range inputs {
		for _, mode := range []Mode{Minimal, FormEncoded} {
			got, err := Unescape(EscapeValue(in, mode))
			if err != nil {
				t.Errorf("round trip of %q under mode %v failed: %v", in, mode, err)
			} else if got != in {
				t.Errorf("round trip of %q under mode %v = %q", in, mode, got)
			}
		}
		got, err := Unescape(EscapeKeyText(in, Minimal))
		if err != nil {
			t.Errorf("key text round trip of %q failed: %v", in, err)
		} else if got != in {
			t.Errorf("key text round trip of %q = %q", in, got)
		}
	}
}
