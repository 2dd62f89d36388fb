package pairs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Mode selects the percent-encoding profile used when rendering
// pairs.
type Mode int

const (
	// Minimal escapes the WHATWG query percent-encode set (control
	// bytes, space, '"', '#', '<', '>' and all non-ASCII bytes) plus
	// the characters that are structural in this format: '%', '&',
	// '+', and within key text '=', '[' and ']'. The brackets that
	// form the key syntax itself pass through unescaped.
	Minimal Mode = iota

	// FormEncoded escapes the application/x-www-form-urlencoded set.
	// Space becomes '+' and brackets are percent-encoded, including
	// the brackets of the key syntax itself.
	FormEncoded
)

var (
	// ErrInvalidEncoding reports a malformed percent escape.
	ErrInvalidEncoding = errors.New("invalid percent encoding")
	// ErrInvalidUTF8 reports that decoded text is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
	// ErrInvalidNumber reports malformed numeric text.
	ErrInvalidNumber = errors.New("invalid number")
)

const upperhex = "0123456789ABCDEF"

// escapeValue and escapeKey are the Minimal-mode escape tables.
// escapeKey additionally covers '=', '[' and ']' so that literal
// occurrences in key text cannot be confused with key syntax.
// escapeKeyForm is the key-text table for FormEncoded keys: it leaves
// the space alone so that the whole-key pass can render it as '+'
// rather than a double-encoded %2520.
var (
	escapeValue   = makeEscapeTable(` "#<>%&+`)
	escapeKey     = makeEscapeTable(` "#<>%&+=[]`)
	escapeKeyForm = makeEscapeTable(`"#<>%&+=[]`)
)

func makeEscapeTable(extra string) (t [256]bool) {
	for i := 0; i < 0x20; i++ {
		t[i] = true
	}
	for i := 0x7f; i < 0x100; i++ {
		t[i] = true
	}
	for i := 0; i < len(extra); i++ {
		t[extra[i]] = true
	}
	return t
}

func escapeWith(s string, table *[256]bool) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if table[s[i]] {
			n++
		}
	}
	if n == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if table[c] {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// EscapeValue renders a leaf value under the given mode.
func EscapeValue(s string, mode Mode) string {
	if mode == FormEncoded {
		return url.QueryEscape(s)
	}
	return escapeWith(s, &escapeValue)
}

// EscapeKeyText renders the text content of one key segment.
// FormEncoded keys are escaped a second time by [EscapeKey] after the
// bracket syntax is assembled, which is why a form-encoded nested key
// containing brackets comes out doubly percent-encoded; spaces are
// left for that outer pass, which renders them as '+'.
func EscapeKeyText(s string, mode Mode) string {
	if mode == FormEncoded {
		return escapeWith(s, &escapeKeyForm)
	}
	return escapeWith(s, &escapeKey)
}

// EscapeKey applies the whole-key pass for the given mode to an
// assembled bracket-notation key.
func EscapeKey(s string, mode Mode) string {
	if mode == FormEncoded {
		return url.QueryEscape(s)
	}
	return s
}

// Unescape decodes percent escapes and '+' in s. '+' always decodes
// to a space; both escape profiles encode literal '+' as %2B, so the
// mapping is unambiguous. The result must be valid UTF-8.
func Unescape(s string) (string, error) {
	if !strings.ContainsAny(s, "%+") {
		if !utf8.ValidString(s) {
			return "", fmt.Errorf("%w in %q", ErrInvalidUTF8, s)
		}
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 >= len(s) {
				return "", fmt.Errorf("%w: truncated escape in %q", ErrInvalidEncoding, s)
			}
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if !ok1 || !ok2 {
				return "", fmt.Errorf("%w: bad escape %q", ErrInvalidEncoding, s[i:i+3])
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	out := b.String()
	if !utf8.ValidString(out) {
		return "", fmt.Errorf("%w after decoding %q", ErrInvalidUTF8, s)
	}
	return out, nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
