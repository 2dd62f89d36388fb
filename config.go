package qs

import "github.com/samscott89/serde-qs/pairs"

// A Config carries the tunable knobs of the codec. The zero value is
// a flat-mode, minimally escaping configuration; most callers want
// [DefaultConfig].
type Config struct {
	// MaxDepth bounds key path nesting on both sides of the codec. A
	// key like a[b][c] has depth 3. Zero disables bracket parsing
	// entirely: keys are opaque flat text, brackets and all, and
	// values cannot nest.
	MaxDepth int

	// UseFormEncoding switches to strict
	// application/x-www-form-urlencoded escaping: spaces become '+',
	// every reserved byte is escaped, and the bracket syntax of
	// nested keys is percent-encoded a second time, the way PHP and
	// qs-style frameworks emit it.
	UseFormEncoding bool
}

// DefaultConfig matches the common web framework dialect: nesting up
// to five levels deep, minimal escaping.
var DefaultConfig = Config{MaxDepth: 5}

func (c Config) mode() pairs.Mode {
	if c.UseFormEncoding {
		return pairs.FormEncoded
	}
	return pairs.Minimal
}

// Marshal returns the query string encoding of v under
// [DefaultConfig].
func Marshal(v any) (string, error) { return DefaultConfig.Marshal(v) }

// Unmarshal decodes the query string input into v under
// [DefaultConfig]. v must be a non-nil pointer to a struct, a map, or
// an empty interface.
func Unmarshal(input string, v any) error { return DefaultConfig.Unmarshal(input, v) }

// UnmarshalBytes is Unmarshal for inputs already held as bytes, such
// as an http.Request's raw query.
func UnmarshalBytes(input []byte, v any) error { return DefaultConfig.UnmarshalBytes(input, v) }
