package pairs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedKey reports mismatched brackets in a key.
	ErrMalformedKey = errors.New("malformed key")
	// ErrMaxDepthExceeded reports a key path nested deeper than the
	// configured maximum. Both the parser and the encoder apply the
	// same limit so the format stays symmetric.
	ErrMaxDepthExceeded = errors.New("maximum nesting depth exceeded")
)

// A SegmentKind identifies one of the three key path segment forms.
type SegmentKind int

const (
	MapKey SegmentKind = iota // [name], or the leading identifier
	Index                     // [0], [1], ...
	Append                    // [], the next-sequence-slot marker
)

// A Segment is one step of a key path.
type Segment struct {
	Kind SegmentKind
	Key  string // set for MapKey
	N    int    // set for Index
}

func (s Segment) String() string {
	switch s.Kind {
	case Index:
		return strconv.Itoa(s.N)
	case Append:
		return ""
	default:
		return s.Key
	}
}

// A Path is a parsed bracket-notation key: a leading map key followed
// by zero or more bracket segments. Its length is the nesting depth.
type Path []Segment

func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p[0].String())
	for _, seg := range p[1:] {
		b.WriteByte('[')
		b.WriteString(seg.String())
		b.WriteByte(']')
	}
	return b.String()
}

// ParsePath parses a key into its path segments.
//
// The grammar is a leading identifier (everything up to the first
// '[', possibly empty) followed by bracket groups. Group content that
// is empty parses as Append, all-decimal content as Index, and
// anything else as MapKey. Mismatched brackets, or trailing text
// after a closing bracket, are ErrMalformedKey.
//
// Splitting happens before percent-decoding: the identifier and each
// group's content are unescaped individually, so a literal bracket in
// key text (arriving as %5B or %5D) can never be mistaken for key
// syntax. Index classification looks at the decoded content.
//
// maxDepth == 0 disables bracket parsing entirely: the whole key is a
// single map segment, brackets and all. Otherwise a path longer than
// maxDepth fails with ErrMaxDepthExceeded.
func ParsePath(key string, maxDepth int) (Path, error) {
	if maxDepth == 0 {
		k, err := Unescape(key)
		if err != nil {
			return nil, err
		}
		return Path{{Kind: MapKey, Key: k}}, nil
	}
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.IndexByte(key, ']') >= 0 {
			return nil, fmt.Errorf("%w: unmatched ']' in %q", ErrMalformedKey, key)
		}
		k, err := Unescape(key)
		if err != nil {
			return nil, err
		}
		return Path{{Kind: MapKey, Key: k}}, nil
	}

	if strings.IndexByte(key[:open], ']') >= 0 {
		return nil, fmt.Errorf("%w: unmatched ']' in %q", ErrMalformedKey, key)
	}
	ident, err := Unescape(key[:open])
	if err != nil {
		return nil, err
	}
	path := Path{{Kind: MapKey, Key: ident}}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return nil, fmt.Errorf("%w: unexpected %q after bracket group in %q", ErrMalformedKey, rest[0], key)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("%w: unmatched '[' in %q", ErrMalformedKey, key)
		}
		seg, err := parseSegment(rest[1:end])
		if err != nil {
			return nil, err
		}
		path = append(path, seg)
		rest = rest[end+1:]
	}
	if len(path) > maxDepth {
		return nil, fmt.Errorf("%w: key %q has depth %d, limit is %d", ErrMaxDepthExceeded, key, len(path), maxDepth)
	}
	return path, nil
}

func parseSegment(content string) (Segment, error) {
	if content == "" {
		return Segment{Kind: Append}, nil
	}
	decoded, err := Unescape(content)
	if err != nil {
		return Segment{}, err
	}
	if n, err := strconv.ParseUint(decoded, 10, 31); err == nil {
		return Segment{Kind: Index, N: int(n)}, nil
	}
	return Segment{Kind: MapKey, Key: decoded}, nil
}
