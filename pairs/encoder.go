package pairs

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/creachadair/mds/value"
)

// An EncoderFunc writes a value to the given encoder.
type EncoderFunc func(e *Encoder, val reflect.Value) error

// A DecoderFunc reads the given tree node into val.
type DecoderFunc func(n *Node, val reflect.Value) error

// An Encoder accumulates the ordered pair sequence produced by a
// depth-first walk of a typed value.
//
// The encoder tracks its position as a stack of path segments and
// renders a textual key only at the moment a leaf is written: a
// caller descending into a value cannot know yet whether a scalar or
// a container will come out the other side.
//
// Pair keys accumulate with their segment text escaped and their
// bracket syntax bare; values stay unescaped. String applies the
// remaining mode-dependent escaping, which keeps Pairs symmetric
// with what Scan produces on the way in.
type Encoder struct {
	// Mode is the escape profile used by String.
	Mode Mode
	// MaxDepth bounds the key path length, symmetric with ParsePath.
	// Zero permits flat keys only.
	MaxDepth int

	path  Path
	pairs []Pair
}

func (e *Encoder) push(seg Segment) error {
	limit := e.MaxDepth
	if limit == 0 {
		limit = 1
	}
	if len(e.path)+1 > limit {
		return fmt.Errorf("%w: key %q nests deeper than %d", ErrMaxDepthExceeded, e.path.String(), limit)
	}
	e.path = append(e.path, seg)
	return nil
}

// PushKey descends into the map entry or struct field named key.
func (e *Encoder) PushKey(key string) error {
	return e.push(Segment{Kind: MapKey, Key: key})
}

// PushIndex descends into sequence element i.
func (e *Encoder) PushIndex(i int) error {
	return e.push(Segment{Kind: Index, N: i})
}

// Pop ascends one path level.
func (e *Encoder) Pop() {
	e.path = e.path[:len(e.path)-1]
}

// Leaf emits one key=value pair at the current path.
func (e *Encoder) Leaf(val string) error {
	key, err := e.renderKey()
	if err != nil {
		return err
	}
	e.pairs = append(e.pairs, Pair{Key: key, Value: value.Just(val)})
	return nil
}

// Null emits one bare-key pair (no '=') at the current path.
func (e *Encoder) Null() error {
	key, err := e.renderKey()
	if err != nil {
		return err
	}
	e.pairs = append(e.pairs, Pair{Key: key, Value: value.Absent[string]()})
	return nil
}

func (e *Encoder) renderKey() (string, error) {
	if len(e.path) == 0 {
		return "", fmt.Errorf("leaf value written before any key")
	}
	var b strings.Builder
	b.WriteString(EscapeKeyText(e.path[0].Key, e.Mode))
	for _, seg := range e.path[1:] {
		b.WriteByte('[')
		switch seg.Kind {
		case Index:
			b.WriteString(strconv.Itoa(seg.N))
		case MapKey:
			b.WriteString(EscapeKeyText(seg.Key, e.Mode))
		}
		b.WriteByte(']')
	}
	return b.String(), nil
}

// Pairs returns the pairs emitted so far, in emission order.
func (e *Encoder) Pairs() []Pair { return e.pairs }

// String renders the emitted pairs as one query string under the
// encoder's mode.
func (e *Encoder) String() string {
	var b strings.Builder
	for i, p := range e.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EscapeKey(p.Key, e.Mode))
		if v, ok := p.Value.GetOK(); ok {
			b.WriteByte('=')
			b.WriteString(EscapeValue(v, e.Mode))
		}
	}
	return b.String()
}
