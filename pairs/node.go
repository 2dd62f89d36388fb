package pairs

import (
	"errors"
	"fmt"

	"github.com/creachadair/mds/value"
)

// ErrPathConflict reports that one path was used both as a scalar
// and as a container.
var ErrPathConflict = errors.New("conflicting types for one key path")

// A NodeKind identifies the shape of a tree node.
type NodeKind int

const (
	ScalarNode NodeKind = iota
	SeqNode
	MapNode
)

func (k NodeKind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case SeqNode:
		return "sequence"
	default:
		return "map"
	}
}

// A Node is one level of the untyped value tree built from scanned
// pairs. Leaves hold decoded text; how that text is typed is decided
// later by whoever walks the tree. Map entries preserve insertion
// order and sequence elements preserve the order their pairs appeared
// in the input.
type Node struct {
	kind   NodeKind
	scalar value.Maybe[string]

	elems []*Node
	// indices holds the source bracket index of each element, or -1
	// for elements that came from '[]' or repeated keys. An explicit
	// index acts as a lookup key, not a position: elements stay in
	// insertion order no matter what indices say.
	indices []int

	keys     []string
	children map[string]*Node

	// multi marks a sequence that grew out of a repeated flat key, as
	// opposed to explicit bracket indices. Only multi sequences accept
	// further repeats of the same key.
	multi bool
}

// Kind reports the node's shape.
func (n *Node) Kind() NodeKind { return n.kind }

// Scalar returns the leaf text of a scalar node. An absent value
// means the key was present with no '='.
func (n *Node) Scalar() value.Maybe[string] { return n.scalar }

// Len reports the number of elements of a sequence node.
func (n *Node) Len() int { return len(n.elems) }

// At returns the i'th element of a sequence node, in stored order.
func (n *Node) At(i int) *Node { return n.elems[i] }

// Keys returns the entry keys of a map node, in insertion order.
// The returned slice is shared with the node and must not be
// modified.
func (n *Node) Keys() []string { return n.keys }

// Get returns the entry for key in a map node.
func (n *Node) Get(key string) (*Node, bool) {
	c, ok := n.children[key]
	return c, ok
}

func newScalar(val value.Maybe[string]) *Node {
	return &Node{kind: ScalarNode, scalar: val}
}

// ScalarOf returns a scalar node holding text. Readers that split one
// leaf into several logical values use it to feed the pieces back
// through an element decoder.
func ScalarOf(text string) *Node { return newScalar(value.Just(text)) }

func newSeq() *Node { return &Node{kind: SeqNode} }

func newMap() *Node {
	return &Node{kind: MapNode, children: make(map[string]*Node)}
}

// Build folds the scanned pairs, in order, into a value tree rooted
// at a map. Keys are parsed with ParsePath under maxDepth.
func Build(ps []Pair, maxDepth int) (*Node, error) {
	root := newMap()
	for _, p := range ps {
		path, err := ParsePath(p.Key, maxDepth)
		if err != nil {
			return nil, err
		}
		if err := root.insert(path, p.Value); err != nil {
			return nil, fmt.Errorf("key %q: %w", p.Key, err)
		}
	}
	return root, nil
}

func (n *Node) insert(path Path, val value.Maybe[string]) error {
	node := n
	for i, seg := range path {
		if i == len(path)-1 {
			return node.insertLeaf(seg, val)
		}
		child, err := node.container(seg, path[i+1])
		if err != nil {
			return err
		}
		node = child
	}
	return nil
}

// container resolves the child slot named by seg, creating it as a
// map or sequence according to the segment that follows.
func (n *Node) container(seg, next Segment) (*Node, error) {
	mk := newMap
	if next.Kind != MapKey {
		mk = newSeq
	}
	switch seg.Kind {
	case MapKey:
		if n.kind != MapNode {
			return nil, fmt.Errorf("%w: %s used as map", ErrPathConflict, n.kind)
		}
		child, ok := n.children[seg.Key]
		if !ok {
			child = mk()
			n.put(seg.Key, child)
		}
		return child, nil

	case Index:
		if n.kind != SeqNode || n.multi {
			return nil, fmt.Errorf("%w: %s used as sequence", ErrPathConflict, n.kind)
		}
		if child := n.lookup(seg.N); child != nil {
			return child, nil
		}
		child := mk()
		n.append(child, seg.N)
		return child, nil

	default: // Append
		if n.kind != SeqNode || n.multi {
			return nil, fmt.Errorf("%w: %s used as sequence", ErrPathConflict, n.kind)
		}
		child := mk()
		n.append(child, -1)
		return child, nil
	}
}

func (n *Node) insertLeaf(seg Segment, val value.Maybe[string]) error {
	switch seg.Kind {
	case MapKey:
		if n.kind != MapNode {
			return fmt.Errorf("%w: %s used as map", ErrPathConflict, n.kind)
		}
		child, ok := n.children[seg.Key]
		if !ok {
			n.put(seg.Key, newScalar(val))
			return nil
		}
		return child.addValue(val)

	case Index:
		if n.kind != SeqNode || n.multi {
			return fmt.Errorf("%w: %s used as sequence", ErrPathConflict, n.kind)
		}
		if child := n.lookup(seg.N); child != nil {
			return child.addValue(val)
		}
		n.append(newScalar(val), seg.N)
		return nil

	default: // Append
		if n.kind != SeqNode || n.multi {
			return fmt.Errorf("%w: %s used as sequence", ErrPathConflict, n.kind)
		}
		n.append(newScalar(val), -1)
		return nil
	}
}

// addValue handles a repeated terminal key. A scalar slot silently
// becomes a two-element multi-value sequence; a slot that is already
// a container rejects the scalar.
func (n *Node) addValue(val value.Maybe[string]) error {
	switch {
	case n.kind == ScalarNode:
		first := newScalar(n.scalar)
		*n = Node{kind: SeqNode, multi: true, elems: []*Node{first, newScalar(val)}, indices: []int{-1, -1}}
		return nil
	case n.kind == SeqNode && n.multi:
		n.append(newScalar(val), -1)
		return nil
	default:
		return fmt.Errorf("%w: scalar value for existing %s", ErrPathConflict, n.kind)
	}
}

func (n *Node) put(key string, child *Node) {
	n.keys = append(n.keys, key)
	n.children[key] = child
}

func (n *Node) append(child *Node, idx int) {
	n.elems = append(n.elems, child)
	n.indices = append(n.indices, idx)
}

// lookup finds the element previously stored under an explicit
// bracket index.
func (n *Node) lookup(idx int) *Node {
	for i, stored := range n.indices {
		if stored == idx {
			return n.elems[i]
		}
	}
	return nil
}
