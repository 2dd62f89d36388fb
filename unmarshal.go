package qs

import (
	"encoding"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/creachadair/mds/value"
	"github.com/samscott89/serde-qs/pairs"
)

// Unmarshal decodes the query string input into the value pointed to
// by v. If v is nil or not a pointer, Unmarshal returns a
// [TypeError].
//
// Generally, Unmarshal applies the inverse of the rules used by
// [Marshal]: the input is scanned into pairs, the pairs are folded
// into a value tree keyed by bracket notation, and the tree is read
// into v. The top-level target must be a struct, a map, or an empty
// interface.
//
// Unmarshal traverses the value tree recursively. If a target value
// implements [encoding.TextUnmarshaler], the leaf text is handed to
// UnmarshalText. Types implementing TextUnmarshaler must do so with a
// pointer receiver, which is what makes the result observable.
//
// Otherwise, Unmarshal uses the following type-dependent default
// decodings:
//
// String values take the leaf text as is. A bare key decodes as "".
//
// Bool values decode "true", "false", "1" and "0"; a bare key or an
// empty value also decodes as true, so "flag" and "flag=" both set
// the flag, the way checkboxes submit.
//
// Integer and float values parse the leaf text as decimal; empty text
// is an [ErrInvalidNumber].
//
// If a scalar target finds a repeated key, the last value wins.
//
// Slice values decode each element of a sequence in stored order. A
// single scalar decodes as a one-element slice. []byte values decode
// from unpadded base64url text. When decoding into an array, the
// sequence length must match the array's length.
//
// Struct values decode each matching map entry into the field of the
// same encoded name. Keys that match no field are ignored, and fields
// with no matching key keep their value. Structs carrying a [Union]
// marker require exactly one entry, whose key picks the variant;
// unrecognized keys fail with [ErrUnknownVariant].
//
// Maps decode one entry per key. When decoding into a map, Unmarshal
// allocates a new one if the target map is nil; existing entries for
// other keys are kept.
//
// Pointers decode as the value pointed to, allocating as needed. A
// bare key decodes as nil, while an empty value allocates and decodes
// the pointed-to zero text, so "x" and "x=" land differently in a
// *string.
//
// Values of type any decode the tree shape as is: map[string]any,
// []any, string, and nil for bare keys.
//
// Complex, channel, and function values cannot be decoded into.
// Attempting to do so causes Unmarshal to return a [TypeError].
func (c Config) Unmarshal(input string, v any) error {
	ps, err := pairs.Scan(input, c.mode())
	if err != nil {
		return err
	}
	root, err := pairs.Build(ps, c.MaxDepth)
	if err != nil {
		return err
	}
	if v == nil {
		return typeErr(nil, "can't unmarshal into nil interface")
	}
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer {
		return typeErr(val.Type(), "can't unmarshal into a non-pointer")
	}
	if val.IsNil() {
		return typeErr(val.Type(), "can't unmarshal into a nil pointer")
	}
	elem := val.Elem()
	switch elem.Kind() {
	case reflect.Struct, reflect.Map:
	case reflect.Interface:
		if elem.NumMethod() != 0 {
			return typeErr(elem.Type(), "can only unmarshal into the empty interface")
		}
	default:
		return typeErr(elem.Type(), "top-level target must be a struct, map, or any")
	}
	dec, err := decoderFor(elem.Type())
	if err != nil {
		return err
	}
	return dec(root, elem)
}

// UnmarshalBytes is Unmarshal for inputs already held as bytes.
func (c Config) UnmarshalBytes(input []byte, v any) error {
	return c.Unmarshal(string(input), v)
}

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

var decoders cache[reflect.Type, pairs.DecoderFunc]

// Assigned in init for the same reason as the encoder hook: a
// composite literal would form an initialization cycle with
// decoderFor.
func init() {
	decoders.OnPending = func(t reflect.Type) pairs.DecoderFunc {
		return func(n *pairs.Node, v reflect.Value) error {
			dec, err := decoderFor(t)
			if err != nil {
				return err
			}
			return dec(n, v)
		}
	}
}

// decoderFor returns the decoder func for the given type, if the type
// can be filled from a query string.
func decoderFor(t reflect.Type) (ret pairs.DecoderFunc, err error) {
	if ret, err := decoders.Get(t); err == nil {
		return ret, nil
	} else if !errors.Is(err, errNotFound) {
		return nil, err
	}
	// Note, defer captures the type value before we mess with it
	// below.
	defer func(t reflect.Type) {
		if err != nil {
			decoders.SetErr(t, err)
		} else {
			decoders.Set(t, ret)
		}
	}(t)

	// Pointer targets always go through the pointer decoder first, so
	// nil keeps its absent-optional meaning; the element decoder
	// picks up TextUnmarshaler. Unmarshal only hands out addressable
	// values, so a value whose pointer implements the interface can
	// take its own address.
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return newAddrTextDecoder(t), nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		return newPtrDecoder(t)
	case reflect.Bool:
		return newBoolDecoder(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return newIntDecoder(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return newUintDecoder(t), nil
	case reflect.Float32, reflect.Float64:
		return newFloatDecoder(t), nil
	case reflect.String:
		return newStringDecoder(), nil
	case reflect.Slice:
		return newSliceDecoder(t)
	case reflect.Array:
		return newArrayDecoder(t)
	case reflect.Struct:
		return newStructDecoder(t)
	case reflect.Map:
		return newMapDecoder(t)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return newAnyDecoder(), nil
		}
		return nil, typeErr(t, "can only unmarshal into the empty interface")
	}

	return nil, typeErr(t, "no query string mapping for type")
}

// resolveScalar reduces n to its leaf text. A repeated key leaves a
// multi-value sequence in the tree; a scalar target takes the last
// value, so later pairs win.
func resolveScalar(t reflect.Type, n *pairs.Node) (value.Maybe[string], error) {
	if n.Kind() == pairs.SeqNode && n.Len() > 0 {
		n = n.At(n.Len() - 1)
	}
	if n.Kind() != pairs.ScalarNode {
		return value.Absent[string](), mismatchErr(t, n)
	}
	return n.Scalar(), nil
}

// scalarText is resolveScalar for targets that treat a bare key the
// same as an empty value.
func scalarText(t reflect.Type, n *pairs.Node) (string, error) {
	m, err := resolveScalar(t, n)
	if err != nil {
		return "", err
	}
	s, _ := m.GetOK()
	return s, nil
}

func newAddrTextDecoder(t reflect.Type) pairs.DecoderFunc {
	return func(n *pairs.Node, v reflect.Value) error {
		s, err := scalarText(t, n)
		if err != nil {
			return err
		}
		if !v.CanAddr() {
			panic("got an unaddressable TextUnmarshaler target, should be impossible!")
		}
		return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
	}
}

func newPtrDecoder(t reflect.Type) (pairs.DecoderFunc, error) {
	elem := t.Elem()
	elemDec, err := decoderFor(elem)
	if err != nil {
		return nil, err
	}
	fn := func(n *pairs.Node, v reflect.Value) error {
		if n.Kind() == pairs.ScalarNode {
			if _, ok := n.Scalar().GetOK(); !ok {
				// A bare key is an absent optional.
				v.SetZero()
				return nil
			}
		}
		if v.IsNil() {
			v.Set(reflect.New(elem))
		}
		return elemDec(n, v.Elem())
	}
	return fn, nil
}

func newBoolDecoder(t reflect.Type) pairs.DecoderFunc {
	return func(n *pairs.Node, v reflect.Value) error {
		m, err := resolveScalar(t, n)
		if err != nil {
			return err
		}
		s, ok := m.GetOK()
		if !ok || s == "" {
			// Presence alone means true.
			v.SetBool(true)
			return nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return TypeError{t.String(), fmt.Errorf("%w: %q is not a bool", ErrTypeMismatch, s)}
		}
		v.SetBool(b)
		return nil
	}
}

func newIntDecoder(t reflect.Type) pairs.DecoderFunc {
	bits := int(t.Size()) * 8
	return func(n *pairs.Node, v reflect.Value) error {
		s, err := scalarText(t, n)
		if err != nil {
			return err
		}
		i, err := pairs.ParseInt(s, bits)
		if err != nil {
			return err
		}
		v.SetInt(i)
		return nil
	}
}

func newUintDecoder(t reflect.Type) pairs.DecoderFunc {
	bits := int(t.Size()) * 8
	return func(n *pairs.Node, v reflect.Value) error {
		s, err := scalarText(t, n)
		if err != nil {
			return err
		}
		u, err := pairs.ParseUint(s, bits)
		if err != nil {
			return err
		}
		v.SetUint(u)
		return nil
	}
}

func newFloatDecoder(t reflect.Type) pairs.DecoderFunc {
	bits := int(t.Size()) * 8
	return func(n *pairs.Node, v reflect.Value) error {
		s, err := scalarText(t, n)
		if err != nil {
			return err
		}
		f, err := pairs.ParseFloat(s, bits)
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	}
}

func newStringDecoder() pairs.DecoderFunc {
	return func(n *pairs.Node, v reflect.Value) error {
		s, err := scalarText(v.Type(), n)
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil
	}
}

func newSliceDecoder(t reflect.Type) (pairs.DecoderFunc, error) {
	if t.Elem().Kind() == reflect.Uint8 {
		// Fast path for []byte
		return func(n *pairs.Node, v reflect.Value) error {
			s, err := scalarText(t, n)
			if err != nil {
				return err
			}
			b, err := base64.RawURLEncoding.DecodeString(s)
			if err != nil {
				return TypeError{t.String(), fmt.Errorf("%w: invalid base64: %v", ErrTypeMismatch, err)}
			}
			v.SetBytes(b)
			return nil
		}, nil
	}

	elemDec, err := decoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(n *pairs.Node, v reflect.Value) error {
		switch n.Kind() {
		case pairs.ScalarNode:
			// A lone scalar is a one-element sequence.
			v.Set(reflect.MakeSlice(t, 1, 1))
			return elemDec(n, v.Index(0))
		case pairs.SeqNode:
			v.Set(reflect.MakeSlice(t, n.Len(), n.Len()))
			for i := 0; i < n.Len(); i++ {
				if err := elemDec(n.At(i), v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
		return mismatchErr(t, n)
	}
	return fn, nil
}

func newArrayDecoder(t reflect.Type) (pairs.DecoderFunc, error) {
	elemDec, err := decoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(n *pairs.Node, v reflect.Value) error {
		if n.Kind() == pairs.ScalarNode && t.Len() == 1 {
			return elemDec(n, v.Index(0))
		}
		if n.Kind() != pairs.SeqNode {
			return mismatchErr(t, n)
		}
		if n.Len() != t.Len() {
			return TypeError{t.String(), fmt.Errorf("%w: got %d elements for an array of %d", ErrTypeMismatch, n.Len(), t.Len())}
		}
		for i := 0; i < n.Len(); i++ {
			if err := elemDec(n.At(i), v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fn, nil
}

func newStructDecoder(t reflect.Type) (pairs.DecoderFunc, error) {
	fs, err := getStructInfo(t)
	if err != nil {
		return nil, fmt.Errorf("getting struct info for %s: %w", t, err)
	}
	if fs.IsUnion {
		return newUnionDecoder(fs)
	}

	type fieldDec struct {
		f   *structField
		dec pairs.DecoderFunc
	}
	var fields []fieldDec
	for _, f := range fs.StructFields {
		var (
			dec pairs.DecoderFunc
			err error
		)
		if f.Comma {
			dec, err = newCommaDecoder(f)
		} else {
			// Unindexed repeats land in the tree as a plain
			// sequence, so the default decoder covers them.
			dec, err = decoderFor(f.Type)
		}
		if err != nil {
			return nil, err
		}
		fields = append(fields, fieldDec{f, dec})
	}

	fn := func(n *pairs.Node, v reflect.Value) error {
		if n.Kind() != pairs.MapNode {
			return mismatchErr(t, n)
		}
		for _, fd := range fields {
			child, ok := n.Get(fd.f.Name)
			if !ok {
				// A missing key leaves the field alone.
				continue
			}
			if err := fd.dec(child, fd.f.GetWithAlloc(v)); err != nil {
				return fmt.Errorf("decoding %s.%s: %w", fs.Name, fd.f.Name, err)
			}
		}
		return nil
	}
	return fn, nil
}

// newCommaDecoder splits one delimiter-joined leaf, x=1,2,3, back
// into slice elements.
func newCommaDecoder(f *structField) (pairs.DecoderFunc, error) {
	if f.Type.Kind() != reflect.Slice {
		return nil, typeErr(f.Type, "comma option requires a slice field")
	}
	elemDec, err := decoderFor(f.Type.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(n *pairs.Node, v reflect.Value) error {
		s, err := scalarText(f.Type, n)
		if err != nil {
			return err
		}
		if s == "" {
			v.Set(reflect.MakeSlice(f.Type, 0, 0))
			return nil
		}
		parts := strings.Split(s, ",")
		v.Set(reflect.MakeSlice(f.Type, len(parts), len(parts)))
		for i, p := range parts {
			if err := elemDec(pairs.ScalarOf(p), v.Index(i)); err != nil {
				return err
			}
		}
		return nil
	}
	return fn, nil
}

func newUnionDecoder(fs *structInfo) (pairs.DecoderFunc, error) {
	type variant struct {
		dec  pairs.DecoderFunc
		unit bool
	}
	variants := make(map[string]variant, len(fs.StructFields))
	for _, f := range fs.StructFields {
		elem := f.Type.Elem()
		if elem.Kind() == reflect.Struct && elem.NumField() == 0 {
			variants[f.Name] = variant{unit: true}
			continue
		}
		dec, err := decoderFor(elem)
		if err != nil {
			return nil, err
		}
		variants[f.Name] = variant{dec: dec}
	}

	fn := func(n *pairs.Node, v reflect.Value) error {
		if n.Kind() != pairs.MapNode {
			return mismatchErr(fs.Type, n)
		}
		keys := n.Keys()
		if len(keys) != 1 {
			return TypeError{fs.Name, fmt.Errorf("%w: a union wants exactly one variant key, got %d", ErrTypeMismatch, len(keys))}
		}
		f := fs.Field(keys[0])
		if f == nil {
			return fmt.Errorf("%w: %q is not a variant of %s", ErrUnknownVariant, keys[0], fs.Name)
		}
		child, _ := n.Get(keys[0])

		// Picking a variant unsets whatever was there before.
		v.SetZero()
		fv := f.GetWithAlloc(v)
		fv.Set(reflect.New(f.Type.Elem()))
		vr := variants[f.Name]
		if vr.unit {
			// Unit variants carry no payload. Accept a bare key or
			// an empty value; anything more is a shape error.
			m, err := resolveScalar(f.Type, child)
			if err != nil {
				return err
			}
			if s, ok := m.GetOK(); ok && s != "" {
				return TypeError{fs.Name, fmt.Errorf("%w: variant %s takes no value, got %q", ErrTypeMismatch, f.Name, s)}
			}
			return nil
		}
		return vr.dec(child, fv.Elem())
	}
	return fn, nil
}

func newMapDecoder(t reflect.Type) (pairs.DecoderFunc, error) {
	kt := t.Key()
	if !mapKeyKinds.Has(kt.Kind()) {
		return nil, typeErr(t, "invalid map key type %s", kt)
	}
	kParse := mapKeyParser(kt)
	vDec, err := decoderFor(t.Elem())
	if err != nil {
		return nil, err
	}

	fn := func(n *pairs.Node, v reflect.Value) error {
		if n.Kind() != pairs.MapNode {
			return mismatchErr(t, n)
		}
		if v.IsNil() {
			v.Set(reflect.MakeMap(t))
		}
		for _, key := range n.Keys() {
			kv, err := kParse(key)
			if err != nil {
				return fmt.Errorf("map key %q: %w", key, err)
			}
			child, _ := n.Get(key)
			ev := reflect.New(t.Elem()).Elem()
			if err := vDec(child, ev); err != nil {
				return err
			}
			v.SetMapIndex(kv, ev)
		}
		return nil
	}
	return fn, nil
}

func newAnyDecoder() pairs.DecoderFunc {
	return func(n *pairs.Node, v reflect.Value) error {
		val := genericValue(n)
		if val == nil {
			v.SetZero()
			return nil
		}
		v.Set(reflect.ValueOf(val))
		return nil
	}
}

// genericValue converts a tree node to its untyped Go shape:
// map[string]any, []any, string, or nil for a bare key.
func genericValue(n *pairs.Node) any {
	switch n.Kind() {
	case pairs.ScalarNode:
		s, ok := n.Scalar().GetOK()
		if !ok {
			return nil
		}
		return s
	case pairs.SeqNode:
		out := make([]any, n.Len())
		for i := range out {
			out[i] = genericValue(n.At(i))
		}
		return out
	default:
		keys := n.Keys()
		out := make(map[string]any, len(keys))
		for _, k := range keys {
			c, _ := n.Get(k)
			out[k] = genericValue(c)
		}
		return out
	}
}
