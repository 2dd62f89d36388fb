package qs

import (
	"encoding"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/samscott89/serde-qs/pairs"
)

// Marshal returns the query string encoding of v.
//
// Marshal traverses the value v recursively, building one key=value
// pair per leaf. The key of each pair is the bracket-notation path
// from the root to the leaf: a struct {A struct{B int}} with B set to
// 1 encodes as "A[B]=1".
//
// If an encountered value implements [encoding.TextMarshaler], its
// text form is used as the leaf value.
//
// Otherwise, Marshal uses the following type-dependent default
// encodings:
//
// Bool, integer, float and string values encode as a single leaf.
// Floats use the shortest text that reparses exactly.
//
// Slice and array values encode one element per pair, with the
// element's position as a bracket index: "x[0]=a&x[1]=b". Nil and
// empty slices encode as nothing at all. []byte values encode as a
// single unpadded base64url leaf.
//
// Struct values encode each exported field in declaration order,
// using the field name, or its `qs` tag, as the key segment. Embedded
// struct fields are encoded as if their inner exported fields were
// fields in the outer struct, subject to the usual Go visibility
// rules. The tag options "omitempty", "unindexed" and "comma" alter
// field encoding; see the package documentation.
//
// Structs carrying a [Union] marker encode as their single non-nil
// variant field. A variant pointing at an empty struct encodes as a
// bare key with no '='.
//
// Map values encode one entry per key, sorted by key so output is
// deterministic. The map's key underlying type must be a bool,
// integer, float, or string.
//
// Pointer values encode as the value pointed to. A nil pointer is an
// absent optional and encodes as a bare key with no '=', or as
// nothing at all under "omitempty".
//
// Interface values encode as their dynamic value.
//
// Complex, channel, and function values cannot be encoded. Attempting
// to encode such values causes Marshal to return a [TypeError].
//
// The top-level value must be (or point to) a struct or a map, since
// every pair needs a leading key.
func (c Config) Marshal(v any) (string, error) {
	if v == nil {
		return "", typeErr(nil, "cannot marshal a nil interface")
	}
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			return "", nil
		}
		val = val.Elem()
	}
	if k := val.Kind(); k != reflect.Struct && k != reflect.Map {
		return "", typeErr(val.Type(), "top-level value must be a struct or map")
	}
	enc, err := encoderFor(val.Type())
	if err != nil {
		return "", err
	}
	e := &pairs.Encoder{Mode: c.mode(), MaxDepth: c.MaxDepth}
	if err := enc(e, val); err != nil {
		return "", err
	}
	return e.String(), nil
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

var encoders cache[reflect.Type, pairs.EncoderFunc]

// A type that refers back to itself gets a stand-in encoder that
// resolves the real one at encode time, once construction has
// finished. The hook is assigned in init; a composite literal would
// form an initialization cycle with encoderFor.
func init() {
	encoders.OnPending = func(t reflect.Type) pairs.EncoderFunc {
		return func(e *pairs.Encoder, v reflect.Value) error {
			enc, err := encoderFor(t)
			if err != nil {
				return err
			}
			return enc(e, v)
		}
	}
}

func encoderFor(t reflect.Type) (ret pairs.EncoderFunc, err error) {
	if ret, err := encoders.Get(t); err == nil {
		return ret, nil
	} else if !errors.Is(err, errNotFound) {
		return nil, err
	}
	// Note, defer captures the type value in case it gets messed with
	// below.
	defer func(t reflect.Type) {
		if err != nil {
			encoders.SetErr(t, err)
		} else {
			encoders.Set(t, ret)
		}
	}(t)

	// Pointer types skip the TextMarshaler check so that nil keeps
	// its absent-optional meaning; the element encoder picks the
	// interface up instead.
	if t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textMarshalerType) {
		return newCondAddrTextEncoder(t), nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		return newPtrEncoder(t)
	case reflect.Bool:
		return newBoolEncoder(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return newIntEncoder(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return newUintEncoder(), nil
	case reflect.Float32, reflect.Float64:
		return newFloatEncoder(t), nil
	case reflect.String:
		return newStringEncoder(), nil
	case reflect.Slice, reflect.Array:
		return newSliceEncoder(t)
	case reflect.Struct:
		return newStructEncoder(t)
	case reflect.Map:
		return newMapEncoder(t)
	case reflect.Interface:
		return newInterfaceEncoder(), nil
	}
	return nil, typeErr(t, "no query string mapping for type")
}

func newCondAddrTextEncoder(t reflect.Type) pairs.EncoderFunc {
	enc := newTextEncoder()
	if t.Implements(textMarshalerType) {
		return enc
	}
	// TextMarshaler is only on the pointer receiver, so the value
	// must be addressable to use it.
	return func(e *pairs.Encoder, v reflect.Value) error {
		if !v.CanAddr() {
			return typeErr(t, "TextMarshaler is only implemented on pointer receiver, and cannot take the address of given value")
		}
		return enc(e, v.Addr())
	}
}

func newTextEncoder() pairs.EncoderFunc {
	return func(e *pairs.Encoder, v reflect.Value) error {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return e.Null()
		}
		m := v.Interface().(encoding.TextMarshaler)
		text, err := m.MarshalText()
		if err != nil {
			return err
		}
		return e.Leaf(string(text))
	}
}

func newPtrEncoder(t reflect.Type) (pairs.EncoderFunc, error) {
	elemEnc, err := encoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *pairs.Encoder, v reflect.Value) error {
		if v.IsNil() {
			// An absent optional renders as a bare key.
			return e.Null()
		}
		return elemEnc(e, v.Elem())
	}
	return fn, nil
}

func newBoolEncoder() pairs.EncoderFunc {
	return func(e *pairs.Encoder, v reflect.Value) error {
		return e.Leaf(strconv.FormatBool(v.Bool()))
	}
}

func newIntEncoder() pairs.EncoderFunc {
	return func(e *pairs.Encoder, v reflect.Value) error {
		return e.Leaf(pairs.FormatInt(v.Int()))
	}
}

func newUintEncoder() pairs.EncoderFunc {
	return func(e *pairs.Encoder, v reflect.Value) error {
		return e.Leaf(pairs.FormatUint(v.Uint()))
	}
}

func newFloatEncoder(t reflect.Type) pairs.EncoderFunc {
	bits := int(t.Size()) * 8
	return func(e *pairs.Encoder, v reflect.Value) error {
		return e.Leaf(pairs.FormatFloat(v.Float(), bits))
	}
}

func newStringEncoder() pairs.EncoderFunc {
	return func(e *pairs.Encoder, v reflect.Value) error {
		return e.Leaf(v.String())
	}
}

func newSliceEncoder(t reflect.Type) (pairs.EncoderFunc, error) {
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		// Fast path for []byte
		return func(e *pairs.Encoder, v reflect.Value) error {
			return e.Leaf(base64.RawURLEncoding.EncodeToString(v.Bytes()))
		}, nil
	}

	elemEnc, err := encoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *pairs.Encoder, v reflect.Value) error {
		for i := 0; i < v.Len(); i++ {
			if err := e.PushIndex(i); err != nil {
				return err
			}
			if err := elemEnc(e, v.Index(i)); err != nil {
				return err
			}
			e.Pop()
		}
		return nil
	}
	return fn, nil
}

func newStructEncoder(t reflect.Type) (pairs.EncoderFunc, error) {
	fs, err := getStructInfo(t)
	if err != nil {
		return nil, fmt.Errorf("getting struct info for %s: %w", t, err)
	}
	if fs.IsUnion {
		return newUnionEncoder(fs)
	}

	var frags []pairs.EncoderFunc
	for _, f := range fs.StructFields {
		fEnc, err := newStructFieldEncoder(f)
		if err != nil {
			return nil, err
		}
		frags = append(frags, fEnc)
	}

	fn := func(e *pairs.Encoder, v reflect.Value) error {
		for _, frag := range frags {
			if err := frag(e, v); err != nil {
				return err
			}
		}
		return nil
	}
	return fn, nil
}

// Note, the returned encoder expects to be given the entire struct,
// not just the one field being encoded.
func newStructFieldEncoder(f *structField) (pairs.EncoderFunc, error) {
	var (
		valEnc pairs.EncoderFunc
		err    error
	)
	switch {
	case f.Unindexed:
		valEnc, err = newUnindexedEncoder(f)
	case f.Comma:
		valEnc, err = newCommaEncoder(f)
	default:
		valEnc, err = encoderFor(f.Type)
	}
	if err != nil {
		return nil, err
	}

	fn := func(e *pairs.Encoder, v reflect.Value) error {
		fv := f.GetWithZero(v)
		if f.OmitEmpty && isEmptyValue(fv) {
			return nil
		}
		if err := e.PushKey(f.Name); err != nil {
			return err
		}
		if err := valEnc(e, fv); err != nil {
			return err
		}
		e.Pop()
		return nil
	}
	return fn, nil
}

// newUnindexedEncoder encodes a slice field as repeats of the bare
// field key, x=1&x=2, the way HTML multi-selects submit.
func newUnindexedEncoder(f *structField) (pairs.EncoderFunc, error) {
	if k := f.Type.Kind(); k != reflect.Slice && k != reflect.Array {
		return nil, typeErr(f.Type, "unindexed option requires a slice field")
	}
	text, err := scalarTextFor(f.Type.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *pairs.Encoder, v reflect.Value) error {
		for i := 0; i < v.Len(); i++ {
			s, err := text(v.Index(i))
			if err != nil {
				return err
			}
			if err := e.Leaf(s); err != nil {
				return err
			}
		}
		return nil
	}
	return fn, nil
}

// newCommaEncoder encodes a slice field as one delimiter-joined leaf,
// x=1,2,3.
func newCommaEncoder(f *structField) (pairs.EncoderFunc, error) {
	if k := f.Type.Kind(); k != reflect.Slice && k != reflect.Array {
		return nil, typeErr(f.Type, "comma option requires a slice field")
	}
	text, err := scalarTextFor(f.Type.Elem())
	if err != nil {
		return nil, err
	}
	fn := func(e *pairs.Encoder, v reflect.Value) error {
		var b strings.Builder
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			s, err := text(v.Index(i))
			if err != nil {
				return err
			}
			b.WriteString(s)
		}
		return e.Leaf(b.String())
	}
	return fn, nil
}

// scalarTextFor returns a renderer for values that must fit inside a
// single leaf, used by the delimited list options.
func scalarTextFor(t reflect.Type) (func(reflect.Value) (string, error), error) {
	if t.Implements(textMarshalerType) {
		return func(v reflect.Value) (string, error) {
			text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			return string(text), err
		}, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return func(v reflect.Value) (string, error) {
			return strconv.FormatBool(v.Bool()), nil
		}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(v reflect.Value) (string, error) {
			return pairs.FormatInt(v.Int()), nil
		}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(v reflect.Value) (string, error) {
			return pairs.FormatUint(v.Uint()), nil
		}, nil
	case reflect.Float32, reflect.Float64:
		bits := int(t.Size()) * 8
		return func(v reflect.Value) (string, error) {
			return pairs.FormatFloat(v.Float(), bits), nil
		}, nil
	case reflect.String:
		return func(v reflect.Value) (string, error) {
			return v.String(), nil
		}, nil
	}
	return nil, typeErr(t, "delimited list elements must be scalars")
}

func newUnionEncoder(fs *structInfo) (pairs.EncoderFunc, error) {
	type variant struct {
		f    *structField
		enc  pairs.EncoderFunc
		unit bool
	}
	var variants []variant
	for _, f := range fs.StructFields {
		elem := f.Type.Elem()
		if elem.Kind() == reflect.Struct && elem.NumField() == 0 {
			variants = append(variants, variant{f: f, unit: true})
			continue
		}
		enc, err := encoderFor(elem)
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant{f: f, enc: enc})
	}

	fn := func(e *pairs.Encoder, v reflect.Value) error {
		var (
			chosen *variant
			val    reflect.Value
		)
		for i := range variants {
			fv := variants[i].f.GetWithZero(v)
			if fv.IsNil() {
				continue
			}
			if chosen != nil {
				return typeErr(fs.Type, "union has both %s and %s set", chosen.f.Name, variants[i].f.Name)
			}
			chosen = &variants[i]
			val = fv
		}
		if chosen == nil {
			return typeErr(fs.Type, "union has no variant set")
		}
		if err := e.PushKey(chosen.f.Name); err != nil {
			return err
		}
		var err error
		if chosen.unit {
			// Unit variants carry no payload, only their name.
			err = e.Null()
		} else {
			err = chosen.enc(e, val.Elem())
		}
		if err != nil {
			return err
		}
		e.Pop()
		return nil
	}
	return fn, nil
}

func newMapEncoder(t reflect.Type) (pairs.EncoderFunc, error) {
	kt := t.Key()
	if !mapKeyKinds.Has(kt.Kind()) {
		return nil, typeErr(t, "invalid map key type %s", kt)
	}
	keyText := mapKeyText(kt)
	vEnc, err := encoderFor(t.Elem())
	if err != nil {
		return nil, err
	}
	kCmp := mapKeyCmp(kt)

	fn := func(e *pairs.Encoder, v reflect.Value) error {
		ks := v.MapKeys()
		slices.SortFunc(ks, kCmp)
		for _, mk := range ks {
			if err := e.PushKey(keyText(mk)); err != nil {
				return err
			}
			if err := vEnc(e, v.MapIndex(mk)); err != nil {
				return err
			}
			e.Pop()
		}
		return nil
	}
	return fn, nil
}

func newInterfaceEncoder() pairs.EncoderFunc {
	return func(e *pairs.Encoder, v reflect.Value) error {
		if v.IsNil() {
			return e.Null()
		}
		elem := v.Elem()
		enc, err := encoderFor(elem.Type())
		if err != nil {
			return err
		}
		return enc(e, elem)
	}
}

// isEmptyValue reports whether v is the kind of value "omitempty"
// drops: zero scalars, nil pointers, and empty collections.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	default:
		return v.IsZero()
	}
}
