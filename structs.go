package qs

import (
	"cmp"
	"fmt"
	"iter"
	"log"
	"reflect"
	"strconv"
	"strings"

	"github.com/samscott89/serde-qs/pairs"
)

// Set to true to dump extracted struct layouts during development.
const debugStructInfo = false

// Union marks a struct as a tagged union. A struct with a field of
// type Union encodes as exactly one key/value group, named after the
// single non-nil variant field.
//
// Every exported field of a union struct must be a pointer, and
// exactly one of them may be non-nil at a time:
//
//	type Shape struct {
//	    _ qs.Union
//
//	    Circle *Circle
//	    Square *Square
//	    Free   *struct{} // unit variant, encodes as a bare key
//	}
//
// Decoding a key that matches none of the variant names fails with
// [ErrUnknownVariant].
type Union struct{}

var unionType = reflect.TypeFor[Union]()

// structField is the information about a struct field that needs to
// be marshaled/unmarshaled.
type structField struct {
	// Name is the field's key text in the query string.
	Name  string
	Index [][]int
	Type  reflect.Type

	// OmitEmpty skips the field when its value is the zero value.
	OmitEmpty bool
	// Unindexed encodes a slice field as repeats of the bare field
	// key, x=1&x=2, instead of x[0]=1&x[1]=2.
	Unindexed bool
	// Comma encodes a slice field as a single delimiter-joined value,
	// x=1,2,3.
	Comma bool
}

// GetWithZero loads the struct field from structVal. If loading
// requires traversing a nil pointer into an embedded struct,
// GetWithZero returns a non-settable zero value of the field.
func (f *structField) GetWithZero(structVal reflect.Value) reflect.Value {
	v := structVal
	for i, hop := range f.Index {
		if i > 0 {
			if v.IsNil() {
				return reflect.Zero(f.Type)
			}
			v = v.Elem()
		}
		v = v.FieldByIndex(hop)
	}
	return v
}

// GetWithAlloc loads the struct field from structVal. If loading
// requires traversing a nil pointer into an embedded struct,
// GetWithAlloc allocates zero values appropriately. The returned
// [reflect.Value] is settable.
func (f *structField) GetWithAlloc(structVal reflect.Value) reflect.Value {
	v := structVal
	for i, hop := range f.Index {
		if i > 0 {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.FieldByIndex(hop)
	}
	return v
}

func (f *structField) String() string {
	kindStr := ""
	if ks := f.Type.Kind().String(); ks != f.Type.String() {
		kindStr = fmt.Sprintf(" (%s)", ks)
	}
	return fmt.Sprintf("%s: %s%s at %v", f.Name, f.Type, kindStr, f.Index)
}

// structInfo is the information about a struct relevant to
// marshaling/unmarshaling.
type structInfo struct {
	// Name is the struct's name, for use in diagnostics.
	Name string
	// Type is the struct's type, for use in diagnostics.
	Type reflect.Type
	// IsUnion reports that the struct carries a [Union] marker and
	// encodes as a single variant group.
	IsUnion bool

	// StructFields is the information about each struct field
	// eligible for encoding/decoding, in declaration order.
	StructFields []*structField

	byName map[string]*structField
}

// Field returns the field whose encoded key is name, or nil.
func (s *structInfo) Field(name string) *structField {
	return s.byName[name]
}

func (s *structInfo) String() string {
	var ret strings.Builder
	fmt.Fprintf(&ret, "%s: struct, fields:\n", s.Name)
	for _, f := range s.StructFields {
		ret.WriteString(f.String())
		ret.WriteByte('\n')
	}
	return ret.String()
}

// getStructInfo returns the structInfo for t.
//
// getStructInfo returns an error if t is not a struct, or if the
// struct is malformed in a way that prevents its use with query
// strings.
func getStructInfo(t reflect.Type) (*structInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	ret := &structInfo{
		Name:   t.String(),
		Type:   t,
		byName: make(map[string]*structField),
	}

	for field := range structFields(t, nil) {
		if field.Type == unionType {
			ret.IsUnion = true
			continue
		}
		if !field.IsExported() {
			continue
		}

		name, opts, skip := parseStructTag(field)
		if skip {
			continue
		}
		fieldInfo := &structField{
			Name:      name,
			Type:      field.Type,
			Index:     allocSteps(t, field.Index),
			OmitEmpty: opts.omitEmpty,
			Unindexed: opts.unindexed,
			Comma:     opts.comma,
		}
		if prev := ret.byName[name]; prev != nil {
			return nil, fmt.Errorf("duplicate key %q in struct %s", name, ret.Name)
		}
		ret.StructFields = append(ret.StructFields, fieldInfo)
		ret.byName[name] = fieldInfo
	}

	if ret.IsUnion {
		for _, f := range ret.StructFields {
			if f.Type.Kind() != reflect.Pointer {
				return nil, fmt.Errorf("union variant %s.%s must be a pointer", ret.Name, f.Name)
			}
			if f.OmitEmpty || f.Unindexed || f.Comma {
				return nil, fmt.Errorf("union variant %s.%s cannot use tag options", ret.Name, f.Name)
			}
		}
	}

	if debugStructInfo {
		log.Print(ret)
	}
	return ret, nil
}

type fieldOpts struct {
	omitEmpty bool
	unindexed bool
	comma     bool
}

// parseStructTag returns the information contained in field's "qs"
// struct tag. A tag of "-" drops the field entirely.
func parseStructTag(field reflect.StructField) (name string, opts fieldOpts, skip bool) {
	tag := field.Tag.Get("qs")
	if tag == "-" {
		return "", fieldOpts{}, true
	}
	name, rest, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, f := range strings.Split(rest, ",") {
		switch f {
		case "omitempty":
			opts.omitEmpty = true
		case "unindexed":
			opts.unindexed = true
		case "comma":
			opts.comma = true
		}
	}
	return name, opts, false
}

// mapKeyParser returns a function that converts key text into values
// of the given map key type.
func mapKeyParser(t reflect.Type) func(string) (reflect.Value, error) {
	if !mapKeyKinds.Has(t.Kind()) {
		panic("mapKeyParser called on type that can't be a map key")
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(s string) (reflect.Value, error) {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(b).Convert(t), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(s string) (reflect.Value, error) {
			i64, err := pairs.ParseInt(s, int(t.Size())*8)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(i64).Convert(t), nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(s string) (reflect.Value, error) {
			u64, err := pairs.ParseUint(s, int(t.Size())*8)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(u64).Convert(t), nil
		}
	case reflect.Float32, reflect.Float64:
		return func(s string) (reflect.Value, error) {
			f64, err := pairs.ParseFloat(s, int(t.Size())*8)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(f64).Convert(t), nil
		}
	case reflect.String:
		return func(s string) (reflect.Value, error) {
			return reflect.ValueOf(s).Convert(t), nil
		}
	default:
		panic(fmt.Sprintf("invalid map key type %s", t))
	}
}

// mapKeyText returns a function that renders values of the given map
// key type as key text. Inverse of mapKeyParser.
func mapKeyText(t reflect.Type) func(reflect.Value) string {
	switch t.Kind() {
	case reflect.Bool:
		return func(v reflect.Value) string { return strconv.FormatBool(v.Bool()) }
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(v reflect.Value) string { return pairs.FormatInt(v.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(v reflect.Value) string { return pairs.FormatUint(v.Uint()) }
	case reflect.Float32, reflect.Float64:
		return func(v reflect.Value) string { return pairs.FormatFloat(v.Float(), int(t.Size())*8) }
	case reflect.String:
		return func(v reflect.Value) string { return v.String() }
	default:
		panic("invalid map key type")
	}
}

// mapKeyCmp returns a comparison function for the given map key type.
// Marshal sorts map entries with it so output is deterministic.
func mapKeyCmp(t reflect.Type) func(a, b reflect.Value) int {
	switch t.Kind() {
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			if a.Bool() == b.Bool() {
				return 0
			}
			if !a.Bool() {
				return -1
			}
			return 1
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Int(), b.Int())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Uint(), b.Uint())
		}
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.Float(), b.Float())
		}
	case reflect.String:
		return func(a, b reflect.Value) int {
			return cmp.Compare(a.String(), b.String())
		}
	default:
		panic("invalid map key type")
	}
}

// allocSteps partitions a multi-hop traversal of struct fields into
// segments that end at either the final value, or at a struct pointer
// that might be nil.
//
// This partition is used by [structField.GetWithZero] and
// [structField.GetWithAlloc] to load embedded struct fields that
// require traversing a nil pointer.
func allocSteps(t reflect.Type, idx []int) [][]int {
	var ret [][]int
	prev := 0
	t = t.Field(idx[0]).Type
	for i := 1; i < len(idx); i++ {
		if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
			// Hop through a struct pointer that might be nil, cut.
			ret = append(ret, idx[prev:i])
			prev = i
			t = t.Elem()
		}
		t = t.Field(idx[i]).Type
	}
	ret = append(ret, idx[prev:])
	return ret
}

func structFields(t reflect.Type, idx []int) iter.Seq[reflect.StructField] {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			f := t.Field(i)
			idx = append(idx, i)
			// An embedded Union is a marker, not a field group, so
			// it must not be flattened away like other anonymous
			// structs.
			if f.Anonymous && f.Type != unionType {
				at := f.Type
				if at.Kind() == reflect.Pointer {
					at = at.Elem()
				}
				if at.Kind() == reflect.Struct {
					for af := range structFields(at, idx) {
						if !yield(af) {
							return
						}
					}
					idx = idx[:len(idx)-1]
					continue
				}
			}
			f.Index = append([]int(nil), idx...)
			if !yield(f) {
				return
			}
			idx = idx[:len(idx)-1]
		}
	}
}
