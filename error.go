package qs

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/samscott89/serde-qs/pairs"
)

// The syntax-level error kinds, re-exported from the pairs package so
// callers can match any failure of this package with errors.Is alone.
var (
	// ErrInvalidEncoding reports a malformed percent escape.
	ErrInvalidEncoding = pairs.ErrInvalidEncoding
	// ErrInvalidUTF8 reports decoded text that is not valid UTF-8.
	ErrInvalidUTF8 = pairs.ErrInvalidUTF8
	// ErrInvalidNumber reports malformed numeric text.
	ErrInvalidNumber = pairs.ErrInvalidNumber
	// ErrMalformedKey reports mismatched brackets in a key.
	ErrMalformedKey = pairs.ErrMalformedKey
	// ErrMaxDepthExceeded reports a key path nested deeper than
	// [Config.MaxDepth], on either side of the codec.
	ErrMaxDepthExceeded = pairs.ErrMaxDepthExceeded
	// ErrPathConflict reports one key path used both as a scalar and
	// as a container.
	ErrPathConflict = pairs.ErrPathConflict
)

var (
	// ErrTypeMismatch reports query string content whose shape does
	// not fit the destination type.
	ErrTypeMismatch = errors.New("value shape does not match destination type")
	// ErrUnknownVariant reports a variant key that names no field of
	// the destination union.
	ErrUnknownVariant = errors.New("unknown union variant")
)

// TypeError is the error returned when a type cannot be represented
// in query string form.
type TypeError struct {
	// Type is the name of the type that caused the error.
	Type string
	// Reason is an explanation of why the type isn't representable as
	// a query string.
	Reason error
}

func (e TypeError) Error() string {
	return fmt.Sprintf("qs cannot represent %s: %s", e.Type, e.Reason)
}

func (e TypeError) Unwrap() error {
	return e.Reason
}

func typeErr(t reflect.Type, reason string, args ...any) error {
	ts := ""
	if t != nil {
		ts = t.String()
	}
	return TypeError{ts, fmt.Errorf(reason, args...)}
}

// mismatchErr reports that a value tree node has the wrong shape for
// the type being filled. It matches ErrTypeMismatch under errors.Is.
func mismatchErr(t reflect.Type, n *pairs.Node) error {
	return TypeError{t.String(), fmt.Errorf("%w: got a %s", ErrTypeMismatch, n.Kind())}
}
