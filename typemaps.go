package qs

import (
	"reflect"

	"github.com/creachadair/mds/mapset"
)

var (
	// scalarKinds is the set of reflect.Kinds that render as a single
	// leaf value in a query string.
	scalarKinds = mapset.New(
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String,
	)

	// mapKeyKinds is the set of reflect.Kinds usable as a map key,
	// i.e. anything with an unambiguous text form.
	mapKeyKinds = scalarKinds
)
