// Package qs is a codec between Go values and bracket-notation query
// strings, the dialect spoken by qs, Rack, and PHP style web
// frameworks.
//
// A nested value round-trips through keys whose bracket groups spell
// out the path to each leaf:
//
//	type Query struct {
//	    City    string
//	    Filters struct {
//	        MinPrice int      `qs:"min_price"`
//	        Tags     []string `qs:"tags"`
//	    } `qs:"filters"`
//	}
//
//	s, _ := qs.Marshal(q)
//	// City=Oslo&filters[min_price]=10&filters[tags][0]=a&filters[tags][1]=b
//
// [Marshal] and [Unmarshal] use [DefaultConfig]: nesting limited to
// five levels, minimal escaping. A [Config] value adjusts the depth
// limit and switches to strict form encoding.
//
// # Struct tags
//
// Field keys default to the Go field name; a `qs` tag overrides it.
// The tag options are:
//
//   - omitempty: drop the field when its value is empty.
//   - unindexed: encode a slice as repeats of the bare key, x=1&x=2.
//   - comma: encode a slice as one delimited value, x=1,2,3.
//   - "-": ignore the field entirely.
//
// # Optionals and unions
//
// Pointer fields are optionals. A nil pointer encodes as a bare key
// with no '=', and decoding distinguishes "x" (nil) from "x=" (a
// pointer to the empty value). Structs carrying a [Union] marker
// field encode as exactly one variant, keyed by field name.
//
// The pairs subpackage holds the low-level scanner, key path parser,
// and pair writer, for callers that want the untyped layer.
package qs
