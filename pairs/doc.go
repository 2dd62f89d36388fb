// Package pairs implements the untyped layer of the query string
// codec: percent escaping, the pair scanner, bracket key path
// parsing, and the ordered value tree that typed readers walk.
//
// Most callers want the qs package instead. This package is for tools
// that need to inspect or produce the format without binding it to Go
// types.
package pairs
