package pairs

import (
	"strings"

	"github.com/creachadair/mds/value"
)

// A Pair is one key/value unit of a query string. An absent value
// means the key appeared with no '='. Multiple pairs may share a key.
type Pair struct {
	Key   string
	Value value.Maybe[string]
}

// Scan splits input into its pairs, in input order.
//
// Pairs are separated by '&' only; ';' is not a separator. Within a
// pair, everything before the first '=' is the key and everything
// after it is the value. Values are percent-decoded and must be valid
// UTF-8. Empty segments ("a=1&&b=2") are skipped. Empty input yields
// no pairs and no error.
//
// Key decoding is split across two layers to mirror how keys are
// encoded. Under FormEncoded the whole key was escaped a second time
// after its bracket syntax was assembled, so Scan strips that outer
// layer here; the per-segment layer is always stripped later by
// [ParsePath]. Under Minimal the key passes through untouched.
func Scan(input string, mode Mode) ([]Pair, error) {
	if input == "" {
		return nil, nil
	}
	out := make([]Pair, 0, strings.Count(input, "&")+1)
	for _, seg := range strings.Split(input, "&") {
		if seg == "" {
			continue
		}
		key, rawVal, hasVal := strings.Cut(seg, "=")
		if mode == FormEncoded {
			var err error
			if key, err = Unescape(key); err != nil {
				return nil, err
			}
		}
		if !hasVal {
			out = append(out, Pair{Key: key, Value: value.Absent[string]()})
			continue
		}
		val, err := Unescape(rawVal)
		if err != nil {
			return nil, err
		}
		out = append(out, Pair{Key: key, Value: value.Just(val)})
	}
	return out, nil
}
