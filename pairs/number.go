package pairs

import (
	"fmt"
	"strconv"
)

// Numeric rendering is shared by both sides of the codec: the writer
// emits exactly these forms, and the reader accepts them plus
// ordinary decimal literals.

// FormatInt renders i as minimal decimal text.
func FormatInt(i int64) string { return strconv.FormatInt(i, 10) }

// FormatUint renders u as minimal decimal text.
func FormatUint(u uint64) string { return strconv.FormatUint(u, 10) }

// FormatFloat renders f using the shortest decimal text that
// reparses to the same bits.
func FormatFloat(f float64, bits int) string {
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// ParseInt parses signed decimal text of the given bit width.
func ParseInt(s string, bits int) (int64, error) {
	i, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return i, nil
}

// ParseUint parses unsigned decimal text of the given bit width.
func ParseUint(s string, bits int) (uint64, error) {
	u, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return u, nil
}

// ParseFloat parses decimal or scientific float text of the given
// bit width.
func ParseFloat(s string, bits int) (float64, error) {
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return f, nil
}
