package qs

import (
	"fmt"
	"io"
)

// A Decoder reads a query string from an [io.Reader] and decodes it
// into a Go value. It is a convenience for request bodies; the input
// is read whole, not streamed.
type Decoder struct {
	r    io.Reader
	conf Config
}

// NewDecoder returns a Decoder that reads from r under
// [DefaultConfig].
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, conf: DefaultConfig}
}

// NewDecoder returns a Decoder that reads from r under c.
func (c Config) NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, conf: c}
}

// Decode reads the remaining input and decodes it into v.
func (d *Decoder) Decode(v any) error {
	body, err := io.ReadAll(d.r)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return d.conf.UnmarshalBytes(body, v)
}

// An Encoder writes query strings to an [io.Writer].
type Encoder struct {
	w    io.Writer
	conf Config
}

// NewEncoder returns an Encoder that writes to w under
// [DefaultConfig].
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, conf: DefaultConfig}
}

// NewEncoder returns an Encoder that writes to w under c.
func (c Config) NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, conf: c}
}

// Encode encodes v as a query string and writes it to the underlying
// writer.
func (e *Encoder) Encode(v any) error {
	out, err := e.conf.Marshal(v)
	if err != nil {
		return err
	}
	_, err = io.WriteString(e.w, out)
	return err
}
