package serialization

import (
	"encoding/gob"
	"io"
)

// Gob wraps gob.Encoder/gob.Decoder behind the package interfaces.
type Gob struct {
	dec *gob.Decoder
	enc *gob.Encoder
}

// Decode decodes a gob value from the underlying reader into v.
func (g *Gob) Decode(v any) error {
	return g.dec.Decode(v)
}

// Encode writes v to the underlying writer in gob format.
func (g *Gob) Encode(v any) error {
	return g.enc.Encode(v)
}

// GobDecoder returns a Decoder reading gob data from r.
func GobDecoder(r io.Reader) Decoder {
	return &Gob{dec: gob.NewDecoder(r)}
}

// GobEncoder returns an Encoder writing gob data to w.
func GobEncoder(w io.Writer) Encoder {
	return &Gob{enc: gob.NewEncoder(w)}
}
