package serialization

import (
	"encoding/json"
	"io"
)

// JSON wraps json.Encoder/json.Decoder behind the package interfaces.
type JSON struct {
	dec *json.Decoder
	enc *json.Encoder
}

// Decode decodes a JSON value from the underlying reader into v.
func (j *JSON) Decode(v any) error {
	return j.dec.Decode(v)
}

// Encode writes v as indented JSON so the persisted file stays
// human-inspectable.
func (j *JSON) Encode(v any) error {
	return j.enc.Encode(v)
}

// JSONDecoder returns a Decoder reading JSON from r.
func JSONDecoder(r io.Reader) Decoder {
	return &JSON{dec: json.NewDecoder(r)}
}

// JSONEncoder returns an Encoder writing indented JSON to w.
func JSONEncoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSON{enc: enc}
}
