// Package serialization abstracts the on-disk encoding of cache snapshots
// behind Encoder/Decoder interfaces, with JSON and gob implementations.
package serialization

import (
	"fmt"
	"io"
)

const (
	// JSONType selects the JSON codec (human-inspectable, the default).
	JSONType = "json"

	// GobType selects the gob codec (compact, Go-only).
	GobType = "gob"
)

// Encoder serializes a value to the underlying writer.
type Encoder interface {
	Encode(v any) error
}

// Decoder deserializes a value from the underlying reader.
type Decoder interface {
	Decode(v any) error
}

// Codec bundles the encoder and decoder factories for one format.
type Codec struct {
	Type       string
	NewEncoder func(io.Writer) Encoder
	NewDecoder func(io.Reader) Decoder
}

// ForType returns the Codec registered for the given format name.
func ForType(name string) (Codec, error) {
	switch name {
	case JSONType:
		return Codec{Type: JSONType, NewEncoder: JSONEncoder, NewDecoder: JSONDecoder}, nil
	case GobType:
		return Codec{Type: GobType, NewEncoder: GobEncoder, NewDecoder: GobDecoder}, nil
	default:
		return Codec{}, fmt.Errorf("unsupported serialization type: %s", name)
	}
}
