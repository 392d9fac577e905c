package serialization

import (
	"bytes"
	"testing"
)

type payload struct {
	Name  string
	Count int
}

func TestForType(t *testing.T) {
	for _, name := range []string{JSONType, GobType} {
		codec, err := ForType(name)
		if err != nil {
			t.Fatalf("ForType(%q) error: %v", name, err)
		}
		if codec.Type != name {
			t.Errorf("Type = %q, want %q", codec.Type, name)
		}

		var buf bytes.Buffer
		in := payload{Name: "recall", Count: 3}
		if err := codec.NewEncoder(&buf).Encode(&in); err != nil {
			t.Fatalf("Encode error: %v", err)
		}
		var out payload
		if err := codec.NewDecoder(&buf).Decode(&out); err != nil {
			t.Fatalf("Decode error: %v", err)
		}
		if out != in {
			t.Errorf("round trip = %+v, want %+v", out, in)
		}
	}
}

func TestForType_Unsupported(t *testing.T) {
	if _, err := ForType("xml"); err == nil {
		t.Error("expected an error for an unsupported type")
	}
}
