// Package serialization provides the codecs used to store values in the remote tier.
package serialization

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// JSONType represents the serialization type for JSON format.
	JSONType = "json"

	// GobType represents the serialization type for Gob format.
	GobType = "gob"
)

// Decoder and Encoder are the interface for serialization.
type Decoder interface {
	Decode(v any) error
}

// Encoder and Decoder are the interface for serialization.
type Encoder interface {
	Encode(v any) error
}

// Codec pairs an encoder and decoder constructor under a type name.
type Codec struct {
	Type    string
	Encoder func(io.Writer) Encoder
	Decoder func(io.Reader) Decoder
}

// JSON is the default codec.
var JSON = Codec{Type: JSONType, Encoder: JSONEncoder, Decoder: JSONDecoder}

// Gob encodes with encoding/gob. Interface-typed values must be registered with gob.Register.
var Gob = Codec{Type: GobType, Encoder: GobEncoder, Decoder: GobDecoder}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case JSONType:
		return JSON, nil
	case GobType:
		return Gob, nil
	default:
		return Codec{}, fmt.Errorf("unsupported serialization type: %s", name)
	}
}

// Marshal encodes v into a byte slice.
func (c Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into v, which must be a pointer.
func (c Codec) Unmarshal(data []byte, v any) error {
	if err := c.Decoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode value: %w", err)
	}
	return nil
}
