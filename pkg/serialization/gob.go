package serialization

import (
	"encoding/gob"
	"io"
)

// GobCodec wraps gob.Decoder and gob.Encoder.
type GobCodec struct {
	dec *gob.Decoder
	enc *gob.Encoder
}

// Decode decodes a value from the underlying gob.Decoder into v.
func (g *GobCodec) Decode(v any) error {
	return g.dec.Decode(v)
}

// Encode serializes v using gob encoding.
func (g *GobCodec) Encode(v any) error {
	return g.enc.Encode(v)
}

// GobDecoder returns a Decoder that reads GOB-encoded data from r.
func GobDecoder(r io.Reader) Decoder {
	return &GobCodec{dec: gob.NewDecoder(r)}
}

// GobEncoder returns an Encoder that writes GOB-encoded data to w.
func GobEncoder(w io.Writer) Encoder {
	return &GobCodec{enc: gob.NewEncoder(w)}
}
