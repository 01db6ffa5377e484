package serialization

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSONCodec reads values with a json.Decoder and writes them as compact JSON
// without the trailing newline json.Encoder appends, so other clients of the
// remote store see exactly the document.
type JSONCodec struct {
	dec *json.Decoder
	w   io.Writer
}

// Decode decodes the next JSON value from the underlying reader into v.
func (j *JSONCodec) Decode(v any) error {
	return j.dec.Decode(v)
}

// Encode writes v as JSON. HTML characters are left unescaped.
func (j *JSONCodec) Encode(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := j.w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

// JSONDecoder returns a Decoder that reads JSON from r.
func JSONDecoder(r io.Reader) Decoder {
	return &JSONCodec{dec: json.NewDecoder(r)}
}

// JSONEncoder returns an Encoder that writes JSON to w.
func JSONEncoder(w io.Writer) Encoder {
	return &JSONCodec{w: w}
}
