package protocol

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// Codec encodes/decodes whole wire messages. The wire structure definitions
// are ours; the actual serialization format used for the *component*
// payloads inside them is a pluggable external collaborator (spec.md §1)
// selected per-ComponentKind via registry.Descriptor.Serialize/Deserialize.
// This codec only frames the envelope (UpdateMessage / ClientInputMessage
// themselves), using Go's self-describing encoding/gob — no third-party
// struct-serialization library appeared anywhere in the retrieval pack for
// this concern, so gob is the narrowest faithful stdlib fit (see DESIGN.md).
type Codec struct {
	compressor Compressor
}

// NewCodec returns a Codec using the given Compressor. A nil compressor
// disables compression (messages are framed but not compressed).
func NewCodec(c Compressor) *Codec {
	return &Codec{compressor: c}
}

// EncodeUpdate serializes and (if configured) compresses m.
func (c *Codec) EncodeUpdate(m *UpdateMessage) ([]byte, error) {
	return c.encode(m)
}

// DecodeUpdate reverses EncodeUpdate.
func (c *Codec) DecodeUpdate(data []byte) (*UpdateMessage, error) {
	var m UpdateMessage
	if err := c.decode(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeInput serializes and (if configured) compresses m.
func (c *Codec) EncodeInput(m *ClientInputMessage) ([]byte, error) {
	return c.encode(m)
}

// DecodeInput reverses EncodeInput.
func (c *Codec) DecodeInput(data []byte) (*ClientInputMessage, error) {
	var m ClientInputMessage
	if err := c.decode(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeGob encodes v with gob and no compression, for small, infrequent
// control messages (e.g. session.ServerMessage) exchanged on the reliable
// control channel where compression isn't worth the overhead.
func EncodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGob reverses EncodeGob.
func DecodeGob(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("protocol: decode: %w", err)
	}
	return nil
}

func (c *Codec) encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	if c.compressor == nil {
		return buf.Bytes(), nil
	}
	return c.compressor.Compress(buf.Bytes())
}

func (c *Codec) decode(data []byte, v any) error {
	raw := data
	if c.compressor != nil {
		var err error
		raw, err = c.compressor.Decompress(data)
		if err != nil {
			return fmt.Errorf("protocol: decompress: %w", err)
		}
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("protocol: decode: %w", err)
	}
	return nil
}

// Compressor is the pluggable compression codec external collaborator
// (spec.md §1: "compression codec and dictionary training" is out of
// scope for this core). FlateCompressor below is a minimal stand-in.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// FlateCompressor is a dependency-free Compressor using compress/flate. No
// compression library appeared anywhere in the retrieval pack for this
// concern (see DESIGN.md), so this stays on the standard library rather
// than reaching for one with no grounding in the examples.
type FlateCompressor struct{ Level int }

// Compress flate-compresses data.
func (f FlateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	level := f.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func (f FlateCompressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}

// WriteFramed writes a 4-byte big-endian length prefix followed by data, for
// use on the reliable stream-oriented channels (ServerMessage, Block) where
// message boundaries are not otherwise preserved.
func WriteFramed(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadFramed reverses WriteFramed.
func ReadFramed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
