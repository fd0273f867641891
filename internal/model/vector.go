package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Embedding vectors are stored as a small binary envelope rather than a
// free-form string: a magic byte, a schema version, the dimension, then the
// components as little-endian float32. A chunk written by a future schema
// version fails decoding loudly instead of silently scoring as garbage.
const (
	vectorMagic         byte = 0xE5
	vectorSchemaVersion byte = 1
	vectorHeaderSize         = 4 // magic + version + uint16 dimension
)

// EncodeVector serializes vec for storage on a DocumentChunk. Vectors with
// more components than the uint16 dimension field can hold are rejected at
// write time rather than stored truncated.
func EncodeVector(vec []float32) ([]byte, error) {
	if len(vec) > math.MaxUint16 {
		return nil, fmt.Errorf("vector dimension %d exceeds encodable maximum %d", len(vec), math.MaxUint16)
	}
	buf := make([]byte, vectorHeaderSize+4*len(vec))
	buf[0] = vectorMagic
	buf[1] = vectorSchemaVersion
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(vec)))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[vectorHeaderSize+4*i:], math.Float32bits(v))
	}
	return buf, nil
}

// DecodeVector parses a stored embedding. It returns an error for truncated
// payloads, foreign data, unknown schema versions, or a dimension that does
// not match the payload length.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) < vectorHeaderSize {
		return nil, fmt.Errorf("vector payload too short: %d bytes", len(b))
	}
	if b[0] != vectorMagic {
		return nil, fmt.Errorf("vector payload has bad magic 0x%02X", b[0])
	}
	if b[1] != vectorSchemaVersion {
		return nil, fmt.Errorf("unsupported vector schema version %d", b[1])
	}
	dim := int(binary.LittleEndian.Uint16(b[2:4]))
	if len(b) != vectorHeaderSize+4*dim {
		return nil, fmt.Errorf("vector payload length %d does not match dimension %d", len(b), dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[vectorHeaderSize+4*i:]))
	}
	return vec, nil
}
