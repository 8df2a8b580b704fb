package store

import (
	"encoding/binary"
	"math"

	"github.com/rcliao/docky/internal/embedding"
)

// encodeVector packs v as little-endian float32s.
func encodeVector(v embedding.Vector) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) embedding.Vector {
	if len(b)%4 != 0 {
		return nil
	}
	v := make(embedding.Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
