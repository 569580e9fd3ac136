// In file: internal/llm/helpers.go

// Package llm contains the model clients (chat with tool calling and
// embeddings) and the per-model usage tracking built on Redis.
package llm

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// VectorToBytes encodes an embedding as little-endian float32s, the BLOB
// layout sqlite-vec and Redis vector fields expect.
func VectorToBytes(vector []float32) []byte {
	byteSlice := make([]byte, 4*len(vector))
	for i, f := range vector {
		binary.LittleEndian.PutUint32(byteSlice[i*4:], math.Float32bits(f))
	}
	return byteSlice
}

// GenerateCacheKey creates a stable, fixed-length SHA256 hash of a string.
// It's used for cache keys and document IDs.
func GenerateCacheKey(s string) string {
	hasher := sha256.New()
	hasher.Write([]byte(s))
	return hex.EncodeToString(hasher.Sum(nil))
}
