package ai

import (
	"context"
	"hash/fnv"
	"math"
)

// FakeEmbedder produces deterministic unit vectors from a text hash. It is
// the "fake" embedding provider: selected explicitly by configuration for
// offline environments, and injected in tests. Identical input always yields
// identical output.
type FakeEmbedder struct {
	dimension int
}

func NewFakeEmbedder(dimension int) *FakeEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &FakeEmbedder{dimension: dimension}
}

func (e *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	state := fnvHash(text)
	var norm float64
	for i := range vec {
		// xorshift64 keeps components well spread without any randomness.
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		v := float64(int64(state%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	v := h.Sum64()
	if v == 0 {
		v = 1
	}
	return v
}
