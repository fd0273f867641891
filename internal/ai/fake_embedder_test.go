package ai

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeEmbedderDeterministic(t *testing.T) {
	e := NewFakeEmbedder(64)

	first, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFakeEmbedderDistinguishesTexts(t *testing.T) {
	e := NewFakeEmbedder(64)

	a, err := e.Embed(context.Background(), "alpha")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "beta")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFakeEmbedderUnitNorm(t *testing.T) {
	e := NewFakeEmbedder(128)

	vec, err := e.Embed(context.Background(), "normalize me")
	require.NoError(t, err)
	require.Len(t, vec, 128)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-3)
}

func TestFakeEmbedderDefaultDimension(t *testing.T) {
	e := NewFakeEmbedder(0)

	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}

func TestFakeEmbedderBatchPreservesOrder(t *testing.T) {
	e := NewFakeEmbedder(32)
	texts := []string{"one", "two", "three"}

	batch, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}
