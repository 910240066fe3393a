package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalEmbedder_DeterministicAndNormalised(t *testing.T) {
	e := NewLocal()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "water boils at 100 degrees Celsius")
	require.NoError(t, err)
	require.Len(t, v1, Dims)

	v2, err := e.Embed(ctx, "water boils at 100 degrees Celsius")
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	var sumSq float64
	for _, x := range v1 {
		sumSq += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
}

func TestLocalEmbedder_DifferentTextDifferentVector(t *testing.T) {
	e := NewLocal()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "distributed consensus protocols")
	require.NoError(t, err)
	require.NotEqual(t, v1, v2)
}

func TestLocalEmbedder_EmptyTextYieldsZeroVector(t *testing.T) {
	e := NewLocal()
	v, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		require.Zero(t, x)
	}
}
