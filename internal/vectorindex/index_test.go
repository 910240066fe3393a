package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func unit(dim int, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestIndex_SearchOrdersByCosineDescending(t *testing.T) {
	idx := New()
	idx.Insert("t1", "p", 1, unit(4, 0))
	idx.Insert("t1", "p", 2, unit(4, 1))
	idx.Insert("t1", "p", 3, []float32{0.9, 0.1, 0, 0})

	results, err := idx.Search(context.Background(), "t1", "p", unit(4, 0), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, int64(1), results[0].FactID)
	require.Equal(t, int64(3), results[1].FactID)
	require.Equal(t, int64(2), results[2].FactID)
}

func TestIndex_RemoveIsIdempotent(t *testing.T) {
	idx := New()
	idx.Insert("t1", "p", 1, unit(4, 0))

	idx.Remove("t1", 1)
	idx.Remove("t1", 1) // second call must not panic

	results, err := idx.Search(context.Background(), "t1", "p", unit(4, 0), 5)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestIndex_SearchScopesByProject(t *testing.T) {
	idx := New()
	idx.Insert("t1", "proj-a", 1, unit(4, 0))
	idx.Insert("t1", "proj-b", 2, unit(4, 0))

	results, err := idx.Search(context.Background(), "t1", "proj-a", unit(4, 0), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(1), results[0].FactID)
}

func TestIndex_TiesBreakByLargerFactID(t *testing.T) {
	idx := New()
	idx.Insert("t1", "p", 5, unit(4, 0))
	idx.Insert("t1", "p", 9, unit(4, 0))
	idx.Insert("t1", "p", 2, unit(4, 0))

	results, err := idx.Search(context.Background(), "t1", "p", unit(4, 0), 3)
	require.NoError(t, err)
	require.Equal(t, []int64{9, 5, 2}, []int64{results[0].FactID, results[1].FactID, results[2].FactID})
}

func TestIndex_LoadAllReplacesShard(t *testing.T) {
	idx := New()
	idx.Insert("t1", "p", 1, unit(4, 0))

	idx.LoadAll("t1", []Item{{FactID: 7, Project: "p", Vector: unit(4, 0)}})

	results, err := idx.Search(context.Background(), "t1", "p", unit(4, 0), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(7), results[0].FactID)
}
