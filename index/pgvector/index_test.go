package pgvector

import (
	"context"
	"os"
	"testing"

	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a PostgreSQL server with the vector extension available.
func testConnString(t *testing.T) string {
	t.Helper()
	connString := os.Getenv("ANSWERIT_TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("ANSWERIT_TEST_DATABASE_URL not set")
	}
	return connString
}

func TestPublishAndSearch(t *testing.T) {
	ctx := context.Background()
	pool, err := Connect(ctx, testConnString(t))
	require.NoError(t, err)
	defer pool.Close()

	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}

	for _, metric := range []index.Metric{index.MetricCosine, index.MetricL2} {
		t.Run(metric.String(), func(t *testing.T) {
			flat, err := index.Build(vectors, metric)
			require.NoError(t, err)

			table := "answerit_test_" + metric.String()
			require.NoError(t, Publish(ctx, pool, table, flat, core.ID(42)))

			idx, err := Open(ctx, pool, table)
			require.NoError(t, err)
			assert.Equal(t, 4, idx.Len())
			assert.Equal(t, 3, idx.Dimension())
			assert.Equal(t, metric, idx.Metric())
			assert.Equal(t, core.ID(42), idx.Header().Fingerprint)

			query := []float32{1, 0, 0}
			want, err := flat.Search(ctx, query, 3)
			require.NoError(t, err)
			got, err := idx.Search(ctx, query, 3)
			require.NoError(t, err)

			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Position, got[i].Position)
				assert.InDelta(t, want[i].Distance, got[i].Distance, 1e-4)
			}

			_, err = idx.Search(ctx, query, 0)
			assert.ErrorIs(t, err, index.ErrInvalidK)
		})
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, nil, "t")
	assert.ErrorIs(t, err, ErrPoolRequired)

	flat, err := index.Build(nil, index.MetricCosine)
	require.NoError(t, err)
	assert.ErrorIs(t, Publish(ctx, nil, "t", flat, 0), ErrPoolRequired)
}
