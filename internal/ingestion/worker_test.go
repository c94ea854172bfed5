package ingestion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingImporter struct {
	calls atomic.Int32
}

func (c *countingImporter) ImportFile(ctx context.Context, path string) (int, int, error) {
	c.calls.Add(1)
	if path == "broken.csv" {
		return 0, 0, errors.New("unreadable")
	}
	return len(path), 1, nil
}

func TestImportAll_PreservesInputOrder(t *testing.T) {
	imp := &countingImporter{}
	paths := []string{"a.csv", "broken.csv", "longer.csv", "a.csv"}

	results := ImportAll(context.Background(), 3, imp, paths)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, paths[i], r.FilePath)
	}
	assert.Equal(t, 5, results[0].Imported)
	assert.Error(t, results[1].Error)
	assert.Equal(t, 10, results[2].Imported)
	assert.Equal(t, 1, results[2].Skipped)
	assert.EqualValues(t, 4, imp.calls.Load())
}

func TestImportAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ImportAll(ctx, 1, &countingImporter{}, []string{"a.csv", "b.csv", "c.csv", "d.csv"})
	require.Len(t, results, 4)
	for _, r := range results {
		if r.Error != nil {
			assert.ErrorIs(t, r.Error, context.Canceled)
		}
	}
}
