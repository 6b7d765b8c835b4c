package bench

import (
	"fmt"

	"github.com/cyclopcam/detbench/pkg/nn"
)

// MakeBatches splits items into consecutive batches of exactly batchSize elements.
// Trailing items that do not fill a whole batch are dropped, so the result always has
// len(items) / batchSize batches.
// Each batch is a sub-slice of items with its capacity capped at its length, so appending
// to one batch can never overwrite the next.
func MakeBatches[T any](items []T, batchSize int) ([][]T, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %v", nn.ErrInvalidArgument, batchSize)
	}
	n := len(items) / batchSize
	batches := make([][]T, n)
	for i := 0; i < n; i++ {
		start := i * batchSize
		end := start + batchSize
		batches[i] = items[start:end:end]
	}
	return batches, nil
}
