package testutil

import (
	"context"

	"github.com/Belphemur/bazarr-translate/internal/models"
)

// CollectSeries consumes a Series stream and returns a slice of Series.
// This is a test helper and should not be used in production code.
func CollectSeries(ctx context.Context, stream <-chan models.StreamResult[models.Series]) ([]models.Series, error) {
	return collect(ctx, stream)
}

// collect drains a stream, returning on the first error
func collect[T any](ctx context.Context, stream <-chan models.StreamResult[T]) ([]T, error) {
	var values []T
	for {
		select {
		case result, ok := <-stream:
			if !ok {
				return values, nil
			}
			if result.Err != nil {
				return nil, result.Err
			}
			values = append(values, result.Value)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
