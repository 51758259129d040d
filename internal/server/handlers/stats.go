package handlers

import (
	"context"

	"github.com/maruel/albumdb/internal/errors"
	"github.com/maruel/albumdb/internal/models"
)

// StatsRequest requests the collection summary.
type StatsRequest struct{}

// Validate implements Validatable.
func (*StatsRequest) Validate() error { return nil }

// Stats returns the collection counters and the style frequency table.
func (h *AlbumHandler) Stats(ctx context.Context, _ *StatsRequest) (*models.Stats, error) {
	st, err := h.store.Stats(ctx)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	return st, nil
}
