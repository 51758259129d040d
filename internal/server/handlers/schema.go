package handlers

import (
	"context"

	"github.com/maruel/albumdb/internal/errors"
	"github.com/maruel/albumdb/internal/jsondb"
	"github.com/maruel/albumdb/internal/models"
)

// SchemaRequest requests the column list.
type SchemaRequest struct{}

// Validate implements Validatable.
func (*SchemaRequest) Validate() error { return nil }

// SchemaResponse describes the album table.
type SchemaResponse struct {
	Table   string          `json:"table"`
	Columns []jsondb.Column `json:"columns"`
}

// Schema returns the album columns derived from the record type.
func (h *AlbumHandler) Schema(ctx context.Context, _ *SchemaRequest) (*SchemaResponse, error) {
	cols, err := jsondb.Columns[models.Album]()
	if err != nil {
		return nil, errors.InternalWithError("Failed to derive schema", err)
	}
	return &SchemaResponse{Table: "albums", Columns: cols}, nil
}
