package handlers

import (
	"context"
	"strings"

	"github.com/maruel/albumdb/internal/errors"
	"github.com/maruel/albumdb/internal/query"
	"github.com/maruel/albumdb/internal/storage"
)

// maxSuggestions bounds autocomplete results.
const maxSuggestions = 20

// SuggestRequest is a prefix or substring typed by the user.
type SuggestRequest struct {
	Q string `query:"q"`
}

// Validate implements Validatable.
func (r *SuggestRequest) Validate() error {
	r.Q = strings.TrimSpace(r.Q)
	return nil
}

// SuggestResponse lists distinct values.
type SuggestResponse struct {
	Values []string `json:"values"`
}

// Artists suggests artist names, in artist order.
func (h *AlbumHandler) Artists(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error) {
	return h.suggest(ctx, query.ColArtistName, req.Q)
}

// AlbumNames suggests album names, alphabetically.
func (h *AlbumHandler) AlbumNames(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error) {
	return h.suggest(ctx, query.ColAlbumName, req.Q)
}

func (h *AlbumHandler) suggest(ctx context.Context, col, q string) (*SuggestResponse, error) {
	text := "SELECT DISTINCT " + col + " FROM albums"
	var args []any
	if q != "" {
		text += " WHERE " + col + " LIKE ?"
		args = append(args, "%"+q+"%")
	}
	text += " ORDER BY " + col + " LIMIT ?"
	args = append(args, maxSuggestions)
	rows, err := h.store.Query(ctx, text, args...)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	return &SuggestResponse{Values: columnStrings(rows, col)}, nil
}

func columnStrings(rows []storage.Row, col string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if s, ok := r[col].(string); ok {
			out = append(out, s)
		}
	}
	return out
}
