package handlers

import (
	"net/http"

	"github.com/maruel/albumdb/internal/errors"
	"github.com/maruel/albumdb/internal/utils"
)

// Export writes the whole collection, including next_id, as a download.
// The format query parameter selects json (default) or yaml.
func (h *AlbumHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "yaml" {
		writeError(w, errors.InvalidFormat("format", "must be json or yaml"))
		return
	}
	c, err := h.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, errors.FromStore(err))
		return
	}
	if format == "yaml" {
		w.Header().Set("Content-Disposition", `attachment; filename="albums.yaml"`)
		utils.RespondYAML(w, http.StatusOK, c)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="albums.json"`)
	utils.RespondJSON(w, http.StatusOK, c)
}

func writeError(w http.ResponseWriter, e *errors.APIError) {
	utils.RespondError(w, e.StatusCode(), string(e.Code()), e.Error(), e.Details())
}
