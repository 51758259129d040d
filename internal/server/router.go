// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/albumdb/internal/server/handlers"
	"github.com/maruel/albumdb/internal/server/ratelimit"
	"github.com/maruel/albumdb/internal/storage"
)

// NewRouter creates and configures the HTTP router serving the album API
// under /api/. limiters may be nil.
func NewRouter(store *storage.Store, cfg *storage.ServerConfig, limiters *ratelimit.Limiters, version string) http.Handler {
	mux := &http.ServeMux{}
	maxBody := cfg.MaxRequestBodyBytes
	ah := handlers.NewAlbumHandler(store)

	mux.Handle("GET /api/health", Wrap(handlers.NewHealth(version), maxBody, nil))

	mux.Handle("GET /api/albums", Wrap(ah.ListAlbums, maxBody, limiters))
	mux.Handle("POST /api/albums", Wrap(ah.CreateAlbum, maxBody, limiters))
	mux.Handle("GET /api/albums/{id}", Wrap(ah.GetAlbum, maxBody, limiters))
	mux.Handle("PUT /api/albums/{id}", Wrap(ah.UpdateAlbum, maxBody, limiters))
	mux.Handle("DELETE /api/albums/{id}", Wrap(ah.DeleteAlbum, maxBody, limiters))

	mux.Handle("GET /api/stats", Wrap(ah.Stats, maxBody, limiters))
	mux.Handle("GET /api/schema", Wrap(ah.Schema, maxBody, limiters))
	mux.Handle("GET /api/artists", Wrap(ah.Artists, maxBody, limiters))
	mux.Handle("GET /api/album-names", Wrap(ah.AlbumNames, maxBody, limiters))
	mux.Handle("GET /api/export", WrapRaw(ah.Export, limiters))

	return RequestLogger(mux)
}
