package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/maruel/albumdb/internal/errors"
	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
	"github.com/maruel/albumdb/internal/storage"
)

// Statements issued by the album handlers.
var (
	insertSQL = "INSERT INTO albums (" + strings.Join(query.InsertColumns, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(query.InsertColumns)), ", ") + ")"
	updateSQL = "UPDATE albums SET " + strings.Join(query.InsertColumns, " = ?, ") + " = ? WHERE id = ?"
)

const (
	selectByIDSQL = "SELECT * FROM albums WHERE id = ?"
	duplicateSQL  = "SELECT * FROM albums WHERE LOWER(artist_name) = LOWER(?) AND LOWER(album_name) = LOWER(?)"
	deleteSQL     = "DELETE FROM albums WHERE id = ?"
)

// AlbumHandler handles album HTTP requests.
type AlbumHandler struct {
	store *storage.Store
}

// NewAlbumHandler creates a new album handler.
func NewAlbumHandler(store *storage.Store) *AlbumHandler {
	return &AlbumHandler{store: store}
}

// ListAlbumsRequest lists albums sorted by artist.
type ListAlbumsRequest struct {
	Filter string `query:"filter"`
	Q      string `query:"q"`
}

// Validate implements Validatable.
func (r *ListAlbumsRequest) Validate() error {
	switch r.Filter {
	case "", "all", "owned", "wanted":
	default:
		return errors.InvalidFormat("filter", "must be all, owned or wanted")
	}
	r.Q = strings.TrimSpace(r.Q)
	return nil
}

// ListAlbumsResponse is the response to ListAlbums.
type ListAlbumsResponse struct {
	Albums []models.Album `json:"albums"`
}

// ListAlbums returns the albums matching the filter and search term.
func (h *AlbumHandler) ListAlbums(ctx context.Context, req *ListAlbumsRequest) (*ListAlbumsResponse, error) {
	var where []string
	var args []any
	switch req.Filter {
	case "owned":
		where = append(where, "is_owned = 1")
	case "wanted":
		where = append(where, "want_to_own = 1")
	}
	if req.Q != "" {
		where = append(where, "(artist_name LIKE ? OR album_name LIKE ?)")
		args = append(args, "%"+req.Q+"%", "%"+req.Q+"%")
	}
	text := "SELECT * FROM albums"
	if len(where) != 0 {
		text += " WHERE " + strings.Join(where, " AND ")
	}
	text += " ORDER BY artist_name"
	albums, err := h.store.Albums(ctx, text, args...)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	return &ListAlbumsResponse{Albums: albums}, nil
}

// AlbumIDRequest addresses one album.
type AlbumIDRequest struct {
	ID int64 `path:"id"`
}

// Validate implements Validatable.
func (r *AlbumIDRequest) Validate() error {
	if r.ID <= 0 {
		return errors.InvalidFormat("id", "must be a positive integer")
	}
	return nil
}

// GetAlbum returns one album.
func (h *AlbumHandler) GetAlbum(ctx context.Context, req *AlbumIDRequest) (*models.Album, error) {
	return h.get(ctx, req.ID)
}

// AlbumRequest holds the mutable fields of an album.
type AlbumRequest struct {
	ArtistName       string            `json:"artist_name"`
	AlbumName        string            `json:"album_name"`
	ReleaseYear      *int64            `json:"release_year"`
	IsOwned          models.Flag       `json:"is_owned"`
	WantToOwn        models.Flag       `json:"want_to_own"`
	CoverURL         models.NullString `json:"cover_url"`
	DiscogsReleaseID models.NullString `json:"discogs_release_id"`
	Style            models.NullString `json:"style"`
	Format           models.NullString `json:"format"`
	ArtistType       models.NullString `json:"artist_type"`
	Label            models.NullString `json:"label"`
	Producer         models.NullString `json:"producer"`
}

// Validate trims the names and requires them.
func (r *AlbumRequest) Validate() error {
	r.ArtistName = strings.TrimSpace(r.ArtistName)
	r.AlbumName = strings.TrimSpace(r.AlbumName)
	if r.ArtistName == "" {
		return errors.MissingField("artist_name")
	}
	if r.AlbumName == "" {
		return errors.MissingField("album_name")
	}
	if r.ReleaseYear != nil && (*r.ReleaseYear < 0 || *r.ReleaseYear > 9999) {
		return errors.InvalidFormat("release_year", "must be between 0 and 9999")
	}
	return nil
}

// args returns the values in query.InsertColumns order.
func (r *AlbumRequest) args() []any {
	return []any{
		r.ArtistName, r.AlbumName, r.ReleaseYear, r.IsOwned, r.WantToOwn,
		r.CoverURL, r.DiscogsReleaseID, r.Style, r.Format, r.ArtistType, r.Label, r.Producer,
	}
}

// CreateAlbum adds an album after checking that the artist/album pair is new.
func (h *AlbumHandler) CreateAlbum(ctx context.Context, req *AlbumRequest) (*models.Album, error) {
	if err := h.checkDuplicate(ctx, req, 0); err != nil {
		return nil, err
	}
	if _, err := h.store.Execute(ctx, insertSQL, req.args()...); err != nil {
		return nil, errors.FromStore(err)
	}
	albums, err := h.store.Albums(ctx, duplicateSQL+" ORDER BY id DESC LIMIT 1", req.ArtistName, req.AlbumName)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	if len(albums) == 0 {
		return nil, errors.Internal("Created album not found")
	}
	return &albums[0], nil
}

// UpdateAlbumRequest replaces the mutable fields of an album.
type UpdateAlbumRequest struct {
	ID int64 `json:"-" path:"id"`
	AlbumRequest
}

// Validate implements Validatable.
func (r *UpdateAlbumRequest) Validate() error {
	if r.ID <= 0 {
		return errors.InvalidFormat("id", "must be a positive integer")
	}
	return r.AlbumRequest.Validate()
}

// UpdateAlbum overwrites every mutable field of an existing album.
func (h *AlbumHandler) UpdateAlbum(ctx context.Context, req *UpdateAlbumRequest) (*models.Album, error) {
	if _, err := h.get(ctx, req.ID); err != nil {
		return nil, err
	}
	if err := h.checkDuplicate(ctx, &req.AlbumRequest, req.ID); err != nil {
		return nil, err
	}
	changed, err := h.store.Execute(ctx, updateSQL, append(req.args(), req.ID)...)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	if !changed {
		return nil, notFound(req.ID)
	}
	return h.get(ctx, req.ID)
}

// DeleteAlbumResponse is the response to DeleteAlbum.
type DeleteAlbumResponse struct {
	Deleted bool `json:"deleted"`
}

// DeleteAlbum removes an album.
func (h *AlbumHandler) DeleteAlbum(ctx context.Context, req *AlbumIDRequest) (*DeleteAlbumResponse, error) {
	changed, err := h.store.Execute(ctx, deleteSQL, req.ID)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	if !changed {
		return nil, notFound(req.ID)
	}
	return &DeleteAlbumResponse{Deleted: true}, nil
}

func (h *AlbumHandler) get(ctx context.Context, id int64) (*models.Album, error) {
	albums, err := h.store.Albums(ctx, selectByIDSQL, id)
	if err != nil {
		return nil, errors.FromStore(err)
	}
	if len(albums) == 0 {
		return nil, notFound(id)
	}
	return &albums[0], nil
}

// checkDuplicate fails with 409 when another album has the same artist and
// album names, ignoring case. excludeID is the album being updated, or 0.
func (h *AlbumHandler) checkDuplicate(ctx context.Context, req *AlbumRequest, excludeID int64) error {
	text := duplicateSQL
	args := []any{req.ArtistName, req.AlbumName}
	if excludeID != 0 {
		text += " AND id != ?"
		args = append(args, excludeID)
	}
	albums, err := h.store.Albums(ctx, text, args...)
	if err != nil {
		return errors.FromStore(err)
	}
	if len(albums) != 0 {
		return errors.Conflict("Album already exists").WithDetail("id", albums[0].ID)
	}
	return nil
}

func notFound(id int64) error {
	return errors.NotFound("Album " + strconv.FormatInt(id, 10))
}
