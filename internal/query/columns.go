package query

import "slices"

// Column names of the album table.
const (
	ColID               = "id"
	ColArtistName       = "artist_name"
	ColAlbumName        = "album_name"
	ColReleaseYear      = "release_year"
	ColIsOwned          = "is_owned"
	ColWantToOwn        = "want_to_own"
	ColCoverURL         = "cover_url"
	ColDiscogsReleaseID = "discogs_release_id"
	ColStyle            = "style"
	ColFormat           = "format"
	ColArtistType       = "artist_type"
	ColLabel            = "label"
	ColProducer         = "producer"
	ColCreatedDate      = "created_date"
	ColUpdatedDate      = "updated_date"
)

// Columns lists every column in persisted order.
var Columns = []string{
	ColID, ColArtistName, ColAlbumName, ColReleaseYear, ColIsOwned, ColWantToOwn,
	ColCoverURL, ColDiscogsReleaseID, ColStyle, ColFormat, ColArtistType, ColLabel,
	ColProducer, ColCreatedDate, ColUpdatedDate,
}

// InsertColumns is the column order bound by an INSERT without a column list.
var InsertColumns = []string{
	ColArtistName, ColAlbumName, ColReleaseYear, ColIsOwned, ColWantToOwn,
	ColCoverURL, ColDiscogsReleaseID, ColStyle, ColFormat, ColArtistType, ColLabel,
	ColProducer,
}

// IsColumn reports whether name is a known column.
func IsColumn(name string) bool {
	return slices.Contains(Columns, name)
}
