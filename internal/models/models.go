// Package models defines the core data structures used throughout the application.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// TimeFormat is the layout of created_date and updated_date.
const TimeFormat = "2006-01-02 15:04:05"

// Album is one record of the collection.
//
// Field names are the persisted JSON keys and must not change: existing data
// files are read and written verbatim.
type Album struct {
	ID               int64      `json:"id" yaml:"id" jsonschema:"description=Unique identifier assigned by the store; never reused"`
	ArtistName       string     `json:"artist_name" yaml:"artist_name" jsonschema:"required,description=Artist or band name"`
	AlbumName        string     `json:"album_name" yaml:"album_name" jsonschema:"required,description=Album title"`
	ReleaseYear      *int64     `json:"release_year" yaml:"release_year" jsonschema:"description=Year of release or null when unknown"`
	IsOwned          Flag       `json:"is_owned" yaml:"is_owned" jsonschema:"description=1 when the album is in the collection"`
	WantToOwn        Flag       `json:"want_to_own" yaml:"want_to_own" jsonschema:"description=1 when the album is on the wish list"`
	CoverURL         NullString `json:"cover_url" yaml:"cover_url" jsonschema:"description=Cover art URL"`
	DiscogsReleaseID NullString `json:"discogs_release_id" yaml:"discogs_release_id" jsonschema:"description=Release identifier in the metadata database"`
	Style            NullString `json:"style" yaml:"style" jsonschema:"description=Comma separated list of styles"`
	Format           NullString `json:"format" yaml:"format" jsonschema:"description=Media format"`
	ArtistType       NullString `json:"artist_type" yaml:"artist_type" jsonschema:"description=Person or group"`
	Label            NullString `json:"label" yaml:"label" jsonschema:"description=Record label"`
	Producer         NullString `json:"producer" yaml:"producer" jsonschema:"description=Producer"`
	CreatedDate      string     `json:"created_date" yaml:"created_date" jsonschema:"description=Creation timestamp (YYYY-MM-DD HH:MM:SS)"`
	UpdatedDate      string     `json:"updated_date" yaml:"updated_date" jsonschema:"description=Last update timestamp (YYYY-MM-DD HH:MM:SS)"`
}

// UnmarshalJSON accepts release_year as a number, a decimal string, an empty
// string or null.
func (a *Album) UnmarshalJSON(b []byte) error {
	type album Album
	aux := struct {
		*album
		ReleaseYear json.RawMessage `json:"release_year"`
	}{album: (*album)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	y, err := unmarshalYear(aux.ReleaseYear)
	if err != nil {
		return err
	}
	a.ReleaseYear = y
	return nil
}

func unmarshalYear(raw json.RawMessage) (*int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return ParseYear(s)
	}
	var y int64
	if err := json.Unmarshal(raw, &y); err != nil {
		return nil, fmt.Errorf("invalid year %s", raw)
	}
	return &y, nil
}

// Clone returns a deep copy of the album.
func (a *Album) Clone() Album {
	c := *a
	if a.ReleaseYear != nil {
		y := *a.ReleaseYear
		c.ReleaseYear = &y
	}
	return c
}

// Year returns the release year, or 0 when unknown.
func (a *Album) Year() int64 {
	if a.ReleaseYear == nil {
		return 0
	}
	return *a.ReleaseYear
}

// Collection is the whole persisted dataset.
type Collection struct {
	Albums []Album `json:"albums" yaml:"albums"`
	NextID int64   `json:"next_id" yaml:"next_id"`
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Albums: []Album{}, NextID: 1}
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{Albums: make([]Album, len(c.Albums)), NextID: c.NextID}
	for i := range c.Albums {
		out.Albums[i] = c.Albums[i].Clone()
	}
	return out
}

// MaxID returns the highest id present, or 0.
func (c *Collection) MaxID() int64 {
	var m int64
	for i := range c.Albums {
		m = max(m, c.Albums[i].ID)
	}
	return m
}

// Index returns the position of the album with the given id, or -1.
func (c *Collection) Index(id int64) int {
	for i := range c.Albums {
		if c.Albums[i].ID == id {
			return i
		}
	}
	return -1
}

// StyleCount is one entry of the style frequency table.
type StyleCount struct {
	Style string `json:"style" yaml:"style"`
	Count int64  `json:"count" yaml:"count"`
}

// Stats summarizes the collection.
type Stats struct {
	Total         int64        `json:"total"`
	Owned         int64        `json:"owned"`
	Wanted        int64        `json:"wanted"`
	UniqueArtists int64        `json:"unique_artists"`
	Styles        []StyleCount `json:"styles"`
}

// Flag is a boolean persisted as 0 or 1.
type Flag bool

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// UnmarshalJSON accepts 0/1, true/false, "0"/"1" and null.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	switch s {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", b)
	}
	return nil
}

// JSONSchema describes Flag as an integer restricted to 0 and 1.
func (Flag) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Enum: []any{0, 1}}
}

// MarshalYAML implements yaml.Marshaler.
func (f Flag) MarshalYAML() (any, error) {
	return f.Int(), nil
}

// Int returns 1 or 0.
func (f Flag) Int() int64 {
	if f {
		return 1
	}
	return 0
}

// NullString is an optional text value persisted as a string or null.
//
// Numbers found in existing files are accepted and kept as their decimal text.
type NullString struct {
	String string
	Valid  bool
}

// Text returns a valid NullString.
func Text(s string) NullString {
	return NullString{String: s, Valid: true}
}

// MarshalJSON implements json.Marshaler.
func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.String)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = NullString{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Text(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("invalid text value %s", b)
	}
	*n = Text(num.String())
	return nil
}

// JSONSchema describes NullString as a nullable string.
func (NullString) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "null"}}}
}

// Value returns the string or nil.
func (n NullString) Value() any {
	if !n.Valid {
		return nil
	}
	return n.String
}

// MarshalYAML implements yaml.Marshaler.
func (n NullString) MarshalYAML() (any, error) {
	return n.Value(), nil
}

// ParseYear converts a textual year, as found in older data files and form
// input. An empty string is an unknown year.
func ParseYear(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	y, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid year %q", s)
	}
	return &y, nil
}
