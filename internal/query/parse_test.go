// Tests for the statement parser.

package query

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Statement
		params int
	}{
		{
			name: "select star",
			text: "SELECT * FROM albums",
			want: &Select{Table: "albums"},
		},
		{
			name: "lowercase keywords",
			text: "select * from albums where is_owned = 1 order by artist_name;",
			want: &Select{
				Table:   "albums",
				Where:   &Compare{Left: Column{Name: ColIsOwned}, Op: OpEq, Right: Literal{Value: int64(1)}},
				OrderBy: []Order{{Column: ColArtistName}},
			},
		},
		{
			name: "duplicate check",
			text: "SELECT * FROM albums WHERE LOWER(artist_name) = LOWER(?) AND LOWER(album_name) = LOWER(?) AND id != ?",
			want: &Select{
				Table: "albums",
				Where: &And{Terms: []Predicate{
					&Compare{Left: Column{Name: ColArtistName}, Op: OpEq, Right: Param{Index: 0}},
					&Compare{Left: Column{Name: ColAlbumName}, Op: OpEq, Right: Param{Index: 1}},
					&Compare{Left: Column{Name: ColID}, Op: OpNe, Right: Param{Index: 2}},
				}},
			},
			params: 3,
		},
		{
			name: "search",
			text: "SELECT * FROM albums WHERE want_to_own = 1 AND (artist_name LIKE ? OR album_name LIKE ?) ORDER BY artist_name, release_year DESC",
			want: &Select{
				Table: "albums",
				Where: &And{Terms: []Predicate{
					&Compare{Left: Column{Name: ColWantToOwn}, Op: OpEq, Right: Literal{Value: int64(1)}},
					&Or{Terms: []Predicate{
						&Compare{Left: Column{Name: ColArtistName}, Op: OpLike, Right: Param{Index: 0}},
						&Compare{Left: Column{Name: ColAlbumName}, Op: OpLike, Right: Param{Index: 1}},
					}},
				}},
				OrderBy: []Order{{Column: ColArtistName}, {Column: ColReleaseYear, Desc: true}},
			},
			params: 2,
		},
		{
			name: "distinct",
			text: "SELECT DISTINCT artist_name FROM albums WHERE artist_name LIKE ? ORDER BY artist_name LIMIT 20",
			want: &Select{
				Distinct: true,
				Items:    []Item{{Kind: ItemColumn, Column: ColArtistName}},
				Table:    "albums",
				Where:    &Compare{Left: Column{Name: ColArtistName}, Op: OpLike, Right: Param{Index: 0}},
				OrderBy:  []Order{{Column: ColArtistName}},
				Limit:    Literal{Value: int64(20)},
			},
			params: 1,
		},
		{
			name: "stats",
			text: "SELECT COUNT(*) AS total, SUM(is_owned) AS owned, SUM(want_to_own) AS wanted, COUNT(DISTINCT artist_name) AS unique_artists, TALLY(style) AS styles FROM albums",
			want: &Select{
				Items: []Item{
					{Kind: ItemCount, Alias: "total"},
					{Kind: ItemSum, Column: ColIsOwned, Alias: "owned"},
					{Kind: ItemSum, Column: ColWantToOwn, Alias: "wanted"},
					{Kind: ItemCountDistinct, Column: ColArtistName, Alias: "unique_artists"},
					{Kind: ItemTally, Column: ColStyle, Alias: "styles"},
				},
				Table: "albums",
			},
		},
		{
			name: "null checks",
			text: "SELECT id, album_name FROM albums WHERE release_year IS NULL OR cover_url IS NOT NULL LIMIT ? OFFSET ?",
			want: &Select{
				Items: []Item{{Kind: ItemColumn, Column: ColID}, {Kind: ItemColumn, Column: ColAlbumName}},
				Table: "albums",
				Where: &Or{Terms: []Predicate{
					&Compare{Left: Column{Name: ColReleaseYear}, Op: OpIsNull},
					&Compare{Left: Column{Name: ColCoverURL}, Op: OpIsNotNull},
				}},
				Limit:  Param{Index: 0},
				Offset: Param{Index: 1},
			},
			params: 2,
		},
		{
			name: "insert with columns",
			text: "INSERT INTO albums (artist_name, album_name, release_year, is_owned, want_to_own, created_date) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)",
			want: &Insert{
				Table:   "albums",
				Columns: []string{ColArtistName, ColAlbumName, ColReleaseYear, ColIsOwned, ColWantToOwn, ColCreatedDate},
				Values:  []Operand{Param{Index: 0}, Param{Index: 1}, Param{Index: 2}, Param{Index: 3}, Param{Index: 4}, Now{}},
			},
			params: 5,
		},
		{
			name: "insert positional",
			text: "INSERT INTO albums VALUES (?, 'It''s', NULL, TRUE)",
			want: &Insert{
				Table:   "albums",
				Columns: []string{ColArtistName, ColAlbumName, ColReleaseYear, ColIsOwned},
				Values:  []Operand{Param{Index: 0}, Literal{Value: "It's"}, Literal{}, Literal{Value: int64(1)}},
			},
			params: 1,
		},
		{
			name: "update",
			text: "UPDATE albums SET artist_name = ?, release_year = -1, updated_date = NOW() WHERE id = ?",
			want: &Update{
				Table: "albums",
				Set: []Assignment{
					{Column: ColArtistName, Value: Param{Index: 0}},
					{Column: ColReleaseYear, Value: Literal{Value: int64(-1)}},
					{Column: ColUpdatedDate, Value: Now{}},
				},
				ID: Param{Index: 1},
			},
			params: 2,
		},
		{
			name: "delete",
			text: "DELETE FROM albums WHERE id = 7",
			want: &Delete{Table: "albums", ID: Literal{Value: int64(7)}},
		},
		{
			name: "quoted identifiers",
			text: `SELECT "artist_name" FROM ` + "`albums`",
			want: &Select{Items: []Item{{Kind: ItemColumn, Column: ColArtistName}}, Table: "albums"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.text, err)
			}
			if !reflect.DeepEqual(q.Stmt, tt.want) {
				t.Errorf("got %#v\nwant %#v", q.Stmt, tt.want)
			}
			if q.NumParams != tt.params {
				t.Errorf("NumParams = %d, want %d", q.NumParams, tt.params)
			}
			if q.Text != tt.text {
				t.Errorf("Text = %q", q.Text)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"unknown keyword", "REPLACE INTO albums VALUES (?)"},
		{"unknown column", "SELECT * FROM albums WHERE genre = ?"},
		{"missing from", "SELECT *"},
		{"trailing input", "SELECT * FROM albums garbage"},
		{"unterminated string", "SELECT * FROM albums WHERE artist_name = 'abc"},
		{"distinct star", "SELECT DISTINCT * FROM albums"},
		{"distinct two columns", "SELECT DISTINCT artist_name, album_name FROM albums"},
		{"mixed aggregate", "SELECT COUNT(*), artist_name FROM albums"},
		{"aggregate order", "SELECT COUNT(*) FROM albums ORDER BY artist_name"},
		{"insert id", "INSERT INTO albums (id, artist_name) VALUES (?, ?)"},
		{"insert count", "INSERT INTO albums (artist_name, album_name) VALUES (?)"},
		{"insert duplicate column", "INSERT INTO albums (artist_name, artist_name) VALUES (?, ?)"},
		{"insert too many", "INSERT INTO albums VALUES (1,2,3,4,5,6,7,8,9,10,11,12,13)"},
		{"insert column value", "INSERT INTO albums (artist_name) VALUES (album_name)"},
		{"update id", "UPDATE albums SET id = ? WHERE id = ?"},
		{"update created", "UPDATE albums SET created_date = ? WHERE id = ?"},
		{"update without where", "UPDATE albums SET artist_name = ?"},
		{"update by name", "UPDATE albums SET album_name = ? WHERE artist_name = ?"},
		{"delete without where", "DELETE FROM albums"},
		{"bad operator", "SELECT * FROM albums WHERE id ! 3"},
		{"negative limit", "SELECT * FROM albums LIMIT -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", tt.text)
			}
			if !errors.Is(err, ErrUnrecognized) {
				t.Errorf("error %v does not match ErrUnrecognized", err)
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("error %T is not a *SyntaxError", err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Kind
	}{
		{"SELECT * FROM albums", KindSelect},
		{"  select id from albums", KindSelect},
		{"Insert into albums values (?)", KindInsert},
		{"UPDATE albums SET x = 1", KindUpdate},
		{"delete from albums", KindDelete},
		{"SELECTED", KindUnknown},
		{"", KindUnknown},
		{"DROP TABLE albums", KindUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
	if KindSelect.IsWrite() || !KindDelete.IsWrite() {
		t.Error("IsWrite")
	}
}

func TestCheckArgs(t *testing.T) {
	q, err := Parse("SELECT * FROM albums WHERE artist_name = ? AND album_name = ?")
	if err != nil {
		t.Fatal(err)
	}
	if err := q.CheckArgs([]any{"a", "b"}); err != nil {
		t.Errorf("CheckArgs: %v", err)
	}
	for _, args := range [][]any{nil, {"a"}, {"a", "b", "c"}} {
		if err := q.CheckArgs(args); !errors.Is(err, ErrParamCount) {
			t.Errorf("CheckArgs(%v) = %v, want ErrParamCount", args, err)
		}
	}
}

func TestItemName(t *testing.T) {
	tests := []struct {
		item Item
		want string
	}{
		{Item{Kind: ItemColumn, Column: ColStyle}, "style"},
		{Item{Kind: ItemCount}, "count(*)"},
		{Item{Kind: ItemSum, Column: ColIsOwned}, "sum(is_owned)"},
		{Item{Kind: ItemCountDistinct, Column: ColArtistName}, "count(distinct artist_name)"},
		{Item{Kind: ItemTally, Column: ColStyle}, "tally(style)"},
		{Item{Kind: ItemCount, Alias: "total"}, "total"},
	}
	for _, tt := range tests {
		if got := tt.item.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}
