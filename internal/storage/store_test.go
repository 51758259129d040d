package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maruel/albumdb/internal/jsondb"
	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

const insertSQL = "INSERT INTO albums (artist_name, album_name, release_year, is_owned, want_to_own, cover_url, discogs_release_id) VALUES (?, ?, ?, ?, ?, ?, ?)"

var testNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DataPath: filepath.Join(t.TempDir(), "albums.json"),
		Now:      func() time.Time { return testNow },
	}
}

func openStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	s, err := Open(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Error(err)
		}
	})
	return s
}

func mustExecute(t *testing.T, s *Store, text string, args ...any) {
	t.Helper()
	ok, err := s.Execute(t.Context(), text, args...)
	if err != nil {
		t.Fatalf("Execute(%q): %v", text, err)
	}
	if !ok {
		t.Fatalf("Execute(%q) changed nothing", text)
	}
}

func mustQuery(t *testing.T, s *Store, text string, args ...any) []Row {
	t.Helper()
	rows, err := s.Query(t.Context(), text, args...)
	if err != nil {
		t.Fatalf("Query(%q): %v", text, err)
	}
	return rows
}

func insert(t *testing.T, s *Store, artist, album string, year any, owned, wanted int) {
	t.Helper()
	mustExecute(t, s, insertSQL, artist, album, year, owned, wanted, nil, nil)
}

func ids(rows []Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r["id"].(int64)
	}
	return out
}

func TestStore(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cfg := testConfig(t)
		s := openStore(t, cfg)
		if rows := mustQuery(t, s, "SELECT * FROM albums"); len(rows) != 0 {
			t.Fatalf("got %d rows", len(rows))
		}
		if _, err := os.Stat(cfg.DataPath); !os.IsNotExist(err) {
			t.Fatalf("data file created by a read: %v", err)
		}
	})

	t.Run("stats scenario", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		mustExecute(t, s, insertSQL, "Radiohead", "OK Computer", 1997, 1, 0, nil, nil)
		st, err := s.Stats(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if st.Total != 1 || st.Owned != 1 || st.Wanted != 0 || st.UniqueArtists != 1 {
			t.Fatalf("stats = %+v", st)
		}
		if len(st.Styles) != 0 {
			t.Errorf("styles = %v", st.Styles)
		}
	})

	t.Run("insert fields", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		mustExecute(t, s, "INSERT INTO albums VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			"Radiohead", "Kid A", "2000", true, models.Flag(false), "http://x/c.jpg", 12345, "Electronic, Art Rock", "Vinyl", "group", "Parlophone", nil)
		albums, err := s.Albums(t.Context(), "SELECT * FROM albums")
		if err != nil {
			t.Fatal(err)
		}
		if len(albums) != 1 {
			t.Fatalf("got %d albums", len(albums))
		}
		a := albums[0]
		want := models.Album{
			ID:               1,
			ArtistName:       "Radiohead",
			AlbumName:        "Kid A",
			ReleaseYear:      year(2000),
			IsOwned:          true,
			CoverURL:         models.Text("http://x/c.jpg"),
			DiscogsReleaseID: models.Text("12345"),
			Style:            models.Text("Electronic, Art Rock"),
			Format:           models.Text("Vinyl"),
			ArtistType:       models.Text("group"),
			Label:            models.Text("Parlophone"),
			CreatedDate:      "2024-01-02 03:04:05",
			UpdatedDate:      "2024-01-02 03:04:05",
		}
		if a.ReleaseYear == nil || *a.ReleaseYear != 2000 {
			t.Fatalf("release_year = %v", a.ReleaseYear)
		}
		a.ReleaseYear, want.ReleaseYear = nil, nil
		if a != want {
			t.Fatalf("got  %+v\nwant %+v", a, want)
		}
	})

	t.Run("caller timestamps ignored", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		mustExecute(t, s, "INSERT INTO albums (artist_name, album_name, created_date, updated_date) VALUES (?, ?, ?, CURRENT_TIMESTAMP)", "A", "B", "1999-01-01 00:00:00")
		rows := mustQuery(t, s, "SELECT created_date, updated_date FROM albums")
		if rows[0]["created_date"] != "2024-01-02 03:04:05" || rows[0]["updated_date"] != "2024-01-02 03:04:05" {
			t.Fatalf("row = %v", rows[0])
		}
	})

	t.Run("id monotonicity", func(t *testing.T) {
		cfg := testConfig(t)
		s := openStore(t, cfg)
		for i := range 3 {
			insert(t, s, "Artist", fmt.Sprintf("Album %d", i), nil, 0, 0)
		}
		mustExecute(t, s, "DELETE FROM albums WHERE id = ?", 3)
		mustExecute(t, s, "DELETE FROM albums WHERE id = ?", 2)
		insert(t, s, "Artist", "Album 3", nil, 0, 0)
		if got, want := ids(mustQuery(t, s, "SELECT * FROM albums")), []int64{1, 4}; !slices.Equal(got, want) {
			t.Fatalf("ids = %v, want %v", got, want)
		}
		s2 := openStore(t, cfg)
		insert(t, s2, "Artist", "Album 4", nil, 0, 0)
		if got, want := ids(mustQuery(t, s2, "SELECT * FROM albums")), []int64{1, 4, 5}; !slices.Equal(got, want) {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	})

	t.Run("duplicate filter", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		insert(t, s, "Artist A", "Album B", nil, 1, 0)
		insert(t, s, "Artist A", "Album C", nil, 1, 0)
		const dup = "SELECT id FROM albums WHERE LOWER(artist_name) = LOWER(?) AND LOWER(album_name) = LOWER(?)"
		if rows := mustQuery(t, s, dup, "ARTIST a", "album b"); len(rows) != 1 || rows[0]["id"] != int64(1) {
			t.Fatalf("rows = %v", rows)
		}
		if rows := mustQuery(t, s, dup+" AND id != ?", "artist a", "ALBUM B", 1); len(rows) != 0 {
			t.Fatalf("excluding own id: rows = %v", rows)
		}
		if rows := mustQuery(t, s, dup+" AND id != ?", "artist a", "ALBUM B", 2); len(rows) != 1 {
			t.Fatalf("excluding other id: rows = %v", rows)
		}
	})

	t.Run("filters and order", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		insert(t, s, "The The", "Album X", nil, 1, 0)
		insert(t, s, "Aaron Dilloway", "Album Y", nil, 0, 1)
		insert(t, s, "Radiohead", "OK Computer", 1997, 1, 0)
		insert(t, s, "Radiohead", "Kid A", 2000, 0, 1)
		insert(t, s, "John Smith", "Songs", 1980, 1, 0)

		tests := []struct {
			name string
			text string
			args []any
			want []int64
		}{
			{"all", "SELECT * FROM albums", nil, []int64{1, 2, 3, 4, 5}},
			{"by artist", "SELECT * FROM albums ORDER BY artist_name", nil, []int64{2, 3, 4, 5, 1}},
			{"by artist desc", "SELECT * FROM albums ORDER BY artist_name DESC", nil, []int64{1, 5, 3, 4, 2}},
			{"owned", "SELECT * FROM albums WHERE is_owned = 1 ORDER BY artist_name", nil, []int64{3, 5, 1}},
			{"wanted", "SELECT * FROM albums WHERE want_to_own = ? ORDER BY artist_name", []any{true}, []int64{2, 4}},
			{"search", "SELECT * FROM albums WHERE artist_name LIKE ? OR album_name LIKE ? ORDER BY artist_name", []any{"%RADIO%", "%RADIO%"}, []int64{3, 4}},
			{"search album", "SELECT * FROM albums WHERE (artist_name LIKE ? OR album_name LIKE ?) AND is_owned = 1", []any{"%album%", "%album%"}, []int64{1}},
			{"id", "SELECT * FROM albums WHERE id = ?", []any{"4"}, []int64{4}},
			{"year range", "SELECT * FROM albums WHERE release_year >= ? AND release_year < 2000", []any{1980}, []int64{3, 5}},
			{"year null", "SELECT * FROM albums WHERE release_year IS NULL", nil, []int64{1, 2}},
			{"year desc", "SELECT * FROM albums ORDER BY release_year DESC, id", nil, []int64{4, 3, 5, 1, 2}},
			{"limit", "SELECT * FROM albums ORDER BY artist_name LIMIT 2 OFFSET ?", []any{1}, []int64{3, 4}},
			{"offset past end", "SELECT * FROM albums LIMIT 10 OFFSET 10", nil, []int64{}},
			{"no match", "SELECT * FROM albums WHERE artist_name = ?", []any{"nobody"}, []int64{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := ids(mustQuery(t, s, tt.text, tt.args...))
				if !slices.Equal(got, tt.want) {
					t.Errorf("ids = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("distinct", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		insert(t, s, "Radiohead", "OK Computer", 1997, 1, 0)
		insert(t, s, "The Beatles", "Abbey Road", 1969, 1, 0)
		insert(t, s, "Radiohead", "Kid A", 2000, 0, 1)
		insert(t, s, "Portishead", "Dummy", 1994, 0, 1)

		rows := mustQuery(t, s, "SELECT DISTINCT artist_name FROM albums")
		var got []string
		for _, r := range rows {
			got = append(got, r["artist_name"].(string))
		}
		if want := []string{"Radiohead", "The Beatles", "Portishead"}; !slices.Equal(got, want) {
			t.Fatalf("first seen order = %v, want %v", got, want)
		}

		rows = mustQuery(t, s, "SELECT DISTINCT artist_name AS name FROM albums WHERE artist_name LIKE ? ORDER BY artist_name LIMIT 20", "%head%")
		got = got[:0]
		for _, r := range rows {
			got = append(got, r["name"].(string))
		}
		if want := []string{"Portishead", "Radiohead"}; !slices.Equal(got, want) {
			t.Fatalf("filtered = %v, want %v", got, want)
		}
	})

	t.Run("aggregates", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		for _, a := range []struct {
			artist, style string
			owned, wanted int
		}{
			{"Radiohead", "Alternative Rock, Electronic", 1, 0},
			{"radiohead", "Electronic", 0, 1},
			{"Portishead", "Trip Hop,Electronic", 1, 0},
			{"Björk", "", 0, 1},
			{"Massive Attack", "Trip Hop", 1, 0},
		} {
			mustExecute(t, s, "INSERT INTO albums (artist_name, album_name, is_owned, want_to_own, style) VALUES (?, ?, ?, ?, ?)", a.artist, "X", a.owned, a.wanted, a.style)
		}
		st, err := s.Stats(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		want := models.Stats{
			Total:         5,
			Owned:         3,
			Wanted:        2,
			UniqueArtists: 5,
			Styles: []models.StyleCount{
				{Style: "Electronic", Count: 3},
				{Style: "Trip Hop", Count: 2},
				{Style: "Alternative Rock", Count: 1},
			},
		}
		if st.Total != want.Total || st.Owned != want.Owned || st.Wanted != want.Wanted || st.UniqueArtists != want.UniqueArtists || !slices.Equal(st.Styles, want.Styles) {
			t.Fatalf("stats = %+v\nwant %+v", *st, want)
		}

		rows := mustQuery(t, s, "SELECT COUNT(*), SUM(is_owned) FROM albums WHERE style LIKE ?", "%trip%")
		if len(rows) != 1 || rows[0]["count(*)"] != int64(2) || rows[0]["sum(is_owned)"] != int64(2) {
			t.Fatalf("rows = %v", rows)
		}
	})

	t.Run("update", func(t *testing.T) {
		cfg := testConfig(t)
		clock := testNow
		cfg.Now = func() time.Time { return clock }
		s := openStore(t, cfg)
		insert(t, s, "Radiohead", "OK Computer", 1997, 0, 1)
		clock = clock.Add(time.Hour)
		mustExecute(t, s, "UPDATE albums SET is_owned = ?, want_to_own = ?, label = ?, updated_date = CURRENT_TIMESTAMP WHERE id = ?", 1, 0, "Parlophone", 1)
		albums, err := s.Albums(t.Context(), "SELECT * FROM albums WHERE id = ?", 1)
		if err != nil {
			t.Fatal(err)
		}
		a := albums[0]
		if !a.IsOwned || a.WantToOwn || a.Label != models.Text("Parlophone") || a.AlbumName != "OK Computer" || a.Year() != 1997 {
			t.Errorf("album = %+v", a)
		}
		if a.CreatedDate != "2024-01-02 03:04:05" || a.UpdatedDate != "2024-01-02 04:04:05" {
			t.Errorf("dates = %q, %q", a.CreatedDate, a.UpdatedDate)
		}

		before, err := os.ReadFile(cfg.DataPath)
		if err != nil {
			t.Fatal(err)
		}
		for _, text := range []string{"UPDATE albums SET label = NULL WHERE id = ?", "DELETE FROM albums WHERE id = ?"} {
			ok, err := s.Execute(t.Context(), text, 42)
			if err != nil || ok {
				t.Errorf("Execute(%q) = %v, %v; want false, nil", text, ok, err)
			}
		}
		after, err := os.ReadFile(cfg.DataPath)
		if err != nil {
			t.Fatal(err)
		}
		if string(before) != string(after) {
			t.Error("no-op write modified the file")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		for _, args := range [][]any{
			{"A", "B", "nineteen", 0, 0, nil, nil},
			{"A", "B", 1999, "maybe", 0, nil, nil},
		} {
			if _, err := s.Execute(t.Context(), insertSQL, args...); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Execute(%v) = %v, want ErrInvalidValue", args, err)
			}
		}
		if _, err := s.Query(t.Context(), "SELECT * FROM albums LIMIT ?", "ten"); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("LIMIT: %v", err)
		}
		if rows := mustQuery(t, s, "SELECT * FROM albums"); len(rows) != 0 {
			t.Errorf("failed insert left %d rows", len(rows))
		}
	})
}

func TestStoreFileFormat(t *testing.T) {
	cfg := testConfig(t)
	s := openStore(t, cfg)
	insert(t, s, "Radiohead", "OK Computer", nil, 1, 0)
	raw, err := os.ReadFile(cfg.DataPath)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc) != 2 || string(doc["next_id"]) != "2" {
		t.Fatalf("top level = %s", raw)
	}
	var albums []map[string]any
	if err := json.Unmarshal(doc["albums"], &albums); err != nil {
		t.Fatal(err)
	}
	a := albums[0]
	if len(a) != len(query.Columns) {
		t.Errorf("album has %d keys, want %d", len(a), len(query.Columns))
	}
	if a["is_owned"] != float64(1) || a["want_to_own"] != float64(0) || a["release_year"] != nil || a["cover_url"] != nil {
		t.Errorf("album = %v", a)
	}
}

func TestStoreErrors(t *testing.T) {
	t.Run("unrecognized", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		if _, err := s.Query(t.Context(), "SHOW TABLES"); !errors.Is(err, query.ErrUnrecognized) {
			t.Errorf("Query: %v", err)
		}
		if _, err := s.Execute(t.Context(), "TRUNCATE albums"); !errors.Is(err, query.ErrUnrecognized) {
			t.Errorf("Execute: %v", err)
		}
	})

	t.Run("lenient", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Lenient = true
		s := openStore(t, cfg)
		var buf bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
		t.Cleanup(func() { slog.SetDefault(prev) })
		rows, err := s.Query(t.Context(), "SHOW TABLES")
		if err != nil || rows == nil || len(rows) != 0 {
			t.Errorf("Query = %v, %v", rows, err)
		}
		if !strings.Contains(buf.String(), "kind=UNKNOWN") {
			t.Errorf("warning does not name the statement kind: %q", buf.String())
		}
		ok, err := s.Execute(t.Context(), "TRUNCATE albums")
		if err != nil || ok {
			t.Errorf("Execute = %v, %v", ok, err)
		}
		if _, err := s.Query(t.Context(), "SELECT * FROM albums WHERE id = ?"); !errors.Is(err, query.ErrParamCount) {
			t.Errorf("lenient mode must still check arguments: %v", err)
		}
	})

	t.Run("parameter count", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		if _, err := s.Execute(t.Context(), insertSQL, "A", "B"); !errors.Is(err, query.ErrParamCount) {
			t.Errorf("Execute: %v", err)
		}
	})

	t.Run("statement kind", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		if _, err := s.Query(t.Context(), "DELETE FROM albums WHERE id = 1"); !errors.Is(err, ErrStatementKind) {
			t.Errorf("Query: %v", err)
		}
		if _, err := s.Execute(t.Context(), "SELECT * FROM albums"); !errors.Is(err, ErrStatementKind) {
			t.Errorf("Execute: %v", err)
		}
		if _, err := s.Albums(t.Context(), "SELECT COUNT(*) FROM albums"); !errors.Is(err, ErrStatementKind) {
			t.Errorf("Albums: %v", err)
		}
	})

	t.Run("closed", func(t *testing.T) {
		s, err := Open(t.Context(), testConfig(t))
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Query(t.Context(), "SELECT * FROM albums"); !errors.Is(err, ErrClosed) {
			t.Errorf("Query: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		s := openStore(t, testConfig(t))
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, err := s.Execute(ctx, insertSQL, "A", "B", nil, 0, 0, nil, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("Execute: %v", err)
		}
	})

	t.Run("config", func(t *testing.T) {
		if _, err := Open(t.Context(), Config{}); err == nil {
			t.Error("expected error for missing data path")
		}
		p := filepath.Join(t.TempDir(), "a.json")
		if _, err := Open(t.Context(), Config{DataPath: p, LockPath: p}); err == nil {
			t.Error("expected error for lock path equal to data path")
		}
	})
}

func TestStoreCorrupt(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		cfg := testConfig(t)
		const content = `{"albums": [`
		if err := os.WriteFile(cfg.DataPath, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(t.Context(), cfg); !errors.Is(err, jsondb.ErrCorrupt) {
			t.Fatalf("Open: %v", err)
		}
		raw, err := os.ReadFile(cfg.DataPath)
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != content {
			t.Errorf("file modified: %q", raw)
		}
	})

	t.Run("poisons", func(t *testing.T) {
		cfg := testConfig(t)
		s := openStore(t, cfg)
		insert(t, s, "A", "B", nil, 0, 0)
		if err := os.WriteFile(cfg.DataPath, []byte("garbage"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Execute(t.Context(), insertSQL, "C", "D", nil, 0, 0, nil, nil); !errors.Is(err, jsondb.ErrCorrupt) {
			t.Fatalf("Execute: %v", err)
		}
		if _, err := s.Query(t.Context(), "SELECT * FROM albums"); !errors.Is(err, jsondb.ErrCorrupt) {
			t.Errorf("Query after corruption: %v", err)
		}
		if err := os.WriteFile(cfg.DataPath, []byte(`{"albums": [], "next_id": 1}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := s.Reload(t.Context()); !errors.Is(err, jsondb.ErrCorrupt) {
			t.Errorf("Reload after repair: %v", err)
		}
	})
}

func TestStoreNextIDRepair(t *testing.T) {
	cfg := testConfig(t)
	const content = `{"albums": [{"id": 5, "artist_name": "A", "album_name": "B", "is_owned": 1, "want_to_own": 0}], "next_id": 3}`
	if err := os.WriteFile(cfg.DataPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s := openStore(t, cfg)
	insert(t, s, "C", "D", nil, 0, 0)
	if got, want := ids(mustQuery(t, s, "SELECT id FROM albums")), []int64{5, 6}; !slices.Equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}

func TestStoreLockTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.LockTimeout = 50 * time.Millisecond
	s := openStore(t, cfg)

	lock, err := jsondb.NewLock(cfg.DataPath+".lock", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- lock.WithWriteLock(context.Background(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	start := time.Now()
	_, err = s.Execute(t.Context(), insertSQL, "A", "B", nil, 0, 0, nil, nil)
	close(release)
	if !errors.Is(err, jsondb.ErrLockTimeout) {
		t.Fatalf("Execute: %v", err)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("timed out after %s", d)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	// Retrying once the lock is free succeeds.
	insert(t, s, "A", "B", nil, 0, 0)
}

func TestStoreConcurrentWrites(t *testing.T) {
	cfg := testConfig(t)
	const instances = 8
	const perInstance = 5
	stores := make([]*Store, instances)
	for i := range stores {
		stores[i] = openStore(t, cfg)
	}
	var wg sync.WaitGroup
	errs := make(chan error, instances*perInstance)
	for i, s := range stores {
		wg.Go(func() {
			for j := range perInstance {
				if _, err := s.Execute(t.Context(), insertSQL, fmt.Sprintf("Artist %d", i), fmt.Sprintf("Album %d", j), nil, 0, 0, nil, nil); err != nil {
					errs <- err
				}
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	s := openStore(t, cfg)
	rows := mustQuery(t, s, "SELECT id FROM albums ORDER BY id")
	if len(rows) != instances*perInstance {
		t.Fatalf("got %d rows, want %d", len(rows), instances*perInstance)
	}
	for i, id := range ids(rows) {
		if id != int64(i+1) {
			t.Fatalf("row %d has id %d", i, id)
		}
	}
}

func TestStoreStaleness(t *testing.T) {
	cfg := testConfig(t)
	a := openStore(t, cfg)
	b := openStore(t, cfg)
	insert(t, a, "A", "1", nil, 0, 0)
	if rows := mustQuery(t, b, "SELECT * FROM albums"); len(rows) != 0 {
		t.Fatalf("b sees %d rows before reload", len(rows))
	}
	// A write refreshes the writer's snapshot.
	insert(t, b, "B", "2", nil, 0, 0)
	if got, want := ids(mustQuery(t, b, "SELECT * FROM albums")), []int64{1, 2}; !slices.Equal(got, want) {
		t.Fatalf("b ids = %v, want %v", got, want)
	}
	if err := a.Reload(t.Context()); err != nil {
		t.Fatal(err)
	}
	if got, want := ids(mustQuery(t, a, "SELECT * FROM albums")), []int64{1, 2}; !slices.Equal(got, want) {
		t.Fatalf("a ids = %v, want %v", got, want)
	}
}

func TestStoreReloadDuringWrites(t *testing.T) {
	s := openStore(t, testConfig(t))
	ctx, cancel := context.WithCancel(t.Context())
	var wg sync.WaitGroup
	wg.Go(func() {
		for ctx.Err() == nil {
			if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				t.Error(err)
				return
			}
		}
	})
	defer func() {
		cancel()
		wg.Wait()
	}()
	const writes = 300
	for i := range writes {
		insert(t, s, "Artist", fmt.Sprintf("Album %d", i), nil, 0, 0)
		c, err := s.Snapshot(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if len(c.Albums) != i+1 || c.NextID != int64(i+2) {
			t.Fatalf("after write %d: %d albums, next_id %d", i+1, len(c.Albums), c.NextID)
		}
	}
}

func TestStoreTextYear(t *testing.T) {
	cfg := testConfig(t)
	data := `{"albums":[{"id":1,"artist_name":"Portishead","album_name":"Portishead","release_year":"1997","is_owned":1,"want_to_own":0},` +
		`{"id":2,"artist_name":"Air","album_name":"Moon Safari","release_year":"","is_owned":0,"want_to_own":0}],"next_id":3}`
	if err := os.WriteFile(cfg.DataPath, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	s := openStore(t, cfg)
	rows := mustQuery(t, s, "SELECT id FROM albums WHERE release_year = 1997")
	if got := ids(rows); !slices.Equal(got, []int64{1}) {
		t.Fatalf("ids = %v, want [1]", got)
	}
	rows = mustQuery(t, s, "SELECT id FROM albums WHERE release_year IS NULL")
	if got := ids(rows); !slices.Equal(got, []int64{2}) {
		t.Fatalf("ids = %v, want [2]", got)
	}
	// The next write stores the year as a number.
	insert(t, s, "Massive Attack", "Mezzanine", 1998, 1, 0)
	raw, err := os.ReadFile(cfg.DataPath)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Albums []map[string]any `json:"albums"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if y, ok := doc.Albums[0]["release_year"].(float64); !ok || y != 1997 {
		t.Errorf("release_year = %#v, want 1997", doc.Albums[0]["release_year"])
	}
}

func TestStoreWatch(t *testing.T) {
	cfg := testConfig(t)
	writer := openStore(t, cfg)
	wcfg := cfg
	wcfg.Watch = true
	watcher := openStore(t, wcfg)
	insert(t, writer, "A", "B", nil, 0, 0)
	deadline := time.Now().Add(5 * time.Second)
	for {
		if rows := mustQuery(t, watcher, "SELECT * FROM albums"); len(rows) == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher never observed the write")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStmtCache(t *testing.T) {
	c := newStmtCache()
	c.maxQueries = 2
	q1, err := c.parse("SELECT * FROM albums")
	if err != nil {
		t.Fatal(err)
	}
	q2, err := c.parse("SELECT * FROM albums")
	if err != nil {
		t.Fatal(err)
	}
	if q1 != q2 {
		t.Error("statement was parsed twice")
	}
	if _, err := c.parse("NOPE"); err == nil {
		t.Error("expected error")
	}
	if c.len() != 1 {
		t.Errorf("len = %d, want 1", c.len())
	}
	for _, text := range []string{"SELECT id FROM albums", "SELECT style FROM albums"} {
		if _, err := c.parse(text); err != nil {
			t.Fatal(err)
		}
	}
	if c.len() != 1 {
		t.Errorf("len after overflow = %d, want 1", c.len())
	}
}
