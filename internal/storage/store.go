// Package storage implements the album store: a single table kept in one JSON
// document, queried and mutated through a small SQL dialect.
//
// Reads are served from an in-memory snapshot. Writes take the advisory lock,
// re-read the document, apply the statement, save atomically and replace the
// snapshot, so writers in different processes never lose each other's rows.
// A snapshot may be stale with respect to other processes until the next
// write, Reload or, with Config.Watch, file change notification.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maruel/albumdb/internal/jsondb"
	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

var (
	// ErrStatementKind is returned when Query receives a write statement or
	// Execute receives a SELECT.
	ErrStatementKind = errors.New("wrong statement kind")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)

// StatsQuery computes the collection statistics returned by Store.Stats.
const StatsQuery = "SELECT COUNT(*) AS total, SUM(is_owned) AS owned, SUM(want_to_own) AS wanted, " +
	"COUNT(DISTINCT artist_name) AS unique_artists, TALLY(style) AS styles FROM albums"

// Store is the album store.
//
// It is safe for concurrent use. Several Store instances, in one or several
// processes, may share the same files.
type Store struct {
	cfg   Config
	file  *jsondb.File[models.Collection]
	lock  *jsondb.Lock
	stmts *stmtCache

	mu     sync.RWMutex
	coll   *models.Collection
	gen    uint64 // incremented by every snapshot install
	err    error  // sticky: corruption or Close
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open loads the collection at cfg.DataPath. A missing file is an empty
// collection; the file is only created by the first write.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	file, err := jsondb.NewFile[models.Collection](c.DataPath)
	if err != nil {
		return nil, err
	}
	lock, err := jsondb.NewLock(c.LockPath, c.LockTimeout)
	if err != nil {
		return nil, err
	}
	s := &Store{cfg: c, file: file, lock: lock, stmts: newStmtCache()}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	if c.Watch {
		wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.cancel = cancel
		ready := make(chan error, 1)
		s.wg.Go(func() {
			if err := s.watch(wctx, ready); err != nil {
				slog.ErrorContext(wctx, "store watcher stopped", "path", c.DataPath, "err", err)
			}
		})
		if err := <-ready; err != nil {
			cancel()
			s.wg.Wait()
			return nil, err
		}
	}
	slog.DebugContext(ctx, "store opened", "path", c.DataPath, "lock", lock.Path(), "albums", len(s.coll.Albums), "next_id", s.coll.NextID)
	return s, nil
}

// Close stops the watcher. Later calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if errors.Is(s.err, ErrClosed) {
		s.mu.Unlock()
		return nil
	}
	if s.err == nil {
		s.err = ErrClosed
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.file.Path()
}

// Reload replaces the snapshot with the current file content.
//
// Reload does not take the write lock. When a write of this Store installs a
// snapshot while the file is being read, the write's snapshot is kept: it was
// read under the lock and is at least as recent.
func (s *Store) Reload(ctx context.Context) error {
	gen, err := s.generation()
	if err != nil {
		return err
	}
	c, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !s.replaceSnapshot(c, gen) {
		slog.DebugContext(ctx, "reload superseded by a write", "path", s.file.Path())
	}
	return nil
}

// Query runs a SELECT and returns its rows.
func (s *Store) Query(ctx context.Context, text string, args ...any) ([]Row, error) {
	q, err := s.prepare(ctx, text, args)
	if q == nil || err != nil {
		return []Row{}, err
	}
	sel, ok := q.Stmt.(*query.Select)
	if !ok {
		return nil, fmt.Errorf("%w: Query needs SELECT, got %s", ErrStatementKind, q.Kind())
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return execSelect(s.coll, sel, s.env(args))
}

// Albums runs a SELECT and returns the matching albums, ignoring the
// projection. DISTINCT and aggregates are rejected.
func (s *Store) Albums(ctx context.Context, text string, args ...any) ([]models.Album, error) {
	q, err := s.prepare(ctx, text, args)
	if q == nil || err != nil {
		return []models.Album{}, err
	}
	sel, ok := q.Stmt.(*query.Select)
	if !ok || sel.Distinct || sel.IsAggregate() {
		return nil, fmt.Errorf("%w: Albums needs a plain SELECT", ErrStatementKind)
	}
	e := s.env(args)
	offset, limit, err := window(sel, e)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	albums := paginate(selectAlbums(s.coll, sel, e), offset, limit)
	out := make([]models.Album, len(albums))
	for i, a := range albums {
		out[i] = a.Clone()
	}
	return out, nil
}

// Snapshot returns a copy of the current collection, including next_id.
func (s *Store) Snapshot(ctx context.Context) (*models.Collection, error) {
	if err := s.state(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.Clone(), nil
}

// Stats summarizes the whole collection.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	rows, err := s.Query(ctx, StatsQuery)
	if err != nil {
		return nil, err
	}
	row := rows[0]
	styles, _ := row["styles"].([]models.StyleCount)
	return &models.Stats{
		Total:         row["total"].(int64),
		Owned:         row["owned"].(int64),
		Wanted:        row["wanted"].(int64),
		UniqueArtists: row["unique_artists"].(int64),
		Styles:        styles,
	}, nil
}

// Execute runs an INSERT, UPDATE or DELETE under the write lock and reports
// whether a row changed. UPDATE and DELETE of a missing id return false
// without error and leave the file untouched.
func (s *Store) Execute(ctx context.Context, text string, args ...any) (bool, error) {
	q, err := s.prepare(ctx, text, args)
	if q == nil || err != nil {
		return false, err
	}
	if !q.Kind().IsWrite() {
		return false, fmt.Errorf("%w: Execute needs INSERT, UPDATE or DELETE, got %s", ErrStatementKind, q.Kind())
	}
	e := s.env(args)
	changed := false
	err = s.lock.WithWriteLock(ctx, func() error {
		c, err := s.load(ctx)
		if err != nil {
			return err
		}
		if changed, err = execWrite(c, q.Stmt, e); err != nil {
			return err
		}
		if changed {
			if err := s.file.Save(c); err != nil {
				return fmt.Errorf("failed to save %s: %w", s.file.Path(), err)
			}
		}
		s.setSnapshot(c)
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// prepare parses text and validates args. It returns a nil Query and nil
// error for a statement dropped in lenient mode.
func (s *Store) prepare(ctx context.Context, text string, args []any) (*query.Query, error) {
	if err := s.state(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := s.stmts.parse(text)
	if err != nil {
		if s.cfg.Lenient && errors.Is(err, query.ErrUnrecognized) {
			slog.WarnContext(ctx, "ignoring unrecognized query", "kind", query.Classify(text).String(), "query", text, "err", err)
			return nil, nil
		}
		return nil, err
	}
	if err := q.CheckArgs(args); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) env(args []any) *env {
	return &env{args: normalizeArgs(args), now: s.cfg.Now().Format(models.TimeFormat)}
}

func (s *Store) state() error {
	_, err := s.generation()
	return err
}

// generation returns the current snapshot generation and the sticky error.
func (s *Store) generation() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen, s.err
}

// load reads the data file. Corruption poisons the store.
func (s *Store) load(ctx context.Context) (*models.Collection, error) {
	c, exists, err := s.file.Load()
	if err != nil {
		if errors.Is(err, jsondb.ErrCorrupt) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			slog.ErrorContext(ctx, "data file is corrupt", "path", s.file.Path(), "err", err)
		}
		return nil, err
	}
	if !exists {
		return models.NewCollection(), nil
	}
	if c.Albums == nil {
		c.Albums = []models.Album{}
	}
	if m := c.MaxID(); c.NextID <= m {
		slog.WarnContext(ctx, "repairing next_id", "path", s.file.Path(), "next_id", c.NextID, "max_id", m)
		c.NextID = m + 1
	}
	return c, nil
}

// setSnapshot installs c unconditionally. Only callers holding the write lock
// may use it.
func (s *Store) setSnapshot(c *models.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll = c
	s.gen++
}

// replaceSnapshot installs c unless another snapshot was installed since gen
// was observed.
func (s *Store) replaceSnapshot(c *models.Collection, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.coll = c
	s.gen++
	return true
}
