// Executes parsed statements against a collection.

package storage

import (
	"fmt"

	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

// Row is one result of Query, keyed by projected column or alias.
type Row map[string]any

// selectAlbums applies WHERE, ORDER BY, LIMIT and OFFSET. DISTINCT and
// aggregate projections are not applied.
func selectAlbums(c *models.Collection, s *query.Select, e *env) []*models.Album {
	albums := filterAlbums(c.Albums, s.Where, e)
	sortAlbums(albums, s.OrderBy)
	return albums
}

// execSelect runs a SELECT and projects its rows.
func execSelect(c *models.Collection, s *query.Select, e *env) ([]Row, error) {
	offset, limit, err := window(s, e)
	if err != nil {
		return nil, err
	}
	albums := selectAlbums(c, s, e)
	if s.IsAggregate() {
		return []Row{aggregate(albums, s.Items)}, nil
	}
	if s.Distinct {
		it := &s.Items[0]
		values := paginate(distinctValues(albums, it.Column), offset, limit)
		rows := make([]Row, len(values))
		for i, v := range values {
			rows[i] = Row{it.Name(): v}
		}
		return rows, nil
	}
	albums = paginate(albums, offset, limit)
	rows := make([]Row, len(albums))
	for i, a := range albums {
		rows[i] = project(a, s.Items)
	}
	return rows, nil
}

// project builds a row. nil items select every column.
func project(a *models.Album, items []query.Item) Row {
	if items == nil {
		row := make(Row, len(query.Columns))
		for _, col := range query.Columns {
			row[col] = columnValue(a, col)
		}
		return row
	}
	row := make(Row, len(items))
	for i := range items {
		row[items[i].Name()] = columnValue(a, items[i].Column)
	}
	return row
}

// window resolves OFFSET and LIMIT. A negative limit means none.
func window(s *query.Select, e *env) (offset, limit int, err error) {
	limit = -1
	if s.Limit != nil {
		if limit, err = count(e.value(nil, s.Limit), "LIMIT"); err != nil {
			return 0, 0, err
		}
	}
	if s.Offset != nil {
		if offset, err = count(e.value(nil, s.Offset), "OFFSET"); err != nil {
			return 0, 0, err
		}
	}
	return offset, limit, nil
}

func count(v any, clause string) (int, error) {
	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrInvalidValue, clause, v)
	}
	return int(n), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// execWrite applies a write statement to c in place and reports whether a
// row changed. Touched rows are stamped with e.now.
func execWrite(c *models.Collection, stmt query.Statement, e *env) (bool, error) {
	switch s := stmt.(type) {
	case *query.Insert:
		return true, insertAlbum(c, s, e)
	case *query.Update:
		return updateAlbum(c, s, e)
	case *query.Delete:
		return deleteAlbum(c, s, e)
	default:
		return false, fmt.Errorf("%w: not a write statement", query.ErrUnrecognized)
	}
}

// insertAlbum allocates the next id and appends the album. id, created_date
// and updated_date are never taken from the statement.
func insertAlbum(c *models.Collection, s *query.Insert, e *env) error {
	var a models.Album
	for i, col := range s.Columns {
		if col == query.ColCreatedDate || col == query.ColUpdatedDate {
			continue
		}
		if err := setColumn(&a, col, e.value(nil, s.Values[i])); err != nil {
			return err
		}
	}
	a.ID = c.NextID
	c.NextID++
	a.CreatedDate = e.now
	a.UpdatedDate = e.now
	c.Albums = append(c.Albums, a)
	return nil
}

// updateAlbum overwrites the assigned columns. A missing id is a no-op.
func updateAlbum(c *models.Collection, s *query.Update, e *env) (bool, error) {
	id, err := rowID(e.value(nil, s.ID))
	if err != nil {
		return false, err
	}
	idx := c.Index(id)
	if idx < 0 {
		return false, nil
	}
	a := c.Albums[idx].Clone()
	for _, set := range s.Set {
		if set.Column == query.ColUpdatedDate {
			continue
		}
		if err := setColumn(&a, set.Column, e.value(nil, set.Value)); err != nil {
			return false, err
		}
	}
	a.UpdatedDate = e.now
	c.Albums[idx] = a
	return true, nil
}

// deleteAlbum removes the album. A missing id is a no-op. Ids are never reused.
func deleteAlbum(c *models.Collection, s *query.Delete, e *env) (bool, error) {
	id, err := rowID(e.value(nil, s.ID))
	if err != nil {
		return false, err
	}
	idx := c.Index(id)
	if idx < 0 {
		return false, nil
	}
	c.Albums = append(c.Albums[:idx], c.Albums[idx+1:]...)
	return true, nil
}

func rowID(v any) (int64, error) {
	if id, ok := coerceToInteger(v); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: id %v", ErrInvalidValue, v)
}
