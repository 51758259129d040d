// Orders albums for ORDER BY.

package storage

import (
	"cmp"
	"slices"

	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

type sortItem struct {
	album *models.Album
	key   string // artist sort key, computed once
}

// sortAlbums sorts in place. The sort is stable: ties keep collection order.
//
// artist_name compares by SortKey. When it is one of the keys, release year
// and album name break the remaining ties.
func sortAlbums(albums []*models.Album, orders []query.Order) {
	if len(orders) == 0 {
		return
	}
	byArtist := slices.ContainsFunc(orders, func(o query.Order) bool { return o.Column == query.ColArtistName })
	items := make([]sortItem, len(albums))
	for i, a := range albums {
		items[i].album = a
		if byArtist {
			items[i].key = SortKey(a.ArtistName)
		}
	}
	slices.SortStableFunc(items, func(x, y sortItem) int {
		for _, o := range orders {
			var c int
			if o.Column == query.ColArtistName {
				c = cmp.Compare(x.key, y.key)
			} else {
				c = compareOrderValues(orderValue(x.album, o.Column), orderValue(y.album, o.Column))
			}
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		if byArtist {
			return compareArtistKeys(x.key, y.key, x.album, y.album)
		}
		return 0
	})
	for i := range items {
		albums[i] = items[i].album
	}
}

// orderValue returns the value a column sorts by. An unknown release year
// sorts as 0.
func orderValue(a *models.Album, col string) any {
	if col == query.ColReleaseYear {
		return a.Year()
	}
	return columnValue(a, col)
}

// compareOrderValues orders NULL first, numbers numerically and text
// ordinally.
func compareOrderValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			return cmp.Compare(ia, ib)
		}
	}
	return cmp.Compare(toString(a), toString(b))
}
