// Computes DISTINCT projections and aggregate rows.

package storage

import (
	"cmp"
	"slices"
	"strings"

	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

// distinctValues projects col and drops repeated values, keeping the first
// occurrence. NULL is kept once like any other value.
func distinctValues(albums []*models.Album, col string) []any {
	seen := make(map[any]struct{}, len(albums))
	var out []any
	for _, a := range albums {
		v := columnValue(a, col)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// aggregate computes the single row of an aggregate projection.
func aggregate(albums []*models.Album, items []query.Item) Row {
	row := make(Row, len(items))
	for i := range items {
		it := &items[i]
		switch it.Kind {
		case query.ItemCount:
			row[it.Name()] = int64(len(albums))
		case query.ItemSum:
			var sum int64
			for _, a := range albums {
				if n, ok := coerceToInteger(columnValue(a, it.Column)); ok {
					sum += n
				}
			}
			row[it.Name()] = sum
		case query.ItemCountDistinct:
			seen := map[any]struct{}{}
			for _, a := range albums {
				if v := columnValue(a, it.Column); v != nil {
					seen[v] = struct{}{}
				}
			}
			row[it.Name()] = int64(len(seen))
		case query.ItemTally:
			row[it.Name()] = tally(albums, it.Column)
		}
	}
	return row
}

// tally counts the comma separated tokens of a text column. The result is
// sorted by descending count, then by token.
func tally(albums []*models.Album, col string) []models.StyleCount {
	counts := map[string]int64{}
	for _, a := range albums {
		v := columnValue(a, col)
		if v == nil {
			continue
		}
		for tok := range strings.SplitSeq(toString(v), ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				counts[tok]++
			}
		}
	}
	out := make([]models.StyleCount, 0, len(counts))
	for tok, n := range counts {
		out = append(out, models.StyleCount{Style: tok, Count: n})
	}
	slices.SortFunc(out, func(x, y models.StyleCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.Style, y.Style)
	})
	return out
}
