// Evaluates WHERE predicates against albums.

package storage

import (
	"cmp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/maruel/albumdb/internal/models"
	"github.com/maruel/albumdb/internal/query"
)

// env carries what predicate evaluation needs besides the row.
type env struct {
	args []any  // normalized
	now  string // CURRENT_TIMESTAMP, formatted
}

func (e *env) value(a *models.Album, op query.Operand) any {
	switch o := op.(type) {
	case query.Column:
		if a == nil {
			return nil
		}
		return columnValue(a, o.Name)
	case query.Param:
		return e.args[o.Index]
	case query.Literal:
		return normalize(o.Value)
	case query.Now:
		return e.now
	default:
		return nil
	}
}

// filterAlbums returns the albums matching pred, in collection order.
func filterAlbums(albums []models.Album, pred query.Predicate, e *env) []*models.Album {
	result := make([]*models.Album, 0, len(albums))
	for i := range albums {
		if pred == nil || matches(&albums[i], pred, e) {
			result = append(result, &albums[i])
		}
	}
	return result
}

// matches checks if an album satisfies a predicate.
func matches(a *models.Album, pred query.Predicate, e *env) bool {
	switch p := pred.(type) {
	case *query.And:
		for _, t := range p.Terms {
			if !matches(a, t, e) {
				return false
			}
		}
		return true
	case *query.Or:
		for _, t := range p.Terms {
			if matches(a, t, e) {
				return true
			}
		}
		return false
	case *query.Compare:
		left := e.value(a, p.Left)
		switch p.Op {
		case query.OpIsNull:
			return left == nil
		case query.OpIsNotNull:
			return left != nil
		}
		return matchesOperator(left, p.Op, e.value(a, p.Right))
	default:
		return false
	}
}

// matchesOperator applies a binary operator.
//
// NULL is only equal to NULL and never ordered against anything.
func matchesOperator(left any, op query.Op, right any) bool {
	if left == nil || right == nil {
		switch op {
		case query.OpEq:
			return left == nil && right == nil
		case query.OpNe:
			return (left == nil) != (right == nil)
		default:
			return false
		}
	}
	if op == query.OpLike {
		return containsString(left, right)
	}
	c := compareValues(left, right)
	switch op {
	case query.OpEq:
		return c == 0
	case query.OpNe:
		return c != 0
	case query.OpLt:
		return c < 0
	case query.OpLe:
		return c <= 0
	case query.OpGt:
		return c > 0
	case query.OpGe:
		return c >= 0
	default:
		return false
	}
}

// compareValues compares two non-nil normalized values, returning -1, 0, or 1.
//
// When either side is a number and the other converts to one, the comparison
// is numeric. Otherwise both sides compare as case-folded text.
func compareValues(a, b any) int {
	if isNumeric(a) || isNumeric(b) {
		if ia, ok := a.(int64); ok {
			if ib, ok := coerceToInteger(b); ok {
				if _, frac := b.(float64); !frac {
					return cmp.Compare(ia, ib)
				}
			}
		}
		if fa, ok := coerceToReal(a); ok {
			if fb, ok := coerceToReal(b); ok {
				return cmp.Compare(fa, fb)
			}
		}
	}
	return cmp.Compare(fold(toString(a)), fold(toString(b)))
}

// containsString checks if value contains the pattern, case-insensitively.
//
// % wildcards are stripped from the pattern.
func containsString(value, pattern any) bool {
	p := strings.ReplaceAll(toString(pattern), "%", "")
	return strings.Contains(fold(toString(value)), fold(p))
}

// fold returns the case-folded form of s for caseless matching.
func fold(s string) string {
	// A Caser is stateful and must not be shared across goroutines.
	return cases.Fold().String(s)
}

// toString converts a normalized value to its string representation.
func toString(value any) string {
	if value == nil {
		return ""
	}
	return coerceToText(value).String
}
