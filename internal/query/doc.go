// Package query parses the small SQL dialect understood by the album store.
//
// [Parse] turns a statement into a tagged-variant AST ([Select], [Insert],
// [Update], [Delete]) once, so that executors switch on node types instead of
// scanning the query text. Placeholders (?) are numbered left to right and
// resolved against positional arguments with [Value].
//
// The dialect targets exactly one table with the fixed column set in
// [Columns]. There are no joins, subqueries or GROUP BY. Aggregates are
// COUNT(*), COUNT(DISTINCT col), SUM(col) and TALLY(col); TALLY produces the
// frequency table of the comma separated tokens of a text column.
//
// Example:
//
//	q, err := query.Parse("SELECT * FROM albums WHERE is_owned = ? ORDER BY artist_name")
//	// q.Stmt is *query.Select, q.NumParams == 1
//
// Anything outside the dialect is reported as a *[SyntaxError] matching
// [ErrUnrecognized].
package query
