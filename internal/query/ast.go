package query

import "strings"

// Statement is a parsed query.
//
// This is a sealed interface: only *Select, *Insert, *Update and *Delete
// implement it.
type Statement interface {
	statementNode()
}

// Predicate is a WHERE condition: *Compare, *And or *Or.
type Predicate interface {
	predicateNode()
}

// Operand is a value inside a statement: Column, Param, Literal or Now.
type Operand interface {
	operandNode()
}

// Select reads rows.
//
// Items is nil for SELECT *. When Distinct is set, Items holds exactly one
// ItemColumn.
type Select struct {
	Distinct bool
	Items    []Item
	Table    string
	Where    Predicate // nil means no filter
	OrderBy  []Order
	Limit    Operand // nil means no limit
	Offset   Operand // nil means no offset
}

// IsAggregate reports whether the projection is made of aggregates only.
func (s *Select) IsAggregate() bool {
	return len(s.Items) != 0 && s.Items[0].Kind != ItemColumn
}

// Insert appends one row. Columns and Values have the same length.
type Insert struct {
	Table   string
	Columns []string
	Values  []Operand
}

// Update overwrites the assigned columns of the row with the given id.
type Update struct {
	Table string
	Set   []Assignment
	ID    Operand
}

// Delete removes the row with the given id.
type Delete struct {
	Table string
	ID    Operand
}

func (*Select) statementNode() {}
func (*Insert) statementNode() {}
func (*Update) statementNode() {}
func (*Delete) statementNode() {}

// ItemKind is the kind of a projected item.
type ItemKind int

// Item kinds.
const (
	ItemColumn        ItemKind = iota // col
	ItemCount                         // COUNT(*)
	ItemCountDistinct                 // COUNT(DISTINCT col)
	ItemSum                           // SUM(col)
	ItemTally                         // TALLY(col)
)

// Item is one projected expression.
type Item struct {
	Kind   ItemKind
	Column string // empty for ItemCount
	Alias  string
}

// Name returns the key under which the item is returned.
func (i *Item) Name() string {
	if i.Alias != "" {
		return i.Alias
	}
	switch i.Kind {
	case ItemCount:
		return "count(*)"
	case ItemCountDistinct:
		return "count(distinct " + i.Column + ")"
	case ItemSum:
		return "sum(" + i.Column + ")"
	case ItemTally:
		return "tally(" + i.Column + ")"
	default:
		return i.Column
	}
}

// Order is one ORDER BY key.
type Order struct {
	Column string
	Desc   bool
}

// Assignment is one SET clause of an UPDATE.
type Assignment struct {
	Column string
	Value  Operand
}

// Op is a comparison operator.
type Op int

// Comparison operators.
const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLike
	OpIsNull
	OpIsNotNull
)

var opNames = [...]string{"=", "!=", "<", "<=", ">", ">=", "LIKE", "IS NULL", "IS NOT NULL"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "?op"
}

// Compare is a binary comparison. Right is nil for OpIsNull and OpIsNotNull.
type Compare struct {
	Left  Operand
	Op    Op
	Right Operand
}

// And matches when all terms match.
type And struct {
	Terms []Predicate
}

// Or matches when any term matches.
type Or struct {
	Terms []Predicate
}

func (*Compare) predicateNode() {}
func (*And) predicateNode()     {}
func (*Or) predicateNode()      {}

// Column references a column of the current row.
type Column struct {
	Name string
}

// Param is the Index-th (0-based) placeholder.
type Param struct {
	Index int
}

// Literal is an inline value: int64, string or nil.
type Literal struct {
	Value any
}

// Now is CURRENT_TIMESTAMP.
type Now struct{}

func (Column) operandNode()  {}
func (Param) operandNode()   {}
func (Literal) operandNode() {}
func (Now) operandNode()     {}

// Kind classifies a statement by its leading keyword.
type Kind int

// Statement kinds.
const (
	KindUnknown Kind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// IsWrite reports whether the kind mutates data.
func (k Kind) IsWrite() bool {
	return k == KindInsert || k == KindUpdate || k == KindDelete
}

// Classify returns the kind of text from its leading keyword, case-insensitively.
func Classify(text string) Kind {
	text = strings.TrimLeft(text, " \t\r\n(")
	end := strings.IndexFunc(text, func(r rune) bool { return !isIdentRune(r) })
	if end < 0 {
		end = len(text)
	}
	switch strings.ToUpper(text[:end]) {
	case "SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	default:
		return KindUnknown
	}
}
