package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Query is a parsed statement ready to be executed with arguments.
type Query struct {
	Text      string
	Stmt      Statement
	NumParams int
}

// Kind returns the statement kind.
func (q *Query) Kind() Kind {
	switch q.Stmt.(type) {
	case *Select:
		return KindSelect
	case *Insert:
		return KindInsert
	case *Update:
		return KindUpdate
	case *Delete:
		return KindDelete
	default:
		return KindUnknown
	}
}

// CheckArgs verifies that args binds every placeholder exactly once.
func (q *Query) CheckArgs(args []any) error {
	if len(args) != q.NumParams {
		return fmt.Errorf("%w: %d placeholders, %d arguments", ErrParamCount, q.NumParams, len(args))
	}
	return nil
}

// Parse parses a single statement.
//
// Errors wrap ErrUnrecognized.
func Parse(text string) (*Query, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var stmt Statement
	switch t := p.peek(); {
	case t.is("SELECT"):
		stmt, err = p.parseSelect()
	case t.is("INSERT"):
		stmt, err = p.parseInsert()
	case t.is("UPDATE"):
		stmt, err = p.parseUpdate()
	case t.is("DELETE"):
		stmt, err = p.parseDelete()
	default:
		return nil, p.fail(t, "expected SELECT, INSERT, UPDATE or DELETE")
	}
	if err != nil {
		return nil, err
	}
	p.accept(";")
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.fail(t, "unexpected trailing input")
	}
	return &Query{Text: text, Stmt: stmt, NumParams: p.params}, nil
}

type parser struct {
	toks   []token
	i      int
	params int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// accept consumes the next token if it is s.
func (p *parser) accept(s string) bool {
	if p.peek().is(s) {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(s string) error {
	if t := p.peek(); !t.is(s) {
		return p.fail(t, "expected "+s)
	}
	p.i++
	return nil
}

func (p *parser) fail(t token, msg string) error {
	near := t.text
	if t.kind == tokEOF {
		near = ""
		msg += " at end of query"
	}
	return &SyntaxError{Pos: t.pos, Near: near, Msg: msg}
}

// ident consumes a table or alias name.
func (p *parser) ident() (string, error) {
	t := p.peek()
	if t.kind != tokIdent {
		return "", p.fail(t, "expected identifier")
	}
	p.i++
	return t.text, nil
}

// column consumes a known column name, unwrapping LOWER() and UPPER().
func (p *parser) column() (string, error) {
	if p.isCaseWrapper() {
		p.i += 2
		name, err := p.column()
		if err != nil {
			return "", err
		}
		return name, p.expect(")")
	}
	t := p.peek()
	if t.kind != tokIdent {
		return "", p.fail(t, "expected column")
	}
	name := strings.ToLower(t.text)
	if !IsColumn(name) {
		return "", p.fail(t, "unknown column")
	}
	p.i++
	return name, nil
}

func (p *parser) isCaseWrapper() bool {
	t := p.peek()
	return (t.is("LOWER") || t.is("UPPER")) && p.peekAt(1).is("(")
}

func (p *parser) parseSelect() (*Select, error) {
	p.next()
	s := &Select{Distinct: p.accept("DISTINCT")}
	if !p.accept("*") {
		for {
			it, err := p.parseItem()
			if err != nil {
				return nil, err
			}
			s.Items = append(s.Items, it)
			if !p.accept(",") {
				break
			}
		}
	}
	if s.Distinct && (len(s.Items) != 1 || s.Items[0].Kind != ItemColumn) {
		return nil, p.fail(p.peek(), "DISTINCT requires exactly one column")
	}
	for _, it := range s.Items[min(1, len(s.Items)):] {
		if (it.Kind == ItemColumn) != (s.Items[0].Kind == ItemColumn) {
			return nil, p.fail(p.peek(), "cannot mix aggregates and columns")
		}
	}
	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	var err error
	if s.Table, err = p.ident(); err != nil {
		return nil, err
	}
	if p.accept("WHERE") {
		if s.Where, err = p.parseOr(); err != nil {
			return nil, err
		}
	}
	if p.accept("ORDER") {
		if err := p.expect("BY"); err != nil {
			return nil, err
		}
		if s.IsAggregate() {
			return nil, p.fail(p.peek(), "ORDER BY not allowed with aggregates")
		}
		for {
			var o Order
			if o.Column, err = p.column(); err != nil {
				return nil, err
			}
			if p.accept("DESC") {
				o.Desc = true
			} else {
				p.accept("ASC")
			}
			s.OrderBy = append(s.OrderBy, o)
			if !p.accept(",") {
				break
			}
		}
	}
	if p.accept("LIMIT") {
		if s.Limit, err = p.parseCount(); err != nil {
			return nil, err
		}
		if p.accept("OFFSET") {
			if s.Offset, err = p.parseCount(); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (p *parser) parseItem() (Item, error) {
	var it Item
	t := p.peek()
	var err error
	switch {
	case t.is("COUNT") && p.peekAt(1).is("("):
		p.i += 2
		if p.accept("*") {
			it.Kind = ItemCount
		} else if p.accept("DISTINCT") {
			it.Kind = ItemCountDistinct
			if it.Column, err = p.column(); err != nil {
				return it, err
			}
		} else {
			return it, p.fail(p.peek(), "expected * or DISTINCT")
		}
		err = p.expect(")")
	case (t.is("SUM") || t.is("TALLY")) && p.peekAt(1).is("("):
		p.i += 2
		it.Kind = ItemSum
		if t.is("TALLY") {
			it.Kind = ItemTally
		}
		if it.Column, err = p.column(); err != nil {
			return it, err
		}
		err = p.expect(")")
	default:
		it.Column, err = p.column()
	}
	if err != nil {
		return it, err
	}
	if p.accept("AS") {
		a := p.next()
		if a.kind != tokIdent && a.kind != tokString {
			return it, p.fail(a, "expected alias")
		}
		it.Alias = a.text
	}
	return it, nil
}

func (p *parser) parseCount() (Operand, error) {
	t := p.next()
	switch t.kind {
	case tokParam:
		p.params++
		return Param{Index: p.params - 1}, nil
	case tokNumber:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil || n < 0 {
			return nil, p.fail(t, "expected non-negative integer")
		}
		return Literal{Value: n}, nil
	default:
		return nil, p.fail(t, "expected integer or ?")
	}
}

func (p *parser) parseOr() (Predicate, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{first}
	for p.accept("OR") {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return &Or{Terms: terms}, nil
}

func (p *parser) parseAnd() (Predicate, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	terms := []Predicate{first}
	for p.accept("AND") {
		next, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return &And{Terms: terms}, nil
}

func (p *parser) parsePrimary() (Predicate, error) {
	if p.accept("(") {
		pred, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return pred, p.expect(")")
	}
	left, err := p.parseOperand(true)
	if err != nil {
		return nil, err
	}
	c := &Compare{Left: left}
	t := p.next()
	switch {
	case t.is("="):
		c.Op = OpEq
	case t.is("!="), t.is("<>"):
		c.Op = OpNe
	case t.is("<"):
		c.Op = OpLt
	case t.is("<="):
		c.Op = OpLe
	case t.is(">"):
		c.Op = OpGt
	case t.is(">="):
		c.Op = OpGe
	case t.is("LIKE"):
		c.Op = OpLike
	case t.is("IS"):
		c.Op = OpIsNull
		if p.accept("NOT") {
			c.Op = OpIsNotNull
		}
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, p.fail(t, "expected comparison operator")
	}
	if c.Right, err = p.parseOperand(true); err != nil {
		return nil, err
	}
	return c, nil
}

// parseOperand parses a value. Column references are only allowed when
// allowColumn is set.
func (p *parser) parseOperand(allowColumn bool) (Operand, error) {
	if p.isCaseWrapper() {
		p.i += 2
		op, err := p.parseOperand(allowColumn)
		if err != nil {
			return nil, err
		}
		return op, p.expect(")")
	}
	t := p.next()
	switch t.kind {
	case tokParam:
		p.params++
		return Param{Index: p.params - 1}, nil
	case tokNumber:
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.fail(t, "invalid integer")
		}
		return Literal{Value: n}, nil
	case tokString:
		return Literal{Value: t.text}, nil
	case tokIdent:
		switch {
		case t.is("NULL"):
			return Literal{}, nil
		case t.is("TRUE"):
			return Literal{Value: int64(1)}, nil
		case t.is("FALSE"):
			return Literal{Value: int64(0)}, nil
		case t.is("CURRENT_TIMESTAMP"):
			return Now{}, nil
		case t.is("NOW") && p.peek().is("("):
			p.i++
			return Now{}, p.expect(")")
		}
		name := strings.ToLower(t.text)
		if !allowColumn {
			return nil, p.fail(t, "expected value")
		}
		if !IsColumn(name) {
			return nil, p.fail(t, "unknown column")
		}
		return Column{Name: name}, nil
	default:
		return nil, p.fail(t, "expected value")
	}
}

func (p *parser) parseInsert() (*Insert, error) {
	p.next()
	if err := p.expect("INTO"); err != nil {
		return nil, err
	}
	ins := &Insert{}
	var err error
	if ins.Table, err = p.ident(); err != nil {
		return nil, err
	}
	explicit := p.accept("(")
	if explicit {
		for {
			t := p.peek()
			name, err := p.column()
			if err != nil {
				return nil, err
			}
			if name == ColID {
				return nil, p.fail(t, "id is assigned by the store")
			}
			if slices.Contains(ins.Columns, name) {
				return nil, p.fail(t, "duplicate column")
			}
			ins.Columns = append(ins.Columns, name)
			if !p.accept(",") {
				break
			}
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expect("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	for {
		v, err := p.parseOperand(false)
		if err != nil {
			return nil, err
		}
		ins.Values = append(ins.Values, v)
		if !p.accept(",") {
			break
		}
	}
	end := p.peek()
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if !explicit {
		// Without a column list, values bind a prefix of InsertColumns.
		if len(ins.Values) > len(InsertColumns) {
			return nil, p.fail(end, fmt.Sprintf("too many values: %d > %d", len(ins.Values), len(InsertColumns)))
		}
		ins.Columns = slices.Clone(InsertColumns[:len(ins.Values)])
	} else if len(ins.Values) != len(ins.Columns) {
		return nil, p.fail(end, fmt.Sprintf("%d columns but %d values", len(ins.Columns), len(ins.Values)))
	}
	return ins, nil
}

func (p *parser) parseUpdate() (*Update, error) {
	p.next()
	u := &Update{}
	var err error
	if u.Table, err = p.ident(); err != nil {
		return nil, err
	}
	if err := p.expect("SET"); err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var a Assignment
		if a.Column, err = p.column(); err != nil {
			return nil, err
		}
		if a.Column == ColID || a.Column == ColCreatedDate {
			return nil, p.fail(t, a.Column+" cannot be assigned")
		}
		if slices.ContainsFunc(u.Set, func(b Assignment) bool { return b.Column == a.Column }) {
			return nil, p.fail(t, "duplicate column")
		}
		if err := p.expect("="); err != nil {
			return nil, err
		}
		if a.Value, err = p.parseOperand(false); err != nil {
			return nil, err
		}
		u.Set = append(u.Set, a)
		if !p.accept(",") {
			break
		}
	}
	if u.ID, err = p.parseWhereID(); err != nil {
		return nil, err
	}
	return u, nil
}

func (p *parser) parseDelete() (*Delete, error) {
	p.next()
	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	d := &Delete{}
	var err error
	if d.Table, err = p.ident(); err != nil {
		return nil, err
	}
	if d.ID, err = p.parseWhereID(); err != nil {
		return nil, err
	}
	return d, nil
}

// parseWhereID parses the mandatory "WHERE id = value" of UPDATE and DELETE.
func (p *parser) parseWhereID() (Operand, error) {
	if err := p.expect("WHERE"); err != nil {
		return nil, err
	}
	if t := p.peek(); !t.is(ColID) {
		return nil, p.fail(t, "expected id")
	}
	p.i++
	if err := p.expect("="); err != nil {
		return nil, err
	}
	return p.parseOperand(false)
}
