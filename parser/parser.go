// Package parser converts the restricted SQL dialect (§3.1 of the grammar)
// into a typed ast.Segment sequence. It is a self-contained total
// function: no I/O, no state beyond its input, no generated grammar
// tooling — the dialect is small enough for a hand-written recursive
// descent parser, in the spirit of the teacher's own from-scratch parsers.
package parser

import (
	"strconv"
	"strings"

	"github.com/fedsql/fedsql/ast"
)

type parser struct {
	lex       *lexer
	src       string
	funcIndex int // zero-based index of the SELECT field being parsed
}

// Parse converts query into an ordered segment list. Parse either
// consumes the entire input and returns Ok, or returns an *Error carrying
// the unconsumed tail and the byte offset where it gave up — it never
// partially succeeds.
func Parse(query string) ([]ast.Segment, error) {
	p := &parser{lex: newLexer(query), src: query}

	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	segs := []ast.Segment{sel}

	sawWhere, sawGroupBy, sawOrderBy, sawLimit := false, false, false, false
	for {
		tok, err := p.lex.peek()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.kind == tokEOF:
			return segs, nil
		case isKeyword(tok, "LEFT") || isKeyword(tok, "RIGHT") || isKeyword(tok, "INNER") || isKeyword(tok, "JOIN"):
			j, err := p.parseJoin()
			if err != nil {
				return nil, err
			}
			segs = append(segs, j)
		case isKeyword(tok, "WHERE"):
			if sawWhere {
				return nil, newSyntaxError("at most one WHERE segment is allowed", p.src, tok.pos)
			}
			w, err := p.parseWhere()
			if err != nil {
				return nil, err
			}
			sawWhere = true
			segs = append(segs, w)
		case isKeyword(tok, "GROUP"):
			if sawGroupBy {
				return nil, newSyntaxError("at most one GROUP BY segment is allowed", p.src, tok.pos)
			}
			g, err := p.parseGroupBy()
			if err != nil {
				return nil, err
			}
			sawGroupBy = true
			segs = append(segs, g)
		case isKeyword(tok, "ORDER"):
			if sawOrderBy {
				return nil, newSyntaxError("at most one ORDER BY segment is allowed", p.src, tok.pos)
			}
			o, err := p.parseOrderBy()
			if err != nil {
				return nil, err
			}
			sawOrderBy = true
			segs = append(segs, o)
		case isKeyword(tok, "LIMIT"):
			if sawLimit {
				return nil, newSyntaxError("at most one LIMIT segment is allowed", p.src, tok.pos)
			}
			lm, err := p.parseLimit()
			if err != nil {
				return nil, err
			}
			sawLimit = true
			segs = append(segs, lm)
		default:
			return nil, newSyntaxError("unexpected input", p.src, tok.pos)
		}
	}
}

func isKeyword(tok token, kw string) bool {
	return tok.kind == tokIdent && tok.text == kw
}

func (p *parser) expectKeyword(kw string) (token, error) {
	tok, err := p.lex.next()
	if err != nil {
		return tok, err
	}
	if !isKeyword(tok, kw) {
		return tok, newSyntaxError("expected "+kw, p.src, tok.pos)
	}
	return tok, nil
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok, err := p.lex.next()
	if err != nil {
		return tok, err
	}
	if tok.kind != kind {
		return tok, newSyntaxError("expected "+what, p.src, tok.pos)
	}
	return tok, nil
}

func (p *parser) expectIdent() (token, error) {
	return p.expect(tokIdent, "identifier")
}

// parseResource parses `data_source.src alias` where src is a bare
// identifier or a single-quoted string literal (for filenames/URIs).
func (p *parser) parseResource() (ast.Resource, error) {
	var res ast.Resource
	ds, err := p.expectIdent()
	if err != nil {
		return res, err
	}
	if _, err := p.expect(tokDot, "'.'"); err != nil {
		return res, err
	}
	tok, err := p.lex.next()
	if err != nil {
		return res, err
	}
	switch tok.kind {
	case tokIdent:
		res.Src = tok.text
	case tokString:
		res.Src = tok.val
	default:
		return res, newSyntaxError("expected a resource name or quoted string", p.src, tok.pos)
	}
	res.DataSource = ds.text
	alias, err := p.expectIdent()
	if err != nil {
		return res, err
	}
	res.Alias = alias.text
	return res, nil
}

// parseDottedRef parses `alias.field` or `alias.*`.
func (p *parser) parseDottedRef() (src string, field string, star bool, err error) {
	aliasTok, err := p.expectIdent()
	if err != nil {
		return "", "", false, err
	}
	if _, err = p.expect(tokDot, "'.'"); err != nil {
		return "", "", false, err
	}
	tok, err := p.lex.next()
	if err != nil {
		return "", "", false, err
	}
	switch tok.kind {
	case tokIdent:
		return aliasTok.text, tok.text, false, nil
	case tokStar:
		return aliasTok.text, "", true, nil
	default:
		return "", "", false, newSyntaxError("expected a field name or '*'", p.src, tok.pos)
	}
}

func (p *parser) parseSelect() (*ast.Select, error) {
	startTok, err := p.expectKeyword("SELECT")
	if err != nil {
		return nil, err
	}
	p.funcIndex = 0
	var fields []ast.FieldExpr
	for {
		p.funcIndex = len(fields)
		f, err := p.parseFieldExpr()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		tok, err := p.lex.peek()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokComma {
			p.lex.next()
			continue
		}
		break
	}
	if _, err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	res, err := p.parseResource()
	if err != nil {
		return nil, err
	}
	return &ast.Select{Base: ast.Base{Offset: startTok.pos}, Fields: fields, Resource: res}, nil
}

// parseFieldExpr parses one SELECT-list item: a star, a plain field, or a
// function call, each with an optional trailing "AS alias".
func (p *parser) parseFieldExpr() (ast.FieldExpr, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokIdent {
		return nil, newSyntaxError("expected a field expression", p.src, tok.pos)
	}
	// Function call: IDENT '('. Any identifier in call position parses —
	// whether it names a recognized function is a planner-time question
	// (spec §7's ValidationError for "unknown function"), not a parser one.
	if after, err2 := p.lex.peek2(); err2 == nil && after.kind == tokLParen {
		fk, _ := ast.KindOf(tok.text)
		return p.parseFuncCall(tok.text, fk)
	}
	src, field, star, err := p.parseDottedRef()
	if err != nil {
		return nil, err
	}
	if star {
		return ast.Star{Src: src}, nil
	}
	alias, err := p.parseOptionalAlias()
	if err != nil {
		return nil, err
	}
	return ast.Field{Src: src, Field: field, Alias: alias}, nil
}

// peek2 peeks two tokens ahead without consuming either.
func (l *lexer) peek2() (token, error) {
	save := l.pos
	defer func() { l.pos = save }()
	if _, err := l.next(); err != nil {
		return token{}, err
	}
	return l.next()
}

func (p *parser) parseOptionalAlias() (*string, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if !isKeyword(tok, "AS") {
		return nil, nil
	}
	p.lex.next()
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &name.text, nil
}

func (p *parser) parseFuncCall(name string, kind ast.FuncKind) (ast.FieldExpr, error) {
	p.lex.next() // consume function name
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var params []ast.FuncParam
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokRParen {
		for {
			param, err := p.parseFuncParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if _, isAtom := param.(ast.AtomLiteral); isAtom {
				continue // DISTINCT is followed directly by its argument
			}
			tok, err = p.lex.peek()
			if err != nil {
				return nil, err
			}
			if tok.kind == tokComma {
				p.lex.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	alias, err := p.parseOptionalAlias()
	if err != nil {
		return nil, err
	}
	ident := name + "_" + strconv.Itoa(p.funcIndex)
	return ast.FuncCall{Name: name, Kind: kind, Params: params, Alias: alias, Ident: ident}, nil
}

func (p *parser) parseFuncParam() (ast.FuncParam, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokStar:
		p.lex.next()
		return ast.Star{Src: ""}, nil
	case tokString:
		p.lex.next()
		return ast.QuotedString{Raw: tok.text, Unquoted: tok.val}, nil
	case tokIdent:
		if isKeyword(tok, "DISTINCT") {
			p.lex.next()
			return ast.AtomLiteral{Value: "DISTINCT"}, nil
		}
		// Disambiguate `alias.field` / `alias.*` from a bare alias
		// reference by peeking for the dot.
		after, err := p.lex.peek2()
		if err != nil {
			return nil, err
		}
		if after.kind == tokDot {
			src, field, star, err := p.parseDottedRef()
			if err != nil {
				return nil, err
			}
			if star {
				return ast.Star{Src: src}, nil
			}
			return ast.FieldRef{Src: src, Field: field}, nil
		}
		p.lex.next()
		return ast.AliasRef{Alias: tok.text}, nil
	default:
		return nil, newSyntaxError("expected a function argument", p.src, tok.pos)
	}
}

func (p *parser) parseJoin() (*ast.Join, error) {
	startTok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	jt := ast.InnerJoin
	switch {
	case isKeyword(startTok, "LEFT"):
		p.lex.next()
		jt = ast.LeftJoin
	case isKeyword(startTok, "RIGHT"):
		p.lex.next()
		jt = ast.RightJoin
	case isKeyword(startTok, "INNER"):
		p.lex.next()
		jt = ast.InnerJoin
	}
	if _, err := p.expectKeyword("JOIN"); err != nil {
		return nil, err
	}
	res, err := p.parseResource()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	clause, err := p.parseBinaryClause()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.Join{Base: ast.Base{Offset: startTok.pos}, Type: jt, Resource: res, Clause: clause}, nil
}

func (p *parser) parseWhere() (*ast.Where, error) {
	startTok, _ := p.expectKeyword("WHERE")
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	paren := tok.kind == tokLParen
	if paren {
		p.lex.next()
	}
	clause, err := p.parseBinaryClause()
	if err != nil {
		return nil, err
	}
	if paren {
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
	}
	return &ast.Where{Base: ast.Base{Offset: startTok.pos}, Clause: clause}, nil
}

func (p *parser) parseOperand() (ast.Operand, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokString:
		p.lex.next()
		return ast.QuotedString{Raw: tok.text, Unquoted: tok.val}, nil
	case tokNumber:
		p.lex.next()
		return parseNumber(tok.text), nil
	case tokIdent:
		src, field, star, err := p.parseDottedRef()
		if err != nil {
			return nil, err
		}
		if star {
			return nil, newSyntaxError("'*' is not a valid comparison operand", p.src, tok.pos)
		}
		return ast.FieldRef{Src: src, Field: field}, nil
	default:
		return nil, newSyntaxError("expected a field reference, string, or number", p.src, tok.pos)
	}
}

func parseNumber(raw string) ast.Number {
	if strings.Contains(raw, ".") {
		f, _ := strconv.ParseFloat(raw, 64)
		return ast.Number{Raw: raw, IsFloat: true, Float: f}
	}
	i, _ := strconv.ParseInt(raw, 10, 64)
	return ast.Number{Raw: raw, Int: i}
}

func (p *parser) parseOp() (ast.Op, error) {
	tok, err := p.lex.next()
	if err != nil {
		return 0, err
	}
	switch tok.kind {
	case tokEq:
		return ast.Eq, nil
	case tokNeq:
		return ast.Neq, nil
	case tokLte:
		return ast.Lte, nil
	case tokGte:
		return ast.Gte, nil
	case tokLt:
		return ast.Lt, nil
	case tokGt:
		return ast.Gt, nil
	default:
		return 0, newSyntaxError("expected a comparison operator", p.src, tok.pos)
	}
}

func (p *parser) parseBinaryClause() (ast.BinaryClause, error) {
	var clause ast.BinaryClause
	p1, err := p.parseOperand()
	if err != nil {
		return clause, err
	}
	op, err := p.parseOp()
	if err != nil {
		return clause, err
	}
	p2, err := p.parseOperand()
	if err != nil {
		return clause, err
	}
	clause.P1, clause.Op, clause.P2 = p1, op, p2
	return clause, nil
}

// parseAttrRef parses a GROUP BY / ORDER BY attribute reference: either a
// dotted field reference or a bare alias name.
func (p *parser) parseAttrRef() (ast.AttrRef, error) {
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if tok.kind != tokIdent {
		return nil, newSyntaxError("expected an attribute reference", p.src, tok.pos)
	}
	after, err := p.lex.peek2()
	if err != nil {
		return nil, err
	}
	if after.kind == tokDot {
		src, field, star, err := p.parseDottedRef()
		if err != nil {
			return nil, err
		}
		if star {
			return nil, newSyntaxError("'*' is not a valid GROUP BY/ORDER BY attribute", p.src, tok.pos)
		}
		return ast.FieldRef{Src: src, Field: field}, nil
	}
	p.lex.next()
	return ast.AliasRef{Alias: tok.text}, nil
}

func (p *parser) parseGroupBy() (*ast.GroupBy, error) {
	startTok, _ := p.expectKeyword("GROUP")
	if _, err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	attr, err := p.parseAttrRef()
	if err != nil {
		return nil, err
	}
	return &ast.GroupBy{Base: ast.Base{Offset: startTok.pos}, Attr: attr}, nil
}

func (p *parser) parseOrderBy() (*ast.OrderBy, error) {
	startTok, _ := p.expectKeyword("ORDER")
	if _, err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	attr, err := p.parseAttrRef()
	if err != nil {
		return nil, err
	}
	dir := ast.Asc
	tok, err := p.lex.peek()
	if err != nil {
		return nil, err
	}
	if isKeyword(tok, "ASC") {
		p.lex.next()
		dir = ast.Asc
	} else if isKeyword(tok, "DESC") {
		p.lex.next()
		dir = ast.Desc
	}
	return &ast.OrderBy{Base: ast.Base{Offset: startTok.pos}, Attr: attr, Dir: dir}, nil
}

func (p *parser) parseLimit() (*ast.Limit, error) {
	startTok, _ := p.expectKeyword("LIMIT")
	tok, err := p.expect(tokNumber, "a positive integer")
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil || n <= 0 {
		return nil, newSyntaxError("LIMIT requires a positive integer", p.src, tok.pos)
	}
	return &ast.Limit{Base: ast.Base{Offset: startTok.pos}, N: n}, nil
}
