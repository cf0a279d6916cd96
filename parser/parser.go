package parser

import (
	stderrors "errors"
	"strconv"

	"github.com/coreos/pkg/capnslog"

	"github.com/pontaoski/quadc/ast"
	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/irgen"
	"github.com/pontaoski/quadc/lexer"
	"github.com/pontaoski/quadc/quad"
	"github.com/pontaoski/quadc/types"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "parser")

var typeKeywords = map[string]bool{
	"int":    true,
	"char":   true,
	"string": true,
	"void":   true,
}

// Parser is a single-pass recursive descent translator: it lowers each
// construct into quadruples as soon as it is recognised.
type Parser struct {
	s       *lexer.Stream
	pos     int
	labelID int
	gen     *irgen.Generator
}

func New(s *lexer.Stream, opts irgen.Options) *Parser {
	return &Parser{
		s:   s,
		gen: irgen.NewGenerator(opts),
	}
}

func (p *Parser) Quadruples() []quad.Quadruple {
	return p.gen.Quadruples()
}

func (p *Parser) peek() types.Token {
	return p.s.At(p.pos)
}

func (p *Parser) peekAt(n int) types.Token {
	return p.s.At(p.pos + n)
}

func (p *Parser) peekIs(k types.TokenKind, text string) bool {
	return p.peek().Is(k, text)
}

func (p *Parser) next() types.Token {
	tok := p.peek()
	if tok.Kind != types.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(k types.TokenKind, text string) (types.Token, error) {
	tok := p.peek()
	if !tok.Is(k, text) {
		return tok, errors.SyntaxError{Expected: "'" + text + "'", Found: tok}
	}
	return p.next(), nil
}

func (p *Parser) expectKind(k types.TokenKind, expected string) (types.Token, error) {
	tok := p.peek()
	if tok.Kind != k {
		return tok, errors.SyntaxError{Expected: expected, Found: tok}
	}
	return p.next(), nil
}

func (p *Parser) expectType() (string, error) {
	tok := p.peek()
	if tok.Kind != types.KEYWORD || !typeKeywords[tok.Text] {
		return "", errors.SyntaxError{Expected: "type", Found: tok}
	}
	p.next()
	return tok.Text, nil
}

func (p *Parser) newLabel() string {
	l := "L" + strconv.Itoa(p.labelID)
	p.labelID++
	return l
}

// locate attaches the current lookahead to semantic errors coming out of the
// generator.
func (p *Parser) locate(err error) error {
	var serr *errors.SemanticError
	if stderrors.As(err, &serr) && serr.Token == nil {
		tok := p.peek()
		serr.Token = &tok
	}
	return err
}

// ParseProgram consumes the whole token stream. It stops at the first error.
func (p *Parser) ParseProgram() error {
	for p.peek().Kind != types.EOF {
		var err error
		if p.isFuncDeclStart() {
			err = p.parseFuncDecl()
		} else {
			err = p.parseStmt()
		}
		if err != nil {
			return err
		}
	}

	plog.Debugf("parsed %d tokens into %d quadruples", len(p.s.Tokens), len(p.gen.Quadruples()))
	return nil
}

// isFuncDeclStart looks for "type IDENT (".
func (p *Parser) isFuncDeclStart() bool {
	tok := p.peek()
	return tok.Kind == types.KEYWORD && typeKeywords[tok.Text] &&
		p.peekAt(1).Kind == types.IDENT &&
		p.peekAt(2).Is(types.SEPARATOR, "(")
}

func (p *Parser) parseFuncDecl() error {
	ret, err := p.expectType()
	if err != nil {
		return err
	}
	name, err := p.expectKind(types.IDENT, "function name")
	if err != nil {
		return err
	}
	if _, err := p.expect(types.SEPARATOR, "("); err != nil {
		return err
	}
	params, err := p.parseParamList()
	if err != nil {
		return err
	}
	if _, err := p.expect(types.SEPARATOR, ")"); err != nil {
		return err
	}

	if err := p.gen.EmitFuncLabel(name.Text); err != nil {
		return p.locate(err)
	}
	if err := p.gen.EmitFuncParam(ret, name.Text, params); err != nil {
		return p.locate(err)
	}
	if err := p.parseBlock(); err != nil {
		return err
	}
	return p.locate(p.gen.EmitFuncEnd(name.Text))
}

func (p *Parser) parseParamList() ([]irgen.Param, error) {
	var params []irgen.Param
	if p.peekIs(types.SEPARATOR, ")") {
		return params, nil
	}

	for {
		typ, err := p.expectType()
		if err != nil {
			return nil, err
		}
		name, err := p.expectKind(types.IDENT, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, irgen.Param{Type: typ, Name: name.Text})

		if !p.peekIs(types.SEPARATOR, ",") {
			return params, nil
		}
		p.next()
	}
}

func (p *Parser) parseBlock() error {
	if _, err := p.expect(types.SEPARATOR, "{"); err != nil {
		return err
	}
	for !p.peekIs(types.SEPARATOR, "}") && p.peek().Kind != types.EOF {
		if err := p.parseStmt(); err != nil {
			return err
		}
	}
	_, err := p.expect(types.SEPARATOR, "}")
	return err
}

func (p *Parser) parseStmt() error {
	tok := p.peek()

	switch {
	case tok.Kind == types.KEYWORD && typeKeywords[tok.Text]:
		return p.parseDeclStmt()
	case tok.Is(types.KEYWORD, "return"):
		return p.parseReturnStmt()
	case tok.Is(types.KEYWORD, "if"):
		return p.parseIfStmt()
	case tok.Is(types.KEYWORD, "while"):
		return p.parseWhileStmt()
	case tok.Is(types.KEYWORD, "for"):
		return p.parseForStmt()
	case tok.Is(types.SEPARATOR, "{"):
		return p.parseBlock()
	case tok.Kind == types.IDENT:
		return p.parseCallOrAssignStmt()
	}

	return errors.SyntaxError{Expected: "statement", Found: tok}
}

func (p *Parser) parseDeclStmt() error {
	typ, err := p.expectType()
	if err != nil {
		return err
	}
	name, err := p.expectKind(types.IDENT, "variable name")
	if err != nil {
		return err
	}
	if err := p.gen.DeclareVariable(typ, name.Text); err != nil {
		return p.locate(err)
	}

	if p.peekIs(types.SEPARATOR, "[") {
		p.next()
		size, err := p.expectKind(types.NUMBER, "array size")
		if err != nil {
			return err
		}
		if _, err := p.expect(types.SEPARATOR, "]"); err != nil {
			return err
		}
		n, _ := strconv.Atoi(size.Text)
		if err := p.gen.DeclareArray(name.Text, n); err != nil {
			return p.locate(err)
		}
	}

	_, err = p.expect(types.SEPARATOR, ";")
	return err
}

func (p *Parser) parseReturnStmt() error {
	if _, err := p.expect(types.KEYWORD, "return"); err != nil {
		return err
	}

	var value ast.Expression
	if !p.peekIs(types.SEPARATOR, ";") {
		var err error
		if value, err = p.parseExpr(); err != nil {
			return err
		}
	}
	if err := p.gen.ReturnStmt(value); err != nil {
		return p.locate(err)
	}
	_, err := p.expect(types.SEPARATOR, ";")
	return err
}

// assignment is a parsed but not yet lowered store; Index is nil for scalars.
type assignment struct {
	Name  string
	Index ast.Expression
	Value ast.Expression
}

func (p *Parser) lower(a assignment) error {
	if a.Index != nil {
		return p.locate(p.gen.AssignArray(a.Name, a.Index, a.Value))
	}
	return p.locate(p.gen.Assign(a.Name, a.Value))
}

// parseAssignment parses the tail of a store to name: "= e", "[i] = e", "++"
// or "--".
func (p *Parser) parseAssignment(name string) (assignment, error) {
	a := assignment{Name: name}

	switch tok := p.peek(); {
	case tok.Is(types.OPERATOR, "++"), tok.Is(types.OPERATOR, "--"):
		p.next()
		a.Value = ast.BinaryOp{Op: tok.Text[:1], Left: ast.Var(name), Right: ast.Number(1)}
		return a, nil
	case tok.Is(types.SEPARATOR, "["):
		p.next()
		index, err := p.parseExpr()
		if err != nil {
			return a, err
		}
		if _, err := p.expect(types.SEPARATOR, "]"); err != nil {
			return a, err
		}
		a.Index = index
	}

	if _, err := p.expect(types.OPERATOR, "="); err != nil {
		return a, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return a, err
	}
	a.Value = value
	return a, nil
}

func (p *Parser) parseCallOrAssignStmt() error {
	name, err := p.expectKind(types.IDENT, "identifier")
	if err != nil {
		return err
	}

	if p.peekIs(types.SEPARATOR, "(") {
		call, err := p.parseCall(name.Text)
		if err != nil {
			return err
		}
		if _, err := p.gen.GenerateFunctionCall(call); err != nil {
			return p.locate(err)
		}
		_, err = p.expect(types.SEPARATOR, ";")
		return err
	}

	a, err := p.parseAssignment(name.Text)
	if err != nil {
		return err
	}
	if err := p.lower(a); err != nil {
		return err
	}
	_, err = p.expect(types.SEPARATOR, ";")
	return err
}

func (p *Parser) parseIfStmt() error {
	if _, err := p.expect(types.KEYWORD, "if"); err != nil {
		return err
	}
	if _, err := p.expect(types.SEPARATOR, "("); err != nil {
		return err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	if _, err := p.expect(types.SEPARATOR, ")"); err != nil {
		return err
	}

	labelElse := p.newLabel()
	labelEnd := p.newLabel()

	if err := p.gen.IfFalse(cond, labelElse); err != nil {
		return p.locate(err)
	}
	if err := p.parseStmt(); err != nil {
		return err
	}

	if p.peekIs(types.KEYWORD, "else") {
		p.gen.Goto(labelEnd)
		p.gen.EmitElse()
		p.gen.EmitLabel(labelElse)
		p.next()
		if err := p.parseStmt(); err != nil {
			return err
		}
		p.gen.EmitLabel(labelEnd)
	} else {
		p.gen.EmitLabel(labelElse)
	}
	p.gen.EmitIfEnd()
	return nil
}

func (p *Parser) parseWhileStmt() error {
	if _, err := p.expect(types.KEYWORD, "while"); err != nil {
		return err
	}
	labelStart := p.newLabel()
	labelEnd := p.newLabel()

	p.gen.EmitWhileStart()
	p.gen.EmitLabel(labelStart)

	if _, err := p.expect(types.SEPARATOR, "("); err != nil {
		return err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	if _, err := p.expect(types.SEPARATOR, ")"); err != nil {
		return err
	}

	if err := p.gen.IfFalse(cond, labelEnd); err != nil {
		return p.locate(err)
	}
	if err := p.parseStmt(); err != nil {
		return err
	}
	p.gen.Goto(labelStart)
	p.gen.EmitLabel(labelEnd)
	p.gen.EmitWhileEnd()
	return nil
}

// parseForStmt lowers a for loop like a while loop whose body ends with the
// post statement.
func (p *Parser) parseForStmt() error {
	if _, err := p.expect(types.KEYWORD, "for"); err != nil {
		return err
	}
	if _, err := p.expect(types.SEPARATOR, "("); err != nil {
		return err
	}

	if !p.peekIs(types.SEPARATOR, ";") {
		init, err := p.parseSimple()
		if err != nil {
			return err
		}
		if err := p.lower(init); err != nil {
			return err
		}
	}
	if _, err := p.expect(types.SEPARATOR, ";"); err != nil {
		return err
	}

	labelStart := p.newLabel()
	labelEnd := p.newLabel()

	p.gen.EmitWhileStart()
	p.gen.EmitLabel(labelStart)

	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	if err := p.gen.IfFalse(cond, labelEnd); err != nil {
		return p.locate(err)
	}
	if _, err := p.expect(types.SEPARATOR, ";"); err != nil {
		return err
	}

	var post *assignment
	if !p.peekIs(types.SEPARATOR, ")") {
		a, err := p.parseSimple()
		if err != nil {
			return err
		}
		post = &a
	}
	if _, err := p.expect(types.SEPARATOR, ")"); err != nil {
		return err
	}

	if err := p.parseStmt(); err != nil {
		return err
	}
	if post != nil {
		if err := p.lower(*post); err != nil {
			return err
		}
	}
	p.gen.Goto(labelStart)
	p.gen.EmitLabel(labelEnd)
	p.gen.EmitWhileEnd()
	return nil
}

func (p *Parser) parseSimple() (assignment, error) {
	name, err := p.expectKind(types.IDENT, "identifier")
	if err != nil {
		return assignment{}, err
	}
	return p.parseAssignment(name.Text)
}

func (p *Parser) parseCondition() (ast.Condition, error) {
	left, err := p.parseExpr()
	if err != nil {
		return ast.Condition{}, err
	}
	tok := p.peek()
	if tok.Kind != types.OPERATOR || !ast.CompareOps[tok.Text] {
		return ast.Condition{}, errors.SyntaxError{Expected: "comparison operator", Found: tok}
	}
	p.next()
	right, err := p.parseExpr()
	if err != nil {
		return ast.Condition{}, err
	}
	return ast.Condition{Op: tok.Text, Left: left, Right: right}, nil
}

func (p *Parser) parseExpr() (ast.Expression, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peekIs(types.OPERATOR, "+") || p.peekIs(types.OPERATOR, "-") {
		op := p.next().Text
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peekIs(types.OPERATOR, "*") || p.peekIs(types.OPERATOR, "/") {
		op := p.next().Text
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	tok := p.peek()

	switch tok.Kind {
	case types.IDENT:
		p.next()
		if p.peekIs(types.SEPARATOR, "(") {
			call, err := p.parseCall(tok.Text)
			if err != nil {
				return nil, err
			}
			return call, nil
		}
		if p.peekIs(types.SEPARATOR, "[") {
			p.next()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(types.SEPARATOR, "]"); err != nil {
				return nil, err
			}
			return ast.ArrayAccess{Name: tok.Text, Index: index}, nil
		}
		return ast.Var(tok.Text), nil
	case types.NUMBER:
		p.next()
		n, err := strconv.ParseInt(tok.Text, 10, 32)
		if err != nil {
			return nil, errors.SyntaxError{Expected: "32-bit integer", Found: tok}
		}
		return ast.Number(n), nil
	case types.CHAR:
		p.next()
		return ast.Char([]rune(tok.Text)[0]), nil
	case types.STRING:
		p.next()
		return ast.Str(tok.Text), nil
	case types.SEPARATOR:
		if tok.Text == "(" {
			p.next()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(types.SEPARATOR, ")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}

	return nil, errors.SyntaxError{Expected: "expression", Found: tok}
}

// parseCall expects the cursor on the opening parenthesis.
func (p *Parser) parseCall(name string) (ast.Call, error) {
	call := ast.Call{Function: name}
	if _, err := p.expect(types.SEPARATOR, "("); err != nil {
		return call, err
	}

	if !p.peekIs(types.SEPARATOR, ")") {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return call, err
			}
			call.Arguments = append(call.Arguments, arg)
			if !p.peekIs(types.SEPARATOR, ",") {
				break
			}
			p.next()
		}
	}

	_, err := p.expect(types.SEPARATOR, ")")
	return call, err
}
