// Package parser implements the dvoyaz parser.
//
// The parser converts a token stream (from the lexer) into an abstract
// syntax tree. It performs syntactic analysis to ensure the code follows
// dvoyaz's grammar rules.
//
// Parser Architecture:
//
// The parser uses a recursive descent strategy with one token of
// lookahead:
//   1. Each grammar rule corresponds to a parsing function
//   2. The parser looks ahead one token (via peek) to decide what to
//      parse
//   3. Functions call each other recursively to handle nested structures
//
// Every parse function leaves cur positioned at the first token after
// whatever it consumed; callers never need to advance afterward. This
// holds even across block/statement boundaries, since dvoyaz statements
// need no terminator.
//
// Operator Precedence (tight-to-loose, matching the grammar's own
// ordering):
//
//	power **  (right-associative)
//	unary - !
//	multiplicative * / %
//	additive + -
//	comparison < > <= >=
//	equality == !=
//	logical and
//	logical or
//	pipe |>
//	assignment =  (right-associative)
//
// Each precedence level is its own function; parseX calls the next
// tighter level for its operands and loops (or recurses, for the
// right-associative levels) while it sees its own operator.
//
// Lambda vs. grouped expression:
//
// "(" can start either a grouped expression "(expr)" or a lambda
// parameter list "(a, b) -> expr". The parser speculatively tries the
// lambda form; on any mismatch it rewinds the lexer and token window to
// a snapshot taken before the attempt and falls back to a grouped
// expression.
//
// Error Handling:
//
// The parser accumulates errors in the errors slice rather than
// stopping at the first one, so a single pass can report every syntax
// problem it finds.
package parser

import (
	"fmt"
	"strconv"

	"github.com/dvoyaz-lang/dvoyaz/pkg/ast"
	"github.com/dvoyaz-lang/dvoyaz/pkg/lexer"
	"github.com/dvoyaz-lang/dvoyaz/pkg/token"
)

// Parser converts a token stream into an AST.
//
// It is stateful and single-use: create a new Parser for each source
// text.
type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek token.Token

	errors []string
}

// New creates a parser for the given source text. A fatal lexical error
// encountered while filling the initial two-token lookahead window is
// returned immediately; later lexical errors surface through Parse's
// error return instead, same as syntax errors.
func New(src string) (*Parser, error) {
	p := &Parser{l: lexer.New(src), errors: []string{}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// advance shifts the lookahead window forward by one token, pulling a
// new token from the lexer into peek.
func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.l.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

// nextToken advances, recording a fatal lexical error if one occurs
// (used once parsing is already underway, where returning an error from
// every call site would be unwieldy).
func (p *Parser) nextToken() {
	if err := p.advance(); err != nil {
		p.errors = append(p.errors, err.Error())
		p.cur = token.Token{Kind: token.EOF}
		p.peek = token.Token{Kind: token.EOF}
	}
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("%d:%d: %s", p.cur.Line, p.cur.Column, msg))
}

func (p *Parser) expect(k token.Kind, what string) bool {
	if p.cur.Kind != k {
		p.addError(fmt.Sprintf("expected %s, got %s", what, p.cur.Kind))
		return false
	}
	return true
}

// Parse parses the source text and returns its Program. If any syntax
// errors were encountered, they are joined into a single error; the
// (possibly partial) Program is still returned for inspection.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Kind != token.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	if len(p.errors) > 0 {
		return prog, fmt.Errorf("parse errors: %v", p.errors)
	}
	return prog, nil
}

// Errors returns every accumulated syntax error.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) here() ast.Position {
	return ast.Position{Line: p.cur.Line, Column: p.cur.Column}
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Kind {
	case token.LET, token.VAR, token.CONST:
		return p.parseVarDecl()
	case token.FUN:
		return p.parseFuncDecl()
	case token.CLASS:
		return p.parseClassDecl()
	case token.TRAIT:
		return p.parseTraitDecl()
	case token.DATA:
		return p.parseDataDecl()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForInStmt()
	case token.MATCH:
		start := p.here()
		m := p.parseMatchExpr()
		return &ast.MatchStmt{Position: start, Match: m}
	case token.RETURN:
		return p.parseReturnStmt()
	case token.BREAK:
		pos := p.here()
		p.nextToken()
		return &ast.BreakStmt{Position: pos}
	case token.CONTINUE:
		pos := p.here()
		p.nextToken()
		return &ast.ContinueStmt{Position: pos}
	case token.LBRACE:
		pos := p.here()
		stmts := p.parseBlock()
		return &ast.BlockStmt{Position: pos, Statements: stmts}
	default:
		pos := p.here()
		expr := p.parseExpression()
		if expr == nil {
			p.nextToken()
			return nil
		}
		return &ast.ExprStmt{Position: pos, X: expr}
	}
}

// parseBlock expects cur == LBRACE and consumes through the matching
// RBRACE, leaving cur at the first token afterward.
func (p *Parser) parseBlock() []ast.Statement {
	if !p.expect(token.LBRACE, "{") {
		return nil
	}
	p.nextToken() // consume {
	var stmts []ast.Statement
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if p.expect(token.RBRACE, "}") {
		p.nextToken() // consume }
	}
	return stmts
}

// parseParamList expects cur == LPAREN and consumes through the
// matching RPAREN, collecting bare identifier (or self/себя) names.
func (p *Parser) parseParamList() []string {
	if !p.expect(token.LPAREN, "(") {
		return nil
	}
	p.nextToken() // consume (
	var params []string
	if p.cur.Kind != token.RPAREN {
		for {
			name, ok := p.paramName()
			if !ok {
				break
			}
			params = append(params, name)
			if p.cur.Kind == token.COMMA {
				p.nextToken()
				continue
			}
			break
		}
	}
	if p.expect(token.RPAREN, ")") {
		p.nextToken() // consume )
	}
	return params
}

func (p *Parser) paramName() (string, bool) {
	switch p.cur.Kind {
	case token.IDENTIFIER:
		name := p.cur.Lexeme
		p.nextToken()
		return name, true
	case token.SELF:
		p.nextToken()
		return "self", true
	default:
		p.addError(fmt.Sprintf("expected parameter name, got %s", p.cur.Kind))
		return "", false
	}
}

func (p *Parser) parseVarDecl() ast.Statement {
	pos := p.here()
	mutable := p.cur.Kind == token.VAR
	p.nextToken() // consume let/var/const

	var names []string
	var values []ast.Expression
	for {
		if !p.expect(token.IDENTIFIER, "identifier") {
			break
		}
		name := p.cur.Lexeme
		p.nextToken()
		if !p.expect(token.ASSIGN, "=") {
			break
		}
		p.nextToken() // consume =
		val := p.parseExpression()
		names = append(names, name)
		values = append(values, val)
		if p.cur.Kind == token.COMMA {
			p.nextToken()
			continue
		}
		break
	}
	return &ast.VarDecl{Position: pos, Names: names, Values: values, Mutable: mutable}
}

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	pos := p.here()
	p.nextToken() // consume fun
	if !p.expect(token.IDENTIFIER, "function name") {
		return &ast.FuncDecl{Position: pos}
	}
	name := p.cur.Lexeme
	p.nextToken()
	params := p.parseParamList()
	body := p.parseBlock()
	return &ast.FuncDecl{Position: pos, Name: name, Params: params, Body: body}
}

func (p *Parser) parseClassDecl() ast.Statement {
	pos := p.here()
	p.nextToken() // consume class
	if !p.expect(token.IDENTIFIER, "class name") {
		return &ast.ClassDecl{Position: pos}
	}
	name := p.cur.Lexeme
	p.nextToken()
	fields := p.parseParamList()
	if !p.expect(token.LBRACE, "{") {
		return &ast.ClassDecl{Position: pos, Name: name, Fields: fields}
	}
	p.nextToken() // consume {
	var methods []*ast.FuncDecl
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		if p.cur.Kind != token.FUN {
			p.addError(fmt.Sprintf("expected method declaration, got %s", p.cur.Kind))
			p.nextToken()
			continue
		}
		methods = append(methods, p.parseFuncDecl())
	}
	if p.expect(token.RBRACE, "}") {
		p.nextToken()
	}
	return &ast.ClassDecl{Position: pos, Name: name, Fields: fields, Methods: methods}
}

func (p *Parser) parseTraitDecl() ast.Statement {
	pos := p.here()
	p.nextToken() // consume trait
	if !p.expect(token.IDENTIFIER, "trait name") {
		return &ast.TraitDecl{Position: pos}
	}
	name := p.cur.Lexeme
	p.nextToken()
	if !p.expect(token.LBRACE, "{") {
		return &ast.TraitDecl{Position: pos, Name: name}
	}
	p.nextToken() // consume {
	var methods []*ast.FuncDecl
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		if p.cur.Kind != token.FUN {
			p.addError(fmt.Sprintf("expected method declaration, got %s", p.cur.Kind))
			p.nextToken()
			continue
		}
		methods = append(methods, p.parseFuncDecl())
	}
	if p.expect(token.RBRACE, "}") {
		p.nextToken()
	}
	return &ast.TraitDecl{Position: pos, Name: name, Methods: methods}
}

func (p *Parser) parseDataDecl() ast.Statement {
	pos := p.here()
	p.nextToken() // consume data
	if !p.expect(token.IDENTIFIER, "data name") {
		return &ast.DataDecl{Position: pos}
	}
	name := p.cur.Lexeme
	p.nextToken()
	fields := p.parseParamList()
	return &ast.DataDecl{Position: pos, Name: name, Fields: fields}
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	pos := p.here()
	p.nextToken() // consume if
	cond := p.parseExpression()
	then := p.parseBlock()
	var elseBody []ast.Statement
	if p.cur.Kind == token.ELSE {
		p.nextToken() // consume else
		if p.cur.Kind == token.IF {
			elseBody = []ast.Statement{p.parseIfStmt()}
		} else {
			elseBody = p.parseBlock()
		}
	}
	return &ast.IfStmt{Position: pos, Cond: cond, Then: then, Else: elseBody}
}

func (p *Parser) parseWhileStmt() ast.Statement {
	pos := p.here()
	p.nextToken() // consume while
	cond := p.parseExpression()
	body := p.parseBlock()
	return &ast.WhileStmt{Position: pos, Cond: cond, Body: body}
}

func (p *Parser) parseForInStmt() ast.Statement {
	pos := p.here()
	p.nextToken() // consume for
	if !p.expect(token.IDENTIFIER, "loop variable") {
		return &ast.ForInStmt{Position: pos}
	}
	name := p.cur.Lexeme
	p.nextToken()
	if !p.expect(token.IN, "in") {
		return &ast.ForInStmt{Position: pos, Name: name}
	}
	p.nextToken() // consume in
	iterable := p.parseExpression()
	body := p.parseBlock()
	return &ast.ForInStmt{Position: pos, Name: name, Iterable: iterable, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Statement {
	pos := p.here()
	p.nextToken() // consume return
	if p.cur.Kind == token.RBRACE || p.cur.Kind == token.EOF {
		return &ast.ReturnStmt{Position: pos}
	}
	val := p.parseExpression()
	return &ast.ReturnStmt{Position: pos, Value: val}
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (p *Parser) parseExpression() ast.Expression {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expression {
	pos := p.here()
	left := p.parsePipe()
	if left == nil {
		return nil
	}
	if p.cur.Kind == token.ASSIGN {
		p.nextToken() // consume =
		switch left.(type) {
		case *ast.Identifier, *ast.MemberExpr, *ast.IndexExpr:
		default:
			p.addError("invalid assignment target")
		}
		value := p.parseAssignment()
		return &ast.AssignExpr{Position: pos, Target: left, Value: value}
	}
	return left
}

func (p *Parser) parsePipe() ast.Expression {
	left := p.parseOr()
	for p.cur.Kind == token.PIPE {
		pos := p.here()
		p.nextToken()
		right := p.parseOr()
		left = &ast.PipeExpr{Position: pos, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseOr() ast.Expression {
	left := p.parseAnd()
	for p.cur.Kind == token.OR {
		pos := p.here()
		p.nextToken()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Position: pos, Op: "||", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expression {
	left := p.parseEquality()
	for p.cur.Kind == token.AND {
		pos := p.here()
		p.nextToken()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Position: pos, Op: "&&", Left: left, Right: right}
	}
	return left
}

var equalityOps = map[token.Kind]string{token.EQ: "==", token.NE: "!="}

func (p *Parser) parseEquality() ast.Expression {
	left := p.parseComparison()
	for {
		op, ok := equalityOps[p.cur.Kind]
		if !ok {
			return left
		}
		pos := p.here()
		p.nextToken()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: right}
	}
}

var comparisonOps = map[token.Kind]string{
	token.LT: "<", token.GT: ">", token.LE: "<=", token.GE: ">=",
}

func (p *Parser) parseComparison() ast.Expression {
	left := p.parseAdditive()
	for {
		op, ok := comparisonOps[p.cur.Kind]
		if !ok {
			return left
		}
		pos := p.here()
		p.nextToken()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: right}
	}
}

var additiveOps = map[token.Kind]string{token.PLUS: "+", token.MINUS: "-"}

func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()
	for {
		op, ok := additiveOps[p.cur.Kind]
		if !ok {
			return left
		}
		pos := p.here()
		p.nextToken()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: right}
	}
}

var multiplicativeOps = map[token.Kind]string{
	token.STAR: "*", token.SLASH: "/", token.PERCENT: "%",
}

func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()
	for {
		op, ok := multiplicativeOps[p.cur.Kind]
		if !ok {
			return left
		}
		pos := p.here()
		p.nextToken()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Position: pos, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur.Kind {
	case token.MINUS:
		pos := p.here()
		p.nextToken()
		return &ast.UnaryExpr{Position: pos, Op: "-", X: p.parseUnary()}
	case token.NOT:
		pos := p.here()
		p.nextToken()
		return &ast.UnaryExpr{Position: pos, Op: "!", X: p.parseUnary()}
	default:
		return p.parsePower()
	}
}

// parsePower is right-associative and tighter than unary, so `2 ** -3`
// and `2 ** 3 ** 2` both parse as expected: the right operand may
// itself be a unary expression or another power expression.
func (p *Parser) parsePower() ast.Expression {
	left := p.parsePostfix()
	if p.cur.Kind == token.POWER {
		pos := p.here()
		p.nextToken()
		right := p.parseUnary()
		return &ast.BinaryExpr{Position: pos, Op: "**", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch p.cur.Kind {
		case token.DOT:
			pos := p.here()
			p.nextToken() // consume .
			if p.cur.Kind != token.IDENTIFIER && p.cur.Kind != token.SELF {
				p.addError(fmt.Sprintf("expected member name, got %s", p.cur.Kind))
				return expr
			}
			name := p.cur.Lexeme
			p.nextToken()
			expr = &ast.MemberExpr{Position: pos, X: expr, Name: name}
		case token.LPAREN:
			pos := p.here()
			args := p.parseCallArgs()
			expr = &ast.CallExpr{Position: pos, Callee: expr, Args: args}
		case token.LBRACKET:
			pos := p.here()
			p.nextToken() // consume [
			idx := p.parseExpression()
			if p.expect(token.RBRACKET, "]") {
				p.nextToken()
			}
			expr = &ast.IndexExpr{Position: pos, X: expr, Index: idx}
		default:
			return expr
		}
	}
}

// parseCallArgs expects cur == LPAREN and consumes through the matching
// RPAREN.
func (p *Parser) parseCallArgs() []ast.Expression {
	p.nextToken() // consume (
	var args []ast.Expression
	if p.cur.Kind != token.RPAREN {
		for {
			args = append(args, p.parseExpression())
			if p.cur.Kind == token.COMMA {
				p.nextToken()
				continue
			}
			break
		}
	}
	if p.expect(token.RPAREN, ")") {
		p.nextToken()
	}
	return args
}

func boolFromLexeme(lexeme string) bool {
	return token.LookupIdent(lexeme) == token.TRUE
}

func (p *Parser) parsePrimary() ast.Expression {
	pos := p.here()
	switch p.cur.Kind {
	case token.INTEGER:
		return p.parseIntLiteral()
	case token.FLOAT:
		return p.parseFloatLiteral()
	case token.STRING:
		v := p.cur.Lexeme
		p.nextToken()
		return &ast.StringLiteral{Position: pos, Value: v}
	case token.BOOLEAN:
		v := boolFromLexeme(p.cur.Lexeme)
		p.nextToken()
		return &ast.BoolLiteral{Position: pos, Value: v}
	case token.NONE:
		p.nextToken()
		return &ast.NoneLiteral{Position: pos}
	case token.SELF:
		p.nextToken()
		return &ast.Identifier{Position: pos, Name: "self"}
	case token.PRINT:
		p.nextToken()
		return &ast.Identifier{Position: pos, Name: "print"}
	case token.IDENTIFIER:
		name := p.cur.Lexeme
		p.nextToken()
		return &ast.Identifier{Position: pos, Name: name}
	case token.LPAREN:
		return p.parseParenOrLambda()
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.LBRACE:
		return p.parseMapLiteral()
	case token.NEW:
		return p.parseNewExpr()
	case token.MATCH:
		return p.parseMatchExpr()
	case token.AWAIT:
		p.nextToken()
		return &ast.AwaitExpr{Position: pos, X: p.parseUnary()}
	case token.SPAWN:
		p.nextToken()
		return &ast.SpawnExpr{Position: pos, X: p.parseUnary()}
	default:
		p.addError(fmt.Sprintf("unexpected token %s", p.cur.Kind))
		p.nextToken()
		return nil
	}
}

func (p *Parser) parseIntLiteral() ast.Expression {
	pos := p.here()
	v, err := strconv.ParseInt(p.cur.Lexeme, 10, 64)
	if err != nil {
		p.addError(fmt.Sprintf("invalid integer literal %q", p.cur.Lexeme))
	}
	p.nextToken()
	return &ast.IntLiteral{Position: pos, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	pos := p.here()
	v, err := strconv.ParseFloat(p.cur.Lexeme, 64)
	if err != nil {
		p.addError(fmt.Sprintf("invalid float literal %q", p.cur.Lexeme))
	}
	p.nextToken()
	return &ast.FloatLiteral{Position: pos, Value: v}
}

func (p *Parser) parseListLiteral() ast.Expression {
	pos := p.here()
	p.nextToken() // consume [
	var elems []ast.Expression
	if p.cur.Kind != token.RBRACKET {
		for {
			elems = append(elems, p.parseExpression())
			if p.cur.Kind == token.COMMA {
				p.nextToken()
				continue
			}
			break
		}
	}
	if p.expect(token.RBRACKET, "]") {
		p.nextToken()
	}
	return &ast.ListLiteral{Position: pos, Elements: elems}
}

func (p *Parser) parseMapLiteral() ast.Expression {
	pos := p.here()
	p.nextToken() // consume {
	var entries []ast.MapEntry
	if p.cur.Kind != token.RBRACE {
		for {
			key := p.parseExpression()
			if p.expect(token.COLON, ":") {
				p.nextToken()
			}
			val := p.parseExpression()
			entries = append(entries, ast.MapEntry{Key: key, Value: val})
			if p.cur.Kind == token.COMMA {
				p.nextToken()
				continue
			}
			break
		}
	}
	if p.expect(token.RBRACE, "}") {
		p.nextToken()
	}
	return &ast.MapLiteral{Position: pos, Entries: entries}
}

func (p *Parser) parseNewExpr() ast.Expression {
	pos := p.here()
	p.nextToken() // consume new
	if !p.expect(token.IDENTIFIER, "class name") {
		return &ast.NewExpr{Position: pos}
	}
	class := p.cur.Lexeme
	p.nextToken()
	if !p.expect(token.LPAREN, "(") {
		return &ast.NewExpr{Position: pos, Class: class}
	}
	args := p.parseCallArgs()
	return &ast.NewExpr{Position: pos, Class: class, Args: args}
}

// parseParenOrLambda handles the "(" ambiguity between a grouped
// expression and a lambda parameter list, per the package doc comment.
func (p *Parser) parseParenOrLambda() ast.Expression {
	pos := p.here()
	snap := p.snapshot()
	if params, ok := p.tryParseLambdaParams(); ok {
		body := p.parseLambdaBody()
		return &ast.LambdaExpr{Position: pos, Params: params, Body: body}
	}
	p.restore(snap)

	p.nextToken() // consume (
	expr := p.parseExpression()
	if p.expect(token.RPAREN, ")") {
		p.nextToken()
	}
	return expr
}

// tryParseLambdaParams assumes cur == LPAREN. On success it leaves cur
// at ARROW/FAT_ARROW. On failure the caller must restore a snapshot
// taken before the call; no errors are recorded along failing paths.
func (p *Parser) tryParseLambdaParams() ([]string, bool) {
	p.nextToken() // consume (
	var params []string
	if p.cur.Kind != token.RPAREN {
		for {
			var name string
			switch p.cur.Kind {
			case token.IDENTIFIER:
				name = p.cur.Lexeme
			case token.SELF:
				name = "self"
			default:
				return nil, false
			}
			params = append(params, name)
			p.nextToken()
			if p.cur.Kind == token.COMMA {
				p.nextToken()
				continue
			}
			break
		}
		if p.cur.Kind != token.RPAREN {
			return nil, false
		}
	}
	p.nextToken() // consume )
	if p.cur.Kind != token.ARROW && p.cur.Kind != token.FAT_ARROW {
		return nil, false
	}
	return params, true
}

// parseLambdaBody assumes cur is ARROW or FAT_ARROW.
func (p *Parser) parseLambdaBody() []ast.Statement {
	pos := p.here()
	p.nextToken() // consume -> or =>
	if p.cur.Kind == token.LBRACE {
		return p.parseBlock()
	}
	expr := p.parseExpression()
	return []ast.Statement{&ast.ReturnStmt{Position: pos, Value: expr}}
}

type snapshot struct {
	lex  lexer.Lexer
	cur  token.Token
	peek token.Token
}

func (p *Parser) snapshot() snapshot {
	return snapshot{lex: *p.l, cur: p.cur, peek: p.peek}
}

func (p *Parser) restore(s snapshot) {
	*p.l = s.lex
	p.cur = s.cur
	p.peek = s.peek
}

// ---------------------------------------------------------------------
// match expressions and patterns
// ---------------------------------------------------------------------

// parseMatchExpr assumes cur == MATCH.
func (p *Parser) parseMatchExpr() *ast.MatchExpr {
	pos := p.here()
	p.nextToken() // consume match
	subject := p.parseExpression()
	if !p.expect(token.LBRACE, "{") {
		return &ast.MatchExpr{Position: pos, Subject: subject}
	}
	p.nextToken() // consume {

	var arms []ast.MatchArm
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		pattern := p.parsePattern()
		var guard ast.Expression
		if p.cur.Kind == token.IF {
			p.nextToken()
			guard = p.parseExpression()
		}
		if !p.expect(token.FAT_ARROW, "=>") {
			break
		}
		p.nextToken() // consume =>
		body := p.parseExpression()
		arms = append(arms, ast.MatchArm{Pattern: pattern, Guard: guard, Body: body})
		if p.cur.Kind == token.COMMA {
			p.nextToken()
		}
	}
	if p.expect(token.RBRACE, "}") {
		p.nextToken()
	}
	return &ast.MatchExpr{Position: pos, Subject: subject, Arms: arms}
}

func (p *Parser) parsePattern() ast.Pattern {
	pos := p.here()
	switch p.cur.Kind {
	case token.UNDERSCORE:
		p.nextToken()
		return &ast.WildcardPattern{Position: pos}
	case token.IDENTIFIER:
		name := p.cur.Lexeme
		if p.peek.Kind == token.LPAREN {
			p.nextToken() // consume Name
			p.nextToken() // consume (
			var fields []ast.Pattern
			if p.cur.Kind != token.RPAREN {
				for {
					fields = append(fields, p.parsePattern())
					if p.cur.Kind == token.COMMA {
						p.nextToken()
						continue
					}
					break
				}
			}
			if p.expect(token.RPAREN, ")") {
				p.nextToken()
			}
			return &ast.ConstructorPattern{Position: pos, Class: name, Fields: fields}
		}
		p.nextToken()
		return &ast.IdentifierPattern{Position: pos, Name: name}
	case token.INTEGER, token.FLOAT, token.STRING, token.BOOLEAN, token.NONE, token.MINUS:
		low := p.parsePatternLiteral()
		if p.cur.Kind == token.RANGE {
			p.nextToken() // consume ..
			high := p.parsePatternLiteral()
			return &ast.RangePattern{Position: pos, Low: low, High: high}
		}
		return &ast.LiteralPattern{Position: pos, Value: low}
	default:
		p.addError(fmt.Sprintf("unexpected token %s in pattern", p.cur.Kind))
		p.nextToken()
		return &ast.WildcardPattern{Position: pos}
	}
}

// parsePatternLiteral parses a (possibly negated) literal for use as a
// LiteralPattern value or a RangePattern bound.
func (p *Parser) parsePatternLiteral() ast.Expression {
	neg := false
	if p.cur.Kind == token.MINUS {
		neg = true
		p.nextToken()
	}
	pos := p.here()
	var lit ast.Expression
	switch p.cur.Kind {
	case token.INTEGER:
		lit = p.parseIntLiteral()
	case token.FLOAT:
		lit = p.parseFloatLiteral()
	case token.STRING:
		lit = &ast.StringLiteral{Position: pos, Value: p.cur.Lexeme}
		p.nextToken()
	case token.BOOLEAN:
		lit = &ast.BoolLiteral{Position: pos, Value: boolFromLexeme(p.cur.Lexeme)}
		p.nextToken()
	case token.NONE:
		lit = &ast.NoneLiteral{Position: pos}
		p.nextToken()
	default:
		p.addError(fmt.Sprintf("expected literal in pattern, got %s", p.cur.Kind))
		lit = &ast.NoneLiteral{Position: pos}
	}
	if neg {
		switch v := lit.(type) {
		case *ast.IntLiteral:
			v.Value = -v.Value
		case *ast.FloatLiteral:
			v.Value = -v.Value
		}
	}
	return lit
}
