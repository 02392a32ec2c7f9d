package query

import "fmt"

// parser is a recursive descent parser over the token stream. It
// keeps the source string so condition and assignment values can be
// carried as raw text slices, and a context stack (outermost first)
// for error reporting.
type parser struct {
	src    string
	tokens []Token
	pos    int
	ctx    []string

	// A ">=" encountered while closing an angle-bracketed type is a
	// closing '>' immediately followed by the default's '='.
	pendingEqual bool
}

// ParseDatabaseQuery parses a registry-level query: CREATE DATABASE,
// DROP DATABASE or LIST DATABASES.
func ParseDatabaseQuery(input string) (DatabaseQuery, *ParserError) {
	p, err := newParser(input, "database query")
	if err != nil {
		return nil, err
	}
	q, err := p.parseDatabaseQuery()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseContextualQuery parses a query evaluated against a database:
// collection-level or document-level.
func ParseContextualQuery(input string) (ContextualQuery, *ParserError) {
	p, err := newParser(input, "contextual query")
	if err != nil {
		return nil, err
	}
	q, err := p.parseContextualQuery()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return q, nil
}

func newParser(input, rootContext string) (*parser, *ParserError) {
	tokens, lexErr := Lex(input)
	if lexErr != nil {
		if len(lexErr.Context) == 0 {
			lexErr.Context = []string{rootContext}
		}
		return nil, lexErr
	}
	return &parser{src: input, tokens: tokens, ctx: []string{rootContext}}, nil
}

func (p *parser) parseDatabaseQuery() (DatabaseQuery, *ParserError) {
	tok, ok := p.peek()
	if !ok {
		return nil, p.fail("CREATE", "DROP", "LIST")
	}
	switch tok.Kind {
	case TokenCreate:
		defer p.push("create database")()
		p.next()
		if _, err := p.expect(TokenDatabase); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "database name")
		if err != nil {
			return nil, err
		}
		q := CreateDatabase{Name: name.Text}
		if p.eat(TokenDrop) {
			if _, err := p.expect(TokenIf); err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenExists); err != nil {
				return nil, err
			}
			q.DropIfExists = true
		}
		return q, nil

	case TokenDrop:
		defer p.push("drop database")()
		p.next()
		if _, err := p.expect(TokenDatabase); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "database name")
		if err != nil {
			return nil, err
		}
		return DropDatabase{Name: name.Text}, nil

	case TokenList:
		defer p.push("list databases")()
		p.next()
		if _, err := p.expect(TokenDatabases); err != nil {
			return nil, err
		}
		return ListDatabases{}, nil

	default:
		return nil, p.fail("CREATE", "DROP", "LIST")
	}
}

func (p *parser) parseContextualQuery() (ContextualQuery, *ParserError) {
	tok, ok := p.peek()
	if !ok {
		return nil, p.fail("CREATE", "DROP", "LIST", "MODIFY", "GET", "INSERT", "SELECT", "UPDATE", "DELETE")
	}
	switch tok.Kind {
	case TokenCreate, TokenDrop, TokenList, TokenModify, TokenGet:
		defer p.push("collection query")()
		return p.parseCollectionQuery(tok.Kind)
	case TokenInsert, TokenSelect, TokenUpdate, TokenDelete:
		defer p.push("document query")()
		return p.parseDocumentQuery(tok.Kind)
	default:
		return nil, p.fail("CREATE", "DROP", "LIST", "MODIFY", "GET", "INSERT", "SELECT", "UPDATE", "DELETE")
	}
}

// push adds a context label and returns the matching pop.
func (p *parser) push(label string) func() {
	p.ctx = append(p.ctx, label)
	return func() { p.ctx = p.ctx[:len(p.ctx)-1] }
}

func (p *parser) contextStack() []string {
	out := make([]string, len(p.ctx))
	for i, label := range p.ctx {
		out[len(p.ctx)-1-i] = label
	}
	return out
}

func (p *parser) peek() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *parser) eat(kind TokenKind) bool {
	if tok, ok := p.peek(); ok && tok.Kind == kind {
		p.pos++
		return true
	}
	return false
}

// expect consumes a token of the given kind or fails. An optional
// description replaces the kind's default name in the expected list.
func (p *parser) expect(kind TokenKind, desc ...string) (Token, *ParserError) {
	if tok, ok := p.peek(); ok && tok.Kind == kind {
		p.pos++
		return tok, nil
	}
	name := kind.String()
	if len(desc) > 0 {
		name = desc[0]
	}
	return Token{}, p.fail(name)
}

func (p *parser) expectEOF() *ParserError {
	if tok, ok := p.peek(); ok {
		return newParserError(tok.Span, []string{"end of input"}, tok.Text, p.contextStack())
	}
	return nil
}

// fail builds a syntax error at the current position.
func (p *parser) fail(expected ...string) *ParserError {
	if tok, ok := p.peek(); ok {
		return newParserError(tok.Span, expected, tok.Text, p.contextStack())
	}
	end := len(p.src)
	return newParserError(Span{end, end}, expected, "", p.contextStack())
}

// currentSpan is the span of the next token, or the end of input.
func (p *parser) currentSpan() Span {
	if tok, ok := p.peek(); ok {
		return tok.Span
	}
	end := len(p.src)
	return Span{end, end}
}

// custom builds an error with an explicit message, for failures that
// are not plain expected/found mismatches.
func (p *parser) custom(span Span, format string, args ...any) *ParserError {
	return &ParserError{
		Message: fmt.Sprintf(format, args...),
		Span:    span,
		Context: p.contextStack(),
	}
}
