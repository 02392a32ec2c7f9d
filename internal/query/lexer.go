package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lex tokenizes a query string. Keywords are matched case
// insensitively; whitespace and #-comments are skipped; string
// literals lose their quotes and have their escapes processed.
func Lex(input string) ([]Token, *ParserError) {
	l := &lexer{src: input}
	var tokens []Token
	for {
		tok, done, err := l.next()
		if err != nil {
			return nil, err
		}
		if done {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (Token, bool, *ParserError) {
	l.skipIgnored()
	if l.pos >= len(l.src) {
		return Token{}, true, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '"' || c == '\'':
		return l.stringLit(c)
	case c >= '0' && c <= '9':
		return l.number(start)
	case c == '-' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
		l.pos++
		return l.number(start)
	}

	if r, size := utf8.DecodeRuneInString(l.src[l.pos:]); r == '_' || unicode.IsLetter(r) {
		l.pos += size
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			l.pos += size
		}
		text := l.src[start:l.pos]
		kind := TokenIdent
		if kw, ok := keywords[strings.ToUpper(text)]; ok {
			kind = kw
		}
		return Token{Kind: kind, Text: text, Span: Span{start, l.pos}}, false, nil
	}

	if tok, ok := l.operator(start); ok {
		return tok, false, nil
	}

	end := start + 1
	return Token{}, false, &ParserError{
		Message:  "invalid token",
		Span:     Span{start, end},
		Expected: []string{"token"},
		Found:    l.src[start:end],
	}
}

func (l *lexer) skipIgnored() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		switch {
		case unicode.IsSpace(r):
			l.pos += size
		case r == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *lexer) stringLit(quote byte) (Token, bool, *ParserError) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos++
			if l.pos < len(l.src) {
				l.pos++
			}
		case quote:
			content := l.src[start+1 : l.pos]
			l.pos++
			return Token{
				Kind: TokenStringLit,
				Text: Unescape(content),
				Span: Span{start, l.pos},
			}, false, nil
		default:
			l.pos++
		}
	}
	return Token{}, false, &ParserError{
		Message:  "invalid token",
		Span:     Span{start, len(l.src)},
		Expected: []string{"'" + string(quote) + "'"},
	}
}

func (l *lexer) number(start int) (Token, bool, *ParserError) {
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	kind := TokenIntLit
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		kind = TokenFloatLit
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	return Token{Kind: kind, Text: l.src[start:l.pos], Span: Span{start, l.pos}}, false, nil
}

func (l *lexer) operator(start int) (Token, bool) {
	two := ""
	if start+2 <= len(l.src) {
		two = l.src[start : start+2]
	}
	var kind TokenKind
	switch two {
	case "==":
		kind = TokenSimilar
	case "!=":
		kind = TokenNotEqual
	case ">=":
		kind = TokenGreaterEqual
	case "<=":
		kind = TokenLessEqual
	case "**":
		kind = TokenDoubleStar
	default:
		switch l.src[start] {
		case '=':
			kind = TokenEqual
		case '>':
			kind = TokenGreater
		case '<':
			kind = TokenLess
		case ':':
			kind = TokenColon
		case ',':
			kind = TokenComma
		case '(':
			kind = TokenOpenParen
		case ')':
			kind = TokenCloseParen
		case '{':
			kind = TokenOpenBrace
		case '}':
			kind = TokenCloseBrace
		case '[':
			kind = TokenOpenBracket
		case ']':
			kind = TokenCloseBracket
		case '*':
			kind = TokenStar
		default:
			return Token{}, false
		}
		end := start + 1
		l.pos = end
		return Token{Kind: kind, Text: l.src[start:end], Span: Span{start, end}}, true
	}
	end := start + 2
	l.pos = end
	return Token{Kind: kind, Text: l.src[start:end], Span: Span{start, end}}, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
