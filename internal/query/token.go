// Package query implements the textual query language: a lexer, a
// recursive descent parser producing a small AST, and typed parsing
// of condition and assignment values against schema field types.
package query

// Span is a half-open byte range in the source input.
type Span struct {
	Start int
	End   int
}

// TokenKind identifies a lexical token.
type TokenKind uint8

const (
	TokenIdent TokenKind = iota
	TokenIntLit
	TokenFloatLit
	TokenStringLit

	TokenCreate
	TokenDrop
	TokenList
	TokenDatabase
	TokenDatabases
	TokenCollection
	TokenCollections
	TokenDocument
	TokenDoc
	TokenInto
	TokenFrom
	TokenWhere
	TokenSelect
	TokenInsert
	TokenUpdate
	TokenDelete
	TokenSet
	TokenModify
	TokenGet
	TokenSchema
	TokenIf
	TokenExists
	TokenTrue
	TokenFalse
	TokenNull

	TokenEqual        // =
	TokenNotEqual     // !=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenSimilar      // ==
	TokenColon
	TokenComma
	TokenOpenParen
	TokenCloseParen
	TokenOpenBrace
	TokenCloseBrace
	TokenOpenBracket
	TokenCloseBracket
	TokenStar
	TokenDoubleStar
)

var keywords = map[string]TokenKind{
	"CREATE":      TokenCreate,
	"DROP":        TokenDrop,
	"LIST":        TokenList,
	"DATABASE":    TokenDatabase,
	"DATABASES":   TokenDatabases,
	"COLLECTION":  TokenCollection,
	"COLLECTIONS": TokenCollections,
	"DOCUMENT":    TokenDocument,
	"DOC":         TokenDoc,
	"INTO":        TokenInto,
	"FROM":        TokenFrom,
	"WHERE":       TokenWhere,
	"SELECT":      TokenSelect,
	"INSERT":      TokenInsert,
	"UPDATE":      TokenUpdate,
	"DELETE":      TokenDelete,
	"SET":         TokenSet,
	"MODIFY":      TokenModify,
	"GET":         TokenGet,
	"SCHEMA":      TokenSchema,
	"IF":          TokenIf,
	"EXISTS":      TokenExists,
	"TRUE":        TokenTrue,
	"FALSE":       TokenFalse,
	"NULL":        TokenNull,
}

var kindNames = map[TokenKind]string{
	TokenIdent:        "identifier",
	TokenIntLit:       "integer literal",
	TokenFloatLit:     "float literal",
	TokenStringLit:    "string literal",
	TokenEqual:        "'='",
	TokenNotEqual:     "'!='",
	TokenGreater:      "'>'",
	TokenGreaterEqual: "'>='",
	TokenLess:         "'<'",
	TokenLessEqual:    "'<='",
	TokenSimilar:      "'=='",
	TokenColon:        "':'",
	TokenComma:        "','",
	TokenOpenParen:    "'('",
	TokenCloseParen:   "')'",
	TokenOpenBrace:    "'{'",
	TokenCloseBrace:   "'}'",
	TokenOpenBracket:  "'['",
	TokenCloseBracket: "']'",
	TokenStar:         "'*'",
	TokenDoubleStar:   "'**'",
}

// String renders the kind for expected-token lists: keywords by their
// uppercase spelling, everything else by a short description.
func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	for spelling, kind := range keywords {
		if kind == k {
			return spelling
		}
	}
	return "token"
}

// Token is a single lexical token. Text is the matched source text;
// for string literals it is the unescaped content without quotes.
type Token struct {
	Kind TokenKind
	Text string
	Span Span
}
