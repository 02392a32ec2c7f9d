package query

import (
	"fmt"
	"strings"
)

// ParserError is a structured syntax error: where it happened, what
// was expected, what was found, and the parsing context stack,
// innermost first. Found is empty at end of input.
type ParserError struct {
	Message  string
	Span     Span
	Expected []string
	Found    string
	Context  []string
}

func (e *ParserError) Error() string {
	expected := "something"
	switch len(e.Expected) {
	case 0:
	case 1:
		expected = e.Expected[0]
	default:
		last := e.Expected[len(e.Expected)-1]
		expected = strings.Join(e.Expected[:len(e.Expected)-1], ", ") + ", or " + last
	}

	found := e.Found
	if found == "" {
		found = "end of input"
	}
	return fmt.Sprintf("expected %s, found %s at %d..%d", expected, found, e.Span.Start, e.Span.End)
}

// newParserError derives the message from the innermost context the
// way user-facing errors spell it.
func newParserError(span Span, expected []string, found string, context []string) *ParserError {
	message := "Unknown Query"
	if len(context) > 0 {
		message = "Invalid " + titleCase(context[0])
		if !strings.HasSuffix(context[0], "query") {
			message += " Query"
		}
	}
	return &ParserError{
		Message:  message,
		Span:     span,
		Expected: expected,
		Found:    found,
		Context:  context,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
