package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

// RefKindFunc reports the ID kind of a reference target collection.
// The second return is false when the collection is unknown.
type RefKindFunc func(collection string) (document.IDKind, bool)

// ParseValue interprets a raw query value against the field type it is
// being assigned or compared to. String content keeps a single layer of
// matching quotes stripped and escape sequences resolved; unquoted text
// is taken verbatim.
func ParseValue(text string, t schema.FieldType, refKind RefKindFunc) (any, error) {
	trimmed := strings.TrimSpace(text)

	switch t.Kind {
	case schema.KindInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", trimmed)
		}
		return n, nil

	case schema.KindFloat:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", trimmed)
		}
		return f, nil

	case schema.KindBoolean:
		switch strings.ToLower(trimmed) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", trimmed)

	case schema.KindString:
		return parseStringValue(trimmed), nil

	case schema.KindArray:
		items, err := splitArray(trimmed)
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			v, err := ParseValue(item, *t.Elem, refKind)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil

	case schema.KindNullable:
		if strings.EqualFold(trimmed, "null") {
			return nil, nil
		}
		return ParseValue(trimmed, *t.Elem, refKind)

	case schema.KindReference:
		if strings.EqualFold(trimmed, "null") {
			return nil, nil
		}
		if refKind != nil {
			if kind, ok := refKind(t.Collection); ok {
				if kind == document.IDInt {
					return parseIntID(trimmed)
				}
				return parseStringID(trimmed)
			}
		}
		// Unknown target: prefer the integer reading, fall back to string.
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil && n >= 0 {
			return n, nil
		}
		return parseStringValue(trimmed), nil

	case schema.KindIDString:
		return parseStringID(trimmed)

	case schema.KindIDInt:
		return parseIntID(trimmed)
	}

	return nil, fmt.Errorf("unsupported field type %s", t)
}

func parseStringValue(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return Unescape(s[1 : len(s)-1])
		}
	}
	return s
}

func parseStringID(s string) (any, error) {
	v := parseStringValue(s)
	if v == "" {
		return nil, fmt.Errorf("invalid ID %q", s)
	}
	return v, nil
}

func parseIntID(s string) (any, error) {
	v := parseStringValue(s)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid ID %q", s)
	}
	return n, nil
}

// splitArray splits the contents of a bracketed array literal into its
// top-level elements, respecting nested brackets and quoted strings.
func splitArray(s string) ([]string, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("invalid array %q", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil, nil
	}

	var (
		items []string
		depth int
		start int
		quote byte
	)
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("invalid array %q", s)
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 || quote != 0 {
		return nil, fmt.Errorf("invalid array %q", s)
	}
	items = append(items, strings.TrimSpace(inner[start:]))
	return items, nil
}
