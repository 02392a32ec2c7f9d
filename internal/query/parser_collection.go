package query

import (
	"strings"

	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

func (p *parser) parseCollectionQuery(first TokenKind) (ContextualQuery, *ParserError) {
	switch first {
	case TokenCreate:
		defer p.push("create collection")()
		p.next()
		if _, err := p.expect(TokenCollection); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		q := CreateCollection{Name: name.Text}
		if p.eat(TokenDrop) {
			if _, err := p.expect(TokenIf); err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenExists); err != nil {
				return nil, err
			}
			q.DropIfExists = true
		}
		s, err := p.parseSchemaBody()
		if err != nil {
			return nil, err
		}
		q.Schema = s
		return q, nil

	case TokenDrop:
		defer p.push("drop collection")()
		p.next()
		if _, err := p.expect(TokenCollection); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		return DropCollection{Name: name.Text}, nil

	case TokenList:
		defer p.push("list collections")()
		p.next()
		if _, err := p.expect(TokenCollections); err != nil {
			return nil, err
		}
		return ListCollections{}, nil

	case TokenGet:
		defer p.push("get collection schema")()
		p.next()
		if _, err := p.expect(TokenSchema); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenFrom); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		return GetCollectionSchema{Name: name.Text}, nil

	default: // TokenModify
		defer p.push("modify collection")()
		p.next()
		if _, err := p.expect(TokenCollection); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		mods, err := p.parseModifications()
		if err != nil {
			return nil, err
		}
		return ModifyCollection{Name: name.Text, Modifications: mods}, nil
	}
}

// parseSchemaBody parses "{" fieldDef ("," fieldDef)* [","] "}".
func (p *parser) parseSchemaBody() (*schema.Schema, *ParserError) {
	defer p.push("schema")()
	if _, err := p.expect(TokenOpenBrace); err != nil {
		return nil, err
	}

	s := schema.New()
	for {
		if p.eat(TokenCloseBrace) {
			return s, nil
		}
		name, err := p.expect(TokenIdent, "field name")
		if err != nil {
			return nil, err
		}
		if s.HasField(name.Text) {
			return nil, p.custom(name.Span, "duplicate field name: %s", name.Text)
		}
		def, err := p.parseFieldDefinition()
		if err != nil {
			return nil, err
		}
		s.Fields[name.Text] = def

		if p.eat(TokenComma) {
			continue
		}
		if _, err := p.expect(TokenCloseBrace); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// parseFieldDefinition parses ":" type ["=" value].
func (p *parser) parseFieldDefinition() (schema.FieldDefinition, *ParserError) {
	if _, err := p.expect(TokenColon); err != nil {
		return schema.FieldDefinition{}, err
	}
	t, err := p.parseFieldType()
	if err != nil {
		return schema.FieldDefinition{}, err
	}

	if !p.eat(TokenEqual) && !p.takePendingEqual() {
		return schema.Field(t), nil
	}
	if t.IsID() {
		return schema.FieldDefinition{}, p.custom(p.currentSpan(), "default values are not allowed on ID fields")
	}

	raw, span, perr := p.rawValue()
	if perr != nil {
		return schema.FieldDefinition{}, perr
	}
	value, parseErr := ParseValue(raw, t, nil)
	if parseErr != nil {
		return schema.FieldDefinition{}, p.custom(span, "invalid default value: %v", parseErr)
	}
	return schema.FieldWithDefault(t, value), nil
}

// parseFieldType parses a type name, recursing into the angle
// brackets of array, ref and nullable.
func (p *parser) parseFieldType() (schema.FieldType, *ParserError) {
	defer p.push("field type")()
	tok, err := p.expect(TokenIdent, "field type")
	if err != nil {
		return schema.FieldType{}, err
	}

	switch strings.ToLower(tok.Text) {
	case "int":
		return schema.Int(), nil
	case "float":
		return schema.Float(), nil
	case "boolean":
		return schema.Boolean(), nil
	case "string":
		return schema.String(), nil
	case "id_string":
		return schema.IDString(), nil
	case "id_int":
		return schema.IDInt(), nil
	case "array":
		elem, err := angleBracketed(p, p.parseFieldType)
		if err != nil {
			return schema.FieldType{}, err
		}
		return schema.Array(elem), nil
	case "nullable":
		elem, err := angleBracketed(p, p.parseFieldType)
		if err != nil {
			return schema.FieldType{}, err
		}
		return schema.Nullable(elem), nil
	case "ref":
		name, err := angleBracketed(p, func() (Token, *ParserError) {
			return p.expect(TokenIdent, "collection name")
		})
		if err != nil {
			return schema.FieldType{}, err
		}
		return schema.Reference(name.Text), nil
	default:
		return schema.FieldType{}, p.custom(tok.Span, "unknown field type: %s", tok.Text)
	}
}

// angleBracketed runs inner between '<' and '>'.
func angleBracketed[T any](p *parser, inner func() (T, *ParserError)) (T, *ParserError) {
	var zero T
	if _, err := p.expect(TokenLess, "'<'"); err != nil {
		return zero, err
	}
	value, err := inner()
	if err != nil {
		return zero, err
	}
	if err := p.closeAngle(); err != nil {
		return zero, err
	}
	return value, nil
}

func (p *parser) closeAngle() *ParserError {
	if p.eat(TokenGreater) {
		return nil
	}
	if p.eat(TokenGreaterEqual) {
		p.pendingEqual = true
		return nil
	}
	return p.fail("'>'")
}

func (p *parser) takePendingEqual() bool {
	was := p.pendingEqual
	p.pendingEqual = false
	return was
}

// parseModifications parses "{" ident ":" (DROP | type ["=" value]) ... "}".
func (p *parser) parseModifications() ([]FieldModification, *ParserError) {
	defer p.push("field modifications")()
	if _, err := p.expect(TokenOpenBrace); err != nil {
		return nil, err
	}

	var mods []FieldModification
	seen := make(map[string]struct{})
	for {
		if p.eat(TokenCloseBrace) {
			return mods, nil
		}
		name, err := p.expect(TokenIdent, "field name")
		if err != nil {
			return nil, err
		}
		if _, dup := seen[name.Text]; dup {
			return nil, p.custom(name.Span, "duplicate field name: %s", name.Text)
		}
		seen[name.Text] = struct{}{}

		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}
		if p.eat(TokenDrop) {
			mods = append(mods, FieldModification{Field: name.Text, Drop: true})
		} else {
			t, err := p.parseFieldType()
			if err != nil {
				return nil, err
			}
			def := schema.Field(t)
			if p.eat(TokenEqual) || p.takePendingEqual() {
				raw, span, perr := p.rawValue()
				if perr != nil {
					return nil, perr
				}
				value, parseErr := ParseValue(raw, t, nil)
				if parseErr != nil {
					return nil, p.custom(span, "invalid default value: %v", parseErr)
				}
				def = schema.FieldWithDefault(t, value)
			}
			mods = append(mods, FieldModification{Field: name.Text, Def: def})
		}

		if p.eat(TokenComma) {
			continue
		}
		if _, err := p.expect(TokenCloseBrace); err != nil {
			return nil, err
		}
		return mods, nil
	}
}
