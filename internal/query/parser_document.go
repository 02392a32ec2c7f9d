package query

func (p *parser) parseDocumentQuery(first TokenKind) (ContextualQuery, *ParserError) {
	switch first {
	case TokenInsert:
		defer p.push("insert document")()
		p.next()
		if !p.eat(TokenDoc) && !p.eat(TokenDocument) {
			return nil, p.fail("DOC", "DOCUMENT")
		}
		if _, err := p.expect(TokenInto); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		fields, err := p.parseAssignmentBody()
		if err != nil {
			return nil, err
		}
		return InsertDocument{Collection: name.Text, Fields: fields}, nil

	case TokenSelect:
		defer p.push("select documents")()
		p.next()
		selectors, err := p.parseSelectors()
		if err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		conds, err := p.parseOptionalWhere()
		if err != nil {
			return nil, err
		}
		return SelectDocuments{Collection: name.Text, Selectors: selectors, Conditions: conds}, nil

	case TokenUpdate:
		defer p.push("update documents")()
		p.next()
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenSet); err != nil {
			return nil, err
		}
		assigns, err := p.parseAssignmentList()
		if err != nil {
			return nil, err
		}
		conds, err := p.parseOptionalWhere()
		if err != nil {
			return nil, err
		}
		return UpdateDocuments{Collection: name.Text, Assignments: assigns, Conditions: conds}, nil

	default: // TokenDelete
		defer p.push("delete documents")()
		p.next()
		if _, err := p.expect(TokenFrom); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "collection name")
		if err != nil {
			return nil, err
		}
		conds, err := p.parseOptionalWhere()
		if err != nil {
			return nil, err
		}
		return DeleteDocuments{Collection: name.Text, Conditions: conds}, nil
	}
}

// parseAssignmentBody parses "{" assignment ("," assignment)* [","] "}"
// with duplicate field detection.
func (p *parser) parseAssignmentBody() ([]Assignment, *ParserError) {
	defer p.push("document body")()
	if _, err := p.expect(TokenOpenBrace); err != nil {
		return nil, err
	}

	var out []Assignment
	seen := make(map[string]struct{})
	for {
		if p.eat(TokenCloseBrace) {
			return out, nil
		}
		assign, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[assign.Field]; dup {
			return nil, p.custom(p.currentSpan(), "duplicate field name: %s", assign.Field)
		}
		seen[assign.Field] = struct{}{}
		out = append(out, assign)

		if p.eat(TokenComma) {
			continue
		}
		if _, err := p.expect(TokenCloseBrace); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// parseAssignmentList parses assignment ("," assignment)* without
// braces, as used by UPDATE ... SET.
func (p *parser) parseAssignmentList() ([]Assignment, *ParserError) {
	var out []Assignment
	seen := make(map[string]struct{})
	for {
		assign, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[assign.Field]; dup {
			return nil, p.custom(p.currentSpan(), "duplicate field name: %s", assign.Field)
		}
		seen[assign.Field] = struct{}{}
		out = append(out, assign)

		if !p.eat(TokenComma) {
			return out, nil
		}
	}
}

func (p *parser) parseAssignment() (Assignment, *ParserError) {
	defer p.push("field assignment")()
	name, err := p.expect(TokenIdent, "field name")
	if err != nil {
		return Assignment{}, err
	}
	if _, err := p.expect(TokenColon); err != nil {
		return Assignment{}, err
	}
	raw, _, perr := p.rawValue()
	if perr != nil {
		return Assignment{}, perr
	}
	return Assignment{Field: name.Text, Value: raw}, nil
}

// parseSelectors parses the projection list of a SELECT up to FROM.
func (p *parser) parseSelectors() ([]Selector, *ParserError) {
	var out []Selector
	for {
		sel, err := p.parseSelector()
		if err != nil {
			return nil, err
		}
		out = append(out, sel)

		if p.eat(TokenComma) {
			continue
		}
		if _, err := p.expect(TokenFrom); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *parser) parseSelector() (Selector, *ParserError) {
	defer p.push("field selector")()
	tok, ok := p.peek()
	if !ok {
		return Selector{}, p.fail("'*'", "'**'", "field name")
	}
	switch tok.Kind {
	case TokenStar:
		p.next()
		return Selector{Kind: SelectAllFields}, nil
	case TokenDoubleStar:
		p.next()
		return Selector{Kind: SelectAllFieldsRecursive}, nil
	case TokenIdent:
		p.next()
		if p.at(TokenOpenBrace) {
			sub, err := p.parseSubSelect()
			if err != nil {
				return Selector{}, err
			}
			return Selector{Kind: SelectSubDocument, Field: tok.Text, Sub: sub}, nil
		}
		return Selector{Kind: SelectField, Field: tok.Text}, nil
	default:
		return Selector{}, p.fail("'*'", "'**'", "field name")
	}
}

// parseSubSelect parses a sub-document selector body: a braced,
// comma-separated mix of selectors and conditions for the resolved
// document.
func (p *parser) parseSubSelect() (*SubSelect, *ParserError) {
	defer p.push("sub-document selector")()
	if _, err := p.expect(TokenOpenBrace); err != nil {
		return nil, err
	}

	sub := &SubSelect{}
	for {
		if p.eat(TokenCloseBrace) {
			return sub, nil
		}

		tok, ok := p.peek()
		if !ok {
			return nil, p.fail("'*'", "'**'", "field name", "'}'")
		}
		switch tok.Kind {
		case TokenStar, TokenDoubleStar:
			sel, err := p.parseSelector()
			if err != nil {
				return nil, err
			}
			sub.Selectors = append(sub.Selectors, sel)
		case TokenIdent:
			if p.identStartsCondition() {
				cond, err := p.parseCondition()
				if err != nil {
					return nil, err
				}
				sub.Conditions = append(sub.Conditions, cond)
			} else {
				sel, err := p.parseSelector()
				if err != nil {
					return nil, err
				}
				sub.Selectors = append(sub.Selectors, sel)
			}
		default:
			return nil, p.fail("'*'", "'**'", "field name", "'}'")
		}

		if p.eat(TokenComma) {
			continue
		}
		if _, err := p.expect(TokenCloseBrace); err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// identStartsCondition looks one token past the identifier for a
// condition operator.
func (p *parser) identStartsCondition() bool {
	if p.pos+1 >= len(p.tokens) {
		return false
	}
	_, ok := conditionOperators[p.tokens[p.pos+1].Kind]
	return ok
}

func (p *parser) at(kind TokenKind) bool {
	tok, ok := p.peek()
	return ok && tok.Kind == kind
}

var conditionOperators = map[TokenKind]Operator{
	TokenEqual:        OpEqual,
	TokenNotEqual:     OpNotEqual,
	TokenGreater:      OpGreater,
	TokenGreaterEqual: OpGreaterOrEqual,
	TokenLess:         OpLess,
	TokenLessEqual:    OpLessOrEqual,
	TokenSimilar:      OpSimilar,
}

func (p *parser) parseOptionalWhere() ([]FieldCondition, *ParserError) {
	if !p.eat(TokenWhere) {
		return nil, nil
	}
	var out []FieldCondition
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		out = append(out, cond)

		if !p.eat(TokenComma) {
			return out, nil
		}
	}
}

func (p *parser) parseCondition() (FieldCondition, *ParserError) {
	defer p.push("field condition")()
	name, err := p.expect(TokenIdent, "field name")
	if err != nil {
		return FieldCondition{}, err
	}

	tok, ok := p.peek()
	if !ok {
		return FieldCondition{}, p.fail("operator")
	}
	op, isOp := conditionOperators[tok.Kind]
	if !isOp {
		return FieldCondition{}, p.fail("operator")
	}
	p.next()

	raw, _, perr := p.rawValue()
	if perr != nil {
		return FieldCondition{}, perr
	}
	return FieldCondition{Field: name.Text, Operator: op, Value: raw}, nil
}

// rawValue consumes one value (an atom or a balanced bracketed array)
// and returns its raw source text.
func (p *parser) rawValue() (string, Span, *ParserError) {
	tok, ok := p.peek()
	if !ok {
		return "", Span{}, p.fail("value")
	}

	switch tok.Kind {
	case TokenIntLit, TokenFloatLit, TokenStringLit, TokenTrue, TokenFalse, TokenNull, TokenIdent:
		p.next()
		span := tok.Span
		return p.src[span.Start:span.End], span, nil
	case TokenOpenBracket:
		p.next()
		depth := 1
		end := tok.Span.End
		for depth > 0 {
			inner, ok := p.next()
			if !ok {
				return "", Span{}, p.fail("']'")
			}
			switch inner.Kind {
			case TokenOpenBracket:
				depth++
			case TokenCloseBracket:
				depth--
			}
			end = inner.Span.End
		}
		span := Span{tok.Span.Start, end}
		return p.src[span.Start:span.End], span, nil
	default:
		return "", Span{}, p.fail("value")
	}
}
