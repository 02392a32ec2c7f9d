package collection

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
)

// CompareOp is a typed condition operator.
type CompareOp uint8

const (
	CmpEqual CompareOp = iota
	CmpNotEqual
	CmpGreater
	CmpGreaterOrEqual
	CmpLess
	CmpLessOrEqual
	CmpSimilar
)

// Condition is a single typed predicate on a document field. Value is
// already parsed to the field's type; the query layer owns that
// conversion.
type Condition struct {
	Field string
	Op    CompareOp
	Value any
}

// Filter returns documents matching every condition, in insertion
// order. An empty condition list matches everything. Conditions on
// fields the schema does not define are an error, as are ordering
// comparisons between incomparable values.
func (c *Collection) Filter(conds []Condition) ([]document.Document, error) {
	for _, cond := range conds {
		if !c.schema.HasField(cond.Field) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, cond.Field)
		}
	}

	var out []document.Document
	for _, id := range c.order {
		matched, err := c.Matches(c.docs[id], conds)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, document.New(id, document.CloneMap(c.docs[id])))
		}
	}
	return out, nil
}

// Matches reports whether a single document body satisfies every
// condition.
func (c *Collection) Matches(data bson.M, conds []Condition) (bool, error) {
	for _, cond := range conds {
		ok, err := matchCondition(data, cond)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchCondition(data bson.M, cond Condition) (bool, error) {
	value, present := data[cond.Field]
	if !present {
		return false, nil
	}

	switch cond.Op {
	case CmpEqual:
		return document.Equal(value, cond.Value), nil
	case CmpNotEqual:
		return !document.Equal(value, cond.Value), nil
	case CmpSimilar:
		return matchSimilar(value, cond.Value), nil
	}

	// Ordering operators. A null document value orders with nothing.
	if value == nil {
		return false, nil
	}
	cmp, ok := document.Compare(value, cond.Value)
	if !ok {
		return false, fmt.Errorf("%w: field %q", ErrIncomparable, cond.Field)
	}
	switch cond.Op {
	case CmpGreater:
		return cmp > 0, nil
	case CmpGreaterOrEqual:
		return cmp >= 0, nil
	case CmpLess:
		return cmp < 0, nil
	case CmpLessOrEqual:
		return cmp <= 0, nil
	}
	return false, nil
}

// matchSimilar implements the == operator: substring match for
// strings, element membership for arrays, false for everything else.
func matchSimilar(value, condValue any) bool {
	switch v := value.(type) {
	case string:
		s, ok := condValue.(string)
		return ok && strings.Contains(v, s)
	case []any:
		for _, elem := range v {
			if document.Equal(elem, condValue) {
				return true
			}
		}
	}
	return false
}
