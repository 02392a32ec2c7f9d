package query

import "github.com/TheDrone7/fhedb-sub001/internal/schema"

// DatabaseQuery is a query evaluated at the registry root.
type DatabaseQuery interface {
	isDatabaseQuery()
}

// CreateDatabase creates a database, optionally dropping an existing
// one with the same name first.
type CreateDatabase struct {
	Name         string
	DropIfExists bool
}

// DropDatabase removes a database.
type DropDatabase struct {
	Name string
}

// ListDatabases enumerates the databases.
type ListDatabases struct{}

func (CreateDatabase) isDatabaseQuery() {}
func (DropDatabase) isDatabaseQuery()   {}
func (ListDatabases) isDatabaseQuery()  {}

// ContextualQuery is a query evaluated against a named database:
// collection-level or document-level.
type ContextualQuery interface {
	isContextualQuery()
}

// CreateCollection creates a collection with the parsed schema.
type CreateCollection struct {
	Name         string
	DropIfExists bool
	Schema       *schema.Schema
}

// DropCollection removes a collection.
type DropCollection struct {
	Name string
}

// ListCollections enumerates the database's collections.
type ListCollections struct{}

// GetCollectionSchema reports a collection's schema.
type GetCollectionSchema struct {
	Name string
}

// ModifyCollection alters a collection's schema field by field.
type ModifyCollection struct {
	Name          string
	Modifications []FieldModification
}

// FieldModification drops a field or gives it a new definition.
type FieldModification struct {
	Field string
	Drop  bool
	Def   schema.FieldDefinition
}

// InsertDocument inserts one document built from field assignments.
type InsertDocument struct {
	Collection string
	Fields     []Assignment
}

// SelectDocuments projects fields of the documents matching the
// conditions.
type SelectDocuments struct {
	Collection string
	Selectors  []Selector
	Conditions []FieldCondition
}

// UpdateDocuments applies assignments to every matching document.
type UpdateDocuments struct {
	Collection  string
	Assignments []Assignment
	Conditions  []FieldCondition
}

// DeleteDocuments removes every matching document.
type DeleteDocuments struct {
	Collection string
	Conditions []FieldCondition
}

func (CreateCollection) isContextualQuery()    {}
func (DropCollection) isContextualQuery()      {}
func (ListCollections) isContextualQuery()     {}
func (GetCollectionSchema) isContextualQuery() {}
func (ModifyCollection) isContextualQuery()    {}
func (InsertDocument) isContextualQuery()      {}
func (SelectDocuments) isContextualQuery()     {}
func (UpdateDocuments) isContextualQuery()     {}
func (DeleteDocuments) isContextualQuery()     {}

// Assignment pairs a field name with the raw text of its value. The
// text is interpreted against the schema at evaluation time.
type Assignment struct {
	Field string
	Value string
}

// Operator is a condition operator.
type Operator uint8

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreater
	OpGreaterOrEqual
	OpLess
	OpLessOrEqual
	OpSimilar
)

// FieldCondition is a single predicate on a document field, with the
// value kept as raw text.
type FieldCondition struct {
	Field    string
	Operator Operator
	Value    string
}

// SelectorKind discriminates the selector variants.
type SelectorKind uint8

const (
	SelectField SelectorKind = iota
	SelectAllFields
	SelectAllFieldsRecursive
	SelectSubDocument
)

// Selector is one entry of a SELECT projection list. SubDocument
// selectors follow a reference field and carry their own selectors
// and conditions for the resolved document.
type Selector struct {
	Kind  SelectorKind
	Field string
	Sub   *SubSelect
}

// SubSelect is the body of a sub-document selector.
type SubSelect struct {
	Selectors  []Selector
	Conditions []FieldCondition
}
