package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

func TestParseDatabaseQuery(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  DatabaseQuery
	}{
		"create":                {input: "CREATE DATABASE app", want: CreateDatabase{Name: "app"}},
		"create drop if exists": {input: "CREATE DATABASE app DROP IF EXISTS", want: CreateDatabase{Name: "app", DropIfExists: true}},
		"drop":                  {input: "DROP DATABASE app", want: DropDatabase{Name: "app"}},
		"list":                  {input: "LIST DATABASES", want: ListDatabases{}},
		"list mixed case":       {input: "   LiSt    DaTaBaSeS   ", want: ListDatabases{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			q, err := ParseDatabaseQuery(tc.input)
			require.Nil(t, err)
			require.Equal(t, tc.want, q)
		})
	}
}

func TestParseDatabaseQueryErrors(t *testing.T) {
	t.Parallel()

	t.Run("reversed keywords", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDatabaseQuery("DATABASES LIST")
		require.NotNil(t, err)
		require.Contains(t, err.Context, "database query")
	})

	t.Run("trailing input", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDatabaseQuery("LIST DATABASES EXTRA")
		require.NotNil(t, err)
		require.Equal(t, []string{"end of input"}, err.Expected)
		require.Equal(t, "EXTRA", err.Found)
		require.Contains(t, err.Context, "database query")
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDatabaseQuery("")
		require.NotNil(t, err)
		require.Equal(t, "", err.Found)
		require.Contains(t, err.Context, "database query")
	})

	t.Run("lexer error keeps root context", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDatabaseQuery("LIST $")
		require.NotNil(t, err)
		require.Contains(t, err.Context, "database query")
		require.NotEmpty(t, err.Expected)
		require.Equal(t, "$", err.Found)
	})

	t.Run("missing database name", func(t *testing.T) {
		t.Parallel()
		_, err := ParseDatabaseQuery("CREATE DATABASE")
		require.NotNil(t, err)
		require.Equal(t, []string{"database name"}, err.Expected)
		require.Equal(t, "create database", err.Context[0])
	})
}

func TestParseCreateCollection(t *testing.T) {
	t.Parallel()

	q, err := ParseContextualQuery(`CREATE COLLECTION users {
		id: id_int,
		name: string,
		age: int = 30,
		tags: array<string>,
		nick: nullable<string>,
		boss: ref<users>,
	}`)
	require.Nil(t, err)

	cc, ok := q.(CreateCollection)
	require.True(t, ok)
	require.Equal(t, "users", cc.Name)
	require.False(t, cc.DropIfExists)
	require.Len(t, cc.Schema.Fields, 6)

	require.Equal(t, schema.IDInt(), cc.Schema.Fields["id"].Type)
	require.Equal(t, schema.Array(schema.String()), cc.Schema.Fields["tags"].Type)
	require.Equal(t, schema.Nullable(schema.String()), cc.Schema.Fields["nick"].Type)
	require.Equal(t, schema.Reference("users"), cc.Schema.Fields["boss"].Type)

	age := cc.Schema.Fields["age"]
	require.True(t, age.HasDefault)
	require.Equal(t, int64(30), age.Default)
}

func TestParseCreateCollectionDropIfExists(t *testing.T) {
	t.Parallel()

	q, err := ParseContextualQuery("CREATE COLLECTION users DROP IF EXISTS { id: id_string }")
	require.Nil(t, err)
	require.True(t, q.(CreateCollection).DropIfExists)
}

func TestParseNullableDefaultWithoutSpace(t *testing.T) {
	t.Parallel()

	// ">=" here is the closing '>' of the type followed by the
	// default's '='.
	q, err := ParseContextualQuery(`CREATE COLLECTION users { id: id_int, nick: nullable<string>= "none" }`)
	require.Nil(t, err)

	nick := q.(CreateCollection).Schema.Fields["nick"]
	require.True(t, nick.HasDefault)
	require.Equal(t, "none", nick.Default)
}

func TestParseCreateCollectionErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		message string
	}{
		"duplicate field":  {input: "CREATE COLLECTION users { id: id_int, id: int }", message: "duplicate field name: id"},
		"unknown type":     {input: "CREATE COLLECTION users { id: id_int, size: huge }", message: "unknown field type: huge"},
		"default on id":    {input: "CREATE COLLECTION users { id: id_int = 5 }", message: "default values are not allowed on ID fields"},
		"mistyped default": {input: `CREATE COLLECTION users { id: id_int, age: int = "old" }`, message: `invalid default value: invalid integer "\"old\""`},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseContextualQuery(tc.input)
			require.NotNil(t, err)
			require.Equal(t, tc.message, err.Message)
			require.Contains(t, err.Context, "collection query")
		})
	}
}

func TestParseCollectionManagementQueries(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  ContextualQuery
	}{
		"drop collection":  {input: "DROP COLLECTION users", want: DropCollection{Name: "users"}},
		"list collections": {input: "LIST COLLECTIONS", want: ListCollections{}},
		"get schema":       {input: "GET SCHEMA FROM users", want: GetCollectionSchema{Name: "users"}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			q, err := ParseContextualQuery(tc.input)
			require.Nil(t, err)
			require.Equal(t, tc.want, q)
		})
	}
}

func TestParseModifyCollection(t *testing.T) {
	t.Parallel()

	q, err := ParseContextualQuery(`MODIFY COLLECTION users {
		age: drop,
		email: string = "unknown@example.com",
		score: float,
	}`)
	require.Nil(t, err)

	mc, ok := q.(ModifyCollection)
	require.True(t, ok)
	require.Equal(t, "users", mc.Name)
	require.Len(t, mc.Modifications, 3)

	require.Equal(t, FieldModification{Field: "age", Drop: true}, mc.Modifications[0])

	email := mc.Modifications[1]
	require.Equal(t, "email", email.Field)
	require.False(t, email.Drop)
	require.True(t, email.Def.HasDefault)
	require.Equal(t, "unknown@example.com", email.Def.Default)

	require.Equal(t, schema.Float(), mc.Modifications[2].Def.Type)
}

func TestParseInsertDocument(t *testing.T) {
	t.Parallel()

	for _, keyword := range []string{"DOC", "DOCUMENT"} {
		t.Run(keyword, func(t *testing.T) {
			t.Parallel()
			q, err := ParseContextualQuery("INSERT " + keyword + ` INTO users { name: "Alice", age: 30 }`)
			require.Nil(t, err)

			ins, ok := q.(InsertDocument)
			require.True(t, ok)
			require.Equal(t, "users", ins.Collection)
			require.Equal(t, []Assignment{
				{Field: "name", Value: `"Alice"`},
				{Field: "age", Value: "30"},
			}, ins.Fields)
		})
	}
}

func TestParseInsertDocumentRawValues(t *testing.T) {
	t.Parallel()

	q, err := ParseContextualQuery(`INSERT DOC INTO users { tags: ["a", ["b", "c"]], nick: null, ok: true }`)
	require.Nil(t, err)

	ins := q.(InsertDocument)
	require.Equal(t, []Assignment{
		{Field: "tags", Value: `["a", ["b", "c"]]`},
		{Field: "nick", Value: "null"},
		{Field: "ok", Value: "true"},
	}, ins.Fields)
}

func TestParseInsertDuplicateField(t *testing.T) {
	t.Parallel()

	_, err := ParseContextualQuery(`INSERT DOC INTO users { name: "a", name: "b" }`)
	require.NotNil(t, err)
	require.Equal(t, "duplicate field name: name", err.Message)
}

func TestParseSelectDocuments(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input string
		want  SelectDocuments
	}{
		"all fields": {
			input: "SELECT * FROM users",
			want: SelectDocuments{
				Collection: "users",
				Selectors:  []Selector{{Kind: SelectAllFields}},
			},
		},
		"recursive": {
			input: "SELECT ** FROM users",
			want: SelectDocuments{
				Collection: "users",
				Selectors:  []Selector{{Kind: SelectAllFieldsRecursive}},
			},
		},
		"named fields with where": {
			input: `SELECT name, age FROM users WHERE age >= 18, name == "li"`,
			want: SelectDocuments{
				Collection: "users",
				Selectors: []Selector{
					{Kind: SelectField, Field: "name"},
					{Kind: SelectField, Field: "age"},
				},
				Conditions: []FieldCondition{
					{Field: "age", Operator: OpGreaterOrEqual, Value: "18"},
					{Field: "name", Operator: OpSimilar, Value: `"li"`},
				},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			q, err := ParseContextualQuery(tc.input)
			require.Nil(t, err)
			require.Equal(t, tc.want, q)
		})
	}
}

func TestParseSelectSubDocument(t *testing.T) {
	t.Parallel()

	q, err := ParseContextualQuery(`SELECT name, boss { name, active = true, dept { * } } FROM users`)
	require.Nil(t, err)

	sel := q.(SelectDocuments).Selectors
	require.Len(t, sel, 2)
	require.Equal(t, Selector{Kind: SelectField, Field: "name"}, sel[0])

	boss := sel[1]
	require.Equal(t, SelectSubDocument, boss.Kind)
	require.Equal(t, "boss", boss.Field)
	require.NotNil(t, boss.Sub)
	require.Equal(t, []FieldCondition{
		{Field: "active", Operator: OpEqual, Value: "true"},
	}, boss.Sub.Conditions)
	require.Len(t, boss.Sub.Selectors, 2)
	require.Equal(t, Selector{Kind: SelectField, Field: "name"}, boss.Sub.Selectors[0])

	dept := boss.Sub.Selectors[1]
	require.Equal(t, SelectSubDocument, dept.Kind)
	require.Equal(t, "dept", dept.Field)
	require.Equal(t, []Selector{{Kind: SelectAllFields}}, dept.Sub.Selectors)
}

func TestParseUpdateDocuments(t *testing.T) {
	t.Parallel()

	q, err := ParseContextualQuery(`UPDATE users SET age: 31, nick: "al" WHERE name = "Alice"`)
	require.Nil(t, err)

	up, ok := q.(UpdateDocuments)
	require.True(t, ok)
	require.Equal(t, "users", up.Collection)
	require.Equal(t, []Assignment{
		{Field: "age", Value: "31"},
		{Field: "nick", Value: `"al"`},
	}, up.Assignments)
	require.Equal(t, []FieldCondition{
		{Field: "name", Operator: OpEqual, Value: `"Alice"`},
	}, up.Conditions)
}

func TestParseDeleteDocuments(t *testing.T) {
	t.Parallel()

	t.Run("with where", func(t *testing.T) {
		t.Parallel()
		q, err := ParseContextualQuery("DELETE FROM users WHERE age < 18")
		require.Nil(t, err)
		require.Equal(t, DeleteDocuments{
			Collection: "users",
			Conditions: []FieldCondition{{Field: "age", Operator: OpLess, Value: "18"}},
		}, q)
	})

	t.Run("without where", func(t *testing.T) {
		t.Parallel()
		q, err := ParseContextualQuery("DELETE FROM users")
		require.Nil(t, err)
		require.Equal(t, DeleteDocuments{Collection: "users"}, q)
	})
}

func TestParseContextualQueryErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown leading keyword", func(t *testing.T) {
		t.Parallel()
		_, err := ParseContextualQuery("FETCH users")
		require.NotNil(t, err)
		require.Contains(t, err.Context, "contextual query")
	})

	t.Run("missing set", func(t *testing.T) {
		t.Parallel()
		_, err := ParseContextualQuery("UPDATE users age: 31")
		require.NotNil(t, err)
		require.Equal(t, []string{"SET"}, err.Expected)
		require.Contains(t, err.Context, "update documents")
	})

	t.Run("condition without value", func(t *testing.T) {
		t.Parallel()
		_, err := ParseContextualQuery("DELETE FROM users WHERE age >")
		require.NotNil(t, err)
		require.Contains(t, err.Context, "field condition")
	})
}

func TestParserErrorString(t *testing.T) {
	t.Parallel()

	_, err := ParseDatabaseQuery("LIST DATABASES EXTRA")
	require.NotNil(t, err)
	require.Equal(t, "expected end of input, found EXTRA at 15..20", err.Error())
}
