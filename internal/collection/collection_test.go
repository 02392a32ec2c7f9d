package collection

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

func userSchema(idType schema.FieldType) *schema.Schema {
	s := schema.New()
	s.Fields["id"] = schema.Field(idType)
	s.Fields["name"] = schema.Field(schema.String())
	s.Fields["age"] = schema.FieldWithDefault(schema.Int(), int64(0))
	s.Fields["tags"] = schema.Field(schema.Array(schema.String()))
	return s
}

func newStringIDCollection(t *testing.T) *Collection {
	t.Helper()
	c, err := New("users", userSchema(schema.IDString()), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAddDocumentAutogenStringID(t *testing.T) {
	t.Parallel()
	c := newStringIDCollection(t)

	doc, err := c.AddDocument(bson.M{"name": "Alice", "age": int64(30), "tags": []any{}})
	require.NoError(t, err)
	require.Equal(t, document.IDString, doc.ID.Kind())
	require.NotEmpty(t, doc.ID.String())
	require.Equal(t, doc.ID.String(), doc.Data["id"])
}

func TestAddDocumentAutogenIntID(t *testing.T) {
	t.Parallel()
	c, err := New("users", userSchema(schema.IDInt()), t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	first, err := c.AddDocument(bson.M{"name": "Alice", "tags": []any{}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.ID.Int())

	_, err = c.AddDocument(bson.M{"id": int64(10), "name": "Bob", "tags": []any{}})
	require.NoError(t, err)

	third, err := c.AddDocument(bson.M{"name": "Charlie", "tags": []any{}})
	require.NoError(t, err)
	require.Equal(t, uint64(11), third.ID.Int())
}

func TestAddDocumentIDTypeMismatch(t *testing.T) {
	t.Parallel()

	t.Run("string collection rejects integer id", func(t *testing.T) {
		t.Parallel()
		c := newStringIDCollection(t)
		_, err := c.AddDocument(bson.M{"id": int64(42), "name": "Alice", "tags": []any{}})
		require.ErrorIs(t, err, ErrValidation)
		require.ErrorContains(t, err, "Expected ID as string")
	})

	t.Run("integer collection rejects string id", func(t *testing.T) {
		t.Parallel()
		c, err := New("users", userSchema(schema.IDInt()), t.TempDir())
		require.NoError(t, err)
		defer c.Close()

		_, err = c.AddDocument(bson.M{"id": "user-123", "name": "Alice", "tags": []any{}})
		require.ErrorIs(t, err, ErrValidation)
		require.ErrorContains(t, err, "Expected ID as integer")
	})
}

func TestAddDocumentDuplicateID(t *testing.T) {
	t.Parallel()
	c := newStringIDCollection(t)

	_, err := c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
	require.NoError(t, err)
	_, err = c.AddDocument(bson.M{"id": "u1", "name": "Bob", "tags": []any{}})
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestUpdateDocument(t *testing.T) {
	t.Parallel()
	c := newStringIDCollection(t)

	_, err := c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := c.UpdateDocument(document.StringID("missing"), bson.M{"name": "X"})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("id mismatch rejected", func(t *testing.T) {
		_, err := c.UpdateDocument(document.StringID("u1"),
			bson.M{"id": "u2", "name": "Alice", "tags": []any{}})
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("replaces and injects id", func(t *testing.T) {
		doc, err := c.UpdateDocument(document.StringID("u1"),
			bson.M{"name": "Alicia", "age": int64(31), "tags": []any{"admin"}})
		require.NoError(t, err)
		require.Equal(t, "u1", doc.Data["id"])
		require.Equal(t, "Alicia", doc.Data["name"])
	})
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()
	c := newStringIDCollection(t)

	_, err := c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
	require.NoError(t, err)

	require.ErrorIs(t, c.DeleteDocument(document.StringID("nope")), ErrNotFound)
	require.NoError(t, c.DeleteDocument(document.StringID("u1")))
	_, found := c.GetDocument(document.StringID("u1"))
	require.False(t, found)
	require.Zero(t, c.Len())
}

func TestRoundTripPersistence(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	c, err := New("users", userSchema(schema.IDString()), dir)
	require.NoError(t, err)

	_, err = c.AddDocument(bson.M{"id": "u1", "name": "Alice", "age": int64(30), "tags": []any{"a"}})
	require.NoError(t, err)
	_, err = c.AddDocument(bson.M{"id": "u2", "name": "Bob", "tags": []any{}})
	require.NoError(t, err)
	_, err = c.UpdateDocument(document.StringID("u1"),
		bson.M{"name": "Alicia", "age": int64(31), "tags": []any{"a", "b"}})
	require.NoError(t, err)
	_, err = c.AddDocument(bson.M{"id": "u3", "name": "Carol", "tags": []any{}})
	require.NoError(t, err)
	require.NoError(t, c.DeleteDocument(document.StringID("u2")))

	before := c.Documents()
	require.NoError(t, c.Close())

	loaded, err := Load(dir, "users")
	require.NoError(t, err)
	defer loaded.Close()

	after := loaded.Documents()
	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].ID, after[i].ID)
		require.True(t, document.Equal(before[i].Data, after[i].Data))
	}
}

func TestLoadToleratesTruncatedTail(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	c, err := New("users", userSchema(schema.IDString()), dir)
	require.NoError(t, err)
	_, err = c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// Simulate a crash mid-append: a frame header promising more
	// bytes than the file holds.
	logPath := filepath.Join(dir, "users", logFileName)
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0640)
	require.NoError(t, err)
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], 4096)
	_, err = f.Write(append(header[:], 0x01, 0x02))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	loaded, err := Load(dir, "users")
	require.NoError(t, err)
	defer loaded.Close()
	require.Equal(t, 1, loaded.Len())
}

func TestLoadRejectsCorruptReplay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	c, err := New("users", userSchema(schema.IDString()), dir)
	require.NoError(t, err)
	doc := bson.M{"id": "u1", "name": "Alice", "age": int64(1), "tags": []any{}}
	_, err = c.AddDocument(doc)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// A complete, well-formed frame that repeats an existing ID.
	frame, err := encodeFrame(OpInsert, doc)
	require.NoError(t, err)
	logPath := filepath.Join(dir, "users", logFileName)
	f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND, 0640)
	require.NoError(t, err)
	_, err = f.Write(frame)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Load(dir, "users")
	require.ErrorIs(t, err, ErrCorruptLog)
}

func TestFilter(t *testing.T) {
	t.Parallel()
	c := newStringIDCollection(t)

	for _, doc := range []bson.M{
		{"id": "u1", "name": "Alice", "age": int64(30), "tags": []any{"admin"}},
		{"id": "u2", "name": "Bob", "age": int64(25), "tags": []any{}},
		{"id": "u3", "name": "Charlie", "age": int64(35), "tags": []any{"admin", "ops"}},
	} {
		_, err := c.AddDocument(doc)
		require.NoError(t, err)
	}

	names := func(docs []document.Document) []string {
		var out []string
		for _, d := range docs {
			out = append(out, d.Data["name"].(string))
		}
		return out
	}

	t.Run("empty conditions return everything", func(t *testing.T) {
		docs, err := c.Filter(nil)
		require.NoError(t, err)
		require.Equal(t, []string{"Alice", "Bob", "Charlie"}, names(docs))
	})

	t.Run("and semantics", func(t *testing.T) {
		docs, err := c.Filter([]Condition{
			{Field: "age", Op: CmpGreater, Value: int64(26)},
			{Field: "tags", Op: CmpSimilar, Value: "admin"},
		})
		require.NoError(t, err)
		require.Equal(t, []string{"Alice", "Charlie"}, names(docs))
	})

	t.Run("similar substring on strings", func(t *testing.T) {
		docs, err := c.Filter([]Condition{{Field: "name", Op: CmpSimilar, Value: "li"}})
		require.NoError(t, err)
		require.Equal(t, []string{"Alice", "Charlie"}, names(docs))
	})

	t.Run("equality", func(t *testing.T) {
		docs, err := c.Filter([]Condition{{Field: "name", Op: CmpEqual, Value: "Bob"}})
		require.NoError(t, err)
		require.Equal(t, []string{"Bob"}, names(docs))
	})

	t.Run("unknown field errors", func(t *testing.T) {
		_, err := c.Filter([]Condition{{Field: "nope", Op: CmpEqual, Value: "x"}})
		require.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("incomparable ordering errors", func(t *testing.T) {
		_, err := c.Filter([]Condition{{Field: "name", Op: CmpGreater, Value: int64(3)}})
		require.ErrorIs(t, err, ErrIncomparable)
	})
}

func TestCompact(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	c, err := New("users", userSchema(schema.IDString()), dir)
	require.NoError(t, err)

	_, err = c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
	require.NoError(t, err)
	_, err = c.AddDocument(bson.M{"id": "u2", "name": "Bob", "tags": []any{}})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = c.UpdateDocument(document.StringID("u1"),
			bson.M{"name": "Alice", "age": int64(i), "tags": []any{}})
		require.NoError(t, err)
	}
	require.NoError(t, c.DeleteDocument(document.StringID("u2")))

	require.NoError(t, c.Compact())

	records, err := readLog(filepath.Join(dir, "users", logFileName))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, OpInsert, records[0].Operation)

	// The handle must still be usable for appends after the rewrite.
	_, err = c.AddDocument(bson.M{"id": "u3", "name": "Carol", "tags": []any{}})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	loaded, err := Load(dir, "users")
	require.NoError(t, err)
	defer loaded.Close()
	require.Equal(t, 2, loaded.Len())
}

func TestApplyModifications(t *testing.T) {
	t.Parallel()

	newCollection := func(t *testing.T) *Collection {
		c := newStringIDCollection(t)
		_, err := c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{"a"}})
		require.NoError(t, err)
		return c
	}

	t.Run("add field with default backfills", func(t *testing.T) {
		t.Parallel()
		c := newCollection(t)
		err := c.ApplyModifications([]Modification{
			{Field: "score", Def: schema.FieldWithDefault(schema.Float(), 1.5)},
		})
		require.NoError(t, err)

		doc, found := c.GetDocument(document.StringID("u1"))
		require.True(t, found)
		require.Equal(t, 1.5, doc.Data["score"])
	})

	t.Run("drop field removes values", func(t *testing.T) {
		t.Parallel()
		c := newCollection(t)
		err := c.ApplyModifications([]Modification{{Field: "tags", Drop: true}})
		require.NoError(t, err)

		doc, _ := c.GetDocument(document.StringID("u1"))
		require.NotContains(t, doc.Data, "tags")
		require.False(t, c.HasField("tags"))
	})

	t.Run("required field without default rejected", func(t *testing.T) {
		t.Parallel()
		c := newCollection(t)
		err := c.ApplyModifications([]Modification{
			{Field: "score", Def: schema.Field(schema.Float())},
		})
		require.Error(t, err)
	})

	t.Run("id field untouchable", func(t *testing.T) {
		t.Parallel()
		c := newCollection(t)
		err := c.ApplyModifications([]Modification{{Field: "id", Drop: true}})
		require.Error(t, err)
	})

	t.Run("write failure keeps prior schema on disk", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		c, err := New("users", userSchema(schema.IDString()), dir)
		require.NoError(t, err)
		_, err = c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
		require.NoError(t, err)

		errWrite := errors.New("log write failed")
		c.FailAppendAfter(0, errWrite)
		err = c.ApplyModifications([]Modification{
			{Field: "score", Def: schema.FieldWithDefault(schema.Float(), 1.5)},
		})
		require.ErrorIs(t, err, errWrite)
		require.NoError(t, c.Close())

		loaded, err := Load(dir, "users")
		require.NoError(t, err)
		defer loaded.Close()
		require.False(t, loaded.HasField("score"))
		doc, _ := loaded.GetDocument(document.StringID("u1"))
		require.NotContains(t, doc.Data, "score")
	})

	t.Run("survives reload", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		c, err := New("users", userSchema(schema.IDString()), dir)
		require.NoError(t, err)
		_, err = c.AddDocument(bson.M{"id": "u1", "name": "Alice", "tags": []any{}})
		require.NoError(t, err)

		require.NoError(t, c.ApplyModifications([]Modification{
			{Field: "nick", Def: schema.Field(schema.Nullable(schema.String()))},
		}))
		require.NoError(t, c.Close())

		loaded, err := Load(dir, "users")
		require.NoError(t, err)
		defer loaded.Close()
		require.True(t, loaded.HasField("nick"))
		doc, _ := loaded.GetDocument(document.StringID("u1"))
		require.Contains(t, doc.Data, "nick")
	})
}
