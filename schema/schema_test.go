package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGraphValidation(t *testing.T) {
	user := func() *Model {
		return &Model{
			Name:  "User",
			Table: "users",
			Fields: []*Field{
				{Name: "id", Kind: KindInt64, ID: true},
				{Name: "email", Kind: KindString, Unique: true},
			},
		}
	}

	t.Run("duplicate model", func(t *testing.T) {
		_, err := NewGraph(user(), user())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate model")
	})

	t.Run("duplicate field", func(t *testing.T) {
		m := user()
		m.Fields = append(m.Fields, &Field{Name: "email", Kind: KindString})
		_, err := NewGraph(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate field")
	})

	t.Run("unknown relation target", func(t *testing.T) {
		m := user()
		m.Relations = []*Relation{{Name: "posts", Kind: O2M, Target: "Post", LocalKey: "id", ForeignKey: "author_id"}}
		_, err := NewGraph(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown model")
	})

	t.Run("relation shadows field", func(t *testing.T) {
		m := user()
		m.Relations = []*Relation{{Name: "email", Kind: O2O, Target: "User", LocalKey: "id", ForeignKey: "id"}}
		_, err := NewGraph(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shadows a field")
	})

	t.Run("m2m without pivot", func(t *testing.T) {
		m := user()
		m.Relations = []*Relation{{Name: "friends", Kind: M2M, Target: "User"}}
		_, err := NewGraph(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pivot table")
	})

	t.Run("missing join keys", func(t *testing.T) {
		m := user()
		m.Relations = []*Relation{{Name: "parent", Kind: M2O, Target: "User", ForeignKey: "id"}}
		_, err := NewGraph(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "join keys")
	})

	t.Run("valid", func(t *testing.T) {
		g, err := NewGraph(user())
		require.NoError(t, err)
		m, ok := g.Model("User")
		require.True(t, ok)
		assert.Equal(t, "users", m.Table)
		assert.Equal(t, []string{"User"}, g.Models())
	})
}

func TestModelAccessors(t *testing.T) {
	m := &Model{
		Name:  "Order",
		Table: "orders",
		Fields: []*Field{
			{Name: "id", Kind: KindInt64, ID: true},
			{Name: "number", Column: "order_number", Kind: KindString},
		},
	}
	f, ok := m.Field("number")
	require.True(t, ok)
	assert.Equal(t, "order_number", f.ColumnName())
	_, ok = m.Field("missing")
	assert.False(t, ok)

	require.NotNil(t, m.ID())
	assert.Equal(t, "id", m.ID().Name)
	assert.Equal(t, []string{"id", "order_number"}, m.Columns())
}

func TestUniqueCover(t *testing.T) {
	m := &Model{
		Name: "Post",
		Fields: []*Field{
			{Name: "id", Kind: KindInt64, ID: true},
			{Name: "author_id", Kind: KindInt64},
			{Name: "slug", Column: "url_slug", Kind: KindString},
			{Name: "title", Kind: KindString},
		},
		Indexes: []*Index{
			{Name: "author_slug", Columns: []string{"author_id", "slug"}, Unique: true},
			{Name: "title_idx", Columns: []string{"title"}},
		},
	}

	// The id field covers on its own.
	assert.Equal(t, []string{"id"}, m.UniqueCover([]string{"id", "title"}))

	// A composite unique index covers when all its fields appear; the
	// cover reports database column names.
	assert.Equal(t, []string{"author_id", "url_slug"}, m.UniqueCover([]string{"slug", "author_id"}))

	// Partial coverage and non-unique indexes do not qualify.
	assert.Nil(t, m.UniqueCover([]string{"author_id"}))
	assert.Nil(t, m.UniqueCover([]string{"title"}))
	assert.Nil(t, m.UniqueCover(nil))

	assert.True(t, m.UniqueColumns([]string{"author_id", "slug", "title"}))
	assert.False(t, m.UniqueColumns([]string{"title"}))
}

func TestKindProperties(t *testing.T) {
	assert.True(t, KindString.Textual())
	assert.False(t, KindInt.Textual())
	assert.True(t, KindTime.Orderable())
	assert.False(t, KindBool.Orderable())
	assert.True(t, KindFloat.Numeric())
	assert.False(t, KindUUID.Numeric())
	assert.True(t, KindUUID.Comparable())
	assert.False(t, KindInvalid.Comparable())
	assert.Equal(t, "uuid", KindUUID.String())

	assert.True(t, O2M.ToMany())
	assert.True(t, M2M.ToMany())
	assert.False(t, O2O.ToMany())
	assert.False(t, M2O.ToMany())
}
