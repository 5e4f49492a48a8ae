package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphYAML = `
models:
  - name: User
    fields:
      - {name: id, type: uuid, id: true}
      - {name: email, type: string, unique: true}
      - {name: deleted_at, type: time, nullable: true}
    relations:
      - {name: posts, kind: one-to-many, target: Post, localKey: id, foreignKey: author_id}
  - name: OrderItem
    fields:
      - {name: id, type: int64, id: true}
  - name: Post
    table: blog_posts
    fields:
      - {name: id, type: uuid, id: true}
      - {name: author_id, type: uuid}
      - {name: title, type: string}
    relations:
      - {name: tags, kind: many-to-many, target: Tag, pivotTable: post_tags, pivotLocal: post_id, pivotForeign: tag_id}
    indexes:
      - {name: author_title, columns: [author_id, title], unique: true}
  - name: Tag
    fields:
      - {name: id, type: uuid, id: true}
      - {name: label, type: string, column: tag_label}
`

func TestParseYAML(t *testing.T) {
	g, err := ParseYAML([]byte(graphYAML))
	require.NoError(t, err)

	user, ok := g.Model("User")
	require.True(t, ok)
	// Omitted table names default to the pluralized snake-case model name.
	assert.Equal(t, "users", user.Table)
	item, _ := g.Model("OrderItem")
	assert.Equal(t, "order_items", item.Table)

	post, _ := g.Model("Post")
	assert.Equal(t, "blog_posts", post.Table)

	deleted, ok := user.Field("deleted_at")
	require.True(t, ok)
	assert.Equal(t, KindTime, deleted.Kind)
	assert.True(t, deleted.Nullable)

	posts, ok := user.Relation("posts")
	require.True(t, ok)
	assert.Equal(t, O2M, posts.Kind)
	assert.Equal(t, "author_id", posts.ForeignKey)

	tags, ok := post.Relation("tags")
	require.True(t, ok)
	assert.Equal(t, M2M, tags.Kind)
	assert.Equal(t, "post_tags", tags.PivotTable)
	assert.Equal(t, "post_id", tags.PivotLocalColumn)
	assert.Equal(t, "tag_id", tags.PivotForeignColumn)

	require.Len(t, post.Indexes, 1)
	assert.True(t, post.Indexes[0].Unique)

	label, _ := g.Model("Tag")
	f, _ := label.Field("label")
	assert.Equal(t, "tag_label", f.ColumnName())
}

func TestParseYAMLErrors(t *testing.T) {
	_, err := ParseYAML([]byte("models:\n  - name: U\n    fields:\n      - {name: id, type: varchar}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")

	_, err = ParseYAML([]byte("models:\n  - name: U\n    relations:\n      - {name: r, kind: has-many, target: U}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")

	_, err = ParseYAML([]byte("models:\n  - table: users\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a name")

	_, err = ParseYAML([]byte(":\n  - not yaml"))
	require.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(graphYAML), 0o644))

	g, err := LoadYAML(path)
	require.NoError(t, err)
	_, ok := g.Model("User")
	assert.True(t, ok)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
