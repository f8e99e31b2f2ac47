package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestSnippetService(t *testing.T) {
	svc := NewSnippetService(setupTestDB(t))

	t.Run("创建时规范化语言和标签", func(t *testing.T) {
		sn, err := svc.CreateSnippet(&SnippetRequest{
			Title:    " retry loop ",
			Language: " Go ",
			Code:     "for i := 0; i < 3; i++ {}",
			Tags:     []string{"Loop", "loop", " util "},
		})
		require.NoError(t, err)
		assert.Equal(t, "retry loop", sn.Title)
		assert.Equal(t, "go", sn.Language)
		assert.Equal(t, "loop,util", sn.Tags)
	})

	t.Run("空标题", func(t *testing.T) {
		_, err := svc.CreateSnippet(&SnippetRequest{Title: "  "})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
	})

	t.Run("按标签和语言过滤", func(t *testing.T) {
		_, err := svc.CreateSnippet(&SnippetRequest{Title: "list comp", Language: "python", Tags: []string{"utility"}})
		require.NoError(t, err)

		// "util" 不能匹配到 "utility"
		list, total, err := svc.ListSnippets(SnippetFilter{Tag: "util"}, query.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, "retry loop", list[0].Title)

		_, total, err = svc.ListSnippets(SnippetFilter{Language: "PYTHON"}, query.Page{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		langs, err := svc.Languages()
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "python"}, langs)
	})
}

func TestSnippetExportImport(t *testing.T) {
	src := NewSnippetService(setupTestDB(t))
	a, err := src.CreateSnippet(&SnippetRequest{Title: "a", Language: "go", Code: "fmt.Println()", Tags: []string{"print"}})
	require.NoError(t, err)
	_, err = src.CreateSnippet(&SnippetRequest{Title: "b", Language: "sh", Code: "ls -la"})
	require.NoError(t, err)

	data, err := src.ExportYAML(SnippetFilter{})
	require.NoError(t, err)

	var doc SnippetExport
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, snippetExportVersion, doc.Version)
	require.Len(t, doc.Snippets, 2)
	assert.Equal(t, a.RecordID, doc.Snippets[0].RecordID)

	dst := NewSnippetService(setupTestDB(t))
	existing, err := dst.CreateSnippet(&SnippetRequest{Title: "old"})
	require.NoError(t, err)
	doc.Snippets[1].RecordID = existing.RecordID
	doc.Snippets = append(doc.Snippets, database.Snippet{Title: "  "})
	data, err = yaml.Marshal(&doc)
	require.NoError(t, err)

	result, err := dst.ImportYAML(data)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Created: 1, Updated: 1, Skipped: 1}, *result)

	got, err := dst.GetSnippet(a.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "fmt.Println()", got.Code)
	assert.Equal(t, "print", got.Tags)

	updated, err := dst.GetSnippet(existing.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Title)
	assert.Equal(t, "ls -la", updated.Code)

	t.Run("无效文档", func(t *testing.T) {
		_, err := dst.ImportYAML([]byte("snippets: [unclosed"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))

		_, err = dst.ImportYAML([]byte("version: 99\n"))
		assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
	})
}
