package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
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

func TestAppendMessageAutoTitle(t *testing.T) {
	svc := NewSessionService(setupTestDB(t))
	sess, err := svc.CreateSession(&CreateSessionRequest{Mode: "coder"})
	require.NoError(t, err)
	assert.Equal(t, "New chat", sess.Title)

	_, err = svc.AppendMessage(sess.RecordID, &AppendMessageRequest{Role: database.RoleSystem, Content: "be brief"})
	require.NoError(t, err)
	got, err := svc.GetSession(sess.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "New chat", got.Title)

	_, err = svc.AppendMessage(sess.RecordID, &AppendMessageRequest{Role: database.RoleUser, Content: "Explain goroutines\nin detail"})
	require.NoError(t, err)
	_, err = svc.AppendMessage(sess.RecordID, &AppendMessageRequest{Role: database.RoleUser, Content: "second question"})
	require.NoError(t, err)

	got, err = svc.GetSession(sess.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "Explain goroutines", got.Title)

	msgs, total, err := svc.ListMessages(sess.RecordID, query.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "be brief", msgs[0].Content)
	assert.Equal(t, "second question", msgs[2].Content)
}

func TestAppendToMissingSession(t *testing.T) {
	svc := NewSessionService(setupTestDB(t))
	_, err := svc.AppendMessage("missing", &AppendMessageRequest{Role: database.RoleUser, Content: "hi"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordNotFound))
}

func TestDeleteSessionCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSessionService(db)
	keep, err := svc.CreateSession(&CreateSessionRequest{Title: "keep"})
	require.NoError(t, err)
	drop, err := svc.CreateSession(&CreateSessionRequest{Title: "drop"})
	require.NoError(t, err)

	for _, id := range []string{keep.RecordID, drop.RecordID, drop.RecordID} {
		_, err := svc.AppendMessage(id, &AppendMessageRequest{Role: database.RoleUser, Content: "x"})
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteSession(drop.RecordID))

	var remaining int64
	require.NoError(t, db.Model(&database.Message{}).Count(&remaining).Error)
	assert.EqualValues(t, 1, remaining)

	_, _, err = svc.ListMessages(drop.RecordID, query.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordNotFound))
}

func TestListSessionsNewestFirst(t *testing.T) {
	svc := NewSessionService(setupTestDB(t))
	first, err := svc.CreateSession(&CreateSessionRequest{Title: "first"})
	require.NoError(t, err)
	_, err = svc.CreateSession(&CreateSessionRequest{Title: "second"})
	require.NoError(t, err)

	// 新消息会刷新会话的更新时间
	_, err = svc.AppendMessage(first.RecordID, &AppendMessageRequest{Role: database.RoleUser, Content: "bump"})
	require.NoError(t, err)

	list, total, err := svc.ListSessions(query.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, first.RecordID, list[0].RecordID)
}

func TestRenameAndDeleteMessage(t *testing.T) {
	svc := NewSessionService(setupTestDB(t))
	sess, err := svc.CreateSession(&CreateSessionRequest{})
	require.NoError(t, err)

	renamed, err := svc.RenameSession(sess.RecordID, " Trip plan ")
	require.NoError(t, err)
	assert.Equal(t, "Trip plan", renamed.Title)

	_, err = svc.RenameSession(sess.RecordID, "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))

	msg, err := svc.AppendMessage(sess.RecordID, &AppendMessageRequest{Role: database.RoleAssistant, Content: "ok"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteMessage(sess.RecordID, msg.RecordID))
	assert.True(t, apperrors.HasCode(svc.DeleteMessage(sess.RecordID, msg.RecordID), apperrors.ErrRecordNotFound))
}

func TestAutoTitle(t *testing.T) {
	assert.Equal(t, "New chat", AutoTitle("   \n"))
	assert.Equal(t, "hello", AutoTitle("  hello  "))

	long := strings.Repeat("界", autoTitleRunes+10)
	title := AutoTitle(long)
	assert.Equal(t, autoTitleRunes+3, len([]rune(title)))
	assert.True(t, strings.HasSuffix(title, "..."))
}
