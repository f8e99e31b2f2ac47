package widget

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
)

func TestColorService(t *testing.T) {
	svc := NewColorService(setupTestDB(t))

	c, err := svc.CreateColor(&ColorRequest{Name: " brand ", Hex: "#F0A"})
	require.NoError(t, err)
	assert.Equal(t, "brand", c.Name)
	assert.Equal(t, "#ff00aa", c.Hex)

	_, err = svc.CreateColor(&ColorRequest{Hex: "#zzzzzz"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidColor))

	c, err = svc.UpdateColor(c.RecordID, &ColorRequest{Name: "accent", Hex: "112233"})
	require.NoError(t, err)
	assert.Equal(t, "#112233", c.Hex)

	require.NoError(t, svc.DeleteColor(c.RecordID))
	_, total, err := svc.ListColors(query.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
}

func TestQuickCommandService(t *testing.T) {
	svc := NewQuickCommandService(setupTestDB(t))

	deploy, err := svc.CreateCommand(&QuickCommandRequest{Name: "Deploy", Command: "make deploy"})
	require.NoError(t, err)
	_, err = svc.CreateCommand(&QuickCommandRequest{Name: "build", Command: "make"})
	require.NoError(t, err)

	t.Run("名称忽略大小写唯一", func(t *testing.T) {
		_, err := svc.CreateCommand(&QuickCommandRequest{Name: "deploy", Command: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordAlreadyExists))

		_, err = svc.UpdateCommand(deploy.RecordID, &QuickCommandRequest{Name: "BUILD", Command: "x"})
		assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordAlreadyExists))
	})

	t.Run("更新自身名称", func(t *testing.T) {
		qc, err := svc.UpdateCommand(deploy.RecordID, &QuickCommandRequest{Name: "DEPLOY", Command: "make release"})
		require.NoError(t, err)
		assert.Equal(t, "make release", qc.Command)
	})

	t.Run("删除后名称可复用", func(t *testing.T) {
		require.NoError(t, svc.DeleteCommand(deploy.RecordID))
		_, err := svc.CreateCommand(&QuickCommandRequest{Name: "deploy", Command: "make deploy"})
		require.NoError(t, err)
	})

	list, err := svc.ListCommands()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "build", list[0].Name)
}

func TestBreakService(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local)
	svc := &breakService{db: setupTestDB(t), now: func() time.Time { return now }}

	_, err := svc.Record(&BreakRecordRequest{Day: "2024-03-10", BreaksTaken: 2, WorkMinutes: 50})
	require.NoError(t, err)
	stat, err := svc.Record(&BreakRecordRequest{Day: "2024-03-10", BreaksTaken: 1, BreaksSkipped: 1, WorkMinutes: 25})
	require.NoError(t, err)
	assert.Equal(t, 3, stat.BreaksTaken)
	assert.Equal(t, 75, stat.WorkMinutes)

	_, err = svc.Record(&BreakRecordRequest{Day: "2024-03-04", BreaksTaken: 4})
	require.NoError(t, err)
	// 超出最近7天
	_, err = svc.Record(&BreakRecordRequest{Day: "2024-03-03", BreaksSkipped: 9})
	require.NoError(t, err)

	sum, err := svc.Summary(0)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", sum.From)
	assert.Equal(t, "2024-03-10", sum.To)
	assert.Equal(t, 7, sum.BreaksTaken)
	assert.Equal(t, 1, sum.BreaksSkipped)
	assert.InDelta(t, 87.5, sum.CompliancePct, 0.001)
	assert.Len(t, sum.Daily, 2)

	_, err = svc.Summary(maxSummaryDays + 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))

	_, err = svc.Get("2024-03-09")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordNotFound))
	_, err = svc.Record(&BreakRecordRequest{Day: "10/03/2024"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
}

func TestSettingService(t *testing.T) {
	svc := NewSettingService(setupTestDB(t))

	first, err := svc.Put("theme", "dark")
	require.NoError(t, err)
	second, err := svc.Put(" theme ", "light")
	require.NoError(t, err)
	assert.Equal(t, first.RecordID, second.RecordID)
	assert.Equal(t, "light", second.Value)

	all, err := svc.PutMany(map[string]string{"lang": "zh", "font_size": "14"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "light", "lang": "zh", "font_size": "14"}, all)

	_, err = svc.PutMany(map[string]string{"": "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))

	require.NoError(t, svc.Delete("lang"))
	_, err = svc.Get("lang")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordNotFound))
	assert.True(t, apperrors.HasCode(svc.Delete("lang"), apperrors.ErrRecordNotFound))

	// 硬删除后可以重新写入同名键
	_, err = svc.Put("lang", "en")
	require.NoError(t, err)
}
