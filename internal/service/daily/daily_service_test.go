package daily

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
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

func intPtr(i int) *int { return &i }
func strPtr(s string) *string { return &s }

func TestUpsertMergesFields(t *testing.T) {
	svc := NewDailyService(setupTestDB(t))

	d, err := svc.Upsert("2024-03-01", &UpsertDailyRequest{Mood: strPtr("happy"), WaterGlasses: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", d.Day)
	firstID := d.RecordID

	d, err = svc.Upsert("2024-03-01", &UpsertDailyRequest{FocusMinutes: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, firstID, d.RecordID)
	assert.Equal(t, "happy", d.Mood)
	assert.Equal(t, 3, d.WaterGlasses)
	assert.Equal(t, 50, d.FocusMinutes)
}

func TestGetAndDelete(t *testing.T) {
	svc := NewDailyService(setupTestDB(t))

	_, err := svc.Get("2024-03-02")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordNotFound))

	_, err = svc.Upsert("2024-03-02", &UpsertDailyRequest{Journal: strPtr("rainy")})
	require.NoError(t, err)
	d, err := svc.Get("2024-03-02")
	require.NoError(t, err)
	assert.Equal(t, "rainy", d.Journal)

	require.NoError(t, svc.Delete("2024-03-02"))
	assert.True(t, apperrors.HasCode(svc.Delete("2024-03-02"), apperrors.ErrRecordNotFound))

	// 删除后同一天可以重新写入
	_, err = svc.Upsert("2024-03-02", &UpsertDailyRequest{Mood: strPtr("ok")})
	require.NoError(t, err)
}

func TestRange(t *testing.T) {
	svc := NewDailyService(setupTestDB(t))
	for _, day := range []string{"2024-01-03", "2024-01-01", "2024-01-05", "2024-01-02"} {
		_, err := svc.Upsert(day, &UpsertDailyRequest{WaterGlasses: intPtr(1)})
		require.NoError(t, err)
	}

	rows, err := svc.Range("2024-01-02", "2024-01-03")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-02", rows[0].Day)
	assert.Equal(t, "2024-01-03", rows[1].Day)

	rows, err = svc.Range("", "")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "2024-01-01", rows[0].Day)

	_, err = svc.Range("yesterday", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("today")
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format(DayLayout), day)

	_, err = ParseDay("2024-02-30")
	assert.Error(t, err)
	_, err = ParseDay("03/01/2024")
	assert.Error(t, err)
}
