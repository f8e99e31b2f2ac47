package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// memoryStorage 内存对象存储
type memoryStorage struct {
	mu      sync.Mutex
	objects   map[string][]byte
	failing   error
	listCalls int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	if m.failing != nil {
		return m.failing
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// List 与真实对象存储一样按键升序分页，游标为上一页最后一个键
func (m *memoryStorage) List(_ context.Context, prefix, marker string, maxKeys int) ([]Object, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []Object
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) && k > marker {
			out = append(out, Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if len(out) <= maxKeys {
		return out, "", nil
	}
	out = out[:maxKeys]
	return out, out[len(out)-1].Key, nil
}

func (m *memoryStorage) TestConnection(context.Context) error {
	return m.failing
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func setupServices(t *testing.T, format string) (*gorm.DB, TargetService, *backupService, *memoryStorage) {
	db := setupTestDB(t)
	store := newMemoryStorage()
	factory := func(*database.BackupTarget) (Storage, error) { return store, nil }

	targets := NewTargetService(db, factory)
	_, err := targets.CreateTarget(&TargetRequest{
		Name: "primary", Provider: "aliyun", Region: "cn-hangzhou",
		Bucket: "b", AccessKey: "ak", SecretKey: "sk",
	})
	require.NoError(t, err)

	svc := NewBackupService(db, config.BackupConfig{Prefix: "veer-backups", Format: format}, targets, factory).(*backupService)
	return db, targets, svc, store
}

func seed(t *testing.T, db *gorm.DB) {
	require.NoError(t, db.Create(&database.Note{Title: "n1", Content: "hello"}).Error)
	require.NoError(t, db.Create(&database.DailyData{Day: "2024-05-01", Mood: "good", WaterGlasses: 3}).Error)
	require.NoError(t, db.Create(&database.Setting{Key: "theme", Value: "dark"}).Error)
	sess := &database.Session{Title: "s"}
	require.NoError(t, db.Create(sess).Error)
	require.NoError(t, db.Create(&database.Message{SessionID: sess.RecordID, Role: "user", Content: "hi"}).Error)
}

func TestFirstTargetIsActive(t *testing.T) {
	_, targets, _, _ := setupServices(t, FormatYAML)
	second, err := targets.CreateTarget(&TargetRequest{
		Name: "second", Provider: "qiniu", Bucket: "b2", AccessKey: "ak", SecretKey: "sk",
	})
	require.NoError(t, err)
	assert.False(t, second.IsActive)

	active, err := targets.ActiveTarget()
	require.NoError(t, err)
	assert.Equal(t, "primary", active.Name)

	require.NoError(t, targets.ActivateTarget(second.RecordID))
	active, err = targets.ActiveTarget()
	require.NoError(t, err)
	assert.Equal(t, "second", active.Name)

	err = targets.DeleteTarget(second.RecordID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict), "active target cannot be deleted")
}

func TestTargetValidation(t *testing.T) {
	db := setupTestDB(t)
	targets := NewTargetService(db, nil)

	_, err := targets.CreateTarget(&TargetRequest{Name: "x", Provider: "tencent", Bucket: "b", AccessKey: "ak", SecretKey: "sk"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams), "region or endpoint required")

	_, err = targets.CreateTarget(&TargetRequest{Name: "x", Provider: "s3", Bucket: "b", AccessKey: "ak", SecretKey: "sk"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrProviderNotSupported))

	_, err = targets.GetTarget("missing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBackupConfigNotFound))
}

func TestUpdateKeepsSecret(t *testing.T) {
	db, targets, _, _ := setupServices(t, FormatYAML)
	active, err := targets.ActiveTarget()
	require.NoError(t, err)

	_, err = targets.UpdateTarget(active.RecordID, &TargetRequest{
		Name: "renamed", Provider: "aliyun", Region: "cn-shanghai", Bucket: "b", AccessKey: "ak2",
	})
	require.NoError(t, err)

	var stored database.BackupTarget
	require.NoError(t, db.Where("record_id = ?", active.RecordID).First(&stored).Error)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, "sk", stored.SecretKey)
}

func TestTestTarget(t *testing.T) {
	_, targets, _, store := setupServices(t, FormatYAML)
	active, err := targets.ActiveTarget()
	require.NoError(t, err)

	require.NoError(t, targets.TestTarget(context.Background(), active.RecordID))

	store.failing = errors.New("access denied")
	err = targets.TestTarget(context.Background(), active.RecordID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrUpstreamFailed))
}

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	for _, format := range []string{FormatYAML, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			db, _, svc, store := setupServices(t, format)
			seed(t, db)
			svc.now = func() time.Time { return time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC) }

			entry, err := svc.RunBackup(context.Background())
			require.NoError(t, err)
			assert.Equal(t, database.BackupStatusSuccess, entry.Status)
			assert.Equal(t, "veer-backups/veer-20240502-083000."+format, entry.ObjectKey)
			assert.Equal(t, 5, entry.Records)
			assert.Contains(t, store.objects, entry.ObjectKey)

			// 修改和删除本地数据后恢复
			require.NoError(t, db.Model(&database.Note{}).Where("title = ?", "n1").Update("content", "changed").Error)
			require.NoError(t, db.Where("1 = 1").Delete(&database.Message{}).Error)
			require.NoError(t, db.Model(&database.Setting{}).Where("key = ?", "theme").Update("value", "light").Error)

			restored, err := svc.Restore(context.Background(), entry.ObjectKey)
			require.NoError(t, err)
			assert.Equal(t, 5, restored.Records)

			var note database.Note
			require.NoError(t, db.Where("title = ?", "n1").First(&note).Error)
			assert.Equal(t, "hello", note.Content)

			var msgCount int64
			require.NoError(t, db.Model(&database.Message{}).Count(&msgCount).Error)
			assert.EqualValues(t, 1, msgCount, "soft-deleted message is restored")

			var setting database.Setting
			require.NoError(t, db.Where("key = ?", "theme").First(&setting).Error)
			assert.Equal(t, "dark", setting.Value)

			var noteCount int64
			require.NoError(t, db.Model(&database.Note{}).Count(&noteCount).Error)
			assert.EqualValues(t, 1, noteCount, "restore does not duplicate records")

			logs, total, err := svc.Logs(query.Page{})
			require.NoError(t, err)
			assert.EqualValues(t, 2, total)
			assert.Equal(t, OperationRestore, logs[0].Operation)
		})
	}
}

func TestBackupFailureIsLogged(t *testing.T) {
	_, _, svc, store := setupServices(t, FormatYAML)
	store.failing = errors.New("bucket gone")

	entry, err := svc.RunBackup(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBackupFailed))
	assert.Equal(t, database.BackupStatusFailed, entry.Status)
	assert.Equal(t, "bucket gone", entry.ErrorMsg)

	logs, _, err := svc.Logs(query.Page{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, database.BackupStatusFailed, logs[0].Status)
}

func TestRestoreMissingObject(t *testing.T) {
	_, _, svc, _ := setupServices(t, FormatYAML)
	_, err := svc.Restore(context.Background(), "veer-backups/none.yaml")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrRestoreFailed))

	_, err = svc.Restore(context.Background(), " ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidParams))
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	_, _, svc, store := setupServices(t, FormatYAML)
	store.objects["veer-backups/veer-20240101-000000.yaml"] = []byte("a")
	store.objects["veer-backups/veer-20240301-000000.json"] = []byte("b")
	store.objects["veer-backups/readme.txt"] = []byte("c")
	store.objects["other/veer-20240401-000000.yaml"] = []byte("d")

	objects, err := svc.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "veer-backups/veer-20240301-000000.json", objects[0].Key)
}

func TestListSnapshotsReadsAllPages(t *testing.T) {
	_, _, svc, store := setupServices(t, FormatYAML)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 450; i++ {
		key := fmt.Sprintf("veer-backups/veer-%s.yaml", start.Add(time.Duration(i)*time.Hour).Format("20060102-150405"))
		store.objects[key] = []byte("x")
	}

	objects, err := svc.ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 450)
	assert.Equal(t, "veer-backups/veer-20240119-170000.yaml", objects[0].Key)
	assert.Equal(t, "veer-backups/veer-20240101-000000.yaml", objects[449].Key)
	assert.Equal(t, 3, store.listCalls)
}

func TestNoActiveTarget(t *testing.T) {
	db := setupTestDB(t)
	targets := NewTargetService(db, nil)
	svc := NewBackupService(db, config.BackupConfig{Format: FormatYAML}, targets, nil)

	_, err := svc.RunBackup(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBackupConfigNotFound))
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte("version: 99\n"), FormatYAML)
	assert.Error(t, err)
	_, err = Decode([]byte("notes: []\n"), FormatYAML)
	assert.Error(t, err, "missing version")
}

func TestFormatFromKey(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromKey("a/b.JSON"))
	assert.Equal(t, FormatYAML, FormatFromKey("a/b.yaml"))
	assert.Equal(t, "veer-20240102-030405.yaml", ObjectKey("", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), ""))
}
