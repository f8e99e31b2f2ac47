package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/scheduler"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// 备份操作类型
const (
	OperationBackup  = "backup"
	OperationRestore = "restore"
)

// 列出远端对象时每页的数量
const listPageSize = 200

// 单次列出的最大页数，防止游标异常时无限翻页
const maxListPages = 500

// 快照文件大小上限
const maxSnapshotSize = 64 << 20

// BackupService 备份服务接口
type BackupService interface {
	// RunBackup 立即备份到激活的目标
	RunBackup(ctx context.Context) (*database.BackupLog, error)
	// ListSnapshots 列出激活目标上的快照，最新在前
	ListSnapshots(ctx context.Context) ([]Object, error)
	// Restore 下载指定快照并写回数据库
	Restore(ctx context.Context, key string) (*database.BackupLog, error)
	// Logs 备份日志，最新在前
	Logs(page query.Page) ([]database.BackupLog, int64, error)
	// Schedule 按cron表达式定时备份，spec为空时不调度
	Schedule(s *scheduler.Scheduler) error
}

type backupService struct {
	db      *gorm.DB
	cfg     config.BackupConfig
	targets TargetService
	factory StorageFactory
	now     func() time.Time
	running sync.Mutex
}

// NewBackupService 创建备份服务
func NewBackupService(db *gorm.DB, cfg config.BackupConfig, targets TargetService, factory StorageFactory) BackupService {
	if factory == nil {
		factory = NewStorage
	}
	return &backupService{db: db, cfg: cfg, targets: targets, factory: factory, now: time.Now}
}

func (s *backupService) activeStorage() (*database.BackupTarget, Storage, error) {
	target, err := s.targets.ActiveTarget()
	if err != nil {
		return nil, nil, err
	}
	store, err := s.factory(target)
	if err != nil {
		if _, ok := apperrors.GetAppError(err); ok {
			return nil, nil, err
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrUpstreamFailed, "", err)
	}
	return target, store, nil
}

// prefix 目标上配置的前缀优先，其次是全局配置
func (s *backupService) prefix(target *database.BackupTarget) string {
	if target.Prefix != "" {
		return target.Prefix
	}
	return s.cfg.Prefix
}

func (s *backupService) RunBackup(ctx context.Context) (*database.BackupLog, error) {
	if !s.running.TryLock() {
		return nil, apperrors.Newf(apperrors.ErrConflict, "a backup or restore is already running")
	}
	defer s.running.Unlock()

	target, store, err := s.activeStorage()
	if err != nil {
		return nil, err
	}

	start := s.now()
	entry := &database.BackupLog{TargetID: target.RecordID, Operation: OperationBackup}

	snap, err := Collect(s.db, start)
	if err != nil {
		return s.finish(entry, start, apperrors.ErrBackupFailed, err)
	}
	data, contentType, err := Encode(snap, s.cfg.Format)
	if err != nil {
		return s.finish(entry, start, apperrors.ErrBackupFailed, err)
	}
	entry.ObjectKey = ObjectKey(s.prefix(target), start, s.cfg.Format)
	entry.Records = snap.Records()
	entry.Size = int64(len(data))

	if err := store.Upload(ctx, entry.ObjectKey, bytes.NewReader(data), contentType); err != nil {
		return s.finish(entry, start, apperrors.ErrBackupFailed, err)
	}
	return s.finish(entry, start, 0, nil)
}

func (s *backupService) ListSnapshots(ctx context.Context) ([]Object, error) {
	target, store, err := s.activeStorage()
	if err != nil {
		return nil, err
	}
	prefix := s.prefix(target)
	if prefix != "" {
		prefix += "/"
	}
	// 存储按键升序分页返回，必须读完所有页才能拿到最新的快照
	var out []Object
	marker := ""
	for page := 0; page < maxListPages; page++ {
		objects, next, err := store.List(ctx, prefix, marker, listPageSize)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrUpstreamFailed, "", err)
		}
		for _, o := range objects {
			if strings.HasSuffix(o.Key, ".yaml") || strings.HasSuffix(o.Key, ".json") {
				out = append(out, o)
			}
		}
		if next == "" || next == marker {
			break
		}
		marker = next
	}
	// 对象键包含时间戳，按键倒序即按时间倒序
	sort.Slice(out, func(i, j int) bool { return out[i].Key > out[j].Key })
	return out, nil
}

func (s *backupService) Restore(ctx context.Context, key string) (*database.BackupLog, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "object key is required")
	}
	if !s.running.TryLock() {
		return nil, apperrors.Newf(apperrors.ErrConflict, "a backup or restore is already running")
	}
	defer s.running.Unlock()

	target, store, err := s.activeStorage()
	if err != nil {
		return nil, err
	}

	start := s.now()
	entry := &database.BackupLog{TargetID: target.RecordID, Operation: OperationRestore, ObjectKey: key}

	body, err := store.Download(ctx, key)
	if err != nil {
		return s.finish(entry, start, apperrors.ErrRestoreFailed, err)
	}
	data, err := io.ReadAll(io.LimitReader(body, maxSnapshotSize+1))
	body.Close()
	if err != nil {
		return s.finish(entry, start, apperrors.ErrRestoreFailed, err)
	}
	if len(data) > maxSnapshotSize {
		return s.finish(entry, start, apperrors.ErrRestoreFailed, fmt.Errorf("snapshot exceeds %d bytes", maxSnapshotSize))
	}
	entry.Size = int64(len(data))

	snap, err := Decode(data, FormatFromKey(key))
	if err != nil {
		return s.finish(entry, start, apperrors.ErrRestoreFailed, err)
	}
	n, err := Apply(s.db, snap)
	if err != nil {
		return s.finish(entry, start, apperrors.ErrRestoreFailed, err)
	}
	entry.Records = n
	return s.finish(entry, start, 0, nil)
}

// finish 写入备份日志；cause 非nil时返回带 code 的错误
func (s *backupService) finish(entry *database.BackupLog, start time.Time, code apperrors.ErrorCode, cause error) (*database.BackupLog, error) {
	entry.DurationMs = s.now().Sub(start).Milliseconds()
	entry.Status = database.BackupStatusSuccess
	if cause != nil {
		entry.Status = database.BackupStatusFailed
		entry.ErrorMsg = cause.Error()
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Errorf("[备份] 写入备份日志失败: %v", err)
	}

	if cause != nil {
		logger.Errorf("[备份] %s 失败, 对象键: %s, 错误: %v", entry.Operation, entry.ObjectKey, cause)
		return entry, apperrors.Wrap(code, "", cause)
	}
	logger.Infof("[备份] %s 完成, 对象键: %s, 记录数: %d, 大小: %d bytes, 耗时: %dms",
		entry.Operation, entry.ObjectKey, entry.Records, entry.Size, entry.DurationMs)
	return entry, nil
}

func (s *backupService) Logs(page query.Page) ([]database.BackupLog, int64, error) {
	return query.Paginate[database.BackupLog](s.db.Model(&database.BackupLog{}), page, "created_at DESC, id DESC")
}

func (s *backupService) Schedule(sched *scheduler.Scheduler) error {
	spec := strings.TrimSpace(s.cfg.Schedule)
	if spec == "" {
		return nil
	}
	_, err := sched.Cron(spec, func() {
		if _, err := s.RunBackup(context.Background()); err != nil {
			logger.Warnf("[备份] 定时备份未完成: %v", err)
		}
	})
	if err != nil {
		return err
	}
	logger.Infof("[备份] 已启用定时备份: %s", spec)
	return nil
}
