package backup

import (
	"context"
	"errors"
	"strings"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// TargetService 备份目标管理接口
type TargetService interface {
	// CreateTarget 创建备份目标，第一个目标自动激活
	CreateTarget(req *TargetRequest) (*database.BackupTarget, error)
	GetTarget(id string) (*database.BackupTarget, error)
	ListTargets() ([]database.BackupTarget, error)
	// UpdateTarget 更新备份目标，SecretKey 为空时保留原值
	UpdateTarget(id string, req *TargetRequest) (*database.BackupTarget, error)
	// DeleteTarget 删除备份目标，激活中的目标不可删除
	DeleteTarget(id string) error
	// ActivateTarget 激活目标并取消其它目标的激活状态
	ActivateTarget(id string) error
	// TestTarget 测试目标连接
	TestTarget(ctx context.Context, id string) error
	// ActiveTarget 当前激活的目标
	ActiveTarget() (*database.BackupTarget, error)
}

// TargetRequest 创建/更新备份目标请求
type TargetRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	Provider  string `json:"provider" binding:"required,oneof=aliyun tencent qiniu"`
	Region    string `json:"region" binding:"max=50"`
	Bucket    string `json:"bucket" binding:"required,max=100"`
	AccessKey string `json:"access_key" binding:"required,max=100"`
	SecretKey string `json:"secret_key" binding:"max=200"`
	Endpoint  string `json:"endpoint" binding:"max=200"`
	Prefix    string `json:"prefix" binding:"max=200"`
}

type targetService struct {
	db      *gorm.DB
	factory StorageFactory
}

// NewTargetService 创建备份目标服务
// factory 为nil时使用 NewStorage
func NewTargetService(db *gorm.DB, factory StorageFactory) TargetService {
	if factory == nil {
		factory = NewStorage
	}
	return &targetService{db: db, factory: factory}
}

// validate 检查各提供商的必填项
func validate(t *database.BackupTarget) error {
	switch t.Provider {
	case database.ProviderAliyun, database.ProviderTencent:
		if t.Region == "" && t.Endpoint == "" {
			return apperrors.Newf(apperrors.ErrInvalidParams, "%s requires region or endpoint", t.Provider)
		}
	case database.ProviderQiniu:
	default:
		return apperrors.Newf(apperrors.ErrProviderNotSupported, "unsupported storage provider %q", t.Provider)
	}
	if t.SecretKey == "" {
		return apperrors.Newf(apperrors.ErrInvalidParams, "secret_key is required")
	}
	return nil
}

func (s *targetService) CreateTarget(req *TargetRequest) (*database.BackupTarget, error) {
	t := &database.BackupTarget{
		Name:      strings.TrimSpace(req.Name),
		Provider:  req.Provider,
		Region:    strings.TrimSpace(req.Region),
		Bucket:    strings.TrimSpace(req.Bucket),
		AccessKey: strings.TrimSpace(req.AccessKey),
		SecretKey: strings.TrimSpace(req.SecretKey),
		Endpoint:  strings.TrimSpace(req.Endpoint),
		Prefix:    strings.Trim(req.Prefix, "/ "),
	}
	if err := validate(t); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&database.BackupTarget{}).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	t.IsActive = count == 0

	if err := s.db.Create(t).Error; err != nil {
		return nil, query.WriteError(err)
	}
	logger.Infof("[备份目标] 创建成功: %s (%s), 激活: %v", t.Name, t.Provider, t.IsActive)
	return t, nil
}

func (s *targetService) find(id string) (*database.BackupTarget, error) {
	t, err := query.FindByRecordID[database.BackupTarget](s.db, id)
	if apperrors.HasCode(err, apperrors.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.ErrBackupConfigNotFound, "backup target %s not found", id)
	}
	return t, err
}

func (s *targetService) GetTarget(id string) (*database.BackupTarget, error) {
	return s.find(id)
}

func (s *targetService) ListTargets() ([]database.BackupTarget, error) {
	var items []database.BackupTarget
	if err := s.db.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return items, nil
}

func (s *targetService) UpdateTarget(id string, req *TargetRequest) (*database.BackupTarget, error) {
	t, err := s.find(id)
	if err != nil {
		return nil, err
	}
	t.Name = strings.TrimSpace(req.Name)
	t.Provider = req.Provider
	t.Region = strings.TrimSpace(req.Region)
	t.Bucket = strings.TrimSpace(req.Bucket)
	t.AccessKey = strings.TrimSpace(req.AccessKey)
	if secret := strings.TrimSpace(req.SecretKey); secret != "" {
		t.SecretKey = secret
	}
	t.Endpoint = strings.TrimSpace(req.Endpoint)
	t.Prefix = strings.Trim(req.Prefix, "/ ")
	if err := validate(t); err != nil {
		return nil, err
	}
	if err := s.db.Save(t).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return t, nil
}

func (s *targetService) DeleteTarget(id string) error {
	t, err := s.find(id)
	if err != nil {
		return err
	}
	if t.IsActive {
		return apperrors.Newf(apperrors.ErrConflict, "cannot delete the active backup target, activate another one first")
	}
	return query.WriteError(s.db.Delete(t).Error)
}

func (s *targetService) ActivateTarget(id string) error {
	t, err := s.find(id)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.BackupTarget{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(t).Update("is_active", true).Error
	})
	if err != nil {
		return query.WriteError(err)
	}
	logger.Infof("[备份目标] 已激活: %s", t.Name)
	return nil
}

func (s *targetService) TestTarget(ctx context.Context, id string) error {
	t, err := s.find(id)
	if err != nil {
		return err
	}
	store, err := s.factory(t)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUpstreamFailed, "", err)
	}
	if err := store.TestConnection(ctx); err != nil {
		logger.Warnf("[备份目标] 连接测试失败: %s, 错误: %v", t.Name, err)
		return apperrors.Wrap(apperrors.ErrUpstreamFailed, "", err)
	}
	return nil
}

func (s *targetService) ActiveTarget() (*database.BackupTarget, error) {
	var t database.BackupTarget
	err := s.db.Where("is_active = ?", true).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.ErrBackupConfigNotFound, "no active backup target")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return &t, nil
}
