package widget

import (
	"errors"
	"strings"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingService 界面设置服务接口
type SettingService interface {
	// All 全部设置，key -> value
	All() (map[string]string, error)
	Get(key string) (*database.Setting, error)
	Put(key, value string) (*database.Setting, error)
	// PutMany 批量写入，在同一事务中完成
	PutMany(values map[string]string) (map[string]string, error)
	Delete(key string) error
}

type settingService struct {
	db *gorm.DB
}

// NewSettingService 创建设置服务
func NewSettingService(db *gorm.DB) SettingService {
	return &settingService{db: db}
}

func validKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || len(key) > 100 {
		return "", apperrors.Newf(apperrors.ErrInvalidParams, "setting key must be 1-100 characters")
	}
	return key, nil
}

func (s *settingService) All() (map[string]string, error) {
	var items []database.Setting
	if err := s.db.Order("key ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	out := make(map[string]string, len(items))
	for _, it := range items {
		out[it.Key] = it.Value
	}
	return out, nil
}

func (s *settingService) Get(key string) (*database.Setting, error) {
	key, err := validKey(key)
	if err != nil {
		return nil, err
	}
	var item database.Setting
	err = s.db.Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.ErrRecordNotFound, "setting %q not found", key)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return &item, nil
}

func upsertSetting(tx *gorm.DB, key, value string) (*database.Setting, error) {
	item := &database.Setting{Key: key, Value: value}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return nil, err
	}
	// 冲突更新时返回的是新生成的RecordID，重新读取
	if err := tx.Where("key = ?", key).First(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (s *settingService) Put(key, value string) (*database.Setting, error) {
	key, err := validKey(key)
	if err != nil {
		return nil, err
	}
	item, err := upsertSetting(s.db, key, value)
	if err != nil {
		return nil, query.WriteError(err)
	}
	return item, nil
}

func (s *settingService) PutMany(values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return s.All()
	}
	for k := range values {
		if _, err := validKey(k); err != nil {
			return nil, err
		}
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			if _, err := upsertSetting(tx, strings.TrimSpace(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, query.WriteError(err)
	}
	return s.All()
}

func (s *settingService) Delete(key string) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	res := s.db.Unscoped().Where("key = ?", key).Delete(&database.Setting{})
	if res.Error != nil {
		return query.WriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrRecordNotFound, "setting %q not found", key)
	}
	return nil
}
