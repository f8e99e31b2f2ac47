package widget

import (
	"strings"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// QuickCommandService 快捷指令服务接口
type QuickCommandService interface {
	CreateCommand(req *QuickCommandRequest) (*database.QuickCommand, error)
	UpdateCommand(id string, req *QuickCommandRequest) (*database.QuickCommand, error)
	DeleteCommand(id string) error
	ListCommands() ([]database.QuickCommand, error)
}

// QuickCommandRequest 快捷指令请求
type QuickCommandRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Command     string `json:"command" binding:"required,max=500"`
	Description string `json:"description" binding:"max=200"`
}

type quickCommandService struct {
	db *gorm.DB
}

// NewQuickCommandService 创建快捷指令服务
func NewQuickCommandService(db *gorm.DB) QuickCommandService {
	return &quickCommandService{db: db}
}

// ensureUniqueName 名称在未删除记录中唯一（忽略大小写）
func (s *quickCommandService) ensureUniqueName(name, exceptID string) error {
	q := s.db.Model(&database.QuickCommand{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != "" {
		q = q.Where("record_id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.ErrRecordAlreadyExists, "quick command %q already exists", name)
	}
	return nil
}

func (s *quickCommandService) CreateCommand(req *QuickCommandRequest) (*database.QuickCommand, error) {
	name := strings.TrimSpace(req.Name)
	command := strings.TrimSpace(req.Command)
	if name == "" || command == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "name and command must not be blank")
	}
	if err := s.ensureUniqueName(name, ""); err != nil {
		return nil, err
	}

	qc := &database.QuickCommand{Name: name, Command: command, Description: strings.TrimSpace(req.Description)}
	if err := s.db.Create(qc).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return qc, nil
}

func (s *quickCommandService) UpdateCommand(id string, req *QuickCommandRequest) (*database.QuickCommand, error) {
	qc, err := query.FindByRecordID[database.QuickCommand](s.db, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	command := strings.TrimSpace(req.Command)
	if name == "" || command == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "name and command must not be blank")
	}
	if err := s.ensureUniqueName(name, id); err != nil {
		return nil, err
	}

	qc.Name = name
	qc.Command = command
	qc.Description = strings.TrimSpace(req.Description)
	if err := s.db.Save(qc).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return qc, nil
}

func (s *quickCommandService) DeleteCommand(id string) error {
	qc, err := query.FindByRecordID[database.QuickCommand](s.db, id)
	if err != nil {
		return err
	}
	return query.WriteError(s.db.Delete(qc).Error)
}

func (s *quickCommandService) ListCommands() ([]database.QuickCommand, error) {
	var items []database.QuickCommand
	if err := s.db.Order("name ASC").Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return items, nil
}
