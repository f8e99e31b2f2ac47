// Package project 提供项目管理
package project

import (
	"strings"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/convert"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// ProjectService 项目服务接口
type ProjectService interface {
	CreateProject(req *CreateProjectRequest) (*database.Project, error)
	GetProject(id string) (*ProjectDetail, error)
	UpdateProject(id string, req *UpdateProjectRequest) (*database.Project, error)
	// DeleteProject 删除项目，项目下的任务保留但解除关联
	DeleteProject(id string) error
	// SetArchived 归档或取消归档
	SetArchived(id string, archived bool) (*database.Project, error)
	ListProjects(status string, page query.Page) ([]database.Project, int64, error)
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// ProjectDetail 项目详情，附带任务统计
type ProjectDetail struct {
	database.Project
	TaskTotal int64 `json:"task_total"`
	TaskDone  int64 `json:"task_done"`
}

type projectService struct {
	db *gorm.DB
}

// NewProjectService 创建项目服务
func NewProjectService(db *gorm.DB) ProjectService {
	return &projectService{db: db}
}

func (s *projectService) CreateProject(req *CreateProjectRequest) (*database.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "name must not be blank")
	}
	p := &database.Project{
		Name:        name,
		Description: req.Description,
		Status:      database.ProjectActive,
	}
	if req.Color != "" {
		hex, err := convert.NormalizeHex(req.Color)
		if err != nil {
			return nil, err
		}
		p.Color = hex
	}
	if err := s.db.Create(p).Error; err != nil {
		return nil, query.WriteError(err)
	}
	logger.Infof("项目创建成功: %s (%s)", p.Name, p.RecordID)
	return p, nil
}

func (s *projectService) GetProject(id string) (*ProjectDetail, error) {
	p, err := query.FindByRecordID[database.Project](s.db, id)
	if err != nil {
		return nil, err
	}
	detail := &ProjectDetail{Project: *p}
	if err := s.db.Model(&database.Task{}).Where("project_id = ?", id).Count(&detail.TaskTotal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	if err := s.db.Model(&database.Task{}).Where("project_id = ? AND done = ?", id, true).Count(&detail.TaskDone).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return detail, nil
}

func (s *projectService) UpdateProject(id string, req *UpdateProjectRequest) (*database.Project, error) {
	p, err := query.FindByRecordID[database.Project](s.db, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidParams, "name must not be blank")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Color != nil {
		hex, err := convert.NormalizeHex(*req.Color)
		if err != nil {
			return nil, err
		}
		updates["color"] = hex
	}
	if len(updates) == 0 {
		return p, nil
	}
	if err := s.db.Model(p).Updates(updates).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return query.FindByRecordID[database.Project](s.db, id)
}

func (s *projectService) DeleteProject(id string) error {
	p, err := query.FindByRecordID[database.Project](s.db, id)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Task{}).Where("project_id = ?", id).Update("project_id", "").Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
	return query.WriteError(err)
}

func (s *projectService) SetArchived(id string, archived bool) (*database.Project, error) {
	p, err := query.FindByRecordID[database.Project](s.db, id)
	if err != nil {
		return nil, err
	}
	status := database.ProjectActive
	if archived {
		status = database.ProjectArchived
	}
	if err := s.db.Model(p).Update("status", status).Error; err != nil {
		return nil, query.WriteError(err)
	}
	p.Status = status
	return p, nil
}

func (s *projectService) ListProjects(status string, page query.Page) ([]database.Project, int64, error) {
	q := s.db.Model(&database.Project{})
	switch status {
	case "", "all":
	case database.ProjectActive, database.ProjectArchived:
		q = q.Where("status = ?", status)
	default:
		return nil, 0, apperrors.Newf(apperrors.ErrInvalidParams, "unknown status %q", status)
	}
	return query.Paginate[database.Project](q, page, "created_at DESC")
}
