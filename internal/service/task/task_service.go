// Package task 提供待办任务管理
package task

import (
	"strings"
	"time"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// TaskService 任务服务接口
type TaskService interface {
	CreateTask(req *CreateTaskRequest) (*database.Task, error)
	GetTask(id string) (*database.Task, error)
	UpdateTask(id string, req *UpdateTaskRequest) (*database.Task, error)
	DeleteTask(id string) error
	// ToggleTask 切换完成状态，完成时记录完成时间
	ToggleTask(id string) (*database.Task, error)
	// ListTasks 列表：未完成在前，有截止时间的按截止时间升序，其余按创建时间
	ListTasks(filter ListTasksFilter, page query.Page) ([]database.Task, int64, error)
	// ClearCompleted 删除全部已完成任务，返回删除数量
	ClearCompleted(projectID string) (int64, error)
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueAt       *time.Time `json:"due_at"`
	ProjectID   string     `json:"project_id" binding:"omitempty,max=36"`
}

// UpdateTaskRequest 更新任务请求
type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	Done        *bool      `json:"done"`
	DueAt       *time.Time `json:"due_at"`
	ClearDue    bool       `json:"clear_due"`
	ProjectID   *string    `json:"project_id" binding:"omitempty,max=36"`
}

// ListTasksFilter 列表过滤条件
type ListTasksFilter struct {
	Query     string `form:"q"`
	Done      *bool  `form:"done"`
	ProjectID string `form:"project_id"`
	Priority  string `form:"priority"`
}

type taskService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTaskService 创建任务服务
func NewTaskService(db *gorm.DB) TaskService {
	return &taskService{db: db, now: time.Now}
}

func (s *taskService) CreateTask(req *CreateTaskRequest) (*database.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "title must not be blank")
	}
	priority := req.Priority
	if priority == "" {
		priority = database.PriorityMedium
	}

	t := &database.Task{
		Title:       title,
		Description: req.Description,
		Priority:    priority,
		DueAt:       req.DueAt,
		ProjectID:   req.ProjectID,
	}
	if err := s.db.Create(t).Error; err != nil {
		return nil, query.WriteError(err)
	}
	logger.Infof("任务创建成功: %s (%s)", t.Title, t.RecordID)
	return t, nil
}

func (s *taskService) GetTask(id string) (*database.Task, error) {
	return query.FindByRecordID[database.Task](s.db, id)
}

func (s *taskService) UpdateTask(id string, req *UpdateTaskRequest) (*database.Task, error) {
	t, err := query.FindByRecordID[database.Task](s.db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidParams, "title must not be blank")
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.Done != nil && *req.Done != t.Done {
		updates["done"] = *req.Done
		updates["completed_at"] = s.completedAt(*req.Done)
	}
	if req.ClearDue {
		updates["due_at"] = nil
	} else if req.DueAt != nil {
		updates["due_at"] = *req.DueAt
	}
	if req.ProjectID != nil {
		updates["project_id"] = *req.ProjectID
	}
	if len(updates) == 0 {
		return t, nil
	}

	if err := s.db.Model(t).Updates(updates).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return query.FindByRecordID[database.Task](s.db, id)
}

func (s *taskService) completedAt(done bool) interface{} {
	if done {
		return s.now()
	}
	return nil
}

func (s *taskService) DeleteTask(id string) error {
	t, err := query.FindByRecordID[database.Task](s.db, id)
	if err != nil {
		return err
	}
	return query.WriteError(s.db.Delete(t).Error)
}

func (s *taskService) ToggleTask(id string) (*database.Task, error) {
	t, err := query.FindByRecordID[database.Task](s.db, id)
	if err != nil {
		return nil, err
	}
	done := !t.Done
	return s.UpdateTask(id, &UpdateTaskRequest{Done: &done})
}

func (s *taskService) ListTasks(filter ListTasksFilter, page query.Page) ([]database.Task, int64, error) {
	q := s.db.Model(&database.Task{})
	if kw := strings.TrimSpace(filter.Query); kw != "" {
		pattern := query.Like(kw)
		q = q.Where("(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filter.Done != nil {
		q = q.Where("done = ?", *filter.Done)
	}
	if filter.ProjectID != "" {
		q = q.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Priority != "" {
		switch filter.Priority {
		case database.PriorityLow, database.PriorityMedium, database.PriorityHigh:
			q = q.Where("priority = ?", filter.Priority)
		default:
			return nil, 0, apperrors.Newf(apperrors.ErrInvalidParams, "unknown priority %q", filter.Priority)
		}
	}
	return query.Paginate[database.Task](q, page, "done ASC, due_at IS NULL, due_at ASC, created_at ASC")
}

func (s *taskService) ClearCompleted(projectID string) (int64, error) {
	q := s.db.Where("done = ?", true)
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	res := q.Delete(&database.Task{})
	if res.Error != nil {
		return 0, query.WriteError(res.Error)
	}
	return res.RowsAffected, nil
}
