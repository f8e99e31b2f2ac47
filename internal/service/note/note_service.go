// Package note 提供笔记的增删改查
package note

import (
	"strings"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// NoteService 笔记服务接口
type NoteService interface {
	// CreateNote 创建笔记
	CreateNote(req *CreateNoteRequest) (*database.Note, error)
	// GetNote 根据记录ID获取笔记
	GetNote(id string) (*database.Note, error)
	// UpdateNote 部分更新笔记，只修改请求中非nil的字段
	UpdateNote(id string, req *UpdateNoteRequest) (*database.Note, error)
	// DeleteNote 删除笔记（软删除）
	DeleteNote(id string) error
	// ListNotes 分页列出笔记，置顶在前，其余按更新时间倒序
	ListNotes(filter ListNotesFilter, page query.Page) ([]database.Note, int64, error)
	// Categories 返回已使用的分类及数量
	Categories() ([]CategoryCount, error)
}

// CreateNoteRequest 创建笔记请求
type CreateNoteRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content"`
	Category string `json:"category" binding:"max=50"`
	Pinned   bool   `json:"pinned"`
}

// UpdateNoteRequest 更新笔记请求
type UpdateNoteRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content  *string `json:"content"`
	Category *string `json:"category" binding:"omitempty,max=50"`
	Pinned   *bool   `json:"pinned"`
}

// ListNotesFilter 列表过滤条件
type ListNotesFilter struct {
	Query    string `form:"q"`
	Category string `form:"category"`
	Pinned   *bool  `form:"pinned"`
}

// CategoryCount 分类统计
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type noteService struct {
	db *gorm.DB
}

// NewNoteService 创建笔记服务实例
func NewNoteService(db *gorm.DB) NoteService {
	return &noteService{db: db}
}

func (s *noteService) CreateNote(req *CreateNoteRequest) (*database.Note, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "title must not be blank")
	}

	note := &database.Note{
		Title:    title,
		Content:  req.Content,
		Category: strings.TrimSpace(req.Category),
		Pinned:   req.Pinned,
	}
	if err := s.db.Create(note).Error; err != nil {
		logger.Errorf("创建笔记失败: %v", err)
		return nil, query.WriteError(err)
	}

	logger.Infof("笔记创建成功: %s (%s)", note.Title, note.RecordID)
	return note, nil
}

func (s *noteService) GetNote(id string) (*database.Note, error) {
	return query.FindByRecordID[database.Note](s.db, id)
}

func (s *noteService) UpdateNote(id string, req *UpdateNoteRequest) (*database.Note, error) {
	note, err := query.FindByRecordID[database.Note](s.db, id)
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
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if req.Pinned != nil {
		updates["pinned"] = *req.Pinned
	}
	if len(updates) == 0 {
		return note, nil
	}

	if err := s.db.Model(note).Updates(updates).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return query.FindByRecordID[database.Note](s.db, id)
}

func (s *noteService) DeleteNote(id string) error {
	note, err := query.FindByRecordID[database.Note](s.db, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(note).Error; err != nil {
		return query.WriteError(err)
	}
	logger.Infof("笔记已删除: %s", id)
	return nil
}

func (s *noteService) ListNotes(filter ListNotesFilter, page query.Page) ([]database.Note, int64, error) {
	q := s.db.Model(&database.Note{})
	if kw := strings.TrimSpace(filter.Query); kw != "" {
		pattern := query.Like(kw)
		q = q.Where("(title LIKE ? ESCAPE '\\' OR content LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Pinned != nil {
		q = q.Where("pinned = ?", *filter.Pinned)
	}
	return query.Paginate[database.Note](q, page, "pinned DESC, updated_at DESC")
}

func (s *noteService) Categories() ([]CategoryCount, error) {
	var counts []CategoryCount
	err := s.db.Model(&database.Note{}).
		Select("category, COUNT(*) AS count").
		Where("category <> ''").
		Group("category").
		Order("count DESC, category").
		Scan(&counts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return counts, nil
}
