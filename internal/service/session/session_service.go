// Package session 管理对话会话及其消息
package session

import (
	"strings"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// 自动生成标题时截取的最大字符数
const autoTitleRunes = 60

// SessionService 会话服务接口
type SessionService interface {
	CreateSession(req *CreateSessionRequest) (*database.Session, error)
	GetSession(id string) (*database.Session, error)
	RenameSession(id, title string) (*database.Session, error)
	// DeleteSession 删除会话及其全部消息
	DeleteSession(id string) error
	// ListSessions 按最近更新倒序
	ListSessions(page query.Page) ([]database.Session, int64, error)
	// ListMessages 会话内消息按时间正序
	ListMessages(sessionID string, page query.Page) ([]database.Message, int64, error)
	// AppendMessage 追加消息并刷新会话更新时间
	AppendMessage(sessionID string, req *AppendMessageRequest) (*database.Message, error)
	DeleteMessage(sessionID, messageID string) error
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=200"`
	Mode  string `json:"mode" binding:"max=30"`
}

// AppendMessageRequest 追加消息请求
type AppendMessageRequest struct {
	Role     string `json:"role" binding:"required,oneof=user assistant system"`
	Content  string `json:"content" binding:"required"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type sessionService struct {
	db *gorm.DB
}

// NewSessionService 创建会话服务
func NewSessionService(db *gorm.DB) SessionService {
	return &sessionService{db: db}
}

func (s *sessionService) CreateSession(req *CreateSessionRequest) (*database.Session, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}
	sess := &database.Session{Title: title, Mode: req.Mode}
	if err := s.db.Create(sess).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return sess, nil
}

func (s *sessionService) GetSession(id string) (*database.Session, error) {
	return query.FindByRecordID[database.Session](s.db, id)
}

func (s *sessionService) RenameSession(id, title string) (*database.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "title must not be blank")
	}
	sess, err := query.FindByRecordID[database.Session](s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(sess).Update("title", title).Error; err != nil {
		return nil, query.WriteError(err)
	}
	sess.Title = title
	return sess, nil
}

func (s *sessionService) DeleteSession(id string) error {
	sess, err := query.FindByRecordID[database.Session](s.db, id)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&database.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(sess).Error
	})
	if err != nil {
		return query.WriteError(err)
	}
	logger.Infof("会话已删除: %s", id)
	return nil
}

func (s *sessionService) ListSessions(page query.Page) ([]database.Session, int64, error) {
	return query.Paginate[database.Session](s.db.Model(&database.Session{}), page, "updated_at DESC")
}

func (s *sessionService) ListMessages(sessionID string, page query.Page) ([]database.Message, int64, error) {
	if _, err := query.FindByRecordID[database.Session](s.db, sessionID); err != nil {
		return nil, 0, err
	}
	q := s.db.Model(&database.Message{}).Where("session_id = ?", sessionID)
	return query.Paginate[database.Message](q, page, "created_at ASC, id ASC")
}

func (s *sessionService) AppendMessage(sessionID string, req *AppendMessageRequest) (*database.Message, error) {
	sess, err := query.FindByRecordID[database.Session](s.db, sessionID)
	if err != nil {
		return nil, err
	}

	msg := &database.Message{
		SessionID: sessionID,
		Role:      req.Role,
		Content:   req.Content,
		Provider:  req.Provider,
		Model:     req.Model,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": msg.CreatedAt}
		// 首条用户消息作为默认会话标题
		if sess.Title == "New chat" && req.Role == database.RoleUser {
			updates["title"] = AutoTitle(req.Content)
		}
		return tx.Model(sess).UpdateColumns(updates).Error
	})
	if err != nil {
		return nil, query.WriteError(err)
	}
	return msg, nil
}

func (s *sessionService) DeleteMessage(sessionID, messageID string) error {
	res := s.db.Where("session_id = ? AND record_id = ?", sessionID, messageID).Delete(&database.Message{})
	if res.Error != nil {
		return query.WriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrRecordNotFound, "message %s not found", messageID)
	}
	return nil
}

// AutoTitle 从消息内容生成会话标题：取首行，超长截断
func AutoTitle(content string) string {
	line := strings.TrimSpace(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	runes := []rune(line)
	if len(runes) > autoTitleRunes {
		return string(runes[:autoTitleRunes]) + "..."
	}
	if line == "" {
		return "New chat"
	}
	return line
}
