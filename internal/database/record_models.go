package database

import "time"

// Note 笔记
type Note struct {
	Base     `yaml:",inline"`
	Title    string `gorm:"not null;size:200" json:"title" yaml:"title"`
	Content  string `gorm:"type:text" json:"content" yaml:"content"`
	Category string `gorm:"size:50;index" json:"category" yaml:"category"`
	Pinned   bool   `gorm:"default:false" json:"pinned" yaml:"pinned"`
}

func (Note) TableName() string {
	return "notes"
}

// DailyData 每日数据（心情、喝水、专注时长、日记），每天一条
type DailyData struct {
	Base         `yaml:",inline"`
	Day          string `gorm:"not null;size:10;uniqueIndex" json:"day" yaml:"day"` // YYYY-MM-DD
	Mood         string `gorm:"size:20" json:"mood" yaml:"mood"`
	WaterGlasses int    `gorm:"default:0" json:"water_glasses" yaml:"water_glasses"`
	FocusMinutes int    `gorm:"default:0" json:"focus_minutes" yaml:"focus_minutes"`
	Journal      string `gorm:"type:text" json:"journal" yaml:"journal"`
}

func (DailyData) TableName() string {
	return "daily_data"
}

// 任务优先级
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task 待办任务
type Task struct {
	Base        `yaml:",inline"`
	Title       string     `gorm:"not null;size:200" json:"title" yaml:"title"`
	Description string     `gorm:"type:text" json:"description" yaml:"description"`
	Done        bool       `gorm:"default:false;index" json:"done" yaml:"done"`
	Priority    string     `gorm:"size:10;default:'medium'" json:"priority" yaml:"priority"`
	DueAt       *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	ProjectID   string     `gorm:"size:36;index" json:"project_id,omitempty" yaml:"project_id,omitempty"` // 不做外键约束
}

func (Task) TableName() string {
	return "tasks"
}

// 项目状态
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

// Project 项目
type Project struct {
	Base        `yaml:",inline"`
	Name        string `gorm:"not null;size:100" json:"name" yaml:"name"`
	Description string `gorm:"type:text" json:"description" yaml:"description"`
	Color       string `gorm:"size:7;default:'#6366f1'" json:"color" yaml:"color"`
	Status      string `gorm:"size:20;default:'active';index" json:"status" yaml:"status"`
}

func (Project) TableName() string {
	return "projects"
}

// Session 对话会话
type Session struct {
	Base  `yaml:",inline"`
	Title string `gorm:"size:200" json:"title" yaml:"title"`
	Mode  string `gorm:"size:30" json:"mode" yaml:"mode"`
}

func (Session) TableName() string {
	return "sessions"
}

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message 会话消息，删除会话时一并删除
type Message struct {
	Base      `yaml:",inline"`
	SessionID string `gorm:"not null;size:36;index" json:"session_id" yaml:"session_id"`
	Role      string `gorm:"not null;size:20" json:"role" yaml:"role"`
	Content   string `gorm:"type:text" json:"content" yaml:"content"`
	Provider  string `gorm:"size:50" json:"provider,omitempty" yaml:"provider,omitempty"`
	Model     string `gorm:"size:100" json:"model,omitempty" yaml:"model,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
