// Package database 定义数据模型和数据库初始化
// 模型按来源拆分：
// - record_models.go: 托管数据库中的表（notes, daily_data, tasks, projects, sessions, messages）
// - widget_models.go: 小组件在浏览器本地存储的数据（snippets, colors, quick_commands, break_stats, settings）
// - backup_models.go: 备份目标与备份日志
package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base 公共字段
// 对外使用 RecordID(UUID) 作为标识，自增ID只在库内使用
type Base struct {
	ID        uint           `gorm:"primarykey" json:"-" yaml:"-"`
	RecordID  string         `gorm:"not null;size:36;uniqueIndex" json:"id" yaml:"id"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-" yaml:"-"`
}

// BeforeCreate 创建前补齐RecordID
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.RecordID == "" {
		b.RecordID = uuid.NewString()
	}
	return nil
}

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Note{},
		&DailyData{},
		&Task{},
		&Project{},
		&Session{},
		&Message{},
		&Snippet{},
		&Color{},
		&QuickCommand{},
		&BreakStat{},
		&Setting{},
		&BackupTarget{},
		&BackupLog{},
	}
}
