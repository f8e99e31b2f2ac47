package database

import (
	"gorm.io/gorm"
)

// Migrate 迁移全部表结构并创建复合索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return createIndexes(db)
}

// createIndexes 创建列表查询用到的复合索引
func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// 置顶笔记优先，再按更新时间倒序
		"CREATE INDEX IF NOT EXISTS idx_notes_pinned_updated ON notes(pinned DESC, updated_at DESC) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_tasks_project_done ON tasks(project_id, done) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_at, created_at) WHERE deleted_at IS NULL",
		// 会话内消息按时间正序
		"CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_backup_logs_target_created ON backup_logs(target_id, created_at DESC)",
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
