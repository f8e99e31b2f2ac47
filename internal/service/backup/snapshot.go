package backup

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/veerhq/veer/internal/database"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 快照格式
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// SnapshotVersion 当前快照结构版本
const SnapshotVersion = 1

// Snapshot 记录表和小组件表的完整快照
type Snapshot struct {
	Version       int                     `yaml:"version" json:"version"`
	CreatedAt     time.Time               `yaml:"created_at" json:"created_at"`
	Notes         []database.Note         `yaml:"notes" json:"notes"`
	DailyData     []database.DailyData    `yaml:"daily_data" json:"daily_data"`
	Tasks         []database.Task         `yaml:"tasks" json:"tasks"`
	Projects      []database.Project      `yaml:"projects" json:"projects"`
	Sessions      []database.Session      `yaml:"sessions" json:"sessions"`
	Messages      []database.Message      `yaml:"messages" json:"messages"`
	Snippets      []database.Snippet      `yaml:"snippets" json:"snippets"`
	Colors        []database.Color        `yaml:"colors" json:"colors"`
	QuickCommands []database.QuickCommand `yaml:"quick_commands" json:"quick_commands"`
	BreakStats    []database.BreakStat    `yaml:"break_stats" json:"break_stats"`
	Settings      []database.Setting      `yaml:"settings" json:"settings"`
}

// Records 快照中的记录总数
func (s *Snapshot) Records() int {
	return len(s.Notes) + len(s.DailyData) + len(s.Tasks) + len(s.Projects) +
		len(s.Sessions) + len(s.Messages) + len(s.Snippets) + len(s.Colors) +
		len(s.QuickCommands) + len(s.BreakStats) + len(s.Settings)
}

// Collect 读取全部未删除的记录
func Collect(db *gorm.DB, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{Version: SnapshotVersion, CreatedAt: now.UTC()}
	targets := []interface{}{
		&snap.Notes, &snap.DailyData, &snap.Tasks, &snap.Projects,
		&snap.Sessions, &snap.Messages, &snap.Snippets, &snap.Colors,
		&snap.QuickCommands, &snap.BreakStats, &snap.Settings,
	}
	for _, dest := range targets {
		if err := db.Order("id ASC").Find(dest).Error; err != nil {
			return nil, fmt.Errorf("collect snapshot: %w", err)
		}
	}
	return snap, nil
}

// Encode 序列化快照，返回内容和Content-Type
func Encode(snap *Snapshot, format string) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		return data, "application/json", err
	case FormatYAML, "":
		data, err := yaml.Marshal(snap)
		return data, "application/yaml", err
	}
	return nil, "", fmt.Errorf("unsupported snapshot format %q", format)
}

// Decode 反序列化快照
func Decode(data []byte, format string) (*Snapshot, error) {
	var snap Snapshot
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &snap)
	case FormatYAML, "":
		err = yaml.Unmarshal(data, &snap)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version == 0 || snap.Version > SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// FormatFromKey 根据对象键后缀判断格式
func FormatFromKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// ObjectKey 生成快照对象键：<prefix>/veer-20240102-150405.yaml
func ObjectKey(prefix string, t time.Time, format string) string {
	ext := "yaml"
	if format == FormatJSON {
		ext = "json"
	}
	name := fmt.Sprintf("veer-%s.%s", t.UTC().Format("20060102-150405"), ext)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Apply 把快照写回数据库
// 按 record_id 覆盖，按天唯一的表和设置表按自然键覆盖；本地多出的记录保留
func Apply(db *gorm.DB, snap *Snapshot) (int, error) {
	total := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			conflict string
			rows     interface{}
			n        int
		}{
			{"record_id", &snap.Notes, len(snap.Notes)},
			{"day", &snap.DailyData, len(snap.DailyData)},
			{"record_id", &snap.Projects, len(snap.Projects)},
			{"record_id", &snap.Tasks, len(snap.Tasks)},
			{"record_id", &snap.Sessions, len(snap.Sessions)},
			{"record_id", &snap.Messages, len(snap.Messages)},
			{"record_id", &snap.Snippets, len(snap.Snippets)},
			{"record_id", &snap.Colors, len(snap.Colors)},
			{"record_id", &snap.QuickCommands, len(snap.QuickCommands)},
			{"day", &snap.BreakStats, len(snap.BreakStats)},
			{"key", &snap.Settings, len(snap.Settings)},
		}
		for _, step := range steps {
			if step.n == 0 {
				continue
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: step.conflict}},
				UpdateAll: true,
			}).CreateInBatches(step.rows, 100).Error
			if err != nil {
				return fmt.Errorf("restore %T: %w", step.rows, err)
			}
			total += step.n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
