package database

import "strings"

// Snippet 代码片段
type Snippet struct {
	Base     `yaml:",inline"`
	Title    string `gorm:"not null;size:200" json:"title" yaml:"title"`
	Language string `gorm:"size:30;index" json:"language" yaml:"language"`
	Code     string `gorm:"type:text" json:"code" yaml:"code"`
	Tags     string `gorm:"size:500" json:"tags" yaml:"tags"` // 逗号分隔
}

func (Snippet) TableName() string {
	return "snippets"
}

// TagList 拆分标签
func (s Snippet) TagList() []string {
	return SplitTags(s.Tags)
}

// SplitTags 把逗号分隔的标签拆成去空白、去重后的列表
func SplitTags(raw string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}

// JoinTags 合并标签列表
func JoinTags(tags []string) string {
	return strings.Join(SplitTags(strings.Join(tags, ",")), ",")
}

// Color 收藏的颜色
type Color struct {
	Base `yaml:",inline"`
	Name string `gorm:"size:50" json:"name" yaml:"name"`
	Hex  string `gorm:"not null;size:7" json:"hex" yaml:"hex"` // #rrggbb
}

func (Color) TableName() string {
	return "colors"
}

// QuickCommand 快捷指令，名称在未删除的记录中唯一
type QuickCommand struct {
	Base        `yaml:",inline"`
	Name        string `gorm:"not null;size:50;index" json:"name" yaml:"name"`
	Command     string `gorm:"not null;size:500" json:"command" yaml:"command"`
	Description string `gorm:"size:200" json:"description" yaml:"description"`
}

func (QuickCommand) TableName() string {
	return "quick_commands"
}

// BreakStat 休息提醒每日统计
type BreakStat struct {
	Base          `yaml:",inline"`
	Day           string `gorm:"not null;size:10;uniqueIndex" json:"day" yaml:"day"`
	BreaksTaken   int    `gorm:"default:0" json:"breaks_taken" yaml:"breaks_taken"`
	BreaksSkipped int    `gorm:"default:0" json:"breaks_skipped" yaml:"breaks_skipped"`
	WorkMinutes   int    `gorm:"default:0" json:"work_minutes" yaml:"work_minutes"`
}

func (BreakStat) TableName() string {
	return "break_stats"
}

// Setting 界面设置键值对
type Setting struct {
	Base  `yaml:",inline"`
	Key   string `gorm:"not null;size:100;uniqueIndex" json:"key" yaml:"key"`
	Value string `gorm:"type:text" json:"value" yaml:"value"`
}

func (Setting) TableName() string {
	return "settings"
}
