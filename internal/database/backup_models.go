package database

// 支持的对象存储提供商
const (
	ProviderAliyun  = "aliyun"
	ProviderTencent = "tencent"
	ProviderQiniu   = "qiniu"
)

// BackupTarget 备份目标（对象存储配置），同一时间只有一个激活
type BackupTarget struct {
	Base      `yaml:",inline"`
	Name      string `gorm:"not null;size:100" json:"name"`
	Provider  string `gorm:"not null;size:20" json:"provider"`
	Region    string `gorm:"size:50" json:"region"`
	Bucket    string `gorm:"not null;size:100" json:"bucket"`
	AccessKey string `gorm:"not null;size:100" json:"access_key"`
	SecretKey string `gorm:"not null;size:200" json:"-"`
	Endpoint  string `gorm:"size:200" json:"endpoint"`
	Prefix    string `gorm:"size:200" json:"prefix"`
	IsActive  bool   `gorm:"default:false" json:"is_active"`
}

func (BackupTarget) TableName() string {
	return "backup_targets"
}

// 备份状态
const (
	BackupStatusSuccess = "success"
	BackupStatusFailed  = "failed"
)

// BackupLog 备份/恢复记录
type BackupLog struct {
	Base       `yaml:",inline"`
	TargetID   string `gorm:"not null;size:36;index" json:"target_id"`
	Operation  string `gorm:"not null;size:20" json:"operation"` // backup, restore
	ObjectKey  string `gorm:"size:500" json:"object_key"`
	Status     string `gorm:"not null;size:20" json:"status"`
	Records    int    `json:"records"`
	Size       int64  `json:"size"`
	DurationMs int64  `json:"duration_ms"`
	ErrorMsg   string `gorm:"type:text" json:"error_msg,omitempty"`
}

func (BackupLog) TableName() string {
	return "backup_logs"
}
