// Package backup 把记录表和小组件表打包成快照，上传到对象存储，并支持从快照恢复
// 支持的对象存储：阿里云OSS、腾讯云COS、七牛云Kodo
package backup

import (
	"context"
	"io"
	"time"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
)

// Storage 对象存储接口
type Storage interface {
	// Upload 上传对象
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Download 下载对象，调用方负责关闭
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete 删除对象
	Delete(ctx context.Context, key string) error

	// List 按前缀分页列出对象，marker 为上一页返回的游标
	// 返回的游标为空表示已经没有下一页
	List(ctx context.Context, prefix, marker string, maxKeys int) ([]Object, string, error)

	// TestConnection 测试连接和凭证
	TestConnection(ctx context.Context) error
}

// Object 远端对象信息
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}

// StorageFactory 根据备份目标创建存储客户端
type StorageFactory func(target *database.BackupTarget) (Storage, error)

// NewStorage 默认工厂
func NewStorage(target *database.BackupTarget) (Storage, error) {
	switch target.Provider {
	case database.ProviderAliyun:
		return NewAliyunStorage(target)
	case database.ProviderTencent:
		return NewTencentStorage(target)
	case database.ProviderQiniu:
		return NewQiniuStorage(target)
	default:
		return nil, apperrors.Newf(apperrors.ErrProviderNotSupported, "unsupported storage provider %q", target.Provider)
	}
}
