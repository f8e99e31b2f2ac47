package backup

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/veerhq/veer/internal/database"
	"github.com/veerhq/veer/internal/logger"
)

// AliyunStorage 阿里云OSS
type AliyunStorage struct {
	client *oss.Client
	bucket *oss.Bucket
	target *database.BackupTarget
}

// NewAliyunStorage 创建阿里云OSS客户端
// 未配置endpoint时按区域拼接默认域名
func NewAliyunStorage(target *database.BackupTarget) (*AliyunStorage, error) {
	endpoint := target.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://oss-%s.aliyuncs.com", target.Region)
	}

	client, err := oss.New(endpoint, target.AccessKey, target.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun oss client: %w", err)
	}
	bucket, err := client.Bucket(target.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", target.Bucket, err)
	}

	logger.Infof("[阿里云OSS] 客户端已创建, 目标: %s, 域名: %s, 存储桶: %s", target.Name, endpoint, target.Bucket)
	return &AliyunStorage{client: client, bucket: bucket, target: target}, nil
}

// Upload 上传对象
func (s *AliyunStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	options := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		options = append(options, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, reader, options...); err != nil {
		logger.Errorf("[阿里云OSS] 上传失败, 对象键: %s, 错误: %v", key, err)
		return fmt.Errorf("failed to upload to aliyun oss: %w", err)
	}
	return nil
}

// Download 下载对象
func (s *AliyunStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to download from aliyun oss: %w", err)
	}
	return body, nil
}

// Delete 删除对象
func (s *AliyunStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete from aliyun oss: %w", err)
	}
	return nil
}

// List 列出一页对象
func (s *AliyunStorage) List(ctx context.Context, prefix, marker string, maxKeys int) ([]Object, string, error) {
	res, err := s.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.MaxKeys(maxKeys), oss.WithContext(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("failed to list aliyun oss objects: %w", err)
	}
	objects := make([]Object, 0, len(res.Objects))
	for _, o := range res.Objects {
		objects = append(objects, Object{
			Key:          o.Key,
			Size:         o.Size,
			LastModified: o.LastModified,
			ETag:         strings.Trim(o.ETag, "\""),
		})
	}
	if !res.IsTruncated {
		return objects, "", nil
	}
	return objects, res.NextMarker, nil
}

// TestConnection 通过获取存储桶信息验证连接
func (s *AliyunStorage) TestConnection(ctx context.Context) error {
	info, err := s.client.GetBucketInfo(s.target.Bucket, oss.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to test aliyun oss connection: %w", err)
	}
	logger.Infof("[阿里云OSS] 连接测试成功, 存储桶: %s, 位置: %s", s.target.Bucket, info.BucketInfo.Location)
	return nil
}
