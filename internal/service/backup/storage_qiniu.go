package backup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qiniu/go-sdk/v7/auth/qbox"
	"github.com/qiniu/go-sdk/v7/storage"
	"github.com/veerhq/veer/internal/database"
	"github.com/veerhq/veer/internal/logger"
)

// 七牛 PutTime 单位为100纳秒
const qiniuPutTimeUnit = 100 * time.Nanosecond

// QiniuStorage 七牛云Kodo
type QiniuStorage struct {
	mac    *qbox.Mac
	region *storage.Region
	domain string
	target *database.BackupTarget
}

// NewQiniuStorage 创建七牛云Kodo客户端
// 参数:
//   - target: 备份目标，Endpoint 为下载域名，为空时使用区域默认域名
//
// 返回:
//   - *QiniuStorage: 客户端
//   - error: 查询存储区域失败时返回
func NewQiniuStorage(target *database.BackupTarget) (*QiniuStorage, error) {
	mac := qbox.NewMac(target.AccessKey, target.SecretKey)

	region, err := storage.GetRegion(target.AccessKey, target.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get qiniu region: %w", err)
	}

	domain := target.Endpoint
	if domain == "" {
		domain = fmt.Sprintf("%s.%s", target.Bucket, region.RsHost)
	}
	logger.Infof("[七牛云Kodo] 客户端已创建, 目标: %s, 存储桶: %s, 域名: %s", target.Name, target.Bucket, domain)
	return &QiniuStorage{mac: mac, region: region, domain: domain, target: target}, nil
}

func (s *QiniuStorage) bucketManager() *storage.BucketManager {
	return storage.NewBucketManager(s.mac, &storage.Config{Region: s.region, UseHTTPS: true})
}

// Upload 表单上传
func (s *QiniuStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	putPolicy := storage.PutPolicy{Scope: fmt.Sprintf("%s:%s", s.target.Bucket, key)}
	upToken := putPolicy.UploadToken(s.mac)

	uploader := storage.NewFormUploader(&storage.Config{Region: s.region, UseHTTPS: true})
	ret := storage.PutRet{}
	extra := storage.PutExtra{MimeType: contentType}
	if err := uploader.Put(ctx, &ret, upToken, key, reader, -1, &extra); err != nil {
		return fmt.Errorf("failed to upload to qiniu kodo: %w", err)
	}
	return nil
}

// Download 通过私有链接下载，链接一小时有效
func (s *QiniuStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	deadline := time.Now().Add(time.Hour).Unix()
	privateURL := storage.MakePrivateURL(s.mac, s.domain, key, deadline)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, privateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build qiniu download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download from qiniu kodo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download from qiniu kodo, status: %s", resp.Status)
	}
	return resp.Body, nil
}

func (s *QiniuStorage) Delete(_ context.Context, key string) error {
	if err := s.bucketManager().Delete(s.target.Bucket, key); err != nil {
		return fmt.Errorf("failed to delete from qiniu kodo: %w", err)
	}
	return nil
}

func (s *QiniuStorage) List(_ context.Context, prefix, marker string, maxKeys int) ([]Object, string, error) {
	entries, _, next, hasNext, err := s.bucketManager().ListFiles(s.target.Bucket, prefix, "", marker, maxKeys)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list qiniu kodo objects: %w", err)
	}
	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		objects = append(objects, Object{
			Key:          e.Key,
			Size:         e.Fsize,
			LastModified: time.Unix(0, e.PutTime*int64(qiniuPutTimeUnit)),
			ETag:         e.Hash,
		})
	}
	if !hasNext {
		return objects, "", nil
	}
	return objects, next, nil
}

// TestConnection 列出一个文件验证凭证
func (s *QiniuStorage) TestConnection(_ context.Context) error {
	if _, _, _, _, err := s.bucketManager().ListFiles(s.target.Bucket, "", "", "", 1); err != nil {
		return fmt.Errorf("failed to test qiniu kodo connection: %w", err)
	}
	return nil
}
