package backup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/veerhq/veer/internal/database"
)

// TencentStorage 腾讯云COS
type TencentStorage struct {
	client *cos.Client
	target *database.BackupTarget
}

// NewTencentStorage 创建腾讯云COS客户端
func NewTencentStorage(target *database.BackupTarget) (*TencentStorage, error) {
	bucketURL := fmt.Sprintf("https://%s.cos.%s.myqcloud.com", target.Bucket, target.Region)
	if target.Endpoint != "" {
		bucketURL = target.Endpoint
	}
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  target.AccessKey,
			SecretKey: target.SecretKey,
		},
	})
	return &TencentStorage{client: client, target: target}, nil
}

func (s *TencentStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	opt := &cos.ObjectPutOptions{}
	if contentType != "" {
		opt.ObjectPutHeaderOptions = &cos.ObjectPutHeaderOptions{ContentType: contentType}
	}
	if _, err := s.client.Object.Put(ctx, key, reader, opt); err != nil {
		return fmt.Errorf("failed to upload to tencent cos: %w", err)
	}
	return nil
}

func (s *TencentStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download from tencent cos: %w", err)
	}
	return resp.Body, nil
}

func (s *TencentStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Object.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete from tencent cos: %w", err)
	}
	return nil
}

func (s *TencentStorage) List(ctx context.Context, prefix, marker string, maxKeys int) ([]Object, string, error) {
	result, _, err := s.client.Bucket.Get(ctx, &cos.BucketGetOptions{Prefix: prefix, Marker: marker, MaxKeys: maxKeys})
	if err != nil {
		return nil, "", fmt.Errorf("failed to list tencent cos objects: %w", err)
	}
	objects := make([]Object, 0, len(result.Contents))
	for _, o := range result.Contents {
		// COS返回ISO8601格式时间
		modified, _ := time.Parse(time.RFC3339, o.LastModified)
		objects = append(objects, Object{
			Key:          o.Key,
			Size:         int64(o.Size),
			LastModified: modified,
			ETag:         strings.Trim(o.ETag, "\""),
		})
	}
	if !result.IsTruncated {
		return objects, "", nil
	}
	// 未指定分隔符时COS不返回NextMarker，用本页最后一个键续读
	next := result.NextMarker
	if next == "" && len(objects) > 0 {
		next = objects[len(objects)-1].Key
	}
	return objects, next, nil
}

func (s *TencentStorage) TestConnection(ctx context.Context) error {
	if _, err := s.client.Bucket.Head(ctx); err != nil {
		return fmt.Errorf("failed to test tencent cos connection: %w", err)
	}
	return nil
}
