// Package query 提供各服务共用的分页和按记录ID查询的辅助函数
package query

import (
	"errors"
	"strings"

	apperrors "github.com/veerhq/veer/internal/errors"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page 分页参数
type Page struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 修正非法分页参数
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset 偏移量
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paginate 统计总数并取出一页数据
func Paginate[T any](q *gorm.DB, page Page, order string) ([]T, int64, error) {
	page = page.Normalize()

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}

	items := make([]T, 0, page.PageSize)
	if total == 0 {
		return items, 0, nil
	}
	if err := q.Order(order).Offset(page.Offset()).Limit(page.PageSize).Find(&items).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return items, total, nil
}

// FindByRecordID 根据记录ID查询，不存在时返回 ErrRecordNotFound
func FindByRecordID[T any](db *gorm.DB, recordID string) (*T, error) {
	var item T
	err := db.Where("record_id = ?", recordID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRecordNotFound, "record %s not found", recordID)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return &item, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Escape 转义 LIKE 通配符，配合 ESCAPE '\' 使用
func Escape(keyword string) string {
	return likeEscaper.Replace(keyword)
}

// Like 构造包含匹配的 LIKE 模式
func Like(keyword string) string {
	return "%" + Escape(strings.TrimSpace(keyword)) + "%"
}

// WriteError 包装写入错误
func WriteError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrDatabaseWrite, "", err)
}
