// Package widget 提供小组件数据（代码片段、颜色、快捷指令、休息统计、界面设置）的存取
package widget

import (
	"errors"
	"strings"
	"time"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/logger"
	"github.com/veerhq/veer/internal/service/query"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// 片段导出文件版本
const snippetExportVersion = 1

// SnippetService 代码片段服务接口
type SnippetService interface {
	CreateSnippet(req *SnippetRequest) (*database.Snippet, error)
	GetSnippet(id string) (*database.Snippet, error)
	UpdateSnippet(id string, req *SnippetRequest) (*database.Snippet, error)
	DeleteSnippet(id string) error
	ListSnippets(filter SnippetFilter, page query.Page) ([]database.Snippet, int64, error)
	// Languages 返回已使用的语言
	Languages() ([]string, error)
	// ExportYAML 把全部（或过滤后的）片段导出为YAML文档
	ExportYAML(filter SnippetFilter) ([]byte, error)
	// ImportYAML 导入YAML文档，按ID存在则覆盖，否则新建
	ImportYAML(data []byte) (*ImportResult, error)
}

// SnippetRequest 创建/更新片段请求
type SnippetRequest struct {
	Title    string   `json:"title" binding:"required,max=200"`
	Language string   `json:"language" binding:"max=30"`
	Code     string   `json:"code"`
	Tags     []string `json:"tags"`
}

// SnippetFilter 过滤条件
type SnippetFilter struct {
	Query    string `form:"q"`
	Language string `form:"language"`
	Tag      string `form:"tag"`
}

// SnippetExport 导出文件结构
type SnippetExport struct {
	Version    int                `yaml:"version"`
	ExportedAt time.Time          `yaml:"exported_at"`
	Snippets   []database.Snippet `yaml:"snippets"`
}

// ImportResult 导入结果
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

type snippetService struct {
	db *gorm.DB
}

// NewSnippetService 创建片段服务
func NewSnippetService(db *gorm.DB) SnippetService {
	return &snippetService{db: db}
}

func (s *snippetService) CreateSnippet(req *SnippetRequest) (*database.Snippet, error) {
	sn, err := buildSnippet(req)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(sn).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return sn, nil
}

func buildSnippet(req *SnippetRequest) (*database.Snippet, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "title must not be blank")
	}
	return &database.Snippet{
		Title:    title,
		Language: strings.ToLower(strings.TrimSpace(req.Language)),
		Code:     req.Code,
		Tags:     database.JoinTags(req.Tags),
	}, nil
}

func (s *snippetService) GetSnippet(id string) (*database.Snippet, error) {
	return query.FindByRecordID[database.Snippet](s.db, id)
}

func (s *snippetService) UpdateSnippet(id string, req *SnippetRequest) (*database.Snippet, error) {
	sn, err := query.FindByRecordID[database.Snippet](s.db, id)
	if err != nil {
		return nil, err
	}
	next, err := buildSnippet(req)
	if err != nil {
		return nil, err
	}
	sn.Title = next.Title
	sn.Language = next.Language
	sn.Code = next.Code
	sn.Tags = next.Tags
	if err := s.db.Save(sn).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return sn, nil
}

func (s *snippetService) DeleteSnippet(id string) error {
	sn, err := query.FindByRecordID[database.Snippet](s.db, id)
	if err != nil {
		return err
	}
	return query.WriteError(s.db.Delete(sn).Error)
}

func (s *snippetService) filtered(filter SnippetFilter) *gorm.DB {
	q := s.db.Model(&database.Snippet{})
	if kw := strings.TrimSpace(filter.Query); kw != "" {
		pattern := query.Like(kw)
		q = q.Where("(title LIKE ? ESCAPE '\\' OR code LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if lang := strings.ToLower(strings.TrimSpace(filter.Language)); lang != "" {
		q = q.Where("language = ?", lang)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		// 标签以逗号分隔存储，首尾补逗号后精确匹配
		q = q.Where("(',' || tags || ',') LIKE ? ESCAPE '\\'", "%,"+query.Escape(tag)+",%")
	}
	return q
}

func (s *snippetService) ListSnippets(filter SnippetFilter, page query.Page) ([]database.Snippet, int64, error) {
	return query.Paginate[database.Snippet](s.filtered(filter), page, "updated_at DESC")
}

func (s *snippetService) Languages() ([]string, error) {
	var langs []string
	err := s.db.Model(&database.Snippet{}).
		Where("language <> ''").
		Distinct().Order("language").
		Pluck("language", &langs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return langs, nil
}

func (s *snippetService) ExportYAML(filter SnippetFilter) ([]byte, error) {
	var snippets []database.Snippet
	if err := s.filtered(filter).Order("created_at ASC").Find(&snippets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	doc := SnippetExport{
		Version:    snippetExportVersion,
		ExportedAt: time.Now().UTC(),
		Snippets:   snippets,
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, "", err)
	}
	return out, nil
}

func (s *snippetService) ImportYAML(data []byte) (*ImportResult, error) {
	var doc SnippetExport
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidParams, "", err)
	}
	if doc.Version > snippetExportVersion {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "unsupported export version %d", doc.Version)
	}

	result := &ImportResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range doc.Snippets {
			title := strings.TrimSpace(item.Title)
			if title == "" {
				result.Skipped++
				continue
			}
			incoming := database.Snippet{
				Title:    title,
				Language: strings.ToLower(strings.TrimSpace(item.Language)),
				Code:     item.Code,
				Tags:     database.JoinTags(database.SplitTags(item.Tags)),
			}

			if item.RecordID != "" {
				var existing database.Snippet
				err := tx.Unscoped().Where("record_id = ?", item.RecordID).First(&existing).Error
				switch {
				case err == nil:
					existing.Title = incoming.Title
					existing.Language = incoming.Language
					existing.Code = incoming.Code
					existing.Tags = incoming.Tags
					existing.DeletedAt = gorm.DeletedAt{}
					if err := tx.Unscoped().Save(&existing).Error; err != nil {
						return err
					}
					result.Updated++
					continue
				case !errors.Is(err, gorm.ErrRecordNotFound):
					return err
				}
				incoming.RecordID = item.RecordID
			}
			if err := tx.Create(&incoming).Error; err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, query.WriteError(err)
	}
	logger.Infof("代码片段导入完成: 新建 %d, 更新 %d, 跳过 %d", result.Created, result.Updated, result.Skipped)
	return result, nil
}
