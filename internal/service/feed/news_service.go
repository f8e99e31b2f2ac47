package feed

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/veerhq/veer/config"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/upstream"
)

// NewsAPI 对已删除文章返回的占位标题
const removedTitle = "[Removed]"

var newsCategories = map[string]bool{
	"business":      true,
	"entertainment": true,
	"general":       true,
	"health":        true,
	"science":       true,
	"sports":        true,
	"technology":    true,
}

// NewsService 新闻服务接口
type NewsService interface {
	TopHeadlines(ctx context.Context, q *NewsQuery) (*NewsResult, error)
}

// NewsQuery 查询条件
type NewsQuery struct {
	Category string `form:"category"`
	Query    string `form:"q"`
	Country  string `form:"country"`
	PageSize int    `form:"page_size"`
}

// Article 简化后的文章
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	ImageURL    string    `json:"image_url"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsResult 新闻列表
type NewsResult struct {
	TotalResults int       `json:"total_results"`
	Articles     []Article `json:"articles"`
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

type newsService struct {
	cfg    config.NewsConfig
	client *upstream.Client
}

// NewNewsService 创建新闻服务
func NewNewsService(cfg config.NewsConfig) NewsService {
	return &newsService{cfg: cfg, client: upstream.NewClient("newsapi", cfg.Timeout, nil)}
}

func (s *newsService) TopHeadlines(ctx context.Context, q *NewsQuery) (*NewsResult, error) {
	if s.cfg.APIKey == "" {
		return nil, apperrors.Newf(apperrors.ErrServiceUnavailable, "news API key is not configured")
	}

	params := url.Values{}
	if c := strings.ToLower(strings.TrimSpace(q.Category)); c != "" {
		if !newsCategories[c] {
			return nil, apperrors.Newf(apperrors.ErrInvalidParams, "unknown news category %q", q.Category)
		}
		params.Set("category", c)
	}
	if kw := strings.TrimSpace(q.Query); kw != "" {
		params.Set("q", kw)
	}
	country := strings.ToLower(strings.TrimSpace(q.Country))
	if country == "" {
		country = s.cfg.Country
	}
	if country != "" {
		params.Set("country", country)
	}
	pageSize := q.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = s.cfg.PageSize
	}
	params.Set("pageSize", strconv.Itoa(pageSize))

	header := http.Header{}
	header.Set("X-Api-Key", s.cfg.APIKey)

	var raw newsAPIResponse
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/top-headlines?" + params.Encode()
	if err := s.client.GetJSON(ctx, endpoint, header, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstreamFailed, "", err)
	}

	result := &NewsResult{TotalResults: raw.TotalResults, Articles: make([]Article, 0, len(raw.Articles))}
	for _, a := range raw.Articles {
		if a.Title == "" || a.Title == removedTitle {
			continue
		}
		result.Articles = append(result.Articles, Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
		})
	}
	return result, nil
}
