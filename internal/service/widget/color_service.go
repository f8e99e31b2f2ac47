package widget

import (
	"strings"

	"github.com/veerhq/veer/internal/database"
	"github.com/veerhq/veer/internal/service/convert"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// ColorService 收藏颜色服务接口
type ColorService interface {
	CreateColor(req *ColorRequest) (*database.Color, error)
	UpdateColor(id string, req *ColorRequest) (*database.Color, error)
	DeleteColor(id string) error
	ListColors(page query.Page) ([]database.Color, int64, error)
}

// ColorRequest 颜色请求，hex 接受 #rgb / #rrggbb
type ColorRequest struct {
	Name string `json:"name" binding:"max=50"`
	Hex  string `json:"hex" binding:"required"`
}

type colorService struct {
	db *gorm.DB
}

// NewColorService 创建颜色服务
func NewColorService(db *gorm.DB) ColorService {
	return &colorService{db: db}
}

func (s *colorService) CreateColor(req *ColorRequest) (*database.Color, error) {
	hex, err := convert.NormalizeHex(req.Hex)
	if err != nil {
		return nil, err
	}
	c := &database.Color{Name: strings.TrimSpace(req.Name), Hex: hex}
	if err := s.db.Create(c).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return c, nil
}

func (s *colorService) UpdateColor(id string, req *ColorRequest) (*database.Color, error) {
	c, err := query.FindByRecordID[database.Color](s.db, id)
	if err != nil {
		return nil, err
	}
	hex, err := convert.NormalizeHex(req.Hex)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Hex = hex
	if err := s.db.Save(c).Error; err != nil {
		return nil, query.WriteError(err)
	}
	return c, nil
}

func (s *colorService) DeleteColor(id string) error {
	c, err := query.FindByRecordID[database.Color](s.db, id)
	if err != nil {
		return err
	}
	return query.WriteError(s.db.Delete(c).Error)
}

func (s *colorService) ListColors(page query.Page) ([]database.Color, int64, error) {
	return query.Paginate[database.Color](s.db.Model(&database.Color{}), page, "created_at DESC")
}
