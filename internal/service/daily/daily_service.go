// Package daily 提供每日数据（心情、喝水、专注、日记）的读写
// 每天最多一条记录，写入按日期 upsert
package daily

import (
	"errors"
	"time"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// DayLayout 日期格式
const DayLayout = "2006-01-02"

// DailyService 每日数据服务接口
type DailyService interface {
	// Upsert 按日期创建或更新，只修改请求中非nil的字段
	Upsert(day string, req *UpsertDailyRequest) (*database.DailyData, error)
	// Get 获取某一天的数据
	Get(day string) (*database.DailyData, error)
	// Range 按日期区间列出，from/to 为空表示不限，结果按日期正序
	Range(from, to string) ([]database.DailyData, error)
	// Delete 删除某一天的数据
	Delete(day string) error
}

// UpsertDailyRequest 每日数据写入请求
type UpsertDailyRequest struct {
	Mood         *string `json:"mood" binding:"omitempty,max=20"`
	WaterGlasses *int    `json:"water_glasses" binding:"omitempty,min=0,max=100"`
	FocusMinutes *int    `json:"focus_minutes" binding:"omitempty,min=0,max=1440"`
	Journal      *string `json:"journal"`
}

type dailyService struct {
	db *gorm.DB
}

// NewDailyService 创建每日数据服务
func NewDailyService(db *gorm.DB) DailyService {
	return &dailyService{db: db}
}

// ParseDay 校验日期，"today" 视为当天
func ParseDay(day string) (string, error) {
	if day == "" || day == "today" {
		return time.Now().Format(DayLayout), nil
	}
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrInvalidParams, "invalid day %q, expected YYYY-MM-DD", day)
	}
	return t.Format(DayLayout), nil
}

func (s *dailyService) Upsert(day string, req *UpsertDailyRequest) (*database.DailyData, error) {
	day, err := ParseDay(day)
	if err != nil {
		return nil, err
	}

	var result *database.DailyData
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var row database.DailyData
		err := tx.Where("day = ?", day).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = database.DailyData{Day: day}
			apply(&row, req)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			apply(&row, req)
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		}
		result = &row
		return nil
	})
	if err != nil {
		return nil, query.WriteError(err)
	}
	return result, nil
}

func apply(row *database.DailyData, req *UpsertDailyRequest) {
	if req.Mood != nil {
		row.Mood = *req.Mood
	}
	if req.WaterGlasses != nil {
		row.WaterGlasses = *req.WaterGlasses
	}
	if req.FocusMinutes != nil {
		row.FocusMinutes = *req.FocusMinutes
	}
	if req.Journal != nil {
		row.Journal = *req.Journal
	}
}

func (s *dailyService) Get(day string) (*database.DailyData, error) {
	day, err := ParseDay(day)
	if err != nil {
		return nil, err
	}
	var row database.DailyData
	if err := s.db.Where("day = ?", day).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrRecordNotFound, "no data for %s", day)
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return &row, nil
}

func (s *dailyService) Range(from, to string) ([]database.DailyData, error) {
	q := s.db.Model(&database.DailyData{})
	if from != "" {
		f, err := ParseDay(from)
		if err != nil {
			return nil, err
		}
		q = q.Where("day >= ?", f)
	}
	if to != "" {
		t, err := ParseDay(to)
		if err != nil {
			return nil, err
		}
		q = q.Where("day <= ?", t)
	}

	rows := []database.DailyData{}
	if err := q.Order("day ASC").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return rows, nil
}

// Delete 硬删除，保证同一天可以重新写入
func (s *dailyService) Delete(day string) error {
	day, err := ParseDay(day)
	if err != nil {
		return err
	}
	res := s.db.Unscoped().Where("day = ?", day).Delete(&database.DailyData{})
	if res.Error != nil {
		return query.WriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrRecordNotFound, "no data for %s", day)
	}
	return nil
}
