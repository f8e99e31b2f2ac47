package widget

import (
	"errors"
	"time"

	"github.com/veerhq/veer/internal/database"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/daily"
	"github.com/veerhq/veer/internal/service/query"
	"gorm.io/gorm"
)

// 汇总允许的最大天数
const maxSummaryDays = 366

// BreakService 休息提醒统计服务接口
type BreakService interface {
	// Record 累加某天的统计
	Record(req *BreakRecordRequest) (*database.BreakStat, error)
	Get(day string) (*database.BreakStat, error)
	// Summary 最近 days 天的汇总，包含今天
	Summary(days int) (*BreakSummary, error)
}

// BreakRecordRequest 统计增量
type BreakRecordRequest struct {
	Day           string `json:"day"`
	BreaksTaken   int    `json:"breaks_taken" binding:"min=0"`
	BreaksSkipped int    `json:"breaks_skipped" binding:"min=0"`
	WorkMinutes   int    `json:"work_minutes" binding:"min=0"`
}

// BreakSummary 区间汇总
type BreakSummary struct {
	From          string               `json:"from"`
	To            string               `json:"to"`
	Days          int                  `json:"days"`
	BreaksTaken   int                  `json:"breaks_taken"`
	BreaksSkipped int                  `json:"breaks_skipped"`
	WorkMinutes   int                  `json:"work_minutes"`
	CompliancePct float64              `json:"compliance_pct"` // taken / (taken+skipped)
	Daily         []database.BreakStat `json:"daily"`
}

type breakService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBreakService 创建休息统计服务
func NewBreakService(db *gorm.DB) BreakService {
	return &breakService{db: db, now: time.Now}
}

func (s *breakService) Record(req *BreakRecordRequest) (*database.BreakStat, error) {
	day, err := daily.ParseDay(req.Day)
	if err != nil {
		return nil, err
	}

	var stat database.BreakStat
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("day = ?", day).First(&stat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			stat = database.BreakStat{Day: day}
		} else if err != nil {
			return err
		}
		stat.BreaksTaken += req.BreaksTaken
		stat.BreaksSkipped += req.BreaksSkipped
		stat.WorkMinutes += req.WorkMinutes
		return tx.Save(&stat).Error
	})
	if err != nil {
		return nil, query.WriteError(err)
	}
	return &stat, nil
}

func (s *breakService) Get(day string) (*database.BreakStat, error) {
	d, err := daily.ParseDay(day)
	if err != nil {
		return nil, err
	}
	var stat database.BreakStat
	err = s.db.Where("day = ?", d).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Newf(apperrors.ErrRecordNotFound, "no break stats for %s", d)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}
	return &stat, nil
}

func (s *breakService) Summary(days int) (*BreakSummary, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxSummaryDays {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "days must be at most %d", maxSummaryDays)
	}

	today := s.now()
	to := today.Format(daily.DayLayout)
	from := today.AddDate(0, 0, -(days - 1)).Format(daily.DayLayout)

	var stats []database.BreakStat
	if err := s.db.Where("day >= ? AND day <= ?", from, to).Order("day ASC").Find(&stats).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseQuery, "", err)
	}

	sum := &BreakSummary{From: from, To: to, Days: days, Daily: stats}
	for _, st := range stats {
		sum.BreaksTaken += st.BreaksTaken
		sum.BreaksSkipped += st.BreaksSkipped
		sum.WorkMinutes += st.WorkMinutes
	}
	if total := sum.BreaksTaken + sum.BreaksSkipped; total > 0 {
		sum.CompliancePct = float64(sum.BreaksTaken) * 100 / float64(total)
	}
	return sum, nil
}
