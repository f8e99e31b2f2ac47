// Package feed 代理天气和新闻接口，并把上游响应裁剪为前端使用的结构
package feed

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/veerhq/veer/config"
	apperrors "github.com/veerhq/veer/internal/errors"
	"github.com/veerhq/veer/internal/service/upstream"
)

// WeatherService 天气服务接口
type WeatherService interface {
	Current(ctx context.Context, q *WeatherQuery) (*Weather, error)
}

// WeatherQuery 按城市或经纬度查询
type WeatherQuery struct {
	City  string   `form:"city"`
	Lat   *float64 `form:"lat"`
	Lon   *float64 `form:"lon"`
	Units string   `form:"units"`
}

// Weather 简化后的当前天气
type Weather struct {
	Location    string  `json:"location"`
	Country     string  `json:"country"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Units       string  `json:"units"`
}

// openWeatherResponse OpenWeatherMap /weather 响应中用到的字段
type openWeatherResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

type weatherService struct {
	cfg    config.WeatherConfig
	client *upstream.Client
}

// NewWeatherService 创建天气服务
func NewWeatherService(cfg config.WeatherConfig) WeatherService {
	return &weatherService{cfg: cfg, client: upstream.NewClient("openweathermap", cfg.Timeout, nil)}
}

func (s *weatherService) Current(ctx context.Context, q *WeatherQuery) (*Weather, error) {
	if s.cfg.APIKey == "" {
		return nil, apperrors.Newf(apperrors.ErrServiceUnavailable, "weather API key is not configured")
	}

	params := url.Values{}
	switch {
	case strings.TrimSpace(q.City) != "":
		params.Set("q", strings.TrimSpace(q.City))
	case q.Lat != nil && q.Lon != nil:
		if *q.Lat < -90 || *q.Lat > 90 || *q.Lon < -180 || *q.Lon > 180 {
			return nil, apperrors.Newf(apperrors.ErrInvalidParams, "lat/lon out of range")
		}
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "city or lat/lon is required")
	}

	units := s.cfg.Units
	switch q.Units {
	case "":
	case "metric", "imperial", "standard":
		units = q.Units
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "unknown units %q", q.Units)
	}
	params.Set("units", units)
	params.Set("appid", s.cfg.APIKey)

	var raw openWeatherResponse
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/weather?" + params.Encode()
	if err := s.client.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, upstreamError(err)
	}

	w := &Weather{
		Location:    raw.Name,
		Country:     raw.Sys.Country,
		Temperature: raw.Main.Temp,
		FeelsLike:   raw.Main.FeelsLike,
		Humidity:    raw.Main.Humidity,
		WindSpeed:   raw.Wind.Speed,
		Units:       units,
	}
	if len(raw.Weather) > 0 {
		w.Description = raw.Weather[0].Description
		w.Icon = raw.Weather[0].Icon
	}
	return w, nil
}

// upstreamError 上游404按未找到处理，其它按上游错误处理
func upstreamError(err error) error {
	var se *upstream.StatusError
	if errors.As(err, &se) && se.StatusCode == 404 {
		return apperrors.Wrap(apperrors.ErrNotFound, "", err)
	}
	return apperrors.Wrap(apperrors.ErrUpstreamFailed, "", err)
}
