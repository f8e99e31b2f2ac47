// Package convert 提供单位换算和颜色格式转换
// 纯计算，不依赖数据库
package convert

import (
	"math"
	"sort"
	"strings"

	apperrors "github.com/veerhq/veer/internal/errors"
)

// 换算类别
const (
	CategoryLength      = "length"
	CategoryMass        = "mass"
	CategoryTemperature = "temperature"
	CategoryVolume      = "volume"
	CategoryArea        = "area"
	CategorySpeed       = "speed"
	CategoryTime        = "time"
	CategoryData        = "data"
)

// 线性类别：单位 -> 换算到基准单位的系数
var linearFactors = map[string]map[string]float64{
	// 基准：米
	CategoryLength: {
		"mm": 0.001,
		"cm": 0.01,
		"m":  1,
		"km": 1000,
		"in": 0.0254,
		"ft": 0.3048,
		"yd": 0.9144,
		"mi": 1609.344,
		"nm": 1852,
	},
	// 基准：千克
	CategoryMass: {
		"mg": 1e-6,
		"g":  0.001,
		"kg": 1,
		"t":  1000,
		"oz": 0.028349523125,
		"lb": 0.45359237,
		"st": 6.35029318,
	},
	// 基准：升
	CategoryVolume: {
		"ml":    0.001,
		"l":     1,
		"m3":    1000,
		"tsp":   0.00492892159375,
		"tbsp":  0.01478676478125,
		"cup":   0.2365882365,
		"pt":    0.473176473,
		"qt":    0.946352946,
		"gal":   3.785411784,
		"fl_oz": 0.0295735295625,
	},
	// 基准：平方米
	CategoryArea: {
		"mm2":  1e-6,
		"cm2":  1e-4,
		"m2":   1,
		"ha":   1e4,
		"km2":  1e6,
		"in2":  0.00064516,
		"ft2":  0.09290304,
		"acre": 4046.8564224,
		"mi2":  2589988.110336,
	},
	// 基准：米/秒
	CategorySpeed: {
		"m/s":  1,
		"km/h": 1000.0 / 3600.0,
		"mph":  0.44704,
		"kn":   1852.0 / 3600.0,
		"ft/s": 0.3048,
	},
	// 基准：秒
	CategoryTime: {
		"ms":   0.001,
		"s":    1,
		"min":  60,
		"h":    3600,
		"day":  86400,
		"week": 604800,
		"year": 31536000,
	},
	// 基准：字节
	CategoryData: {
		"bit": 0.125,
		"b":   1,
		"kb":  1e3,
		"mb":  1e6,
		"gb":  1e9,
		"tb":  1e12,
		"kib": 1024,
		"mib": 1 << 20,
		"gib": 1 << 30,
		"tib": 1 << 40,
	},
}

var temperatureUnits = []string{"c", "f", "k"}

// Result 换算结果
type Result struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Result   float64 `json:"result"`
}

// Categories 返回所有类别
func Categories() []string {
	out := make([]string, 0, len(linearFactors)+1)
	for c := range linearFactors {
		out = append(out, c)
	}
	out = append(out, CategoryTemperature)
	sort.Strings(out)
	return out
}

// Units 返回类别下的全部单位
func Units(category string) ([]string, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == CategoryTemperature {
		return append([]string(nil), temperatureUnits...), nil
	}
	factors, ok := linearFactors[category]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrInvalidUnit, "unknown category %q", category)
	}
	out := make([]string, 0, len(factors))
	for u := range factors {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// Convert 把 value 从 from 单位换算到 to 单位
func Convert(category string, value float64, from, to string) (*Result, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	from = normalizeUnit(from)
	to = normalizeUnit(to)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, apperrors.Newf(apperrors.ErrInvalidParams, "value must be a finite number")
	}

	var out float64
	if category == CategoryTemperature {
		kelvin, err := toKelvin(value, from)
		if err != nil {
			return nil, err
		}
		if out, err = fromKelvin(kelvin, to); err != nil {
			return nil, err
		}
	} else {
		factors, ok := linearFactors[category]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidUnit, "unknown category %q", category)
		}
		ff, ok := factors[from]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidUnit, "unit %q is not a %s unit", from, category)
		}
		tf, ok := factors[to]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidUnit, "unit %q is not a %s unit", to, category)
		}
		out = value * ff / tf
	}

	return &Result{Category: category, Value: value, From: from, To: to, Result: out}, nil
}

func normalizeUnit(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	switch u {
	case "°c", "celsius":
		return "c"
	case "°f", "fahrenheit":
		return "f"
	case "kelvin":
		return "k"
	}
	return u
}

func toKelvin(v float64, unit string) (float64, error) {
	var k float64
	switch unit {
	case "c":
		k = v + 273.15
	case "f":
		k = (v-32)*5/9 + 273.15
	case "k":
		k = v
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidUnit, "unit %q is not a temperature unit", unit)
	}
	if k < 0 {
		return 0, apperrors.Newf(apperrors.ErrInvalidParams, "temperature below absolute zero")
	}
	return k, nil
}

func fromKelvin(k float64, unit string) (float64, error) {
	switch unit {
	case "c":
		return k - 273.15, nil
	case "f":
		return (k-273.15)*9/5 + 32, nil
	case "k":
		return k, nil
	}
	return 0, apperrors.Newf(apperrors.ErrInvalidUnit, "unit %q is not a temperature unit", unit)
}
