package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/veerhq/veer/internal/errors"
)

// RGB 0-255
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSL 色相 0-360，饱和度和亮度 0-100
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// ColorInfo 同一颜色的三种表示
type ColorInfo struct {
	Hex string `json:"hex"`
	RGB RGB    `json:"rgb"`
	HSL HSL    `json:"hsl"`
}

// ParseHex 解析 #rgb / #rrggbb，# 可省略
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, apperrors.Newf(apperrors.ErrInvalidColor, "invalid hex color %q", s)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, apperrors.Newf(apperrors.ErrInvalidColor, "invalid hex color %q", s)
	}
	return RGB{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

// NormalizeHex 规范化为小写 #rrggbb
func NormalizeHex(s string) (string, error) {
	c, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}

// Hex 输出小写 #rrggbb
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HSL 转换为HSL，保留两位小数
func (c RGB) HSL() HSL {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	l := (max + min) / 2

	var h, s float64
	if d := max - min; d != 0 {
		if l > 0.5 {
			s = d / (2 - max - min)
		} else {
			s = d / (max + min)
		}
		switch max {
		case r:
			h = (g - b) / d
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/d + 2
		default:
			h = (r-g)/d + 4
		}
		h *= 60
	}
	return HSL{H: round2(h), S: round2(s * 100), L: round2(l * 100)}
}

// RGB 转换为RGB
func (c HSL) RGB() (RGB, error) {
	if c.H < 0 || c.H > 360 || c.S < 0 || c.S > 100 || c.L < 0 || c.L > 100 {
		return RGB{}, apperrors.Newf(apperrors.ErrInvalidColor, "hsl out of range (%g, %g, %g)", c.H, c.S, c.L)
	}
	h := math.Mod(c.H, 360) / 360
	s := c.S / 100
	l := c.L / 100
	if s == 0 {
		v := to255(l)
		return RGB{R: v, G: v, B: v}, nil
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return RGB{
		R: to255(hueToRGB(p, q, h+1.0/3)),
		G: to255(hueToRGB(p, q, h)),
		B: to255(hueToRGB(p, q, h-1.0/3)),
	}, nil
}

// Describe 根据hex返回完整的颜色信息
func Describe(hex string) (*ColorInfo, error) {
	c, err := ParseHex(hex)
	if err != nil {
		return nil, err
	}
	return &ColorInfo{Hex: c.Hex(), RGB: c, HSL: c.HSL()}, nil
}

// FromRGB 根据RGB返回完整的颜色信息
func FromRGB(c RGB) *ColorInfo {
	return &ColorInfo{Hex: c.Hex(), RGB: c, HSL: c.HSL()}
}

// FromHSL 根据HSL返回完整的颜色信息
func FromHSL(c HSL) (*ColorInfo, error) {
	rgb, err := c.RGB()
	if err != nil {
		return nil, err
	}
	return &ColorInfo{Hex: rgb.Hex(), RGB: rgb, HSL: rgb.HSL()}, nil
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

func to255(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
