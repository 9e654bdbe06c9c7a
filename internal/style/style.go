// 包 style：样式解析器；按要素几何类型与所属类别产出完整的点/线/面样式变体，供渲染面直接使用
package style

import (
	"fmt"

	"site-report/internal/geometry"
)

// 文档注释：解析后的样式（封闭接口）
// 背景：渲染面只接受三种变体之一，调用方按类型分支即可覆盖全部情况。
// 约束：变体所有字段都有具体值，不存在“未设置”的字段；Fallback 为 true 表示类别缺失时的中性灰兜底。
type Style interface {
	Kind() geometry.Kind
	IsFallback() bool
	sealed()
}

// Point：点样式
type Point struct {
	Shape       string  `json:"shape"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	Size        float64 `json:"size"`
	Radius      float64 `json:"radius"`
	SVG         string  `json:"svg"`
	SVGSize     float64 `json:"svgSize"`
	Fallback    bool    `json:"fallback"`
}

// Line：线样式；DashArray 为空表示实线；Arrows 请求渲染面叠加箭头装饰
type Line struct {
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	Pattern     string  `json:"linePattern"`
	DashArray   string  `json:"dashArray"`
	LineCap     string  `json:"lineCap"`
	LineJoin    string  `json:"lineJoin"`
	Arrows      bool    `json:"arrows"`
	ArrowRepeat float64 `json:"arrowRepeat"`
	Fallback    bool    `json:"fallback"`
}

// Polygon：面样式；FillIsPattern 为 true 时 Fill 是图案资源 ID，否则为颜色
type Polygon struct {
	Fill          string  `json:"fill"`
	FillIsPattern bool    `json:"fillIsPattern"`
	FillColor     string  `json:"fillColor"`
	FillOpacity   float64 `json:"fillOpacity"`
	FillPattern   string  `json:"fillPattern"`
	Color         string  `json:"color"`
	Weight        float64 `json:"weight"`
	Opacity       float64 `json:"opacity"`
	DashArray     string  `json:"dashArray"`
	Fallback      bool    `json:"fallback"`
}

func (*Point) Kind() geometry.Kind   { return geometry.Point }
func (*Line) Kind() geometry.Kind    { return geometry.Line }
func (*Polygon) Kind() geometry.Kind { return geometry.Polygon }

func (p *Point) IsFallback() bool   { return p.Fallback }
func (l *Line) IsFallback() bool    { return l.Fallback }
func (p *Polygon) IsFallback() bool { return p.Fallback }

func (*Point) sealed()   {}
func (*Line) sealed()    {}
func (*Polygon) sealed() {}

// 兜底样式取值
const (
	FallbackColor       = "#808080"
	FallbackWeight      = 2.0
	FallbackOpacity     = 1.0
	FallbackFillOpacity = 0.2
)

// Fallback：类别缺失时按几何类型返回中性灰样式
func Fallback(kind geometry.Kind) Style {
	switch kind {
	case geometry.Line:
		return &Line{
			Color: FallbackColor, Weight: FallbackWeight, Opacity: FallbackOpacity,
			Pattern: "solid", LineCap: "round", LineJoin: "round", Fallback: true,
		}
	case geometry.Polygon:
		return &Polygon{
			Fill: FallbackColor, FillColor: FallbackColor, FillOpacity: FallbackFillOpacity, FillPattern: "solid",
			Color: FallbackColor, Weight: FallbackWeight, Opacity: FallbackOpacity, Fallback: true,
		}
	default:
		return &Point{
			Shape: "circle", FillColor: FallbackColor, FillOpacity: FallbackFillOpacity,
			Color: FallbackColor, Weight: FallbackWeight, Opacity: FallbackOpacity,
			Size: 16, Radius: 8, SVGSize: 24, Fallback: true,
		}
	}
}

// Warning：渲染降级信号（例如自定义 SVG 无效），只记录日志，不作为错误返回
type Warning struct {
	Category string
	Reason   string
}

func (w Warning) String() string {
	return fmt.Sprintf("category %q: %s", w.Category, w.Reason)
}
