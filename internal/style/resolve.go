package style

import (
	"slices"
	"strconv"
	"strings"

	"site-report/internal/category"
	"site-report/internal/feature"
	"site-report/internal/geometry"
	"site-report/internal/logger"
)

// Source：样式解析所需的类别读取能力
type Source interface {
	Get(name string) (category.Category, bool)
	Names() []string
}

// Resolver：按类别存储解析要素样式
type Resolver struct {
	src Source
}

func NewResolver(src Source) *Resolver { return &Resolver{src: src} }

// Resolve：解析样式；降级信号只记录 debug 日志
func (r *Resolver) Resolve(f *feature.Feature) Style {
	s, w := r.ResolveChecked(f)
	if w != nil {
		logger.L().Debug("style_degraded", "feature", f.ID, "reason", w.String())
	}
	return s
}

// 文档注释：解析样式并返回降级信号
// 背景：类别缺失返回中性灰兜底；几何类型决定变体；点的自定义 SVG 无效时回退为同色圆点并返回 Warning。
// 约束：从不返回 nil 样式，也从不 panic；几何未知的要素按点处理。
func (r *Resolver) ResolveChecked(f *feature.Feature) (Style, *Warning) {
	if f == nil {
		return Fallback(geometry.Point), nil
	}
	kind := geometry.KindOf(f.Geometry)
	c, ok := r.src.Get(f.Category)
	if !ok {
		return Fallback(kind), nil
	}
	switch kind {
	case geometry.Polygon:
		return resolvePolygon(f.Category, c.Styles.Polygon), nil
	case geometry.Line:
		return resolveLine(c.Styles.Line), nil
	default:
		return resolvePoint(f.Category, c.Styles.Point)
	}
}

// Sanitize：非 [A-Za-z0-9] 字符（按 rune 计）一律替换为 '-'
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '-'
	}, name)
}

// PatternID：面填充图案资源 ID，形如 h-lines-Drainage
func PatternID(pattern, categoryName string) string {
	return pattern + "-" + Sanitize(categoryName)
}

func resolvePolygon(name string, ps category.PolygonStyle) *Polygon {
	p := &Polygon{
		Fill:        ps.FillColor,
		FillColor:   ps.FillColor,
		FillOpacity: ps.FillOpacity,
		FillPattern: knownFill(ps.FillPattern),
		Color:       ps.Color,
		Weight:      ps.Weight,
		Opacity:     ps.Opacity,
	}
	if p.FillPattern != "solid" {
		p.Fill = PatternID(p.FillPattern, name)
		p.FillIsPattern = true
	}
	if ps.DashArray != "solid" {
		p.DashArray = ps.DashArray
	}
	return p
}

// knownFill：未知图案按实心处理，保证填充引用的图案资源一定存在
func knownFill(pattern string) string {
	if slices.Contains(category.FillPatterns, pattern) {
		return pattern
	}
	return "solid"
}

// LineDash：按线型与线宽生成虚线描述；solid/arrows 无虚线
func LineDash(pattern string, weight float64) string {
	if weight == 0 {
		weight = 1
	}
	on, off := num(weight*2), num(weight*1.5)
	switch pattern {
	case "dashed":
		return on + " " + off
	case "dotted":
		return "1 " + off
	case "dash-dot":
		return on + " " + off + " 1 " + off
	default:
		return ""
	}
}

func resolveLine(ls category.LineStyle) *Line {
	l := &Line{
		Color:     ls.Color,
		Weight:    ls.Weight,
		Opacity:   ls.Opacity,
		Pattern:   orDefault(ls.LinePattern, "solid"),
		LineCap:   orDefault(ls.LineCap, "round"),
		LineJoin:  orDefault(ls.LineJoin, "round"),
		DashArray: LineDash(ls.LinePattern, ls.Weight),
	}
	if l.Pattern == "arrows" {
		l.Arrows = true
		l.ArrowRepeat = ls.LineSpacing * 2
	}
	return l
}

func resolvePoint(name string, ps category.PointStyle) (*Point, *Warning) {
	size := ps.Size
	if size == 0 {
		size = 16
	}
	p := &Point{
		Shape:       orDefault(ps.Shape, "circle"),
		FillColor:   ps.FillColor,
		FillOpacity: ps.FillOpacity,
		Color:       ps.Color,
		Weight:      ps.Weight,
		Opacity:     ps.Opacity,
		Size:        size,
		Radius:      size / 2,
		SVGSize:     ps.SVGSize,
	}
	if p.SVGSize == 0 {
		p.SVGSize = 32
	}
	if p.Shape != "svg" {
		return p, nil
	}
	markup := strings.ReplaceAll(ps.SVG, "currentColor", ps.FillColor)
	if reason := validateSVG(markup); reason != "" {
		p.Shape = "circle"
		return p, &Warning{Category: name, Reason: reason}
	}
	p.SVG = markup
	return p, nil
}

// validateSVG：只检查是否存在 <svg 根标签，返回空串表示通过
func validateSVG(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return "empty svg markup"
	}
	if !strings.Contains(strings.ToLower(markup), "<svg") {
		return "svg markup has no <svg> root"
	}
	return ""
}

func orDefault(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
