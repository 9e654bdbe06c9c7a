package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"site-report/internal/geometry"
)

var (
	ErrUnknownProperty = errors.New("unknown style property")
	ErrBadValue        = errors.New("invalid style value")
)

// 文档注释：按字段修改类别样式
// 背景：前端编辑面板逐字段提交修改（颜色、宽度、图案等）；数值字段兼容字符串输入，与表单 parseFloat 行为一致。
// 返回：类别不存在时返回 false 且不报错（noop）；字段名未知或取值非法时返回错误且不修改。
func (s *Store) SetStyleField(name string, kind geometry.Kind, property string, value any) (bool, error) {
	c, ok := s.cats[name]
	if !ok {
		return false, nil
	}
	var err error
	switch kind {
	case geometry.Point:
		err = setPointField(&c.Styles.Point, property, value)
	case geometry.Line:
		err = setLineField(&c.Styles.Line, property, value)
	case geometry.Polygon:
		err = setPolygonField(&c.Styles.Polygon, property, value)
	default:
		err = fmt.Errorf("%w: geometry kind %s", ErrUnknownProperty, kind)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ParseKind：解析编辑面板传入的样式分组名
func ParseKind(s string) geometry.Kind {
	switch strings.ToLower(s) {
	case "point":
		return geometry.Point
	case "line", "linestring":
		return geometry.Line
	case "polygon":
		return geometry.Polygon
	default:
		return geometry.Unknown
	}
}

func setPointField(p *PointStyle, prop string, v any) error {
	switch prop {
	case "fillColor":
		return setColor(&p.FillColor, v)
	case "fillOpacity":
		return setUnit(&p.FillOpacity, v)
	case "color":
		return setColor(&p.Color, v)
	case "weight":
		return setNonNeg(&p.Weight, v)
	case "opacity":
		return setUnit(&p.Opacity, v)
	case "size":
		return setPositive(&p.Size, v)
	case "shape":
		return setEnum(&p.Shape, v, PointShapes)
	case "svg":
		s, ok := v.(string)
		if !ok {
			return ErrBadValue
		}
		p.SVG = s
		return nil
	case "svgSize":
		return setPositive(&p.SVGSize, v)
	}
	return fmt.Errorf("%w: point.%s", ErrUnknownProperty, prop)
}

func setLineField(l *LineStyle, prop string, v any) error {
	switch prop {
	case "color":
		return setColor(&l.Color, v)
	case "weight":
		return setNonNeg(&l.Weight, v)
	case "opacity":
		return setUnit(&l.Opacity, v)
	case "linePattern":
		return setEnum(&l.LinePattern, v, LinePatterns)
	case "lineSpacing":
		return setPositive(&l.LineSpacing, v)
	case "lineCap":
		return setEnum(&l.LineCap, v, LineCaps)
	case "lineJoin":
		return setEnum(&l.LineJoin, v, LineJoins)
	}
	return fmt.Errorf("%w: line.%s", ErrUnknownProperty, prop)
}

func setPolygonField(p *PolygonStyle, prop string, v any) error {
	switch prop {
	case "fillColor":
		return setColor(&p.FillColor, v)
	case "fillOpacity":
		return setUnit(&p.FillOpacity, v)
	case "color":
		return setColor(&p.Color, v)
	case "weight":
		return setNonNeg(&p.Weight, v)
	case "opacity":
		return setUnit(&p.Opacity, v)
	case "dashArray":
		return setEnum(&p.DashArray, v, OutlineDashes)
	case "fillPattern":
		return setEnum(&p.FillPattern, v, FillPatterns)
	case "patternDensity":
		return setPositive(&p.PatternDensity, v)
	case "patternRotation":
		return setNumber(&p.PatternRotation, v, func(f float64) bool { return f >= 0 && f <= 360 })
	}
	return fmt.Errorf("%w: polygon.%s", ErrUnknownProperty, prop)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func setNumber(dst *float64, v any, ok func(float64) bool) error {
	f, good := toFloat(v)
	if !good || !ok(f) {
		return fmt.Errorf("%w: %v", ErrBadValue, v)
	}
	*dst = f
	return nil
}

func setUnit(dst *float64, v any) error {
	return setNumber(dst, v, func(f float64) bool { return f >= 0 && f <= 1 })
}

func setNonNeg(dst *float64, v any) error {
	return setNumber(dst, v, func(f float64) bool { return f >= 0 })
}

func setPositive(dst *float64, v any) error {
	return setNumber(dst, v, func(f float64) bool { return f > 0 })
}

func setColor(dst *string, v any) error {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %v", ErrBadValue, v)
	}
	*dst = strings.TrimSpace(s)
	return nil
}

func setEnum(dst *string, v any, allowed []string) error {
	s, ok := v.(string)
	if !ok || !contains(allowed, s) {
		return fmt.Errorf("%w: %v", ErrBadValue, v)
	}
	*dst = s
	return nil
}
