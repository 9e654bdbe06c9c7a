package category

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// 各样式分组的可编辑字段名，顺序即校验顺序
var (
	pointProps   = []string{"fillColor", "fillOpacity", "color", "weight", "opacity", "size", "shape", "svg", "svgSize"}
	lineProps    = []string{"color", "weight", "opacity", "linePattern", "lineSpacing", "lineCap", "lineJoin"}
	polygonProps = []string{"fillColor", "fillOpacity", "color", "weight", "opacity", "dashArray", "fillPattern", "patternDensity", "patternRotation"}
)

func (p PointStyle) field(prop string) any {
	switch prop {
	case "fillColor":
		return p.FillColor
	case "fillOpacity":
		return p.FillOpacity
	case "color":
		return p.Color
	case "weight":
		return p.Weight
	case "opacity":
		return p.Opacity
	case "size":
		return p.Size
	case "shape":
		return p.Shape
	case "svg":
		return p.SVG
	case "svgSize":
		return p.SVGSize
	}
	return nil
}

func (l LineStyle) field(prop string) any {
	switch prop {
	case "color":
		return l.Color
	case "weight":
		return l.Weight
	case "opacity":
		return l.Opacity
	case "linePattern":
		return l.LinePattern
	case "lineSpacing":
		return l.LineSpacing
	case "lineCap":
		return l.LineCap
	case "lineJoin":
		return l.LineJoin
	}
	return nil
}

func (p PolygonStyle) field(prop string) any {
	switch prop {
	case "fillColor":
		return p.FillColor
	case "fillOpacity":
		return p.FillOpacity
	case "color":
		return p.Color
	case "weight":
		return p.Weight
	case "opacity":
		return p.Opacity
	case "dashArray":
		return p.DashArray
	case "fillPattern":
		return p.FillPattern
	case "patternDensity":
		return p.PatternDensity
	case "patternRotation":
		return p.PatternRotation
	}
	return nil
}

// 文档注释：样式记录校验
// 背景：与逐字段编辑使用同一组取值规则（颜色非空、透明度 [0,1]、枚举取值等）。
// 返回：第一个非法字段的 ErrBadValue 包装错误，形如 "line.weight"。
func (ss StyleSet) Validate() error {
	scratch := ss
	for _, p := range pointProps {
		if err := setPointField(&scratch.Point, p, ss.Point.field(p)); err != nil {
			return fmt.Errorf("point.%s: %w", p, err)
		}
	}
	for _, p := range lineProps {
		if err := setLineField(&scratch.Line, p, ss.Line.field(p)); err != nil {
			return fmt.Errorf("line.%s: %w", p, err)
		}
	}
	for _, p := range polygonProps {
		if err := setPolygonField(&scratch.Polygon, p, ss.Polygon.field(p)); err != nil {
			return fmt.Errorf("polygon.%s: %w", p, err)
		}
	}
	return nil
}

// 文档注释：样式记录纠正
// 背景：导入文件、项目文件与预设中的样式不经过编辑面板；非法字段逐个回退为内置默认值，其余字段保留。
// 返回：纠正后的样式与被回退的字段名列表（如 "polygon.fillPattern"）。
func (ss StyleSet) Normalize() (StyleSet, []string) {
	def := Default()
	out := ss
	var fixed []string
	for _, p := range pointProps {
		if setPointField(&out.Point, p, ss.Point.field(p)) != nil {
			_ = setPointField(&out.Point, p, def.Point.field(p))
			fixed = append(fixed, "point."+p)
		}
	}
	for _, p := range lineProps {
		if setLineField(&out.Line, p, ss.Line.field(p)) != nil {
			_ = setLineField(&out.Line, p, def.Line.field(p))
			fixed = append(fixed, "line."+p)
		}
	}
	for _, p := range polygonProps {
		if setPolygonField(&out.Polygon, p, ss.Polygon.field(p)) != nil {
			_ = setPolygonField(&out.Polygon, p, def.Polygon.field(p))
			fixed = append(fixed, "polygon."+p)
		}
	}
	return out, fixed
}

// UnmarshalJSON：先填充默认值再覆盖，部分样式请求得到完整记录
func (ss *StyleSet) UnmarshalJSON(b []byte) error {
	type alias StyleSet
	a := alias(Default())
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*ss = StyleSet(a)
	return nil
}

// UnmarshalYAML：与 JSON 相同的默认值补齐语义
func (ss *StyleSet) UnmarshalYAML(n *yaml.Node) error {
	type alias StyleSet
	a := alias(Default())
	if err := n.Decode(&a); err != nil {
		return err
	}
	*ss = StyleSet(a)
	return nil
}
