// 包 category：类别与样式记录；类别按名称唯一，持有点/线/面三套样式，并负责类别可见性
package category

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// 点样式记录（可编辑字段）
type PointStyle struct {
	FillColor   string  `json:"fillColor" yaml:"fillColor"`
	FillOpacity float64 `json:"fillOpacity" yaml:"fillOpacity"`
	Color       string  `json:"color" yaml:"color"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Opacity     float64 `json:"opacity" yaml:"opacity"`
	Size        float64 `json:"size" yaml:"size"`
	Shape       string  `json:"shape" yaml:"shape"`
	SVG         string  `json:"svg" yaml:"svg"`
	SVGSize     float64 `json:"svgSize" yaml:"svgSize"`
}

// 线样式记录
type LineStyle struct {
	Color       string  `json:"color" yaml:"color"`
	Weight      float64 `json:"weight" yaml:"weight"`
	Opacity     float64 `json:"opacity" yaml:"opacity"`
	LinePattern string  `json:"linePattern" yaml:"linePattern"`
	LineSpacing float64 `json:"lineSpacing" yaml:"lineSpacing"`
	LineCap     string  `json:"lineCap" yaml:"lineCap"`
	LineJoin    string  `json:"lineJoin" yaml:"lineJoin"`
}

// 面样式记录
type PolygonStyle struct {
	FillColor       string  `json:"fillColor" yaml:"fillColor"`
	FillOpacity     float64 `json:"fillOpacity" yaml:"fillOpacity"`
	Color           string  `json:"color" yaml:"color"`
	Weight          float64 `json:"weight" yaml:"weight"`
	Opacity         float64 `json:"opacity" yaml:"opacity"`
	DashArray       string  `json:"dashArray" yaml:"dashArray"`
	FillPattern     string  `json:"fillPattern" yaml:"fillPattern"`
	PatternDensity  float64 `json:"patternDensity" yaml:"patternDensity"`
	PatternRotation float64 `json:"patternRotation" yaml:"patternRotation"`
}

// StyleSet：一个类别的三套样式
type StyleSet struct {
	Point   PointStyle   `json:"point" yaml:"point"`
	Line    LineStyle    `json:"line" yaml:"line"`
	Polygon PolygonStyle `json:"polygon" yaml:"polygon"`
}

// Category：导出文件中的类别结构 {"styles": {...}}
type Category struct {
	Styles StyleSet `json:"styles" yaml:"styles"`
}

// 可选枚举值
var (
	PointShapes   = []string{"circle", "square", "triangle", "svg"}
	LinePatterns  = []string{"solid", "dashed", "dotted", "dash-dot", "arrows"}
	LineCaps      = []string{"round", "butt", "square"}
	LineJoins     = []string{"round", "miter", "bevel"}
	FillPatterns  = []string{"solid", "h-lines", "v-lines", "diag-lines", "crosshatch", "dots", "squares", "triangles", "hexagons", "wave"}
	OutlineDashes = []string{"solid", "10 5", "2 5"}
)

// 文档注释：内置默认样式
// 背景：新建类别与导入时缺失字段的补齐来源；每次调用返回独立值，调用方修改不会影响后续默认值。
func Default() StyleSet {
	return StyleSet{
		Point: PointStyle{
			FillColor: "#ff8c00", FillOpacity: 0.8, Color: "#000000", Weight: 1, Opacity: 1,
			Size: 16, Shape: "circle", SVG: "", SVGSize: 24,
		},
		Line: LineStyle{
			Color: "#ff4500", Weight: 3, Opacity: 1, LinePattern: "solid",
			LineSpacing: 10, LineCap: "round", LineJoin: "round",
		},
		Polygon: PolygonStyle{
			FillColor: "#ff6347", FillOpacity: 0.2, Color: "#ff6347", Weight: 3, Opacity: 1,
			DashArray: "solid", FillPattern: "solid", PatternDensity: 10, PatternRotation: 0,
		},
	}
}

// DefaultCategory：以默认样式构造类别
func DefaultCategory() Category { return Category{Styles: Default()} }

// UnmarshalJSON：先填充默认值再覆盖，缺失字段保持默认
func (c *Category) UnmarshalJSON(b []byte) error {
	type alias Category
	a := alias{Styles: Default()}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = Category(a)
	return nil
}

// UnmarshalYAML：与 JSON 相同的默认值补齐语义
func (c *Category) UnmarshalYAML(n *yaml.Node) error {
	type alias Category
	a := alias{Styles: Default()}
	if err := n.Decode(&a); err != nil {
		return err
	}
	*c = Category(a)
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
