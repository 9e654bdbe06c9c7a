package style

import (
	"fmt"
	"math"
	"strings"
)

// 文档注释：面填充图案资源描述
// 背景：非实心填充的类别引用同名图案资源；渲染面据此生成 <pattern> 定义。
// 约束：Element 取值 path/circle/rect；Stroked 为 true 时图形以描边绘制，否则以填充绘制。
type PatternDef struct {
	ID          string  `json:"id"`
	Pattern     string  `json:"pattern"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Rotation    float64 `json:"rotation"`
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"strokeWidth"`
	Element     string  `json:"element"`
	Path        string  `json:"path,omitempty"`
	CX          float64 `json:"cx,omitempty"`
	CY          float64 `json:"cy,omitempty"`
	R           float64 `json:"r,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	RectSize    float64 `json:"rectSize,omitempty"`
	Stroked     bool    `json:"stroked"`
}

// PatternDefs：按类别顺序列出全部非实心面填充所需的图案
func PatternDefs(src Source) []PatternDef {
	var out []PatternDef
	for _, name := range src.Names() {
		c, ok := src.Get(name)
		if !ok {
			continue
		}
		ps := c.Styles.Polygon
		if knownFill(ps.FillPattern) == "solid" {
			continue
		}
		if d, ok := buildPattern(PatternID(ps.FillPattern, name), ps.FillPattern, ps.PatternDensity, ps.PatternRotation, ps.FillColor); ok {
			out = append(out, d)
		}
	}
	return out
}

func buildPattern(id, pattern string, size, rotation float64, color string) (PatternDef, bool) {
	if size <= 0 {
		size = 10
	}
	d := PatternDef{
		ID: id, Pattern: pattern, Width: size, Height: size, Rotation: rotation,
		Color: color, StrokeWidth: math.Max(1, size/8), Element: "path",
	}
	h := size / 2
	switch pattern {
	case "h-lines":
		d.Path = fmt.Sprintf("M 0 %s L %s %s", num(h), num(size), num(h))
	case "v-lines":
		d.Path = fmt.Sprintf("M %s 0 L %s %s", num(h), num(h), num(size))
	case "diag-lines":
		d.Path = fmt.Sprintf("M 0 %s L %s 0", num(size), num(size))
	case "crosshatch":
		d.Path = fmt.Sprintf("M 0 %s L %s %s M %s 0 L %s %s", num(h), num(size), num(h), num(h), num(h), num(size))
	case "dots":
		d.Element = "circle"
		d.CX, d.CY, d.R = h, h, math.Max(1, size/5)
	case "squares":
		sq := math.Max(2, size/2)
		d.Element = "rect"
		d.X, d.Y, d.RectSize = (size-sq)/2, (size-sq)/2, sq
	case "triangles":
		d.Path = fmt.Sprintf("M%s 0 L%s %s L0 %s Z", num(h), num(size), num(size), num(size))
	case "hexagons":
		hh := size * 0.866
		d.Height = hh
		d.Path = fmt.Sprintf("M%s 0 L%s %s L%s %s L%s %s L0 %s L0 %s Z",
			num(h), num(size), num(hh/4), num(size), num(hh*3/4), num(h), num(hh), num(hh*3/4), num(hh/4))
	case "wave":
		d.Path = fmt.Sprintf("M 0 %s C %s 0, %s %s, %s %s", num(h), num(size/4), num(size*3/4), num(size), num(size), num(h))
	default:
		return PatternDef{}, false
	}
	d.Stroked = strings.Contains(pattern, "lines") || pattern == "crosshatch" || pattern == "wave"
	return d, true
}

// SVG：生成 <pattern> 定义片段
func (d PatternDef) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<pattern id="%s" patternUnits="userSpaceOnUse" width="%s" height="%s"`, d.ID, num(d.Width), num(d.Height))
	if d.Rotation != 0 {
		fmt.Fprintf(&b, ` patternTransform="rotate(%s 0 0)"`, num(d.Rotation))
	}
	b.WriteByte('>')
	paint := fmt.Sprintf(`fill="%s"`, d.Color)
	if d.Stroked {
		paint = fmt.Sprintf(`fill="transparent" stroke="%s" stroke-width="%s"`, d.Color, num(d.StrokeWidth))
	}
	switch d.Element {
	case "circle":
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" %s/>`, num(d.CX), num(d.CY), num(d.R), paint)
	case "rect":
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" %s/>`, num(d.X), num(d.Y), num(d.RectSize), num(d.RectSize), paint)
	default:
		fmt.Fprintf(&b, `<path d="%s" %s/>`, d.Path, paint)
	}
	b.WriteString("</pattern>")
	return b.String()
}
