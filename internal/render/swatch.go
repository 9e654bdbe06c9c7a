package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/mdobak/go-xerrors"
	"golang.org/x/image/vector"

	"site-report/internal/geometry"
	"site-report/internal/style"
)

// SwatchSize：图例色块默认边长（像素）
const SwatchSize = 32

// 文档注释：栅格化图例色块
// 背景：面为带描边的矩形，线为带虚线与箭头的水平线，点按形状绘制；svg 点统一以同色圆点代替。
// 约束：size<=0 时使用 SwatchSize；颜色无法解析时使用兜底灰色；返回 PNG 编码字节。
func Swatch(st style.Style, size int) ([]byte, error) {
	if size <= 0 {
		size = SwatchSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	c := &canvas{dst: dst, z: vector.NewRasterizer(size, size), size: float32(size)}
	switch v := st.(type) {
	case *style.Polygon:
		c.polygon(v)
	case *style.Line:
		c.line(v)
	case *style.Point:
		c.point(v)
	default:
		c.point(style.Fallback(geometry.Point).(*style.Point))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, xerrors.New(err)
	}
	return buf.Bytes(), nil
}

type canvas struct {
	dst  *image.RGBA
	z    *vector.Rasterizer
	size float32
}

type pt struct{ x, y float32 }

// fill：以 nonzero 方式填充若干闭合轮廓
func (c *canvas) fill(col color.Color, contours ...[]pt) {
	c.z.Reset(c.dst.Bounds().Dx(), c.dst.Bounds().Dy())
	c.z.DrawOp = draw.Over
	for _, ct := range contours {
		if len(ct) < 3 {
			continue
		}
		c.z.MoveTo(ct[0].x, ct[0].y)
		for _, p := range ct[1:] {
			c.z.LineTo(p.x, p.y)
		}
		c.z.ClosePath()
	}
	c.z.Draw(c.dst, c.dst.Bounds(), image.NewUniform(col), image.Point{})
}

// segment：把线段展开为宽度为 w 的四边形
func segment(a, b pt, w float32) []pt {
	dx, dy := b.x-a.x, b.y-a.y
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*w/2, dx/l*w/2
	return []pt{{a.x + nx, a.y + ny}, {b.x + nx, b.y + ny}, {b.x - nx, b.y - ny}, {a.x - nx, a.y - ny}}
}

func (c *canvas) polygon(p *style.Polygon) {
	in := c.size * 0.15
	rect := []pt{{in, in}, {c.size - in, in}, {c.size - in, c.size - in}, {in, c.size - in}}
	c.fill(parseColor(p.FillColor, p.FillOpacity), rect)
	w := clampWeight(p.Weight)
	stroke := parseColor(p.Color, p.Opacity)
	dash := parseDash(p.DashArray)
	for i := range rect {
		a, b := rect[i], rect[(i+1)%len(rect)]
		for _, s := range dashed(a, b, dash) {
			c.fill(stroke, segment(s[0], s[1], w))
		}
	}
}

func (c *canvas) line(l *style.Line) {
	w := clampWeight(l.Weight)
	col := parseColor(l.Color, l.Opacity)
	mid := c.size / 2
	a, b := pt{c.size * 0.1, mid}, pt{c.size * 0.9, mid}
	if l.Arrows {
		b.x = c.size * 0.75
	}
	for _, s := range dashed(a, b, parseDash(l.DashArray)) {
		c.fill(col, segment(s[0], s[1], w))
	}
	if l.Arrows {
		h := c.size * 0.15
		c.fill(col, []pt{{b.x, mid - h}, {c.size * 0.95, mid}, {b.x, mid + h}})
	}
}

func (c *canvas) point(p *style.Point) {
	fillCol := parseColor(p.FillColor, p.FillOpacity)
	stroke := parseColor(p.Color, p.Opacity)
	w := clampWeight(p.Weight)
	r := c.size * 0.35
	ctr := pt{c.size / 2, c.size / 2}
	switch p.Shape {
	case "square":
		sq := func(h float32) []pt {
			return []pt{{ctr.x - h, ctr.y - h}, {ctr.x + h, ctr.y - h}, {ctr.x + h, ctr.y + h}, {ctr.x - h, ctr.y + h}}
		}
		c.fill(fillCol, sq(r))
		c.fill(stroke, sq(r), reverse(sq(r-w)))
	case "triangle":
		tri := func(h float32) []pt {
			return []pt{{ctr.x, ctr.y - h}, {ctr.x + h, ctr.y + h*0.8}, {ctr.x - h, ctr.y + h*0.8}}
		}
		c.fill(fillCol, tri(r))
		c.fill(stroke, tri(r), reverse(tri(r-w*1.5)))
	default:
		c.fill(fillCol, circle(ctr, r))
		c.fill(stroke, circle(ctr, r), reverse(circle(ctr, r-w)))
	}
}

func circle(c pt, r float32) []pt {
	const n = 32
	out := make([]pt, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / n
		out[i] = pt{c.x + r*float32(math.Cos(a)), c.y + r*float32(math.Sin(a))}
	}
	return out
}

func reverse(p []pt) []pt {
	out := make([]pt, len(p))
	for i := range p {
		out[len(p)-1-i] = p[i]
	}
	return out
}

// dashed：按虚线模式切分线段；模式为空时返回整段
func dashed(a, b pt, pattern []float32) [][2]pt {
	if len(pattern) == 0 {
		return [][2]pt{{a, b}}
	}
	dx, dy := b.x-a.x, b.y-a.y
	total := float32(math.Hypot(float64(dx), float64(dy)))
	if total == 0 {
		return nil
	}
	var out [][2]pt
	pos, i := float32(0), 0
	for pos < total {
		step := pattern[i%len(pattern)]
		end := pos + step
		if end > total {
			end = total
		}
		if i%2 == 0 {
			out = append(out, [2]pt{
				{a.x + dx*pos/total, a.y + dy*pos/total},
				{a.x + dx*end/total, a.y + dy*end/total},
			})
		}
		pos = end
		i++
	}
	return out
}

// minDash：虚线每段的最小像素长度；线宽极小时段数受画布尺寸约束
const minDash = 1

// parseDash：解析 "8 6" / "10,5" 形式；非法或全零时视为实线，每段不短于 minDash
func parseDash(s string) []float32 {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	var out []float32
	var sum float32
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		sum += float32(v)
		out = append(out, float32(max(v, minDash)))
	}
	if sum == 0 {
		return nil
	}
	if len(out)%2 == 1 {
		out = append(out, out...)
	}
	return out
}

func clampWeight(w float64) float32 {
	switch {
	case w < 1:
		return 1
	case w > 4:
		return 4
	}
	return float32(w)
}

// parseColor：#rgb / #rrggbb，透明度取 [0,1]
func parseColor(hex string, opacity float64) color.NRGBA {
	fallback := color.NRGBA{0x80, 0x80, 0x80, 0xff}
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	c := fallback
	if len(h) == 6 {
		if v, err := strconv.ParseUint(h, 16, 32); err == nil {
			c = color.NRGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
		}
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(math.Round(opacity * 255))
	return c
}
