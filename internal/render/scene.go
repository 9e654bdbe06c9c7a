// 包 render：渲染面适配；把项目状态整理成浏览器渲染器可直接消费的场景，并生成图例色块 PNG
package render

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"site-report/internal/feature"
	"site-report/internal/geometry"
	"site-report/internal/logger"
	"site-report/internal/metrics"
	"site-report/internal/project"
	"site-report/internal/style"
)

// Item：一个待绘制要素及其完整样式
type Item struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Category  string            `json:"category"`
	Name      string            `json:"name"`
	ShowLabel bool              `json:"showLabel"`
	Geometry  *geojson.Geometry `json:"geometry"`
	Style     style.Style       `json:"style"`
	Info      []feature.Row     `json:"info"`
}

// Decorator：线要素的箭头装饰请求
type Decorator struct {
	FeatureID string  `json:"featureId"`
	Color     string  `json:"color"`
	Weight    float64 `json:"weight"`
	Opacity   float64 `json:"opacity"`
	Repeat    float64 `json:"repeat"`
}

// Scene：一次完整渲染所需的全部数据
type Scene struct {
	Items     []Item             `json:"items"`
	Patterns  []style.PatternDef `json:"patterns"`
	Arrows    []Decorator        `json:"arrows"`
	Boundary  json.RawMessage    `json:"boundary,omitempty"`
	MaxBounds *[2][2]float64     `json:"maxBounds,omitempty"`
	FitBounds *[2][2]float64     `json:"fitBounds,omitempty"`
	MapView   *project.MapView   `json:"mapView,omitempty"`
}

// 文档注释：构建渲染场景
// 背景：只包含通过可见性过滤的要素；面填充图案按全部类别生成，箭头线型额外输出装饰请求。
// 约束：样式降级计入指标并记录 debug 日志，不影响其他要素；几何缺失的要素不输出。
func Build(s *project.State) *Scene {
	sc := &Scene{
		Items:    []Item{},
		Patterns: style.PatternDefs(s.Categories),
		Arrows:   []Decorator{},
		MapView:  s.MapView,
	}
	r := s.Resolver()
	for _, f := range s.Visible() {
		if f.Geometry == nil {
			continue
		}
		st, w := r.ResolveChecked(f)
		if st.IsFallback() {
			metrics.StyleFallbackTotal.WithLabelValues(st.Kind().String()).Inc()
		}
		if w != nil {
			metrics.StyleDegradedTotal.Inc()
			logger.L().Debug("style_degraded", "feature", f.ID, "reason", w.String())
		}
		sc.Items = append(sc.Items, Item{
			ID:        f.ID,
			Kind:      geometry.KindOf(f.Geometry).String(),
			Category:  f.Category,
			Name:      f.DisplayName(),
			ShowLabel: f.ShowLabel,
			Geometry:  geojson.NewGeometry(f.Geometry),
			Style:     st,
			Info:      f.Cache.Rows,
		})
		if l, ok := st.(*style.Line); ok && l.Arrows {
			sc.Arrows = append(sc.Arrows, Decorator{
				FeatureID: f.ID, Color: l.Color, Weight: l.Weight, Opacity: l.Opacity, Repeat: l.ArrowRepeat,
			})
		}
	}
	if s.Boundary != nil {
		sc.Boundary = s.Boundary.Raw()
		sc.MaxBounds = corners(s.Boundary.ViewBounds())
		sc.FitBounds = corners(s.Boundary.FitBounds())
	}
	return sc
}

// corners：[[south, west], [north, east]]，与浏览器地图库的 bounds 约定一致
func corners(b orb.Bound) *[2][2]float64 {
	return &[2][2]float64{{b.Min.Lat(), b.Min.Lon()}, {b.Max.Lat(), b.Max.Lon()}}
}
