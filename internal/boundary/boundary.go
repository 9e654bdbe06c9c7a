// 包 boundary：项目边界；解析 GeoJSON 边界面，提供点入面判定与带外扩的视图范围
package boundary

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrNoPolygon = errors.New("boundary contains no polygon")

// 视图外扩比例：最大可视范围外扩 30%，适配视图外扩 10%
const (
	MaxBoundsPad = 0.30
	FitBoundsPad = 0.10
)

// 文档注释：项目边界
// 背景：边界原文按输入保存，导出时原样写回；判定使用解析后的多面及各面的包围盒。
// 约束：仅 Polygon/MultiPolygon 参与判定；其余几何忽略；全部忽略时返回 ErrNoPolygon。
type Boundary struct {
	raw   json.RawMessage
	polys orb.MultiPolygon
	boxes []orb.Bound
	bound orb.Bound
}

// 文档注释：解析边界 GeoJSON
// 背景：接受 FeatureCollection、Feature 或裸几何三种写法，与前端绘制/导入的边界格式一致。
func Parse(raw []byte) (*Boundary, error) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, err
	}
	var geoms []orb.Geometry
	switch strings.ToLower(peek.Type) {
	case "featurecollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, err
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, err
		}
		geoms = append(geoms, g.Geometry())
	}
	b := &Boundary{raw: append(json.RawMessage(nil), raw...)}
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			b.add(v)
		case orb.MultiPolygon:
			for _, p := range v {
				b.add(p)
			}
		}
	}
	if len(b.polys) == 0 {
		return nil, ErrNoPolygon
	}
	return b, nil
}

func (b *Boundary) add(p orb.Polygon) {
	if len(p) == 0 || len(p[0]) < 3 {
		return
	}
	pb := p.Bound()
	if len(b.polys) == 0 {
		b.bound = pb
	} else {
		b.bound = b.bound.Union(pb)
	}
	b.polys = append(b.polys, p)
	b.boxes = append(b.boxes, pb)
}

// Raw：边界原文
func (b *Boundary) Raw() json.RawMessage { return b.raw }

// MarshalJSON：原样输出
func (b *Boundary) MarshalJSON() ([]byte, error) { return b.raw, nil }

// 文档注释：点入边界判定（Even-Odd）
// 背景：先做包围盒快速过滤，再对候选面做环判定；外环命中且不在洞内视为命中。
func (b *Boundary) Contains(pt orb.Point) bool {
	if b == nil || !b.bound.Contains(pt) {
		return false
	}
	for i, p := range b.polys {
		if !b.boxes[i].Contains(pt) {
			continue
		}
		if planar.PolygonContains(p, pt) {
			return true
		}
	}
	return false
}

// Bound：边界包围盒
func (b *Boundary) Bound() orb.Bound { return b.bound }

// ViewBounds：地图最大可视范围（四周外扩 30%）
func (b *Boundary) ViewBounds() orb.Bound { return Pad(b.bound, MaxBoundsPad) }

// FitBounds：加载项目时的适配视图（四周外扩 10%）
func (b *Boundary) FitBounds() orb.Bound { return Pad(b.bound, FitBoundsPad) }

// Pad：按宽高比例向四周外扩
func Pad(bd orb.Bound, ratio float64) orb.Bound {
	dx := (bd.Max[0] - bd.Min[0]) * ratio
	dy := (bd.Max[1] - bd.Min[1]) * ratio
	return orb.Bound{
		Min: orb.Point{bd.Min[0] - dx, bd.Min[1] - dy},
		Max: orb.Point{bd.Max[0] + dx, bd.Max[1] + dy},
	}
}
