// 包 geometry：几何引擎适配层，统一几何类型判定、质心、长度/周长、面积与有效性校验
package geometry

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// Kind：样式解析使用的几何大类
type Kind int

const (
	Unknown Kind = iota
	Point
	Line
	Polygon
)

// 单位换算常量（与报告展示口径一致）
const (
	FeetPerMeter        = 3.28084
	SquareFeetPerMeter  = 10.7639
	SquareMetersPerAcre = 4046.86
)

var (
	ErrEmptyGeometry       = errors.New("empty geometry")
	ErrTooFewPoints        = errors.New("too few points")
	ErrSelfIntersection    = errors.New("self-intersecting polygon")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

func (k Kind) String() string {
	switch k {
	case Point:
		return "point"
	case Line:
		return "line"
	case Polygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// KindOf：按 GeoJSON 类型归类；Multi* 归入对应单体类别
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return Point
	case orb.LineString, orb.MultiLineString:
		return Line
	case orb.Polygon, orb.MultiPolygon:
		return Polygon
	default:
		return Unknown
	}
}

// IsEmpty：几何为 nil 或不含任何坐标
func IsEmpty(g orb.Geometry) bool {
	if g == nil {
		return true
	}
	switch v := g.(type) {
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// 文档注释：几何质心
// 背景：面取面积质心，线取长度加权质心，点取坐标均值；退化面（面积为 0）由 planar 回退到边界质心。
// 约束：空几何返回 false，调用方不得使用零值坐标。
func Centroid(g orb.Geometry) (orb.Point, bool) {
	if IsEmpty(g) {
		return orb.Point{}, false
	}
	c, _ := planar.CentroidArea(g)
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return orb.Point{}, false
	}
	return c, true
}

// LengthMeters：测地线长度；面返回所有环长度之和（周长），点返回 0
func LengthMeters(g orb.Geometry) float64 {
	switch KindOf(g) {
	case Line, Polygon:
		return geo.Length(g)
	default:
		return 0
	}
}

// AreaMeters：测地面积（平方米），仅面有意义
func AreaMeters(g orb.Geometry) float64 {
	if KindOf(g) != Polygon {
		return 0
	}
	return math.Abs(geo.Area(g))
}

// 文档注释：单要素几何校验
// 背景：交互创建或编辑的几何需在写入前同步校验，失败时不修改任何状态。
// 约束：线至少 2 点；面每个环至少 4 点（含闭合点）且环内不得自相交。
func Validate(g orb.Geometry) error {
	if IsEmpty(g) {
		return ErrEmptyGeometry
	}
	switch v := g.(type) {
	case orb.Point, orb.MultiPoint:
		return nil
	case orb.LineString:
		if len(v) < 2 {
			return ErrTooFewPoints
		}
		return nil
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) < 2 {
				return ErrTooFewPoints
			}
		}
		return nil
	case orb.Polygon:
		return validatePolygon(v)
	case orb.MultiPolygon:
		for _, p := range v {
			if err := validatePolygon(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrUnsupportedGeometry
	}
}

func validatePolygon(p orb.Polygon) error {
	for _, r := range p {
		if len(r) < 4 {
			return ErrTooFewPoints
		}
		if ringSelfIntersects(r) {
			return ErrSelfIntersection
		}
	}
	return nil
}

// 环自交检测：两两比较不相邻边，O(n^2)，交互绘制的环规模很小
func ringSelfIntersects(r orb.Ring) bool {
	n := len(r)
	if r.Closed() {
		n--
	}
	if n < 4 {
		return false
	}
	seg := func(i int) (orb.Point, orb.Point) { return r[i], r[(i+1)%n] }
	for i := 0; i < n; i++ {
		a1, a2 := seg(i)
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := seg(j)
			if segmentsIntersect(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
