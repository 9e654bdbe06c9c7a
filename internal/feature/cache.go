package feature

import (
	"strconv"

	"github.com/paulmach/orb"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"site-report/internal/geometry"
)

// Row：报告中展示的一行派生数据
type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// 文档注释：要素派生缓存
// 背景：渲染、图例与报告都读取缓存，避免每次绘制重复计算测地长度与面积。
// 约束：只由 Recompute 写入；HasGeometry 为 false 时其余几何字段无意义。
type Derived struct {
	HasGeometry bool      `json:"hasGeometry"`
	Centroid    orb.Point `json:"centroid"`
	LengthLabel string    `json:"lengthLabel,omitempty"`
	LengthFeet  float64   `json:"lengthFeet,omitempty"`
	AreaSqFt    float64   `json:"areaSqFt,omitempty"`
	AreaAcres   float64   `json:"areaAcres,omitempty"`
	Highest     Severity  `json:"highestSeverity"`
	Rows        []Row     `json:"rows"`
}

var printer = message.NewPrinter(language.English)

// 文档注释：重算单个要素缓存
// 背景：几何或观测变更后必须调用；函数只读取几何与观测，结果与调用次数无关。
// 约束：几何为空时仅计算严重度，几何字段清零。
func Recompute(f *Feature) {
	if f == nil {
		return
	}
	d := Derived{Highest: HighestSeverity(f.Observations)}
	if c, ok := geometry.Centroid(f.Geometry); ok {
		d.HasGeometry = true
		d.Centroid = c
		d.Rows = append(d.Rows,
			Row{Label: "Latitude", Value: strconv.FormatFloat(c.Lat(), 'f', 6, 64)},
			Row{Label: "Longitude", Value: strconv.FormatFloat(c.Lon(), 'f', 6, 64)},
		)
		kind := geometry.KindOf(f.Geometry)
		if kind == geometry.Line || kind == geometry.Polygon {
			d.LengthLabel = "Length"
			if kind == geometry.Polygon {
				d.LengthLabel = "Perimeter"
			}
			d.LengthFeet = geometry.LengthMeters(f.Geometry) * geometry.FeetPerMeter
			d.Rows = append(d.Rows, Row{Label: d.LengthLabel, Value: formatNumber(d.LengthFeet, 2) + " ft"})
		}
		if kind == geometry.Polygon {
			m2 := geometry.AreaMeters(f.Geometry)
			d.AreaSqFt = m2 * geometry.SquareFeetPerMeter
			d.AreaAcres = m2 / geometry.SquareMetersPerAcre
			d.Rows = append(d.Rows,
				Row{Label: "Area (sq ft)", Value: formatNumber(d.AreaSqFt, 2)},
				Row{Label: "Area (acres)", Value: formatNumber(d.AreaAcres, 4)},
			)
		}
	}
	f.Cache = d
}

// RecomputeAll：批量重算，跳过 nil 要素与缺失几何的条目，返回跳过数量
func RecomputeAll(fs []*Feature) (skipped int) {
	for _, f := range fs {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}
		Recompute(f)
	}
	return skipped
}

// 文档注释：最高严重度
// 背景：空列表返回 None（不是 Low）；非空列表至少为 Low，未识别的严重度不会抬高结果。
func HighestSeverity(obs []Observation) Severity {
	if len(obs) == 0 {
		return None
	}
	best := Low
	for _, o := range obs {
		if lv := o.Level(); lv > best {
			best = lv
		}
	}
	return best
}

// formatNumber：千分位分组，最多 digits 位小数
func formatNumber(v float64, digits int) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(digits)))
}
