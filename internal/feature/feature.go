// 包 feature：要素与观测记录、派生缓存（质心/长度/面积/最高严重度）以及要素集合的唯一修改入口
package feature

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Severity：观测严重度，按序比较 Low < Medium < High < Critical；None 表示无观测
type Severity int

const (
	None Severity = iota
	Low
	Medium
	High
	Critical
)

var severityNames = [...]string{"", "Low", "Medium", "High", "Critical"}

func (s Severity) String() string {
	if s < None || s > Critical {
		return ""
	}
	return severityNames[s]
}

// ParseSeverity：未识别的取值按 0 级处理（与 None 相同），由最高严重度计算兜底为 Low
func ParseSeverity(v string) Severity {
	for i, n := range severityNames {
		if i > 0 && strings.EqualFold(n, strings.TrimSpace(v)) {
			return Severity(i)
		}
	}
	return None
}

// Color：图例与报告使用的严重度颜色
func (s Severity) Color() string {
	switch s {
	case Critical:
		return "#ef4444"
	case High:
		return "#f97316"
	case Medium:
		return "#eab308"
	case Low:
		return "#3b82f6"
	default:
		return "#6b7280"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	if s == None {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

// Image：观测附图（data URL 或外链）与说明
type Image struct {
	Src     string `json:"src"`
	Caption string `json:"caption"`
}

// 文档注释：观测记录
// 背景：严重度以原始字符串保存，导出时原样写回；排序比较统一走 ParseSeverity。
// 约束：Contributor 为弱引用（按名称），删除贡献者不影响已有观测。
type Observation struct {
	ID              string  `json:"id"`
	ObservationType string  `json:"observationType"`
	Severity        string  `json:"severity"`
	Contributor     string  `json:"contributor"`
	Recommendation  string  `json:"recommendation"`
	Images          []Image `json:"images"`
}

// Level：观测严重度等级
func (o Observation) Level() Severity { return ParseSeverity(o.Severity) }

// 文档注释：要素
// 背景：对应 GeoJSON Feature；已知属性落到字段，其余属性保存在 Extra 中原样导出。
// 约束：ID 为进程内标识，导出时剥离、导入时重新生成；Cache 只能由 Recompute 写入。
type Feature struct {
	ID           string
	Geometry     orb.Geometry
	Name         string
	Description  string
	Category     string
	ShowLabel    bool
	Observations []Observation
	Images       []Image
	Extra        map[string]json.RawMessage
	Cache        Derived
}

// New：构造带新 ID 的要素，缓存随即计算
func New(g orb.Geometry, category string) *Feature {
	f := &Feature{
		ID:           NewID(),
		Geometry:     g,
		Category:     category,
		ShowLabel:    true,
		Observations: []Observation{},
		Images:       []Image{},
	}
	Recompute(f)
	return f
}

// NewID：要素与观测共用的随机标识
func NewID() string { return uuid.NewString() }

// DisplayName：未命名要素显示为 Unnamed
func (f *Feature) DisplayName() string {
	if strings.TrimSpace(f.Name) == "" {
		return "Unnamed"
	}
	return f.Name
}

// HasObservations：是否至少有一条观测
func (f *Feature) HasObservations() bool { return len(f.Observations) > 0 }

// Clone：深拷贝观测与附图，几何共享（orb 几何按值替换，不原地修改）
func (f *Feature) Clone() *Feature {
	c := *f
	c.Observations = make([]Observation, len(f.Observations))
	for i, o := range f.Observations {
		o.Images = append([]Image(nil), o.Images...)
		c.Observations[i] = o
	}
	c.Images = append([]Image(nil), f.Images...)
	if f.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(f.Extra))
		for k, v := range f.Extra {
			c.Extra[k] = v
		}
	}
	c.Cache.Rows = append([]Row(nil), f.Cache.Rows...)
	return &c
}
