package feature

import (
	"encoding/json"
	"errors"

	"github.com/paulmach/orb/geojson"
)

// 仅在进程内使用的属性键，导入时丢弃、导出时不写出
var internalKeys = map[string]bool{
	"_internalId":     true,
	"_cachedGeoData":  true,
	"_cachedSeverity": true,
	"_cacheVer":       true,
	"_cache":          true,
}

// ErrNotFeatureCollection：输入不是 GeoJSON FeatureCollection
var ErrNotFeatureCollection = errors.New("not a GeoJSON FeatureCollection")

// WireFeature：GeoJSON Feature 的线上结构；几何允许为 null
type WireFeature struct {
	Type       string                     `json:"type"`
	Geometry   *geojson.Geometry          `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// WireCollection：GeoJSON FeatureCollection；Properties 为导出时附带的类别等信息
type WireCollection struct {
	Type       string                     `json:"type"`
	Features   []WireFeature              `json:"features"`
	Properties map[string]json.RawMessage `json:"properties,omitempty"`
}

// 文档注释：GeoJSON Feature -> 要素
// 背景：已知属性按原始类型宽松解析，类型不符时视为缺失；未知属性原样保留；内部键（ID、缓存）一律丢弃。
// 约束：showLabel 缺失时默认 true；observations/images 缺失时为空列表；返回的要素尚未计算缓存。
func FromWire(w WireFeature) *Feature {
	f := &Feature{
		ShowLabel:    true,
		Observations: []Observation{},
		Images:       []Image{},
	}
	if w.Geometry != nil && w.Geometry.Coordinates != nil {
		f.Geometry = w.Geometry.Geometry()
	}
	for k, raw := range w.Properties {
		if internalKeys[k] {
			continue
		}
		switch k {
		case "Name":
			_ = json.Unmarshal(raw, &f.Name)
		case "Description":
			_ = json.Unmarshal(raw, &f.Description)
		case "category":
			_ = json.Unmarshal(raw, &f.Category)
		case "showLabel":
			var b bool
			if json.Unmarshal(raw, &b) == nil {
				f.ShowLabel = b
			}
		case "observations":
			f.Observations = decodeObservations(raw)
		case "images":
			var imgs []Image
			if json.Unmarshal(raw, &imgs) == nil && imgs != nil {
				f.Images = imgs
			}
		default:
			if f.Extra == nil {
				f.Extra = make(map[string]json.RawMessage)
			}
			f.Extra[k] = raw
		}
	}
	return f
}

// decodeObservations：逐条解析，单条格式错误时跳过该条
func decodeObservations(raw json.RawMessage) []Observation {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []Observation{}
	}
	out := make([]Observation, 0, len(items))
	for _, it := range items {
		var o Observation
		if err := json.Unmarshal(it, &o); err != nil {
			continue
		}
		if o.ID == "" {
			o.ID = NewID()
		}
		if o.Images == nil {
			o.Images = []Image{}
		}
		out = append(out, o)
	}
	return out
}

// ToWire：要素 -> GeoJSON Feature，不写出内部 ID 与缓存
func (f *Feature) ToWire() WireFeature {
	props := make(map[string]json.RawMessage, len(f.Extra)+6)
	for k, v := range f.Extra {
		props[k] = v
	}
	put := func(k string, v any) {
		if b, err := json.Marshal(v); err == nil {
			props[k] = b
		}
	}
	if f.Name != "" {
		put("Name", f.Name)
	}
	if f.Description != "" {
		put("Description", f.Description)
	}
	put("category", f.Category)
	put("showLabel", f.ShowLabel)
	obs := f.Observations
	if obs == nil {
		obs = []Observation{}
	}
	put("observations", obs)
	imgs := f.Images
	if imgs == nil {
		imgs = []Image{}
	}
	put("images", imgs)
	w := WireFeature{Type: "Feature", Properties: props}
	if f.Geometry != nil {
		w.Geometry = geojson.NewGeometry(f.Geometry)
	}
	return w
}

// ToCollection：要素列表 -> FeatureCollection
func ToCollection(fs []*Feature) WireCollection {
	out := WireCollection{Type: "FeatureCollection", Features: make([]WireFeature, 0, len(fs))}
	for _, f := range fs {
		out.Features = append(out.Features, f.ToWire())
	}
	return out
}

// FromCollection：FeatureCollection -> 要素列表（未计算缓存）
func FromCollection(c WireCollection) []*Feature {
	out := make([]*Feature, 0, len(c.Features))
	for _, w := range c.Features {
		out = append(out, FromWire(w))
	}
	return out
}

// ParseCollection：解析 FeatureCollection 文本
func ParseCollection(b []byte) (WireCollection, error) {
	var c WireCollection
	if err := json.Unmarshal(b, &c); err != nil {
		return WireCollection{}, err
	}
	if c.Type != "FeatureCollection" || c.Features == nil {
		return WireCollection{}, ErrNotFeatureCollection
	}
	return c, nil
}
