package project

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mdobak/go-xerrors"

	"site-report/internal/boundary"
	"site-report/internal/category"
	"site-report/internal/feature"
	"site-report/internal/logger"
)

// 项目文件格式版本与导出时间格式（毫秒精度 UTC）
const (
	FileVersion     = "1.9.2"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	ErrUnrecognizedFile = errors.New("the file is not a valid Project or GeoJSON file")
	ErrNoFeatures       = errors.New("no features to export")
)

// File：项目文件结构
type File struct {
	Version                  string                 `json:"version"`
	Title                    string                 `json:"title"`
	Description              string                 `json:"description"`
	Logo                     *string                `json:"logo"`
	Categories               category.Entries       `json:"categories"`
	Contributors             []Contributor          `json:"contributors"`
	ReportInfo               ReportInfo             `json:"reportInfo"`
	GeoJSON                  feature.WireCollection `json:"geojson"`
	ProjectBoundary          json.RawMessage        `json:"projectBoundary"`
	MapView                  *MapView               `json:"mapView"`
	CategoryVisibility       map[string]bool        `json:"categoryVisibility"`
	ShowOnlyWithObservations bool                   `json:"showOnlyWithObservations"`
	ExportTimestamp          string                 `json:"exportTimestamp"`
}

// ImportReport：导入结果摘要
type ImportReport struct {
	Kind            string `json:"kind"`
	Features        int    `json:"features"`
	Reassigned      int    `json:"reassigned"`
	DefaultCategory string `json:"defaultCategory,omitempty"`
	Skipped         int    `json:"skipped"`
	ExportedAt      string `json:"exportedAt,omitempty"`
}

// ExportProject：整项目导出；内部 ID 与派生缓存不写出
func (s *State) ExportProject(now time.Time) ([]byte, error) {
	f := File{
		Version:                  FileVersion,
		Title:                    s.Title,
		Description:              s.Description,
		Logo:                     s.Logo,
		Categories:               s.Categories.Entries(),
		Contributors:             s.contributorsOrEmpty(),
		ReportInfo:               s.ReportInfo,
		GeoJSON:                  feature.ToCollection(s.Features.All()),
		MapView:                  s.MapView,
		CategoryVisibility:       s.Categories.Visibility(),
		ShowOnlyWithObservations: s.OnlyWithObservations,
		ExportTimestamp:          now.UTC().Format(timestampLayout),
	}
	if s.Boundary != nil {
		f.ProjectBoundary = s.Boundary.Raw()
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, xerrors.New(err)
	}
	return b, nil
}

// ExportGeoJSON：FeatureCollection，顶层 properties 附带类别、贡献者与报告信息
func (s *State) ExportGeoJSON() ([]byte, error) {
	if s.Features.Len() == 0 {
		return nil, ErrNoFeatures
	}
	wc := feature.ToCollection(s.Features.All())
	props := make(map[string]json.RawMessage, 3)
	for k, v := range map[string]any{
		"categories":   s.Categories.Entries(),
		"contributors": s.contributorsOrEmpty(),
		"reportInfo":   s.ReportInfo,
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, xerrors.New(err)
		}
		props[k] = b
	}
	wc.Properties = props
	b, err := json.MarshalIndent(wc, "", "  ")
	if err != nil {
		return nil, xerrors.New(err)
	}
	return b, nil
}

// ExportCategories：类别文件（保持类别顺序）
func (s *State) ExportCategories() ([]byte, error) {
	b, err := json.MarshalIndent(s.Categories.Entries(), "", "  ")
	if err != nil {
		return nil, xerrors.New(err)
	}
	return b, nil
}

// ImportCategories：合并类别文件，返回导入的类别数
func (s *State) ImportCategories(b []byte) (int, error) {
	e, err := category.ParseJSON(b)
	if err != nil {
		return 0, err
	}
	s.Categories.Merge(e)
	logger.L().Info("categories_import_ok", "count", len(e))
	return len(e), nil
}

func (s *State) contributorsOrEmpty() []Contributor {
	if s.Contributors == nil {
		return []Contributor{}
	}
	return s.Contributors
}

// 文档注释：导入项目文件或 GeoJSON
// 背景：含 version、categories、geojson 的视为项目文件，整体替换；type 为 FeatureCollection 的视为 GeoJSON，仅替换要素并合并内嵌类别。
// 约束：全部解析完成后才修改状态，解析失败时当前状态保持不变。
func (s *State) Import(b []byte) (*ImportReport, error) {
	var peek map[string]json.RawMessage
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, xerrors.New(err)
	}
	switch {
	case present(peek["version"]) && present(peek["categories"]) && present(peek["geojson"]):
		return s.importProject(b)
	case isCollection(peek):
		return s.importGeoJSON(b)
	default:
		return nil, ErrUnrecognizedFile
	}
}

// present：字段存在且不是 null/false/空串/0
func present(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

func isCollection(peek map[string]json.RawMessage) bool {
	var t string
	if json.Unmarshal(peek["type"], &t) != nil || t != "FeatureCollection" {
		return false
	}
	var arr []json.RawMessage
	return json.Unmarshal(peek["features"], &arr) == nil && arr != nil
}

func (s *State) importProject(b []byte) (*ImportReport, error) {
	f := File{ReportInfo: DefaultReportInfo()}
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, xerrors.New(err)
	}
	var bd *boundary.Boundary
	if present(f.ProjectBoundary) {
		var err error
		if bd, err = boundary.Parse(f.ProjectBoundary); err != nil {
			return nil, xerrors.New(err)
		}
	}
	emb, err := decodeEmbedded(f.GeoJSON.Properties)
	if err != nil {
		return nil, err
	}

	next := New(nil)
	next.presets = s.presets
	next.Title = DefaultTitle
	if f.Title != "" {
		next.Title = f.Title
	}
	next.Description = f.Description
	next.Logo = f.Logo
	next.Categories.Merge(f.Categories)
	next.Categories.ReplaceVisibility(f.CategoryVisibility)
	next.OnlyWithObservations = f.ShowOnlyWithObservations
	if f.Contributors != nil {
		next.Contributors = f.Contributors
	}
	next.ReportInfo = f.ReportInfo
	next.Boundary = bd
	next.MapView = f.MapView

	rep := next.initFeatures(feature.FromCollection(f.GeoJSON), emb)
	rep.Kind = "project"
	rep.ExportedAt = f.ExportTimestamp
	*s = *next
	logger.L().Info("project_import_ok", "features", rep.Features, "reassigned", rep.Reassigned, "skipped", rep.Skipped)
	return rep, nil
}

func (s *State) importGeoJSON(b []byte) (*ImportReport, error) {
	wc, err := feature.ParseCollection(b)
	if err != nil {
		return nil, xerrors.New(err)
	}
	emb, err := decodeEmbedded(wc.Properties)
	if err != nil {
		return nil, err
	}
	rep := s.initFeatures(feature.FromCollection(wc), emb)
	rep.Kind = "geojson"
	logger.L().Info("geojson_import_ok", "features", rep.Features, "reassigned", rep.Reassigned, "skipped", rep.Skipped)
	return rep, nil
}

// embedded：GeoJSON 顶层 properties 中携带的类别与贡献者
type embedded struct {
	categories   category.Entries
	contributors []Contributor
}

func decodeEmbedded(props map[string]json.RawMessage) (embedded, error) {
	var e embedded
	if raw, ok := props["categories"]; ok && present(raw) {
		if err := json.Unmarshal(raw, &e.categories); err != nil {
			return embedded{}, xerrors.New(err)
		}
	}
	if raw, ok := props["contributors"]; ok && present(raw) {
		if err := json.Unmarshal(raw, &e.contributors); err != nil {
			return embedded{}, xerrors.New(err)
		}
	}
	return e, nil
}

// 文档注释：导入要素初始化
// 背景：合并内嵌类别；缺失或未知类别的要素归入第一个类别（无类别时创建 Imported）并计数；为要素类别创建可见性条目；批量重算缓存。
func (s *State) initFeatures(fs []*feature.Feature, emb embedded) *ImportReport {
	s.Categories.Merge(emb.categories)
	if emb.contributors != nil {
		s.Contributors = emb.contributors
	}
	def, ok := s.Categories.First()
	if !ok {
		def = ImportedCategory
		_ = s.Categories.AddDefault(def)
	}
	rep := &ImportReport{Features: len(fs), DefaultCategory: def}
	for _, f := range fs {
		f.ID = ""
		if f.Category == "" || !s.Categories.Has(f.Category) {
			f.Category = def
			rep.Reassigned++
		}
		s.Categories.EnsureVisibility(f.Category)
	}
	rep.Skipped = s.Features.Replace(fs)
	return rep
}
