// 包 project：项目状态；持有类别存储、要素集合、贡献者、报告信息、边界与视图，并负责整项目导入导出
package project

import (
	"errors"
	"strings"

	"github.com/paulmach/orb"

	"site-report/internal/boundary"
	"site-report/internal/category"
	"site-report/internal/feature"
	"site-report/internal/logger"
	"site-report/internal/style"
	"site-report/internal/visibility"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrSameCategory    = errors.New("replacement category must differ from the removed one")
)

// 默认取值
const (
	DefaultTitle       = "Site Analysis Report"
	DefaultDescription = "An interactive overview of the site features and raster data."
	ImportedCategory   = "Imported"
)

// ReportInfo：报告封面信息
type ReportInfo struct {
	ClientName    string `json:"clientName"`
	ClientContact string `json:"clientContact"`
	ClientAddress string `json:"clientAddress"`
	ProjectID     string `json:"projectId"`
	ReportDate    string `json:"reportDate"`
	ReportStatus  string `json:"reportStatus"`
}

func DefaultReportInfo() ReportInfo { return ReportInfo{ReportStatus: "Draft"} }

// LatLng / MapView：导出时记录的地图视图
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type MapView struct {
	Center LatLng  `json:"center"`
	Zoom   float64 `json:"zoom"`
}

// 文档注释：项目状态
// 背景：显式的应用状态结构，类别存储拥有类别与可见性，要素集合拥有要素与缓存；改名钩子在构造时接好。
// 约束：非并发安全，由上层工作区串行化访问。
type State struct {
	Title                string
	Description          string
	Logo                 *string
	Categories           *category.Store
	Features             *feature.Collection
	Contributors         []Contributor
	ReportInfo           ReportInfo
	Boundary             *boundary.Boundary
	MapView              *MapView
	OnlyWithObservations bool

	presets  category.Entries
	resolver *style.Resolver
}

// New：默认项目状态，预设类别按顺序加入
func New(presets category.Entries) *State {
	s := &State{
		Title:        DefaultTitle,
		Description:  DefaultDescription,
		Categories:   category.NewStore(),
		Features:     feature.NewCollection(),
		Contributors: DefaultContributors(),
		ReportInfo:   DefaultReportInfo(),
		presets:      presets,
	}
	s.Categories.OnRename(s.Features.RenameCategory)
	s.Categories.Merge(presets)
	s.resolver = style.NewResolver(s.Categories)
	return s
}

// Reset：恢复为默认状态
func (s *State) Reset() {
	*s = *New(s.presets)
	logger.L().Info("project_reset")
}

// Resolver：绑定本项目类别存储的样式解析器
func (s *State) Resolver() *style.Resolver { return s.resolver }

// Visible：通过可见性过滤的要素（渲染与图例共用）
func (s *State) Visible() []*feature.Feature {
	return visibility.Filter(s.Features.All(), s.Categories.Visibility(), s.OnlyWithObservations)
}

// InsideBoundary：要素缓存质心是否落在项目边界内；无边界时为 false
func (s *State) InsideBoundary(f *feature.Feature) bool {
	if s.Boundary == nil || f == nil || !f.Cache.HasGeometry {
		return false
	}
	return s.Boundary.Contains(f.Cache.Centroid)
}

// AddCategory：以默认样式新增类别
func (s *State) AddCategory(name string, styles *category.StyleSet) error {
	if styles == nil {
		return s.Categories.AddDefault(name)
	}
	return s.Categories.Add(name, *styles)
}

// RenameCategory：存储键、可见性键与要素引用在本次调用内全部更新
func (s *State) RenameCategory(oldName, newName string) error {
	return s.Categories.Rename(oldName, strings.TrimSpace(newName))
}

// 文档注释：删除类别并级联删除其要素
// 背景：删除后要素列表中不再存在引用已删类别的要素。
// 返回：被删除的要素数量。
func (s *State) RemoveCategory(name string) int {
	n := s.Features.DeleteByCategory(name)
	s.Categories.Remove(name)
	logger.L().Info("category_removed", "name", name, "features_deleted", n)
	return n
}

// RemoveCategoryReassign：删除类别，其要素改挂到另一已有类别
func (s *State) RemoveCategoryReassign(name, to string) (int, error) {
	if name == to {
		return 0, ErrSameCategory
	}
	if !s.Categories.Has(to) {
		return 0, ErrUnknownCategory
	}
	n := s.Features.ReassignCategory(name, to)
	s.Categories.Remove(name)
	logger.L().Info("category_removed", "name", name, "features_reassigned", n, "to", to)
	return n, nil
}

// 文档注释：新增要素
// 背景：类别为空时归入第一个类别；类别不存在时拒绝；几何校验失败时拒绝，状态不变。
func (s *State) AddFeature(g orb.Geometry, categoryName, name string) (*feature.Feature, error) {
	if categoryName == "" {
		first, ok := s.Categories.First()
		if !ok {
			return nil, ErrUnknownCategory
		}
		categoryName = first
	}
	if !s.Categories.Has(categoryName) {
		return nil, ErrUnknownCategory
	}
	f := &feature.Feature{
		Geometry:  g,
		Name:      name,
		Category:  categoryName,
		ShowLabel: true,
		Images:    []feature.Image{},
	}
	if err := s.Features.Add(f); err != nil {
		return nil, err
	}
	s.Categories.EnsureVisibility(categoryName)
	return f, nil
}

// UpdateFeature：属性更新；改类别时目标类别必须存在
func (s *State) UpdateFeature(id string, p feature.Patch) error {
	if p.Category != nil && !s.Categories.Has(*p.Category) {
		return ErrUnknownCategory
	}
	return s.Features.UpdateProperties(id, p)
}

// Nearest：在可见要素中查找离坐标最近的要素
func (s *State) Nearest(lon, lat float64) (*feature.Feature, float64) {
	return feature.Nearest(s.Visible(), lon, lat)
}

// SetBoundary：设置或清除（raw 为空）项目边界
func (s *State) SetBoundary(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		s.Boundary = nil
		return nil
	}
	b, err := boundary.Parse(raw)
	if err != nil {
		return err
	}
	s.Boundary = b
	return nil
}
