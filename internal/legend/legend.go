// 包 legend：图例与要素列表；按类别顺序分组可见要素，附带数量与严重度标识
package legend

import (
	"site-report/internal/feature"
	"site-report/internal/geometry"
	"site-report/internal/project"
	"site-report/internal/visibility"
)

// Item：图例中的单个要素
type Item struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	Severity       feature.Severity `json:"severity"`
	SeverityColor  string           `json:"severityColor,omitempty"`
	InsideBoundary bool             `json:"insideBoundary"`
}

// Entry：一个类别分组
type Entry struct {
	Category     string           `json:"category"`
	Visible      bool             `json:"visible"`
	Count        int              `json:"count"`
	Highest      feature.Severity `json:"highestSeverity"`
	HighestColor string           `json:"highestColor,omitempty"`
	Items        []Item           `json:"items"`
}

// 文档注释：构建图例
// 背景：列表与地图使用同一可见性谓词；类别整体被隐藏时仍保留分组（数量为 0），便于重新勾选。
// 约束：没有任何要素的类别不出现；开启“仅显示有观测”且无可见要素的类别不出现；类别严重度按该类别全部要素计算。
func Build(s *project.State) []Entry {
	vis := s.Categories.Visibility()
	out := []Entry{}
	for _, name := range s.Categories.Names() {
		all := s.Features.ByCategory(name)
		if len(all) == 0 {
			continue
		}
		shown := visibility.Filter(all, vis, s.OnlyWithObservations)
		if len(shown) == 0 && s.OnlyWithObservations {
			continue
		}
		e := Entry{
			Category: name,
			Visible:  s.Categories.Visible(name),
			Count:    len(shown),
			Highest:  highest(all),
			Items:    make([]Item, 0, len(shown)),
		}
		if e.Highest != feature.None {
			e.HighestColor = e.Highest.Color()
		}
		for _, f := range shown {
			it := Item{
				ID:             f.ID,
				Name:           f.DisplayName(),
				Kind:           geometry.KindOf(f.Geometry).String(),
				Severity:       f.Cache.Highest,
				InsideBoundary: s.InsideBoundary(f),
			}
			if it.Severity != feature.None {
				it.SeverityColor = it.Severity.Color()
			}
			e.Items = append(e.Items, it)
		}
		out = append(out, e)
	}
	return out
}

func highest(fs []*feature.Feature) feature.Severity {
	best := feature.None
	for _, f := range fs {
		if f.Cache.Highest > best {
			best = f.Cache.Highest
		}
	}
	return best
}
