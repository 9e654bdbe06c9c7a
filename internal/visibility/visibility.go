// 包 visibility：要素可见性判定；地图渲染与图例列表共用同一谓词，两者对“可见”的判断不会出现分歧
package visibility

import "site-report/internal/feature"

// IsVisible：类别未被显式隐藏（缺失条目视为可见），且在仅显示有观测模式下至少有一条观测
func IsVisible(f *feature.Feature, categoryVisibility map[string]bool, onlyWithObservations bool) bool {
	if f == nil {
		return false
	}
	if v, ok := categoryVisibility[f.Category]; ok && !v {
		return false
	}
	return !onlyWithObservations || f.HasObservations()
}

// Filter：按 IsVisible 过滤，保持原有顺序
func Filter(fs []*feature.Feature, categoryVisibility map[string]bool, onlyWithObservations bool) []*feature.Feature {
	out := make([]*feature.Feature, 0, len(fs))
	for _, f := range fs {
		if IsVisible(f, categoryVisibility, onlyWithObservations) {
			out = append(out, f)
		}
	}
	return out
}
