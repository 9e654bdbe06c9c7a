package legend

import (
	"testing"

	"github.com/paulmach/orb"

	"site-report/internal/feature"
	"site-report/internal/project"
	"site-report/internal/visibility"
)

func build(t *testing.T) *project.State {
	t.Helper()
	s := project.New(nil)
	for _, n := range []string{"Empty", "Drainage", "Trees"} {
		if err := s.AddCategory(n, nil); err != nil {
			t.Fatal(err)
		}
	}
	a, _ := s.AddFeature(orb.Point{0, 0}, "Drainage", "")
	_, _ = s.AddFeature(orb.Point{1, 1}, "Drainage", "Inlet")
	_, _ = s.AddFeature(orb.Point{2, 2}, "Trees", "Oak")
	if _, err := s.Features.AddObservation(a.ID, feature.Observation{Severity: "Critical"}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBuildGroupsInStoreOrder(t *testing.T) {
	s := build(t)
	entries := Build(s)
	if len(entries) != 2 || entries[0].Category != "Drainage" || entries[1].Category != "Trees" {
		t.Fatalf("entries = %+v", entries)
	}
	d := entries[0]
	if d.Count != 2 || d.Highest != feature.Critical || d.HighestColor != "#ef4444" {
		t.Fatalf("drainage = %+v", d)
	}
	if d.Items[0].Name != "Unnamed" || d.Items[0].SeverityColor != "#ef4444" || d.Items[1].SeverityColor != "" {
		t.Fatalf("items = %+v", d.Items)
	}
	if entries[1].HighestColor != "" {
		t.Fatalf("trees has no observations: %+v", entries[1])
	}
}

func TestOnlyWithObservationsOmitsCategories(t *testing.T) {
	s := build(t)
	s.OnlyWithObservations = true
	entries := Build(s)
	if len(entries) != 1 || entries[0].Count != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	// 类别严重度仍按全部要素计算
	if entries[0].Highest != feature.Critical {
		t.Fatalf("highest = %v", entries[0].Highest)
	}
}

// 图例与地图对可见要素的判断一致
func TestLegendAgreesWithRenderFilter(t *testing.T) {
	s := build(t)
	s.Categories.SetVisible("Trees", false)
	listed := map[string]bool{}
	for _, e := range Build(s) {
		for _, it := range e.Items {
			listed[it.ID] = true
		}
	}
	rendered := visibility.Filter(s.Features.All(), s.Categories.Visibility(), s.OnlyWithObservations)
	if len(rendered) != len(listed) {
		t.Fatalf("legend lists %d, map renders %d", len(listed), len(rendered))
	}
	for _, f := range rendered {
		if !listed[f.ID] {
			t.Fatalf("feature %s rendered but not listed", f.ID)
		}
	}
	for _, e := range Build(s) {
		if e.Category == "Trees" && (e.Visible || e.Count != 0) {
			t.Fatalf("hidden category entry = %+v", e)
		}
	}
}
