package feature

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"site-report/internal/geometry"
)

func square() orb.Polygon {
	return orb.Polygon{{{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0.001}, {0, 0}}}
}

func TestHighestSeverity(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want Severity
	}{
		{"empty", nil, None},
		{"mixed", []string{"Low", "Critical", "Medium"}, Critical},
		{"single", []string{"High"}, High},
		{"unknown only", []string{"Weird"}, Low},
		{"case", []string{"medium"}, Medium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var obs []Observation
			for _, s := range tc.in {
				obs = append(obs, Observation{Severity: s})
			}
			if got := HighestSeverity(obs); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRecomputePolygon(t *testing.T) {
	f := New(square(), "Drainage")
	c := f.Cache
	if !c.HasGeometry {
		t.Fatalf("centroid missing")
	}
	if math.Abs(c.Centroid.Lon()-0.0005) > 1e-9 || math.Abs(c.Centroid.Lat()-0.0005) > 1e-9 {
		t.Fatalf("centroid = %v", c.Centroid)
	}
	if c.LengthLabel != "Perimeter" || c.LengthFeet <= 0 {
		t.Fatalf("perimeter = %q %v", c.LengthLabel, c.LengthFeet)
	}
	if c.AreaSqFt <= 0 || c.AreaAcres <= 0 {
		t.Fatalf("area = %v / %v", c.AreaSqFt, c.AreaAcres)
	}
	if math.Abs(c.AreaSqFt/geometry.SquareFeetPerMeter*1/geometry.SquareMetersPerAcre-c.AreaAcres) > 1e-9 {
		t.Fatalf("sq ft and acres disagree")
	}
	labels := []string{}
	for _, r := range c.Rows {
		labels = append(labels, r.Label)
	}
	want := []string{"Latitude", "Longitude", "Perimeter", "Area (sq ft)", "Area (acres)"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("rows = %v", labels)
	}
	if c.Highest != None {
		t.Fatalf("no observations should give no severity, got %v", c.Highest)
	}
}

func TestRecomputeLineAndPoint(t *testing.T) {
	l := New(orb.LineString{{0, 0}, {0, 0.01}}, "A")
	if l.Cache.LengthLabel != "Length" || l.Cache.AreaSqFt != 0 {
		t.Fatalf("line cache = %+v", l.Cache)
	}
	// 0.01 degree of latitude is roughly 1.11 km
	if ft := l.Cache.LengthFeet; ft < 3600 || ft > 3700 {
		t.Fatalf("length ft = %v", ft)
	}
	p := New(orb.Point{10, 20}, "A")
	if len(p.Cache.Rows) != 2 || p.Cache.Rows[0].Value != "20.000000" {
		t.Fatalf("point rows = %+v", p.Cache.Rows)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	f := New(square(), "A")
	f.Observations = []Observation{{Severity: "High"}}
	Recompute(f)
	first := f.Cache
	Recompute(f)
	if !reflect.DeepEqual(first, f.Cache) {
		t.Fatalf("recompute not idempotent:\n%+v\n%+v", first, f.Cache)
	}
}

func TestRecomputeAllSkipsMissingGeometry(t *testing.T) {
	fs := []*Feature{New(square(), "A"), nil, {Category: "A"}}
	if skipped := RecomputeAll(fs); skipped != 2 {
		t.Fatalf("skipped = %d", skipped)
	}
}

func TestFormatNumber(t *testing.T) {
	if got := formatNumber(1234.5678, 2); got != "1,234.57" {
		t.Fatalf("got %q", got)
	}
}

func TestCollectionMutatorsRecompute(t *testing.T) {
	c := NewCollection()
	f := New(orb.Point{1, 1}, "A")
	if err := c.Add(f); err != nil {
		t.Fatal(err)
	}
	o, err := c.AddObservation(f.ID, Observation{Severity: "Medium"})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID == "" || f.Cache.Highest != Medium {
		t.Fatalf("observation id %q, highest %v", o.ID, f.Cache.Highest)
	}
	o.Severity = "Critical"
	if err := c.UpdateObservation(f.ID, o); err != nil {
		t.Fatal(err)
	}
	if f.Cache.Highest != Critical {
		t.Fatalf("highest after update = %v", f.Cache.Highest)
	}
	if err := c.RemoveObservation(f.ID, o.ID); err != nil {
		t.Fatal(err)
	}
	if f.Cache.Highest != None {
		t.Fatalf("highest after remove = %v", f.Cache.Highest)
	}
	if err := c.UpdateGeometry(f.ID, square()); err != nil {
		t.Fatal(err)
	}
	if f.Cache.LengthLabel != "Perimeter" {
		t.Fatalf("geometry update did not recompute")
	}
	if err := c.RemoveObservation(f.ID, "nope"); !errors.Is(err, ErrObservationNotFound) {
		t.Fatalf("got %v", err)
	}
	if err := c.UpdateGeometry("nope", square()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestCollectionRejectsInvalidGeometry(t *testing.T) {
	c := NewCollection()
	bowtie := orb.Polygon{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}
	cases := []struct {
		name string
		g    orb.Geometry
		want error
	}{
		{"nil", nil, geometry.ErrEmptyGeometry},
		{"short line", orb.LineString{{0, 0}}, geometry.ErrTooFewPoints},
		{"bowtie", bowtie, geometry.ErrSelfIntersection},
	}
	for _, tc := range cases {
		if err := c.Add(&Feature{Geometry: tc.g}); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("rejected features were stored")
	}

	f := New(square(), "A")
	_ = c.Add(f)
	if err := c.UpdateGeometry(f.ID, bowtie); !errors.Is(err, geometry.ErrSelfIntersection) {
		t.Fatalf("got %v", err)
	}
	if _, ok := f.Geometry.(orb.Polygon); !ok || f.Cache.AreaSqFt == 0 {
		t.Fatalf("failed update changed the feature")
	}
}

func TestCollectionCategoryCascades(t *testing.T) {
	c := NewCollection()
	for _, cat := range []string{"A", "B", "A"} {
		_ = c.Add(New(orb.Point{0, 0}, cat))
	}
	c.RenameCategory("A", "C")
	if len(c.ByCategory("A")) != 0 || len(c.ByCategory("C")) != 2 {
		t.Fatalf("rename left references behind")
	}
	if n := c.ReassignCategory("B", "C"); n != 1 {
		t.Fatalf("reassigned %d", n)
	}
	if n := c.DeleteByCategory("C"); n != 3 || c.Len() != 0 {
		t.Fatalf("deleted %d, left %d", n, c.Len())
	}
}

func TestNearest(t *testing.T) {
	var fs []*Feature
	for i := 0; i < 20; i++ {
		fs = append(fs, New(orb.Point{float64(i) * 0.01, float64(i%5) * 0.01}, "A"))
	}
	target := fs[13]
	got, d := Nearest(fs, target.Cache.Centroid.Lon()+0.0001, target.Cache.Centroid.Lat())
	if got != target {
		t.Fatalf("nearest = %v, want %v", got.Cache.Centroid, target.Cache.Centroid)
	}
	if d <= 0 || d > 20 {
		t.Fatalf("distance = %v m", d)
	}
	if f, _ := Nearest(nil, 0, 0); f != nil {
		t.Fatalf("empty set returned %v", f)
	}
}

func TestWireRoundTripStripsInternalFields(t *testing.T) {
	in := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},
		 "properties":{"Name":"Inlet","category":"Drainage","_internalId":"x","_cachedSeverity":"Low",
		 "observations":[{"id":"o1","severity":"High","observationType":"Stormwater"}],"custom":{"a":1}}},
		{"type":"Feature","geometry":null,"properties":{}}]}`)
	wc, err := ParseCollection(in)
	if err != nil {
		t.Fatal(err)
	}
	fs := FromCollection(wc)
	if len(fs) != 2 {
		t.Fatalf("features = %d", len(fs))
	}
	f := fs[0]
	if f.Name != "Inlet" || f.Category != "Drainage" || !f.ShowLabel || len(f.Observations) != 1 {
		t.Fatalf("decoded = %+v", f)
	}
	if _, ok := f.Extra["_internalId"]; ok {
		t.Fatalf("internal id kept as extra")
	}
	if fs[1].Geometry != nil || fs[1].Observations == nil {
		t.Fatalf("null geometry feature = %+v", fs[1])
	}

	b, err := json.Marshal(ToCollection(fs))
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]any
	_ = json.Unmarshal(b, &back)
	props := back["features"].([]any)[0].(map[string]any)["properties"].(map[string]any)
	for _, k := range []string{"_internalId", "_cachedSeverity", "_cache"} {
		if _, ok := props[k]; ok {
			t.Fatalf("exported internal key %s", k)
		}
	}
	if _, ok := props["custom"]; !ok {
		t.Fatalf("extra property lost")
	}

	again := FromCollection(mustParse(t, b))
	if !reflect.DeepEqual(again[0].Observations, f.Observations) || again[0].Geometry != f.Geometry {
		t.Fatalf("round trip changed feature: %+v", again[0])
	}
}

func mustParse(t *testing.T, b []byte) WireCollection {
	t.Helper()
	wc, err := ParseCollection(b)
	if err != nil {
		t.Fatal(err)
	}
	return wc
}

func TestParseCollectionRejectsOtherDocuments(t *testing.T) {
	if _, err := ParseCollection([]byte(`{"type":"Feature"}`)); !errors.Is(err, ErrNotFeatureCollection) {
		t.Fatalf("got %v", err)
	}
}
