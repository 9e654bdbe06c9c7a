package category

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"site-report/internal/geometry"
)

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Point.FillColor = "#123456"
	a.Line.Weight = 99
	b := Default()
	if b.Point.FillColor != "#ff8c00" {
		t.Fatalf("default point fill mutated: %q", b.Point.FillColor)
	}
	if b.Line.Weight != 3 {
		t.Fatalf("default line weight mutated: %v", b.Line.Weight)
	}
}

func TestAddValidation(t *testing.T) {
	s := NewStore()
	if err := s.AddDefault("Drainage"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddDefault("Drainage"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if err := s.AddDefault("   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if !s.Visible("Drainage") {
		t.Fatalf("new category should be visible")
	}
	if got := s.Visibility(); len(got) != 1 {
		t.Fatalf("visibility entries = %v", got)
	}
}

func TestRenameMovesKeyVisibilityAndCallsHooks(t *testing.T) {
	s := NewStore()
	for _, n := range []string{"A", "B", "C"} {
		if err := s.AddDefault(n); err != nil {
			t.Fatal(err)
		}
	}
	s.SetVisible("B", false)
	var calls [][2]string
	s.OnRename(func(o, n string) { calls = append(calls, [2]string{o, n}) })

	if err := s.Rename("B", "Drain"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if s.Has("B") || !s.Has("Drain") {
		t.Fatalf("store key not moved")
	}
	if s.Visible("Drain") {
		t.Fatalf("visibility flag should carry over as false")
	}
	if _, ok := s.Visibility()["B"]; ok {
		t.Fatalf("old visibility key left behind")
	}
	if want := []string{"A", "Drain", "C"}; !reflect.DeepEqual(s.Names(), want) {
		t.Fatalf("order = %v, want %v", s.Names(), want)
	}
	if len(calls) != 1 || calls[0] != [2]string{"B", "Drain"} {
		t.Fatalf("hook calls = %v", calls)
	}
}

func TestRenameErrors(t *testing.T) {
	s := NewStore()
	_ = s.AddDefault("A")
	_ = s.AddDefault("B")
	cases := []struct {
		name     string
		old, new string
		want     error
	}{
		{"missing", "Z", "Y", ErrNotFound},
		{"duplicate", "A", "B", ErrDuplicateName},
		{"empty", "A", " ", ErrEmptyName},
		{"same", "A", "A", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Rename(tc.old, tc.new)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if !reflect.DeepEqual(s.Names(), []string{"A", "B"}) {
		t.Fatalf("failed renames must not change the store: %v", s.Names())
	}
}

func TestRemoveDropsVisibility(t *testing.T) {
	s := NewStore()
	_ = s.AddDefault("A")
	_ = s.AddDefault("B")
	s.Remove("A")
	if s.Has("A") {
		t.Fatalf("category not removed")
	}
	if _, ok := s.Visibility()["A"]; ok {
		t.Fatalf("visibility entry not removed")
	}
	if first, _ := s.First(); first != "B" {
		t.Fatalf("first = %q", first)
	}
}

func TestSetStyleField(t *testing.T) {
	s := NewStore()
	_ = s.AddDefault("Drainage")

	ok, err := s.SetStyleField("Missing", geometry.Line, "weight", 4)
	if ok || err != nil {
		t.Fatalf("missing category should be a noop, got %v %v", ok, err)
	}

	cases := []struct {
		kind  geometry.Kind
		prop  string
		value any
		want  error
	}{
		{geometry.Line, "weight", "4", nil},
		{geometry.Line, "linePattern", "dashed", nil},
		{geometry.Polygon, "fillPattern", "h-lines", nil},
		{geometry.Point, "shape", "svg", nil},
		{geometry.Point, "fillOpacity", 0.5, nil},
		{geometry.Line, "linePattern", "zigzag", ErrBadValue},
		{geometry.Polygon, "fillOpacity", 1.5, ErrBadValue},
		{geometry.Line, "weight", "thick", ErrBadValue},
		{geometry.Line, "nope", 1, ErrUnknownProperty},
		{geometry.Unknown, "color", "#fff", ErrUnknownProperty},
	}
	for _, tc := range cases {
		_, err := s.SetStyleField("Drainage", tc.kind, tc.prop, tc.value)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s.%s=%v: got %v, want %v", tc.kind, tc.prop, tc.value, err, tc.want)
		}
	}
	c, _ := s.Get("Drainage")
	if c.Styles.Line.Weight != 4 || c.Styles.Line.LinePattern != "dashed" {
		t.Fatalf("line style = %+v", c.Styles.Line)
	}
	if c.Styles.Polygon.FillOpacity != 0.2 {
		t.Fatalf("rejected value was applied: %v", c.Styles.Polygon.FillOpacity)
	}
}

func TestParseJSONKeepsOrderAndFillsDefaults(t *testing.T) {
	in := []byte(`{"Zeta":{"styles":{"line":{"color":"#00ff00"}}},"Alpha":{"styles":{}}}`)
	e, err := ParseJSON(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(e) != 2 || e[0].Name != "Zeta" || e[1].Name != "Alpha" {
		t.Fatalf("order lost: %+v", e)
	}
	if e[0].Category.Styles.Line.Color != "#00ff00" {
		t.Fatalf("explicit value lost")
	}
	if e[0].Category.Styles.Line.Weight != 3 || e[1].Category.Styles.Point.Shape != "circle" {
		t.Fatalf("defaults not filled: %+v", e)
	}
}

func TestParseJSONRejectsNonCategoryFiles(t *testing.T) {
	for _, in := range []string{`{}`, `{"a":{"color":"red"}}`} {
		if _, err := ParseJSON([]byte(in)); !errors.Is(err, ErrNotCategoryFile) {
			t.Errorf("%s: got %v", in, err)
		}
	}
	if _, err := ParseJSON([]byte(`[1,2]`)); err == nil {
		t.Errorf("array accepted")
	}
}

func TestEntriesJSONRoundTrip(t *testing.T) {
	s := NewStore()
	_ = s.AddDefault("B")
	_ = s.AddDefault("A")
	_, _ = s.SetStyleField("A", geometry.Polygon, "fillPattern", "dots")
	b, err := s.Entries().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	e, err := ParseJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(e, s.Entries()) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", e, s.Entries())
	}
}

func TestLoadPresetsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.yaml")
	doc := `
Trees:
  styles:
    point:
      fillColor: "#228b22"
      shape: triangle
Drainage:
  styles:
    polygon:
      fillPattern: h-lines
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	e, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(e) != 2 || e[0].Name != "Trees" || e[1].Name != "Drainage" {
		t.Fatalf("entries = %+v", e)
	}
	if e[0].Category.Styles.Point.Shape != "triangle" || e[0].Category.Styles.Point.Size != 16 {
		t.Fatalf("point style = %+v", e[0].Category.Styles.Point)
	}

	s := NewStore()
	s.Merge(e)
	if !reflect.DeepEqual(s.Names(), []string{"Trees", "Drainage"}) {
		t.Fatalf("names = %v", s.Names())
	}
	if !s.Visible("Drainage") {
		t.Fatalf("merged category should be visible")
	}
}

func TestLoadPresetsMissingFile(t *testing.T) {
	if _, err := LoadPresets(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStyleSetPartialDecodeKeepsDefaults(t *testing.T) {
	var ss StyleSet
	if err := json.Unmarshal([]byte(`{"point":{"fillColor":"#ff0000"}}`), &ss); err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Point.FillColor = "#ff0000"
	if !reflect.DeepEqual(ss, want) {
		t.Fatalf("partial decode:\n got %+v\nwant %+v", ss, want)
	}
	if err := ss.Validate(); err != nil {
		t.Fatalf("defaults-filled set rejected: %v", err)
	}
}

func TestAddRejectsInvalidStyles(t *testing.T) {
	cases := []struct {
		name string
		edit func(*StyleSet)
	}{
		{"empty line color", func(ss *StyleSet) { ss.Line.Color = "" }},
		{"negative weight", func(ss *StyleSet) { ss.Polygon.Weight = -1 }},
		{"opacity above one", func(ss *StyleSet) { ss.Point.Opacity = 1.5 }},
		{"unknown fill pattern", func(ss *StyleSet) { ss.Polygon.FillPattern = "stripes" }},
		{"zero point size", func(ss *StyleSet) { ss.Point.Size = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore()
			ss := Default()
			tc.edit(&ss)
			if err := s.Add("Pipes", ss); !errors.Is(err, ErrBadValue) {
				t.Fatalf("got %v, want ErrBadValue", err)
			}
			if s.Has("Pipes") || len(s.Visibility()) != 0 {
				t.Fatalf("store mutated on rejected add")
			}
		})
	}
}

func TestMergeFallsBackToDefaultsForInvalidFields(t *testing.T) {
	e, err := ParseJSON([]byte(`{"Zone":{"styles":{
		"polygon":{"fillPattern":"stripes","weight":-2,"fillColor":"#00ff00"},
		"line":{"opacity":7,"color":""},
		"point":{"shape":"hexagon"}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore()
	s.Merge(e)
	c, ok := s.Get("Zone")
	if !ok {
		t.Fatal("category not merged")
	}
	def := Default()
	got := c.Styles
	if got.Polygon.FillPattern != "solid" || got.Polygon.Weight != def.Polygon.Weight {
		t.Fatalf("polygon = %+v", got.Polygon)
	}
	if got.Polygon.FillColor != "#00ff00" {
		t.Fatalf("valid field replaced: %q", got.Polygon.FillColor)
	}
	if got.Line.Opacity != def.Line.Opacity || got.Line.Color != def.Line.Color {
		t.Fatalf("line = %+v", got.Line)
	}
	if got.Point.Shape != "circle" {
		t.Fatalf("point shape = %q", got.Point.Shape)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("merged styles still invalid: %v", err)
	}
}

func TestVisibilityOnlyForKnownCategories(t *testing.T) {
	s := NewStore()
	_ = s.AddDefault("Trees")
	_ = s.AddDefault("Drainage")
	if err := s.SetVisible("Ghost", false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetVisible unknown = %v", err)
	}
	if err := s.SetVisible("Trees", false); err != nil {
		t.Fatal(err)
	}
	s.ReplaceVisibility(map[string]bool{"Trees": true, "Drainage": false, "Ghost": false})
	want := map[string]bool{"Trees": true, "Drainage": false}
	if got := s.Visibility(); !reflect.DeepEqual(got, want) {
		t.Fatalf("visibility = %v, want %v", got, want)
	}
	s.ReplaceVisibility(nil)
	if got := s.Visibility(); !got["Trees"] || !got["Drainage"] || len(got) != 2 {
		t.Fatalf("missing entries should default visible: %v", got)
	}
}
