package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"site-report/internal/legend"
	"site-report/internal/project"
	"site-report/internal/store"
)

// memStore：测试用的内存项目存储
type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (m *memStore) SaveProject(_ context.Context, name, title string, n int, doc []byte) error {
	name, err := store.NormalizeName(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), doc...)
	return nil
}

func (m *memStore) LoadProject(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.docs[name]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return b, nil
}

func (m *memStore) ListProjects(context.Context) ([]store.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Summary{}
	for k := range m.docs {
		out = append(out, store.Summary{Name: k})
	}
	return out, nil
}

func (m *memStore) DeleteProject(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[name]; !ok {
		return store.ErrProjectNotFound
	}
	delete(m.docs, name)
	return nil
}

type harness struct {
	t   *testing.T
	srv *httptest.Server
	ws  *Workspace
}

func newHarness(t *testing.T, ps ProjectStore) *harness {
	t.Helper()
	ws := NewWorkspace(Options{Projects: ps, MaxImportBytes: 1 << 20})
	ws.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	srv := httptest.NewServer(BuildRoutes(ws))
	t.Cleanup(srv.Close)
	return &harness{t: t, srv: srv, ws: ws}
}

func (h *harness) do(method, path string, body any) (int, []byte) {
	h.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			h.t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	if err != nil {
		h.t.Fatal(err)
	}
	resp, err := h.srv.Client().Do(req)
	if err != nil {
		h.t.Fatal(err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (h *harness) mustDo(method, path string, body any, want int) []byte {
	h.t.Helper()
	code, out := h.do(method, path, body)
	if code != want {
		h.t.Fatalf("%s %s = %d, want %d: %s", method, path, code, want, out)
	}
	return out
}

// seed：两个类别、一个面、一条线、一个带观测的点
func (h *harness) seed() (polyID, pointID string) {
	h.mustDo("POST", "/categories", map[string]any{"name": "Drainage"}, http.StatusCreated)
	h.mustDo("POST", "/categories", map[string]any{"name": "Trees"}, http.StatusCreated)
	var f featureView
	out := h.mustDo("POST", "/features", map[string]any{
		"category": "Drainage", "name": "Pond",
		"geometry": map[string]any{"type": "Polygon", "coordinates": [][][]float64{{{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0.001}, {0, 0}}}},
	}, http.StatusCreated)
	_ = json.Unmarshal(out, &f)
	polyID = f.ID
	h.mustDo("POST", "/features", map[string]any{
		"category": "Drainage",
		"geometry": map[string]any{"type": "LineString", "coordinates": [][]float64{{0, 0}, {0.002, 0.001}}},
	}, http.StatusCreated)
	out = h.mustDo("POST", "/features", map[string]any{
		"category": "Trees", "name": "Oak",
		"geometry": map[string]any{"type": "Point", "coordinates": []float64{0.01, 0.01}},
	}, http.StatusCreated)
	_ = json.Unmarshal(out, &f)
	pointID = f.ID
	h.mustDo("POST", "/observations", map[string]any{
		"featureId": pointID, "observation": map[string]any{"severity": "High", "observationType": "Damage"},
	}, http.StatusCreated)
	return polyID, pointID
}

func TestAddFeatureComputesDerivedRows(t *testing.T) {
	h := newHarness(t, nil)
	polyID, _ := h.seed()
	var list []featureView
	_ = json.Unmarshal(h.mustDo("GET", "/features", nil, http.StatusOK), &list)
	if len(list) != 3 || list[0].ID != polyID {
		t.Fatalf("features = %+v", list)
	}
	labels := []string{}
	for _, r := range list[0].Info {
		labels = append(labels, r.Label)
	}
	if strings.Join(labels, ",") != "Latitude,Longitude,Perimeter,Area (sq ft),Area (acres)" {
		t.Fatalf("rows = %v", labels)
	}
}

func TestValidationErrorsLeaveStateUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"duplicate category", "POST", "/categories", map[string]any{"name": "Trees"}, http.StatusConflict},
		{"empty category", "POST", "/categories", map[string]any{"name": " "}, http.StatusBadRequest},
		{"unknown category", "POST", "/features", map[string]any{"category": "Nope", "geometry": map[string]any{"type": "Point", "coordinates": []float64{0, 0}}}, http.StatusBadRequest},
		{"bowtie", "POST", "/features", map[string]any{"category": "Trees", "geometry": map[string]any{"type": "Polygon", "coordinates": [][][]float64{{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}}}}, http.StatusBadRequest},
		{"missing geometry", "POST", "/features", map[string]any{"category": "Trees"}, http.StatusBadRequest},
		{"bad json", "POST", "/categories", "{", http.StatusBadRequest},
		{"bad style value", "POST", "/categories/style", map[string]any{"category": "Trees", "kind": "point", "property": "fillOpacity", "value": 3}, http.StatusBadRequest},
		{"unknown feature", "POST", "/features/delete", map[string]any{"id": "missing"}, http.StatusNotFound},
		{"rename to existing", "POST", "/categories/rename", map[string]any{"from": "Trees", "to": "Drainage"}, http.StatusConflict},
		{"delete unknown category", "POST", "/categories/delete", map[string]any{"name": "Nope"}, http.StatusNotFound},
		{"duplicate contributor", "POST", "/contributors", map[string]any{"name": "default user"}, http.StatusConflict},
		{"store disabled", "GET", "/projects", nil, http.StatusServiceUnavailable},
		{"invalid add styles", "POST", "/categories", map[string]any{"name": "Pipes", "styles": map[string]any{"line": map[string]any{"weight": -1}}}, http.StatusBadRequest},
		{"hide unknown category", "POST", "/categories/visibility", map[string]any{"category": "Nope", "visible": false}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h.t = t
			h.mustDo(tc.method, tc.path, tc.body, tc.want)
			var list []featureView
			_ = json.Unmarshal(h.mustDo("GET", "/features", nil, http.StatusOK), &list)
			if len(list) != 3 {
				t.Fatalf("feature count changed to %d", len(list))
			}
		})
	}
}

func TestRenameCategoryUpdatesLegendAndScene(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	h.mustDo("POST", "/categories/style", map[string]any{"category": "Drainage", "kind": "polygon", "property": "fillPattern", "value": "h-lines"}, http.StatusOK)
	h.mustDo("POST", "/categories/rename", map[string]any{"from": "Drainage", "to": "Storm Water"}, http.StatusNoContent)

	var entries []legend.Entry
	_ = json.Unmarshal(h.mustDo("GET", "/legend", nil, http.StatusOK), &entries)
	if len(entries) != 2 || entries[0].Category != "Storm Water" || entries[0].Count != 2 {
		t.Fatalf("legend = %+v", entries)
	}
	scene := string(h.mustDo("GET", "/scene", nil, http.StatusOK))
	if !strings.Contains(scene, `"fill":"h-lines-Storm-Water"`) || strings.Contains(scene, "Drainage") {
		t.Fatalf("scene = %s", scene)
	}
}

func TestVisibilityAndObservationFilter(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	count := func() int {
		var sc struct {
			Items []json.RawMessage `json:"items"`
		}
		_ = json.Unmarshal(h.mustDo("GET", "/scene", nil, http.StatusOK), &sc)
		return len(sc.Items)
	}
	if n := count(); n != 3 {
		t.Fatalf("all visible = %d", n)
	}
	h.mustDo("POST", "/categories/visibility", map[string]any{"category": "Drainage", "visible": false}, http.StatusNoContent)
	if n := count(); n != 1 {
		t.Fatalf("drainage hidden = %d", n)
	}
	h.mustDo("POST", "/categories/visibility", map[string]any{"category": "Drainage", "visible": true}, http.StatusNoContent)
	h.mustDo("POST", "/filter/observations", map[string]any{"enabled": true}, http.StatusNoContent)
	if n := count(); n != 1 {
		t.Fatalf("observations only = %d", n)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	doc := h.mustDo("GET", "/project/export", nil, http.StatusOK)
	if !strings.Contains(string(doc), `"exportTimestamp": "2026-03-04T05:06:07.000Z"`) {
		t.Fatalf("timestamp missing: %s", doc)
	}
	h.mustDo("POST", "/project/reset", nil, http.StatusNoContent)
	var sum summaryView
	_ = json.Unmarshal(h.mustDo("GET", "/project", nil, http.StatusOK), &sum)
	if sum.Features != 0 || len(sum.Contributors) != 1 {
		t.Fatalf("after reset = %+v", sum)
	}
	var rep project.ImportReport
	_ = json.Unmarshal(h.mustDo("POST", "/project/import", doc, http.StatusOK), &rep)
	if rep.Kind != "project" || rep.Features != 3 || rep.Reassigned != 0 {
		t.Fatalf("report = %+v", rep)
	}
	again := h.mustDo("GET", "/project/export", nil, http.StatusOK)
	if !bytes.Equal(doc, again) {
		t.Fatalf("export changed after round trip\n%s\n%s", doc, again)
	}
}

func TestImportRejectsUnknownFile(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	h.mustDo("POST", "/project/import", `{"hello":"world"}`, http.StatusBadRequest)
	h.mustDo("POST", "/project/import", `not json`, http.StatusBadRequest)
	var sum summaryView
	_ = json.Unmarshal(h.mustDo("GET", "/project", nil, http.StatusOK), &sum)
	if sum.Features != 3 {
		t.Fatalf("failed import changed state: %+v", sum)
	}
}

func TestImportTooLarge(t *testing.T) {
	h := newHarness(t, nil)
	h.ws.maxBody = 16
	h.mustDo("POST", "/project/import", `{"type":"FeatureCollection","features":[]}`, http.StatusRequestEntityTooLarge)
}

func TestSwatchAndNearest(t *testing.T) {
	h := newHarness(t, nil)
	polyID, pointID := h.seed()
	b := h.mustDo("GET", "/swatch?id="+polyID, nil, http.StatusOK)
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 32 {
		t.Fatalf("swatch width = %d", img.Bounds().Dx())
	}
	h.mustDo("GET", "/swatch?id=missing", nil, http.StatusNotFound)
	h.mustDo("GET", "/swatch?id="+polyID+"&size=0", nil, http.StatusBadRequest)

	var near struct {
		Feature featureView `json:"feature"`
	}
	_ = json.Unmarshal(h.mustDo("GET", "/features/nearest?lat=0.0099&lon=0.0101", nil, http.StatusOK), &near)
	if near.Feature.ID != pointID {
		t.Fatalf("nearest = %+v", near.Feature)
	}
	h.mustDo("GET", "/features/nearest?lat=abc&lon=0", nil, http.StatusBadRequest)
}

func TestCategoryDeleteCascadeAndReassign(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	var res map[string]int
	_ = json.Unmarshal(h.mustDo("POST", "/categories/delete", map[string]any{"name": "Drainage", "reassignTo": "Trees"}, http.StatusOK), &res)
	if res["features"] != 2 {
		t.Fatalf("reassigned = %v", res)
	}
	_ = json.Unmarshal(h.mustDo("POST", "/categories/delete", map[string]any{"name": "Trees"}, http.StatusOK), &res)
	if res["features"] != 3 {
		t.Fatalf("deleted = %v", res)
	}
	h.mustDo("GET", "/project/export.geojson", nil, http.StatusBadRequest)
}

func TestSavedProjects(t *testing.T) {
	ms := &memStore{docs: map[string][]byte{}}
	h := newHarness(t, ms)
	h.seed()
	h.mustDo("POST", "/projects", map[string]any{"name": "Site A"}, http.StatusNoContent)
	h.mustDo("POST", "/projects", map[string]any{"name": ""}, http.StatusBadRequest)
	var list []store.Summary
	_ = json.Unmarshal(h.mustDo("GET", "/projects", nil, http.StatusOK), &list)
	if len(list) != 1 || list[0].Name != "Site A" {
		t.Fatalf("list = %+v", list)
	}
	h.mustDo("POST", "/project/reset", nil, http.StatusNoContent)
	var rep project.ImportReport
	_ = json.Unmarshal(h.mustDo("POST", "/projects/load", map[string]any{"name": "Site A"}, http.StatusOK), &rep)
	if rep.Features != 3 {
		t.Fatalf("loaded = %+v", rep)
	}
	h.mustDo("POST", "/projects/load", map[string]any{"name": "Nope"}, http.StatusNotFound)
	h.mustDo("POST", "/projects/delete", map[string]any{"name": "Site A"}, http.StatusNoContent)
	h.mustDo("POST", "/projects/delete", map[string]any{"name": "Site A"}, http.StatusNotFound)
}

// sceneStyles：场景中按要素名取样式原始 JSON
func (h *harness) sceneStyles() (map[string]map[string]any, int) {
	h.t.Helper()
	var sc struct {
		Items []struct {
			Name  string         `json:"name"`
			Style map[string]any `json:"style"`
		} `json:"items"`
		Patterns []json.RawMessage `json:"patterns"`
	}
	if err := json.Unmarshal(h.mustDo("GET", "/scene", nil, http.StatusOK), &sc); err != nil {
		h.t.Fatal(err)
	}
	out := map[string]map[string]any{}
	for _, it := range sc.Items {
		out[it.Name] = it.Style
	}
	return out, len(sc.Patterns)
}

func TestPartialStylesAreCompleted(t *testing.T) {
	h := newHarness(t, nil)
	h.mustDo("POST", "/categories", map[string]any{
		"name": "Pipes", "styles": map[string]any{"point": map[string]any{"fillColor": "#ff0000"}},
	}, http.StatusCreated)
	h.mustDo("POST", "/features", map[string]any{
		"category": "Pipes", "name": "Main",
		"geometry": map[string]any{"type": "LineString", "coordinates": [][]float64{{0, 0}, {0.001, 0.001}}},
	}, http.StatusCreated)
	h.mustDo("POST", "/features", map[string]any{
		"category": "Pipes", "name": "Valve",
		"geometry": map[string]any{"type": "Point", "coordinates": []float64{0, 0}},
	}, http.StatusCreated)

	styles, _ := h.sceneStyles()
	line := styles["Main"]
	if line["color"] != "#ff4500" || line["weight"] != 3.0 || line["opacity"] != 1.0 {
		t.Fatalf("line style = %v", line)
	}
	if pt := styles["Valve"]; pt["fillColor"] != "#ff0000" || pt["color"] != "#000000" {
		t.Fatalf("point style = %v", pt)
	}
}

func TestImportedInvalidPatternRendersSolid(t *testing.T) {
	h := newHarness(t, nil)
	h.mustDo("POST", "/categories/import", `{"Zone":{"styles":{"polygon":{"fillPattern":"stripes","opacity":4}}}}`, http.StatusOK)
	h.mustDo("POST", "/features", map[string]any{
		"category": "Zone", "name": "Lot",
		"geometry": map[string]any{"type": "Polygon", "coordinates": [][][]float64{{{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0}}}},
	}, http.StatusCreated)

	styles, patterns := h.sceneStyles()
	lot := styles["Lot"]
	if lot["fill"] != lot["fillColor"] || lot["fillPattern"] != "solid" || lot["opacity"] != 1.0 {
		t.Fatalf("polygon style = %v", lot)
	}
	if patterns != 0 {
		t.Fatalf("patterns = %d", patterns)
	}
}

func TestImportDropsStaleVisibility(t *testing.T) {
	h := newHarness(t, nil)
	h.seed()
	doc := h.mustDo("GET", "/project/export", nil, http.StatusOK)
	var m map[string]json.RawMessage
	if err := json.Unmarshal(doc, &m); err != nil {
		t.Fatal(err)
	}
	m["categoryVisibility"] = json.RawMessage(`{"Drainage":false,"Ghost":true}`)
	edited, _ := json.Marshal(m)
	h.mustDo("POST", "/project/import", edited, http.StatusOK)

	out := h.mustDo("GET", "/project/export", nil, http.StatusOK)
	var back struct {
		CategoryVisibility map[string]bool `json:"categoryVisibility"`
	}
	_ = json.Unmarshal(out, &back)
	want := map[string]bool{"Drainage": false, "Trees": true}
	if len(back.CategoryVisibility) != 2 || back.CategoryVisibility["Drainage"] || !back.CategoryVisibility["Trees"] {
		t.Fatalf("visibility = %v, want %v", back.CategoryVisibility, want)
	}
}
