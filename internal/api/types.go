package api

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"

	"site-report/internal/category"
	"site-report/internal/feature"
	"site-report/internal/geometry"
	"site-report/internal/project"
)

// 文档注释：要素对外结构
// 背景：在导出属性之外附带内部 ID、几何类型与派生信息行，供列表与弹窗直接展示。
type featureView struct {
	ID              string                `json:"id"`
	Kind            string                `json:"kind"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Category        string                `json:"category"`
	ShowLabel       bool                  `json:"showLabel"`
	Geometry        *geojson.Geometry     `json:"geometry"`
	Observations    []feature.Observation `json:"observations"`
	Images          []feature.Image       `json:"images"`
	HighestSeverity feature.Severity      `json:"highestSeverity"`
	Info            []feature.Row         `json:"info"`
	InsideBoundary  bool                  `json:"insideBoundary"`
}

func viewOf(s *project.State, f *feature.Feature) featureView {
	v := featureView{
		ID:              f.ID,
		Kind:            geometry.KindOf(f.Geometry).String(),
		Name:            f.Name,
		Description:     f.Description,
		Category:        f.Category,
		ShowLabel:       f.ShowLabel,
		Observations:    append([]feature.Observation{}, f.Observations...),
		Images:          append([]feature.Image{}, f.Images...),
		HighestSeverity: f.Cache.Highest,
		Info:            f.Cache.Rows,
		InsideBoundary:  s.InsideBoundary(f),
	}
	if f.Geometry != nil {
		v.Geometry = geojson.NewGeometry(f.Geometry)
	}
	return v
}

// categoryView：类别列表条目
type categoryView struct {
	Name    string            `json:"name"`
	Visible bool              `json:"visible"`
	Count   int               `json:"count"`
	Styles  category.StyleSet `json:"styles"`
}

type addCategoryReq struct {
	Name   string             `json:"name"`
	Styles *category.StyleSet `json:"styles"`
}

type renameReq struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type deleteCategoryReq struct {
	Name       string `json:"name"`
	ReassignTo string `json:"reassignTo"`
}

type styleFieldReq struct {
	Category string          `json:"category"`
	Kind     string          `json:"kind"`
	Property string          `json:"property"`
	Value    json.RawMessage `json:"value"`
}

type visibilityReq struct {
	Category string `json:"category"`
	Visible  bool   `json:"visible"`
}

type toggleReq struct {
	Enabled bool `json:"enabled"`
}

type addFeatureReq struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Category string            `json:"category"`
	Name     string            `json:"name"`
}

type geometryReq struct {
	ID       string            `json:"id"`
	Geometry *geojson.Geometry `json:"geometry"`
}

type updateFeatureReq struct {
	ID string `json:"id"`
	feature.Patch
}

type idReq struct {
	ID string `json:"id"`
}

type observationReq struct {
	FeatureID   string              `json:"featureId"`
	Observation feature.Observation `json:"observation"`
}

type removeObservationReq struct {
	FeatureID     string `json:"featureId"`
	ObservationID string `json:"observationId"`
}

type nameReq struct {
	Name string `json:"name"`
}

type metaReq struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Logo        *string             `json:"logo"`
	ReportInfo  *project.ReportInfo `json:"reportInfo"`
	MapView     *project.MapView    `json:"mapView"`
}

type summaryView struct {
	Title                string                `json:"title"`
	Description          string                `json:"description"`
	Logo                 *string               `json:"logo"`
	ReportInfo           project.ReportInfo    `json:"reportInfo"`
	Contributors         []project.Contributor `json:"contributors"`
	MapView              *project.MapView      `json:"mapView"`
	Categories           int                   `json:"categories"`
	Features             int                   `json:"features"`
	OnlyWithObservations bool                  `json:"showOnlyWithObservations"`
	HasBoundary          bool                  `json:"hasBoundary"`
}
