package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"site-report/internal/category"
	"site-report/internal/feature"
	"site-report/internal/legend"
	"site-report/internal/logger"
	"site-report/internal/metrics"
	"site-report/internal/project"
	"site-report/internal/render"
	"site-report/internal/style"
)

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(ws *Workspace) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		route := pattern
		if i := strings.IndexByte(pattern, ' '); i >= 0 {
			route = pattern[i+1:]
		}
		mux.HandleFunc(pattern, metrics.Instrument(route, h))
	}

	handle("GET /project", ws.handleSummary)
	handle("POST /project/meta", ws.handleMeta)
	handle("GET /project/export", ws.handleExportProject)
	handle("GET /project/export.geojson", ws.handleExportGeoJSON)
	handle("POST /project/import", ws.handleImport)
	handle("POST /project/reset", ws.handleReset)
	handle("POST /project/boundary", ws.handleBoundary)

	handle("GET /scene", ws.handleScene)
	handle("GET /legend", ws.handleLegend)
	handle("GET /swatch", ws.handleSwatch)

	handle("GET /categories", ws.handleListCategories)
	handle("POST /categories", ws.handleAddCategory)
	handle("POST /categories/rename", ws.handleRenameCategory)
	handle("POST /categories/delete", ws.handleDeleteCategory)
	handle("POST /categories/style", ws.handleStyleField)
	handle("POST /categories/visibility", ws.handleVisibility)
	handle("GET /categories/export", ws.handleExportCategories)
	handle("POST /categories/import", ws.handleImportCategories)
	handle("POST /filter/observations", ws.handleObservationFilter)

	handle("GET /features", ws.handleListFeatures)
	handle("POST /features", ws.handleAddFeature)
	handle("POST /features/geometry", ws.handleUpdateGeometry)
	handle("POST /features/update", ws.handleUpdateFeature)
	handle("POST /features/delete", ws.handleDeleteFeature)
	handle("GET /features/nearest", ws.handleNearest)

	handle("POST /observations", ws.handleAddObservation)
	handle("POST /observations/update", ws.handleUpdateObservation)
	handle("POST /observations/delete", ws.handleRemoveObservation)

	handle("POST /contributors", ws.handleAddContributor)
	handle("POST /contributors/delete", ws.handleRemoveContributor)

	handle("GET /projects", ws.handleListProjects)
	handle("POST /projects", ws.handleSaveProject)
	handle("POST /projects/load", ws.handleLoadProject)
	handle("POST /projects/delete", ws.handleDeleteProject)

	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

func (ws *Workspace) handleSummary(w http.ResponseWriter, r *http.Request) {
	var out summaryView
	_ = ws.Do(func(s *project.State) error {
		out = summaryView{
			Title:                s.Title,
			Description:          s.Description,
			Logo:                 s.Logo,
			ReportInfo:           s.ReportInfo,
			Contributors:         append([]project.Contributor{}, s.Contributors...),
			MapView:              s.MapView,
			Categories:           s.Categories.Len(),
			Features:             s.Features.Len(),
			OnlyWithObservations: s.OnlyWithObservations,
			HasBoundary:          s.Boundary != nil,
		}
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

func (ws *Workspace) handleMeta(w http.ResponseWriter, r *http.Request) {
	var req metaReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_ = ws.Do(func(s *project.State) error {
		if req.Title != nil {
			s.Title = *req.Title
		}
		if req.Description != nil {
			s.Description = *req.Description
		}
		if req.Logo != nil {
			s.Logo = req.Logo
			if *req.Logo == "" {
				s.Logo = nil
			}
		}
		if req.ReportInfo != nil {
			s.ReportInfo = *req.ReportInfo
		}
		if req.MapView != nil {
			s.MapView = req.MapView
		}
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleExportProject(w http.ResponseWriter, r *http.Request) {
	var b []byte
	err := ws.Do(func(s *project.State) (err error) {
		b, err = s.ExportProject(ws.now())
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, "site-report.json", "application/json", b)
}

func (ws *Workspace) handleExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	var b []byte
	err := ws.Do(func(s *project.State) (err error) {
		b, err = s.ExportGeoJSON()
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, "site-report.geojson", "application/geo+json", b)
}

func writeDownload(w http.ResponseWriter, name, ctype string, b []byte) {
	w.Header().Set("content-type", ctype+"; charset=utf-8")
	w.Header().Set("content-disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(b)
}

// 文档注释：导入项目文件或 GeoJSON
// 约束：请求体整体读入后再加锁导入；失败时工作区保持导入前的状态。
func (ws *Workspace) handleImport(w http.ResponseWriter, r *http.Request) {
	b, err := ws.readBody(w, r)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("file", "error").Inc()
		writeError(w, r, err)
		return
	}
	rep, err := ws.importDoc(b)
	if err != nil {
		writeError(w, r, asClientError(err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (ws *Workspace) importDoc(b []byte) (*project.ImportReport, error) {
	var rep *project.ImportReport
	err := ws.Do(func(s *project.State) (err error) {
		rep, err = s.Import(b)
		return err
	})
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("file", "error").Inc()
		logger.L().Warn("import_failed", "error", err)
		return nil, err
	}
	metrics.ImportsTotal.WithLabelValues(rep.Kind, "ok").Inc()
	metrics.ImportedFeatures.Observe(float64(rep.Features))
	return rep, nil
}

func (ws *Workspace) handleReset(w http.ResponseWriter, r *http.Request) {
	_ = ws.Do(func(s *project.State) error {
		s.Reset()
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleBoundary(w http.ResponseWriter, r *http.Request) {
	b, err := ws.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error { return s.SetBoundary(b) }); err != nil {
		writeError(w, r, asClientError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleScene(w http.ResponseWriter, r *http.Request) {
	var sc *render.Scene
	_ = ws.Do(func(s *project.State) error {
		sc = render.Build(s)
		return nil
	})
	writeJSON(w, http.StatusOK, sc)
}

func (ws *Workspace) handleLegend(w http.ResponseWriter, r *http.Request) {
	var out []legend.Entry
	_ = ws.Do(func(s *project.State) error {
		out = legend.Build(s)
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

// 文档注释：要素图例色块
// 背景：锁内只解析样式，栅格化与缓存读写在锁外进行；size 缺省为 32 像素，上限 128。
func (ws *Workspace) handleSwatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size := render.SwatchSize
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 128 {
			writeError(w, r, errBadRequest)
			return
		}
		size = n
	}
	id := q.Get("id")
	var st style.Style
	err := ws.Do(func(s *project.State) error {
		f, ok := s.Features.Get(id)
		if !ok {
			return feature.ErrNotFound
		}
		st = s.Resolver().Resolve(f)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := ws.swatches.Get(r.Context(), st, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("content-type", "image/png")
	w.Header().Set("cache-control", "no-store")
	_, _ = w.Write(b)
}

func (ws *Workspace) handleListCategories(w http.ResponseWriter, r *http.Request) {
	out := []categoryView{}
	_ = ws.Do(func(s *project.State) error {
		for _, name := range s.Categories.Names() {
			c, _ := s.Categories.Get(name)
			out = append(out, categoryView{
				Name:    name,
				Visible: s.Categories.Visible(name),
				Count:   len(s.Features.ByCategory(name)),
				Styles:  c.Styles,
			})
		}
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

func (ws *Workspace) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error { return s.AddCategory(req.Name, req.Styles) }); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (ws *Workspace) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req renameReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error { return s.RenameCategory(req.From, req.To) }); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	var req deleteCategoryReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var n int
	err := ws.Do(func(s *project.State) (err error) {
		if !s.Categories.Has(req.Name) {
			return category.ErrNotFound
		}
		if req.ReassignTo != "" {
			n, err = s.RemoveCategoryReassign(req.Name, req.ReassignTo)
			return err
		}
		n = s.RemoveCategory(req.Name)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"features": n})
}

func (ws *Workspace) handleStyleField(w http.ResponseWriter, r *http.Request) {
	var req styleFieldReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		writeError(w, r, errBadRequest)
		return
	}
	var applied bool
	err := ws.Do(func(s *project.State) (err error) {
		applied, err = s.Categories.SetStyleField(req.Category, category.ParseKind(req.Kind), req.Property, value)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

func (ws *Workspace) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error {
		return s.Categories.SetVisible(req.Category, req.Visible)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleObservationFilter(w http.ResponseWriter, r *http.Request) {
	var req toggleReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	_ = ws.Do(func(s *project.State) error {
		s.OnlyWithObservations = req.Enabled
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleExportCategories(w http.ResponseWriter, r *http.Request) {
	var b []byte
	err := ws.Do(func(s *project.State) (err error) {
		b, err = s.ExportCategories()
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDownload(w, "categories.json", "application/json", b)
}

func (ws *Workspace) handleImportCategories(w http.ResponseWriter, r *http.Request) {
	b, err := ws.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var n int
	err = ws.Do(func(s *project.State) (err error) {
		n, err = s.ImportCategories(b)
		return err
	})
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("categories", "error").Inc()
		writeError(w, r, asClientError(err))
		return
	}
	metrics.ImportsTotal.WithLabelValues("categories", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]int{"categories": n})
}

func (ws *Workspace) handleListFeatures(w http.ResponseWriter, r *http.Request) {
	out := []featureView{}
	_ = ws.Do(func(s *project.State) error {
		for _, f := range s.Features.All() {
			out = append(out, viewOf(s, f))
		}
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

func (ws *Workspace) handleAddFeature(w http.ResponseWriter, r *http.Request) {
	var req addFeatureReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Geometry == nil {
		writeError(w, r, errBadRequest)
		return
	}
	var out featureView
	err := ws.Do(func(s *project.State) error {
		f, err := s.AddFeature(req.Geometry.Geometry(), req.Category, req.Name)
		if err != nil {
			return err
		}
		out = viewOf(s, f)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (ws *Workspace) handleUpdateGeometry(w http.ResponseWriter, r *http.Request) {
	var req geometryReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Geometry == nil {
		writeError(w, r, errBadRequest)
		return
	}
	var out featureView
	err := ws.Do(func(s *project.State) error {
		if err := s.Features.UpdateGeometry(req.ID, req.Geometry.Geometry()); err != nil {
			return err
		}
		f, _ := s.Features.Get(req.ID)
		out = viewOf(s, f)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (ws *Workspace) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	var req updateFeatureReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var out featureView
	err := ws.Do(func(s *project.State) error {
		if err := s.UpdateFeature(req.ID, req.Patch); err != nil {
			return err
		}
		f, _ := s.Features.Get(req.ID)
		out = viewOf(s, f)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (ws *Workspace) handleDeleteFeature(w http.ResponseWriter, r *http.Request) {
	var req idReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	err := ws.Do(func(s *project.State) error {
		if !s.Features.Delete(req.ID) {
			return feature.ErrNotFound
		}
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, r, errBadRequest)
		return
	}
	var out *featureView
	var dist float64
	_ = ws.Do(func(s *project.State) error {
		if f, d := s.Nearest(lon, lat); f != nil {
			v := viewOf(s, f)
			out, dist = &v, d
		}
		return nil
	})
	if out == nil {
		writeError(w, r, feature.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"feature": out, "distanceMeters": dist})
}

func (ws *Workspace) handleAddObservation(w http.ResponseWriter, r *http.Request) {
	var req observationReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var out feature.Observation
	err := ws.Do(func(s *project.State) (err error) {
		out, err = s.Features.AddObservation(req.FeatureID, req.Observation)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (ws *Workspace) handleUpdateObservation(w http.ResponseWriter, r *http.Request) {
	var req observationReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error { return s.Features.UpdateObservation(req.FeatureID, req.Observation) }); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleRemoveObservation(w http.ResponseWriter, r *http.Request) {
	var req removeObservationReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error { return s.Features.RemoveObservation(req.FeatureID, req.ObservationID) }); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ws *Workspace) handleAddContributor(w http.ResponseWriter, r *http.Request) {
	var req project.Contributor
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Do(func(s *project.State) error { return s.AddContributor(req) }); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (ws *Workspace) handleRemoveContributor(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var removed bool
	_ = ws.Do(func(s *project.State) error {
		removed = s.RemoveContributor(req.Name)
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}
