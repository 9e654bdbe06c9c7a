package api

import (
	"context"
	"net/http"

	"site-report/internal/logger"
	"site-report/internal/project"
)

func (ws *Workspace) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if ws.projects == nil {
		writeError(w, r, errStoreDisabled)
		return
	}
	list, err := ws.projects.ListProjects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// 文档注释：保存当前项目
// 背景：锁内导出为项目文件格式，锁外写库；同名项目被覆盖。
func (ws *Workspace) Save(ctx context.Context, name string) error {
	if ws.projects == nil {
		return errStoreDisabled
	}
	var (
		doc   []byte
		title string
		count int
	)
	err := ws.Do(func(s *project.State) (err error) {
		doc, err = s.ExportProject(ws.now())
		title, count = s.Title, s.Features.Len()
		return err
	})
	if err != nil {
		return err
	}
	if err := ws.projects.SaveProject(ctx, name, title, count, doc); err != nil {
		return err
	}
	logger.L().Info("project_save_ok", "name", name, "features", count)
	return nil
}

func (ws *Workspace) handleSaveProject(w http.ResponseWriter, r *http.Request) {
	if ws.projects == nil {
		writeError(w, r, errStoreDisabled)
		return
	}
	var req nameReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.Save(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadProject：读取已保存项目并整体替换当前工作区
func (ws *Workspace) handleLoadProject(w http.ResponseWriter, r *http.Request) {
	if ws.projects == nil {
		writeError(w, r, errStoreDisabled)
		return
	}
	var req nameReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := ws.projects.LoadProject(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := ws.importDoc(doc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (ws *Workspace) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if ws.projects == nil {
		writeError(w, r, errStoreDisabled)
		return
	}
	var req nameReq
	if err := ws.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := ws.projects.DeleteProject(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
