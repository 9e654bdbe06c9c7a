package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"site-report/internal/boundary"
	"site-report/internal/category"
	"site-report/internal/feature"
	"site-report/internal/geometry"
	"site-report/internal/logger"
	"site-report/internal/project"
	"site-report/internal/store"
)

var (
	errBadRequest    = errors.New("malformed request")
	errStoreDisabled = errors.New("project store is not configured")
)

// errorBody：对外错误结构
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// 文档注释：错误到状态码的映射
// 背景：校验类错误返回 4xx 且状态未被修改；其余视为内部错误，记录日志后返回 500。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		logger.L().Error("api_error", "path", r.URL.Path, "error", err)
	} else {
		logger.L().Debug("api_rejected", "path", r.URL.Path, "status", status, "reason", err.Error())
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusOf(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, feature.ErrNotFound),
		errors.Is(err, feature.ErrObservationNotFound),
		errors.Is(err, category.ErrNotFound),
		errors.Is(err, store.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, category.ErrDuplicateName),
		errors.Is(err, project.ErrDuplicateContributor):
		return http.StatusConflict
	case errors.Is(err, errStoreDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, category.ErrEmptyName),
		errors.Is(err, category.ErrUnknownProperty),
		errors.Is(err, category.ErrBadValue),
		errors.Is(err, category.ErrNotCategoryFile),
		errors.Is(err, project.ErrUnknownCategory),
		errors.Is(err, project.ErrSameCategory),
		errors.Is(err, project.ErrUnrecognizedFile),
		errors.Is(err, project.ErrNoFeatures),
		errors.Is(err, project.ErrContributorName),
		errors.Is(err, store.ErrProjectName),
		errors.Is(err, boundary.ErrNoPolygon),
		errors.Is(err, geometry.ErrEmptyGeometry),
		errors.Is(err, geometry.ErrTooFewPoints),
		errors.Is(err, geometry.ErrSelfIntersection),
		errors.Is(err, geometry.ErrUnsupportedGeometry):
		return http.StatusBadRequest
	}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// asClientError：请求体内容导致的失败一律归为 400
func asClientError(err error) error {
	if err == nil || statusOf(err) != http.StatusInternalServerError {
		return err
	}
	return errors.Join(errBadRequest, err)
}

// readBody：按上限读取请求体
func (ws *Workspace) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, ws.maxBody))
}

// decode：读取并解析 JSON 请求体；解析失败统一归为 errBadRequest
func (ws *Workspace) decode(w http.ResponseWriter, r *http.Request, v any) error {
	b, err := ws.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
