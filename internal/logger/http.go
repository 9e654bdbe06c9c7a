// 包 logger：http 访问日志中间件，按请求 ID 串联一次编辑操作的访问记录
package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader：请求 ID 头；客户端提供时沿用，否则生成
const RequestIDHeader = "X-Request-Id"

// SlowRequest：超过该耗时的请求按 warn 记录
var SlowRequest = 2 * time.Second

type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *accessWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *accessWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// accessLevel：5xx 与慢请求为 warn，4xx 为 info（被拒绝的编辑），其余 debug
func accessLevel(status int, d time.Duration) slog.Level {
	switch {
	case status >= 500 || d >= SlowRequest:
		return slog.LevelWarn
	case status >= 400:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// 文档注释：访问日志中间件
// 约束：不读取请求体（导入文件可能很大）；请求 ID 写回响应头。
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, rid)
			aw := &accessWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(aw, r)
			d := time.Since(start)
			l.Log(r.Context(), accessLevel(aw.status, d), "http_access",
				"rid", rid,
				"method", r.Method,
				"path", r.URL.Path,
				"status", aw.status,
				"bytes", aw.bytes,
				"duration_ms", d.Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}
