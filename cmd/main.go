// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"site-report/internal/api"
	"site-report/internal/autosave"
	"site-report/internal/category"
	"site-report/internal/logger"
	"site-report/internal/metrics"
	"site-report/internal/middleware"
	"site-report/internal/migrate"
	"site-report/internal/render"
	"site-report/internal/store"
	"site-report/internal/utils"
	"site-report/internal/version"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := utils.EnvString("API_BASE", "/api")
	l.Debug("config_api_base", "base", apiBase)
	ui := utils.EnvString("UI_DIST", filepath.Join("ui", "dist"))
	l.Debug("config_ui_dir", "dir", ui)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 类别预设：缺省读取 data/categories.yaml，不存在时使用空预设
	var presets category.Entries
	presetPath := utils.EnvString("CATEGORY_PRESETS_PATH", filepath.Join("data", "categories.yaml"))
	if _, err := os.Stat(presetPath); err == nil {
		if presets, err = category.LoadPresets(presetPath); err != nil {
			l.Error("presets_load_error", "path", presetPath, "error", err)
			os.Exit(1)
		}
		l.Info("presets_loaded", "path", presetPath, "count", len(presets))
	} else {
		l.Debug("presets_skipped", "path", presetPath)
	}

	// 保存项目（可选）：PROJECT_STORE_ENABLED=true 时连接 PostgreSQL 并建表
	var projects api.ProjectStore
	if utils.EnvBool("PROJECT_STORE_ENABLED", false) {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		l.Info("db_open_ok")
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "error", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "error", err)
			os.Exit(1)
		}
		projects = store.AttachDB(db)
	} else {
		l.Info("project_store_disabled")
	}

	// 色块缓存：Redis 不可用时仅使用进程内 LRU
	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "error", err)
		_ = rc.Close()
		rc = nil
	} else {
		l.Info("redis_ping_ok")
		defer rc.Close()
	}
	swatches := render.NewSwatchCache(rc, utils.EnvInt("SWATCH_CACHE_SIZE", 512), utils.EnvSeconds("SWATCH_CACHE_TTL_S", 24*time.Hour))

	ws := api.NewWorkspace(api.Options{
		Presets:        presets,
		Swatches:       swatches,
		Projects:       projects,
		MaxImportBytes: int64(utils.EnvInt("MAX_IMPORT_BYTES", 32<<20)),
	})

	// 定时保存：仅在项目库可用且 AUTOSAVE_INTERVAL_S>0 时启动
	idle := make(chan struct{})
	close(idle)
	var saved <-chan struct{} = idle
	if projects != nil {
		name := utils.EnvString("AUTOSAVE_NAME", "autosave")
		saved = autosave.Start(ctx, utils.EnvSeconds("AUTOSAVE_INTERVAL_S", 0), func(c context.Context) error {
			return ws.Save(c, name)
		})
	}

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(ws)))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir(ui)))

	// NOTE: 向前端暴露 API 基础路径，避免硬编码
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write([]byte("window.__API_BASE__='" + apiBase + "'\n"))
		_, _ = w.Write([]byte("window.__COMMIT_SHA__='" + version.Commit + "'"))
	})

	addr := utils.EnvString("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()
	l.Info("listening", "addr", addr, "commit", version.Commit)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("listen_error", "error", err)
		os.Exit(1)
	}
	<-saved
	l.Info("shutdown_ok")
}
