// 包 api：集中注册 HTTP API 路由以解耦主入口；工作区持有唯一的项目状态并串行化全部读写
package api

import (
	"context"
	"sync"
	"time"

	"site-report/internal/category"
	"site-report/internal/project"
	"site-report/internal/render"
	"site-report/internal/store"
)

// ProjectStore：保存项目的持久化能力（PostgreSQL 实现见 store 包）
type ProjectStore interface {
	SaveProject(ctx context.Context, name, title string, featureCount int, doc []byte) error
	LoadProject(ctx context.Context, name string) ([]byte, error)
	ListProjects(ctx context.Context) ([]store.Summary, error)
	DeleteProject(ctx context.Context, name string) error
}

// 文档注释：工作区
// 背景：浏览器端每次操作对应一次请求；一把互斥锁保证变更及其级联（缓存重算、改名同步）完成之后才会被读取。
// 约束：锁内不做网络 I/O；Redis 与 PostgreSQL 调用在锁外进行并携带请求上下文。
type Workspace struct {
	mu       sync.Mutex
	state    *project.State
	swatches *render.SwatchCache
	projects ProjectStore
	maxBody  int64
	now      func() time.Time
}

// Options：工作区依赖；Projects 为 nil 时保存项目相关接口返回 503
type Options struct {
	Presets        category.Entries
	Swatches       *render.SwatchCache
	Projects       ProjectStore
	MaxImportBytes int64
}

func NewWorkspace(o Options) *Workspace {
	if o.Swatches == nil {
		o.Swatches = render.NewSwatchCache(nil, 256, time.Hour)
	}
	if o.MaxImportBytes <= 0 {
		o.MaxImportBytes = 32 << 20
	}
	return &Workspace{
		state:    project.New(o.Presets),
		swatches: o.Swatches,
		projects: o.Projects,
		maxBody:  o.MaxImportBytes,
		now:      time.Now,
	}
}

// Do：在锁内对项目状态执行一次操作
func (w *Workspace) Do(fn func(s *project.State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn(w.state)
}
