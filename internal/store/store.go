// 包 store: 保存项目的 PostgreSQL 访问层；项目以导出格式的 JSON 文档整体存取
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mdobak/go-xerrors"

	"site-report/internal/logger"
	"site-report/internal/metrics"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectName     = errors.New("project name must be 1-128 characters")
)

// Store: 数据库访问入口，持有连接池
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

// Summary: 项目列表条目
type Summary struct {
	Name         string    `json:"name"`
	Title        string    `json:"title"`
	FeatureCount int       `json:"featureCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeName: 去除首尾空白并校验长度
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 128 {
		return "", ErrProjectName
	}
	return name, nil
}

// 文档注释：保存项目文档（按名称覆盖）
// 参数：doc 为项目导出 JSON；title 与 featureCount 仅用于列表展示。
func (s *Store) SaveProject(ctx context.Context, name, title string, featureCount int, doc []byte) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	defer metrics.ObserveSince(metrics.ProjectStoreDurationMs.WithLabelValues("save"), time.Now())
	_, err = s.db.ExecContext(ctx, `INSERT INTO _sr_projects(name, title, doc, feature_count)
        VALUES($1, $2, $3, $4)
        ON CONFLICT (name) DO UPDATE SET title=EXCLUDED.title, doc=EXCLUDED.doc, feature_count=EXCLUDED.feature_count, updated_at=now()`,
		name, title, string(doc), featureCount)
	if err != nil {
		return xerrors.New(err)
	}
	logger.L().Debug("project_saved", "name", name, "bytes", len(doc), "features", featureCount)
	return nil
}

// LoadProject: 读取项目文档；不存在时返回 ErrProjectNotFound
func (s *Store) LoadProject(ctx context.Context, name string) ([]byte, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	defer metrics.ObserveSince(metrics.ProjectStoreDurationMs.WithLabelValues("load"), time.Now())
	var doc string
	err = s.db.QueryRowContext(ctx, "SELECT doc FROM _sr_projects WHERE name=$1", name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, xerrors.New(err)
	}
	return []byte(doc), nil
}

// ListProjects: 按最近更新排序返回项目摘要
func (s *Store) ListProjects(ctx context.Context) ([]Summary, error) {
	defer metrics.ObserveSince(metrics.ProjectStoreDurationMs.WithLabelValues("list"), time.Now())
	rows, err := s.db.QueryContext(ctx, "SELECT name, title, feature_count, updated_at FROM _sr_projects ORDER BY updated_at DESC, name ASC")
	if err != nil {
		return nil, xerrors.New(err)
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var p Summary
		if err := rows.Scan(&p.Name, &p.Title, &p.FeatureCount, &p.UpdatedAt); err != nil {
			return nil, xerrors.New(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.New(err)
	}
	return out, nil
}

// DeleteProject: 删除项目；不存在时返回 ErrProjectNotFound
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	defer metrics.ObserveSince(metrics.ProjectStoreDurationMs.WithLabelValues("delete"), time.Now())
	res, err := s.db.ExecContext(ctx, "DELETE FROM _sr_projects WHERE name=$1", name)
	if err != nil {
		return xerrors.New(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectNotFound
	}
	return nil
}
