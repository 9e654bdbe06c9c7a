package migrate

import (
	"context"
	"database/sql"

	"github.com/mdobak/go-xerrors"

	"site-report/internal/logger"
)

// schema：项目文档以原文 TEXT 保存，JSONB 会重排对象键，类别顺序会丢失
var schema = []string{
	`CREATE TABLE IF NOT EXISTS _sr_projects (
            name TEXT PRIMARY KEY,
            title TEXT NOT NULL DEFAULT '',
            doc TEXT NOT NULL,
            feature_count INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	`ALTER TABLE _sr_projects ALTER COLUMN doc TYPE TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_sr_projects_updated ON _sr_projects(updated_at DESC)`,
}

// 背景：首次运行自动创建保存项目所需的表与索引；早期以 JSONB 建表的库改为 TEXT
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, s := range schema {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return xerrors.New(err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
