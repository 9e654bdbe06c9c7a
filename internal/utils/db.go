// 包 utils：PostgreSQL 连接工具，DSN 与连接池参数均来自环境变量
package utils

import (
	"database/sql"

	"github.com/mdobak/go-xerrors"

	_ "github.com/lib/pq"
)

// OpenPostgres：按 DSN 打开连接池；maxOpen/maxIdle 小于等于 0 时使用 10/5
func OpenPostgres(dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

// BuildPostgresDSNFromEnv：PG_HOST/PG_PORT/PG_USER/PG_PASSWORD/PG_DB/PG_SSLMODE
func BuildPostgresDSNFromEnv() string {
	user := EnvString("PG_USER", "postgres")
	dsn := "postgres://" + user
	if pass := EnvString("PG_PASSWORD", ""); pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + EnvString("PG_HOST", "localhost") + ":" + EnvString("PG_PORT", "5432") +
		"/" + EnvString("PG_DB", "site_report") + "?sslmode=" + EnvString("PG_SSLMODE", "disable")
	return dsn
}

// OpenPostgresFromEnv：连接池上限由 PG_MAX_OPEN_CONNS/PG_MAX_IDLE_CONNS 覆盖
func OpenPostgresFromEnv() (*sql.DB, error) {
	return OpenPostgres(BuildPostgresDSNFromEnv(), EnvInt("PG_MAX_OPEN_CONNS", 10), EnvInt("PG_MAX_IDLE_CONNS", 5))
}
