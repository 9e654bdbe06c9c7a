package utils

import (
	"strings"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "  v ")
	t.Setenv("X_INT", "12")
	t.Setenv("X_BAD", "twelve")
	t.Setenv("X_BOOL", "false")
	t.Setenv("X_SEC", "90")
	if got := EnvString("X_STR", "d"); got != "v" {
		t.Fatalf("EnvString = %q", got)
	}
	if got := EnvString("X_UNSET", "d"); got != "d" {
		t.Fatalf("EnvString default = %q", got)
	}
	if EnvInt("X_INT", 1) != 12 || EnvInt("X_BAD", 1) != 1 {
		t.Fatal("EnvInt")
	}
	if EnvBool("X_BOOL", true) || !EnvBool("X_UNSET", true) {
		t.Fatal("EnvBool")
	}
	if EnvSeconds("X_SEC", 0) != 90*time.Second {
		t.Fatal("EnvSeconds")
	}
}

func TestBuildPostgresDSNFromEnv(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "u")
	t.Setenv("PG_PASSWORD", "p")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_PORT", "")
	dsn := BuildPostgresDSNFromEnv()
	if !strings.HasPrefix(dsn, "postgres://u:p@db:5432/site_report?") {
		t.Fatalf("dsn = %s", dsn)
	}
}

func TestOpenPostgresFromEnvPool(t *testing.T) {
	t.Setenv("PG_HOST", "127.0.0.1")
	t.Setenv("PG_MAX_OPEN_CONNS", "3")
	db, err := OpenPostgresFromEnv()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("max open = %d", got)
	}

	db2, err := OpenPostgres(BuildPostgresDSNFromEnv(), 0, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db2.Close()
	if got := db2.Stats().MaxOpenConnections; got != 10 {
		t.Fatalf("default max open = %d", got)
	}
}
