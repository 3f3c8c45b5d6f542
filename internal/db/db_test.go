package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBuildDSNForLibsqlAddsToken(t *testing.T) {
	dsn, err := buildDSN("libsql://cache.example.turso.io", "abc123")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if dsn != "libsql://cache.example.turso.io?authToken=abc123" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestBuildDSNKeepsExistingToken(t *testing.T) {
	dsn, err := buildDSN("libsql://cache.example.turso.io?authToken=keep", "other")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}
	if dsn != "libsql://cache.example.turso.io?authToken=keep" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
}

func TestBuildDSNForFileURL(t *testing.T) {
	dsn, err := buildDSN("file:local.db", "ignored")
	if err != nil {
		t.Fatalf("build dsn: %v", err)
	}

	if dsn != "file:local.db" {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
	if driverFor(dsn) != "sqlite" {
		t.Fatalf("expected sqlite driver for file urls")
	}
}

func TestBuildDSNRejectsUnknownScheme(t *testing.T) {
	if _, err := buildDSN("postgres://localhost/db", ""); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
	if _, err := buildDSN("   ", ""); err == nil {
		t.Fatal("expected empty url error")
	}
}

func TestOpenLocalSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	database, err := Open(context.Background(), "file:"+path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE probe (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
}
