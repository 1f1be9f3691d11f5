package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func writeMigration(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "001_short_version.sql", "-- +goose Up\n-- +goose Down\n")

	err := ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "invalid migration filename") {
		t.Fatalf("expected filename error, got %v", err)
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250301000000_first.sql", "-- +goose Up\n-- +goose Down\n")
	writeMigration(t, dir, "20250301000000_second.sql", "-- +goose Up\n-- +goose Down\n")

	err := ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestValidateDirRequiresGooseHeaders(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20250301000000_no_down.sql", "-- +goose Up\nCREATE TABLE x (id int);\n")

	err := ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "+goose Down") {
		t.Fatalf("expected missing Down error, got %v", err)
	}
}
