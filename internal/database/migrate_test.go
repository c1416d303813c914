package database

import (
	"encoding/json"
	"io/fs"
	"strings"
	"testing"
)

// 埋め込まれたマイグレーションファイルがup/down対で揃っていて、
// すべて妥当なJSONであることを検証する。
func TestMigrationsFS_PairsAndValidJSON(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migration files embedded")
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)

	for _, e := range entries {
		name := e.Name()

		raw, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		var doc interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Errorf("%s is not valid JSON: %v", name, err)
		}

		switch {
		case strings.HasSuffix(name, ".up.json"):
			ups[strings.TrimSuffix(name, ".up.json")] = true
		case strings.HasSuffix(name, ".down.json"):
			downs[strings.TrimSuffix(name, ".down.json")] = true
		default:
			t.Errorf("unexpected migration file name: %s", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no down file", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %s has no up file", base)
		}
	}
}

func TestNewMigrator_InvalidURL_ReturnsError(t *testing.T) {
	if _, err := NewMigrator("not-a-url"); err == nil {
		t.Fatal("expected error for invalid database URL")
	}
}
