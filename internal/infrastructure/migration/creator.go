package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Timestamp}}
-- Description: {{.Description}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (Rollback)
-- Created: {{.Timestamp}}

`

var (
	migrationFileRe = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.up\.sql$`)
	nonNameRe       = regexp.MustCompile(`[^a-z0-9]+`)
)

// MigrationFile is a created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// CreateMigration writes the next sequential migration pair (000002_..., and
// so on) into migrationsDir.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}
	next := 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Sequence + 1
	}

	mf := &MigrationFile{
		Version:     fmt.Sprintf("%06d", next),
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	base := mf.Version + "_" + slug
	mf.UpPath = filepath.Join(migrationsDir, base+".up.sql")
	mf.DownPath = filepath.Join(migrationsDir, base+".down.sql")

	if err := writeFromTemplate(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeFromTemplate(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeFromTemplate(path, tmplContent string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// sanitizeName lowercases name and collapses everything else to underscores
func sanitizeName(name string) string {
	return strings.Trim(nonNameRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// MigrationInfo describes one migration found on disk
type MigrationInfo struct {
	Sequence int
	Name     string
	HasDown  bool
}

// ID returns the base file name, e.g. 000001_init_returns
func (m MigrationInfo) ID() string {
	return fmt.Sprintf("%06d_%s", m.Sequence, m.Name)
}

// ListMigrations returns the migrations in migrationsDir ordered by sequence.
// A missing directory yields an empty list.
func ListMigrations(migrationsDir string) ([]MigrationInfo, error) {
	entries, err := os.ReadDir(migrationsDir)
	if os.IsNotExist(err) {
		return []MigrationInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files[e.Name()] = true
		}
	}

	list := make([]MigrationInfo, 0)
	for name := range files {
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		seq, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		list = append(list, MigrationInfo{
			Sequence: seq,
			Name:     match[2],
			HasDown:  files[strings.TrimSuffix(name, ".up.sql")+".down.sql"],
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list, nil
}
