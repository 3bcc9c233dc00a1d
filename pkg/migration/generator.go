package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marshallshelly/pebble-social/pkg/schema"
)

// Generator writes and reads migration files in one directory.
type Generator struct {
	migrationsDir string
}

// NewGenerator creates a new migration file generator.
func NewGenerator(migrationsDir string) *Generator {
	return &Generator{migrationsDir: migrationsDir}
}

// Dir returns the migrations directory.
func (g *Generator) Dir() string {
	return g.migrationsDir
}

// Generate writes a migration that creates tables, in the given order.
func (g *Generator) Generate(name string, tables []*schema.TableMetadata) (*MigrationFile, error) {
	upSQL, downSQL := NewPlanner().CreateSchema(tables)
	header := fmt.Sprintf("-- Migration: %s\n", name)
	return g.write(name, header+upSQL, header+downSQL)
}

// GenerateDiff writes a migration that applies diff.
func (g *Generator) GenerateDiff(name string, diff *SchemaDiff) (*MigrationFile, error) {
	upSQL, downSQL := NewPlanner().GenerateMigration(diff)
	header := fmt.Sprintf("-- Migration: %s\n", name)
	return g.write(name, header+upSQL, header+downSQL)
}

// GenerateEmpty creates empty migration files for manual editing.
func (g *Generator) GenerateEmpty(name string) (*MigrationFile, error) {
	upSQL := fmt.Sprintf("-- Migration: %s\n\n-- Write your UP migration here\n", name)
	downSQL := fmt.Sprintf("-- Migration: %s\n\n-- Write your DOWN migration here\n", name)
	return g.write(name, upSQL, downSQL)
}

func (g *Generator) write(name, upSQL, downSQL string) (*MigrationFile, error) {
	if strings.ContainsAny(name, " /\\.") || name == "" {
		return nil, fmt.Errorf("invalid migration name %q: use letters, digits and underscores", name)
	}
	if err := os.MkdirAll(g.migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := GenerateVersion()
	file := &MigrationFile{
		Version:  version,
		Name:     name,
		UpPath:   filepath.Join(g.migrationsDir, GenerateFileName(version, name, "up")),
		DownPath: filepath.Join(g.migrationsDir, GenerateFileName(version, name, "down")),
	}

	if err := os.WriteFile(file.UpPath, []byte(upSQL), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write up migration: %w", err)
	}
	if err := os.WriteFile(file.DownPath, []byte(downSQL), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write down migration: %w", err)
	}

	return file, nil
}

// ListMigrations lists migration file pairs sorted by version. Files
// without a partner are ignored.
func (g *Generator) ListMigrations() ([]MigrationFile, error) {
	entries, err := os.ReadDir(g.migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []MigrationFile{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := make(map[string]*MigrationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()

		version, rest, ok := strings.Cut(fileName, "_")
		if !ok {
			continue
		}

		var name string
		up := false
		if n, ok := strings.CutSuffix(rest, ".up.sql"); ok {
			name, up = n, true
		} else if n, ok := strings.CutSuffix(rest, ".down.sql"); ok {
			name = n
		} else {
			continue
		}

		mf, exists := files[version]
		if !exists {
			mf = &MigrationFile{Version: version, Name: name}
			files[version] = mf
		}
		if up {
			mf.UpPath = filepath.Join(g.migrationsDir, fileName)
		} else {
			mf.DownPath = filepath.Join(g.migrationsDir, fileName)
		}
	}

	migrations := make([]MigrationFile, 0, len(files))
	for _, mf := range files {
		if mf.UpPath != "" && mf.DownPath != "" {
			migrations = append(migrations, *mf)
		}
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ReadMigration reads the SQL content of a migration file pair.
func (g *Generator) ReadMigration(file MigrationFile) (*Migration, error) {
	upSQL, err := os.ReadFile(file.UpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read up migration: %w", err)
	}
	downSQL, err := os.ReadFile(file.DownPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read down migration: %w", err)
	}

	return &Migration{
		Version: file.Version,
		Name:    file.Name,
		UpSQL:   string(upSQL),
		DownSQL: string(downSQL),
	}, nil
}

// LoadAll lists and reads every migration in the directory.
func (g *Generator) LoadAll() ([]Migration, error) {
	files, err := g.ListMigrations()
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(files))
	for _, f := range files {
		m, err := g.ReadMigration(f)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", f.Version, err)
		}
		migrations = append(migrations, *m)
	}
	return migrations, nil
}
