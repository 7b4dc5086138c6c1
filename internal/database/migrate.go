package database

import (
	"cmp"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"

	"microblog/internal/middleware"
)

// Migration is one versioned pair of up/down SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

func init() {
	var err error
	if migrations, err = LoadMigrations(migrationFS, "migrations"); err != nil {
		middleware.Logger.Error("embedded migrations unusable", slog.String("error", err.Error()))
	}
}

// upScriptName matches NNNNNN_name.up.sql; version 0 is rejected later.
var upScriptName = regexp.MustCompile(`^(\d+)_(\w+)\.up\.sql$`)

// LoadMigrations reads NNNNNN_name.up.sql files from dir, each paired with a
// NNNNNN_name.down.sql, and returns them in version order. Files that do not
// follow the naming scheme are ignored.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	byVersion := make(map[int]string)
	for _, e := range entries {
		match := upScriptName.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		version, _ := strconv.Atoi(match[1])
		if version <= 0 {
			middleware.Logger.Warn("ignoring migration with version 0", slog.String("file", e.Name()))
			continue
		}
		if other, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %06d: %s and %s", version, other, match[2])
		}
		byVersion[version] = match[2]

		m := Migration{Version: version, Name: match[2]}
		if m.UpScript, err = readScript(fsys, dir, e.Name()); err != nil {
			return nil, err
		}
		if m.DownScript, err = readScript(fsys, dir, match[1]+"_"+match[2]+".down.sql"); err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

func readScript(fsys fs.FS, dir, name string) (string, error) {
	b, err := fs.ReadFile(fsys, path.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(b), nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns nil when version is unknown.
func GetMigrationByVersion(version int) *Migration {
	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return nil
	}
	return &migrations[i]
}
