package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration identified by its timestamp version.
type File struct {
	Version string
	Slug    string
}

func (f File) Name() string {
	return f.Version + "_" + f.Slug + ".sql"
}

// ParseFileName splits a migration file name into version and slug.
func ParseFileName(name string) (File, error) {
	m := fileNameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_slug.sql)", name)
	}
	if _, err := time.Parse(versionLayout, m[1]); err != nil {
		return File{}, fmt.Errorf("migration %q: version is not a timestamp: %w", name, err)
	}
	return File{Version: m[1], Slug: m[2]}, nil
}

// Slugify lower-cases name and collapses everything outside [a-z0-9] to
// single underscores.
func Slugify(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration into dir stamped with
// the current UTC time and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	return createAt(dir, name, time.Now().UTC())
}

func createAt(dir, name string, now time.Time) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := Slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %w", dir, err)
	}

	file := File{Version: now.Format(versionLayout), Slug: slug}
	full := filepath.Join(dir, file.Name())
	fh, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration %q: %w", full, err)
	}
	defer fh.Close()
	if _, err := fmt.Fprintf(fh, sqlTemplate, slug); err != nil {
		return "", fmt.Errorf("write migration %q: %w", full, err)
	}
	return full, nil
}

// ValidateDir checks the migrations in dir, or the embedded set when dir is
// EmbeddedDir.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if dir == EmbeddedDir {
		return ValidateFS(Migrations())
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS requires every .sql file at the root of fsys to have a well
// formed, unique version and both goose sections. An empty set is valid.
func ValidateFS(fsys fs.FS) error {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	byVersion := make(map[string]string, len(names))
	for _, name := range names {
		file, err := ParseFileName(path.Base(name))
		if err != nil {
			return err
		}
		if prev, ok := byVersion[file.Version]; ok {
			return fmt.Errorf("migrations %q and %q share version %s", prev, name, file.Version)
		}
		byVersion[file.Version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %q: %w", name, err)
		}
		for _, section := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), section) {
				return fmt.Errorf("migration %q lacks %q", name, section)
			}
		}
	}
	return nil
}
