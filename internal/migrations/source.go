package migrations

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// File is one migration: its name, which is also its history key, and the
// statements it runs in order.
type File struct {
	Name       string
	Statements []string
}

// Load reads every .sql file at the root of fsys, sorted by name. Statements
// are split on ';' so files must not contain semicolons inside literals.
func Load(fsys fs.FS) ([]File, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	slices.Sort(names)

	files := make([]File, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}
		f := File{Name: path.Base(name)}
		for stmt := range strings.SplitSeq(string(content), ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				f.Statements = append(f.Statements, stmt)
			}
		}
		files = append(files, f)
	}
	return files, nil
}

// Pending drops the files whose names are already applied.
func Pending(files []File, applied map[string]bool) []File {
	return slices.DeleteFunc(slices.Clone(files), func(f File) bool {
		return applied[f.Name]
	})
}
