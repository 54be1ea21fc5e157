// Package migrations holds the SQL schema of the service.
//
// Forward migrations are named NNNN_description.sql and applied in lexical
// order. Each may have a NNNN_description_rollback.sql that undoes it.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

const rollbackSuffix = "_rollback.sql"

//go:embed *.sql
var files embed.FS

// FS exposes the embedded migration files
func FS() fs.FS {
	return files
}

// Forward returns the names of all forward migrations in apply order
func Forward() ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") || IsRollback(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the SQL of a migration file
func Read(name string) (string, error) {
	data, err := fs.ReadFile(files, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsRollback reports whether name is a rollback script
func IsRollback(name string) bool {
	return strings.HasSuffix(name, rollbackSuffix)
}

// RollbackName returns the rollback script name for a forward migration
func RollbackName(name string) string {
	return strings.TrimSuffix(name, ".sql") + rollbackSuffix
}

// Version returns the numeric prefix of a migration name ("0001" for "0001_create_users.sql")
func Version(name string) string {
	return strings.SplitN(name, "_", 2)[0]
}
