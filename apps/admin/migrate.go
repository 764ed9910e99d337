package main

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/pathways/fs"
)

var (
	// mockable
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		return goose.RunFS(command, db, appfs.FS, dir, args...)
	}

	errNoDatabase = errors.New("migrations need the postgres storage driver")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, "migrations", arguments...)
}
