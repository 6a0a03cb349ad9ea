package main

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/mahudhurio/fs"
)

// gooseRunFunc runs a goose command on the embedded migrations in dir.
var gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error { // mockable
	return goose.RunFS(command, db, appfs.FS, dir, args...)
}

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	if err := gooseRunFunc(args[0], cli.db, "migrations", arguments...); err != nil {
		return errors.Wrapf(err, "migrate %s", args[0])
	}
	return nil
}
