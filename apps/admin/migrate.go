package main

import (
	"context"

	"github.com/trezcool/academia/storage/database"
)

var gooseRunFunc = database.Migrate // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
