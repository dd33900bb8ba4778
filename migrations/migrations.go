// Package migrations embeds the SQL schema applied by golang-migrate.
package migrations

import (
	"embed"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed *.sql
var FS embed.FS

// Apply migrates the database at pgURL. steps == 0 applies every pending
// migration; a negative value rolls back that many.
func Apply(pgURL string, steps int) error {
	src, err := iofs.New(FS, ".")
	if err != nil {
		return errors.Wrap(err, "open embedded migrations")
	}
	u, err := url.Parse(pgURL)
	if err != nil {
		return errors.Wrap(err, "parse database url")
	}
	u.Scheme = "pgx5"

	m, err := migrate.NewWithSourceInstance("iofs", src, u.String())
	if err != nil {
		return errors.Wrap(err, "init migrate")
	}
	defer m.Close()

	if steps == 0 {
		err = m.Up()
	} else {
		err = m.Steps(steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}
