// Package database sets up the postgres database backing learner progress.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/pathways/core"
	appfs "github.com/trezcool/pathways/fs"
)

// ProgressTable holds one state blob per learner.
const ProgressTable = "learner_progress"

const (
	maintenanceDB = "postgres"
	readyAttempts = 30
	readyStep     = 100 * time.Millisecond
)

// dsn is the connection URL of dbName, as the admin role when admin is set and one is configured.
func dsn(conf core.DatabaseConfig, dbName string, admin bool) string {
	user := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		user = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}

	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Engine,
		User:     user,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func connect(ctx context.Context, conf core.DatabaseConfig, dbName string, admin bool) (*sql.DB, error) {
	db, err := sql.Open(conf.Engine, dsn(conf, dbName, admin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	if err = waitReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects the app role to the progress database.
func Open(ctx context.Context, conf *core.Config) (*sql.DB, error) {
	return connect(ctx, conf.Database, conf.Database.Name, false)
}

// waitReady pings db until it answers, waiting 100ms longer after each failed attempt.
func waitReady(ctx context.Context, db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= readyAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for database")
		case <-time.After(time.Duration(attempt) * readyStep):
		}
	}
	return errors.Wrap(err, "database ping timeout")
}

func exists(ctx context.Context, db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRowContext(ctx, query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

// ensureRole creates the app role, allowed to create its database.
func ensureRole(ctx context.Context, db *sql.DB, conf core.DatabaseConfig) error {
	if conf.User == "" {
		return nil
	}
	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.User)
	if err != nil {
		return errors.Wrap(err, "checking app role")
	}
	if found {
		return nil
	}

	// DDL takes no bind parameters
	q := fmt.Sprintf("CREATE ROLE %s LOGIN CREATEDB PASSWORD %s", pq.QuoteIdentifier(conf.User), pq.QuoteLiteral(conf.Password))
	if _, err = db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "creating app role")
	}
	return nil
}

func ensureDatabase(ctx context.Context, db *sql.DB, name string) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if found {
		return nil
	}
	if _, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name)); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// CreateIfNotExist creates the app role (as admin) then the progress database (as the app role).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	admin, err := connect(ctx, conf.Database, maintenanceDB, true)
	if err != nil {
		return err
	}
	err = ensureRole(ctx, admin, conf.Database)
	_ = admin.Close()
	if err != nil {
		return err
	}

	app, err := connect(ctx, conf.Database, maintenanceDB, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return ensureDatabase(ctx, app, conf.Database.Name)
}

// Migrate applies the embedded migrations.
func Migrate(db *sql.DB) error {
	if err := goose.RunFS("up", db, appfs.FS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// Truncate empties the progress table.
func Truncate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "TRUNCATE "+pq.QuoteIdentifier(ProgressTable)); err != nil {
		return errors.Wrapf(err, "truncating %s", ProgressTable)
	}
	return nil
}
