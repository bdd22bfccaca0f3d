package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS reservation (
	id INT NOT NULL AUTO_INCREMENT,
	user_id VARCHAR(30) NOT NULL,
	longitude DOUBLE NOT NULL,
	latitude DOUBLE NOT NULL,
	state VARCHAR(10) NOT NULL,
	PRIMARY KEY (id)
)`

const sqliteSchema = `CREATE TABLE IF NOT EXISTS reservation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id VARCHAR(30) NOT NULL,
	longitude DOUBLE NOT NULL,
	latitude DOUBLE NOT NULL,
	state VARCHAR(10) NOT NULL
)`

// EnsureSchema creates the reservation table when it does not exist yet.
// Running it against an existing table is a no-op.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	ddl := mysqlSchema
	if db.DriverName() == "sqlite3" {
		ddl = sqliteSchema
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrap(err, "create reservation table")
	}
	return nil
}
