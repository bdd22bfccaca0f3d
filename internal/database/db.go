package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/fx"

	"github.com/iliyamo/geo-reservation/internal/config"
)

// Open connects to the configured backing store and verifies the connection.
func Open(cfg config.Config) (*sqlx.DB, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return openMySQL(cfg)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DBPath)
	}
	return nil, errors.Errorf("unsupported driver %q", cfg.DBDriver)
}

// tlsConfigName is the name the CA-verified TLS config is registered under
// with the mysql driver.
const tlsConfigName = "reservation-ca"

func openMySQL(cfg config.Config) (*sqlx.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.DBCACert != "" {
		tc, err := caTLSConfig(cfg.DBCACert, cfg.DBHost)
		if err != nil {
			return nil, err
		}
		if err := mysql.RegisterTLSConfig(tlsConfigName, tc); err != nil {
			return nil, errors.Wrap(err, "register mysql tls config")
		}
		mc.TLSConfig = tlsConfigName
	}

	db, err := sqlx.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}

// caTLSConfig builds a TLS config trusting only the base64-encoded PEM
// bundle b64.
func caTLSConfig(b64, serverName string) (*tls.Config, error) {
	pem, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.Wrap(err, "decode DB_CA_CERT_BASE64")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("DB_CA_CERT_BASE64 holds no PEM certificate")
	}
	return &tls.Config{RootCAs: pool, ServerName: serverName, MinVersion: tls.VersionTLS12}, nil
}

// OpenSQLite opens a SQLite database file (or ":memory:").  The handle is
// capped at one connection so every operation shares a single session.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	return db, nil
}

func ping(db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// New opens the store, bootstraps the schema and ties the handle to the fx
// lifecycle so it is closed on shutdown.
func New(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("database ready", slog.String("driver", db.DriverName()))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing database")
			return db.Close()
		},
	})
	return db, nil
}
