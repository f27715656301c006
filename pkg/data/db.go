package data

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	DataFileName string = "lof.db"

	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	errDBNotInitialized = errors.New("database not initialized")
)

// Store holds the conservation tables used by the LoF pipeline.
type Store struct {
	db     *sql.DB
	driver string
}

// driverFor picks postgres for postgres:// DSNs and sqlite for anything else.
func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

// GetDB opens the database behind dsn without touching the schema.
func GetDB(dsn string) (*sql.DB, error) {
	driver := driverFor(dsn)
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == driverSQLite {
		conn.SetMaxOpenConns(1)
	}
	return conn, nil
}

// Open opens the database and creates the schema if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	db, err := GetDB(dsn)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, driver: driverFor(dsn)}
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates the schema. It is safe to run more than once.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errDBNotInitialized
	}

	slog.Debug("creating db schema", "driver", s.driver)
	b, err := f.ReadFile("sql/ddl.sql")
	if err != nil {
		return errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return errors.Wrap(err, "failed to create database schema")
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(q string) string {
	if s.driver != driverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
