package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names a supported SQL backend
type Dialect string

const (
	DialectSQLite Dialect = "sqlite3"
	DialectMySQL  Dialect = "mysql"
)

// ParseDialect maps a driver name to a Dialect
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository provides data access methods. A Repository handed to a WithTx
// callback runs every statement inside that transaction.
type Repository struct {
	db      *sql.DB
	q       queryer
	dialect Dialect
	inTx    bool
}

// New opens a SQLite repository at dbPath
func New(dbPath string) (*Repository, error) {
	return Open(DialectSQLite, dbPath)
}

// Open connects to the given backend and runs migrations
func Open(dialect Dialect, dsn string) (*Repository, error) {
	var (
		db  *sql.DB
		err error
	)

	switch dialect {
	case DialectSQLite:
		db, err = sql.Open("sqlite3", sqliteDSN(dsn))
		if err != nil {
			return nil, err
		}
		// One connection serializes every transaction; BEGIN IMMEDIATE
		// (via _txlock) extends that across processes sharing the file.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, err
		}
	case DialectMySQL:
		db, err = sql.Open("mysql", mysqlDSN(dsn))
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	repo := &Repository{db: db, q: db, dialect: dialect}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repo, nil
}

// sqliteDSN adds the connection options the ledger relies on
func sqliteDSN(path string) string {
	params := "_txlock=immediate&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// mysqlDSN makes sure DATETIME columns scan into time.Time in UTC
func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "parseTime=true&loc=UTC"
}

// Dialect returns the backend in use
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil && !r.inTx {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithTx runs fn inside a single transaction. The Ledger passed to fn must be
// the only handle used until fn returns. Nested calls join the outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx Ledger) error) error {
	return r.inTransaction(ctx, func(txRepo *Repository) error {
		return fn(txRepo)
	})
}

func (r *Repository) inTransaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	opts := &sql.TxOptions{}
	if r.dialect == DialectMySQL {
		opts.Isolation = sql.LevelSerializable
	}

	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Repository{db: r.db, q: tx, dialect: r.dialect, inTx: true}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LockSettings takes the row lock that serializes allocation, arming and
// drawing. On SQLite the immediate transaction already holds the write lock.
func (r *Repository) LockSettings(ctx context.Context) error {
	if r.dialect != DialectMySQL || !r.inTx {
		return nil
	}
	var id int
	err := r.q.QueryRowContext(ctx, `SELECT id FROM raffle_settings WHERE id = 1 FOR UPDATE`).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrSettingsMissing
	}
	return err
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	for _, migration := range migrationsFor(r.dialect) {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
