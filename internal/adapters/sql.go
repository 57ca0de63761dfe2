package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// SQLStore keeps kits in a single table of a SQL database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// SQLiteDSN returns the connection string for a sqlite file in WAL mode.
func SQLiteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// PostgresDSN builds a lib/pq connection string.
func PostgresDSN(host string, port int, user, password, database, sslMode string) string {
	if port == 0 {
		port = 5432
	}
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, database, sslMode)
}

// MySQLDSN builds a go-sql-driver/mysql DSN.
func MySQLDSN(host string, port int, user, password, database string) string {
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		user, password, host, port, database)
}

// OpenSQL opens and migrates a SQL store. For sqlite, dsn may be a bare file
// path.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	driver := string(dialect)
	switch dialect {
	case DialectSQLite:
		if !strings.Contains(dsn, "?") {
			if dir := filepath.Dir(dsn); dir != "" {
				if err := os.MkdirAll(dir, 0o750); err != nil {
					return nil, fmt.Errorf("create db directory: %w", err)
				}
			}
			dsn = SQLiteDSN(dsn)
		}
	case DialectPostgres, DialectMySQL:
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer at a time avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	idType, docType, timeType := "TEXT", "TEXT", "TIMESTAMP"
	switch s.dialect {
	case DialectMySQL:
		idType, docType, timeType = "VARCHAR(128)", "LONGTEXT", "DATETIME(6)"
	case DialectPostgres:
		timeType = "TIMESTAMPTZ"
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS kits (
		id %s PRIMARY KEY,
		document %s NOT NULL,
		version VARCHAR(64) NOT NULL DEFAULT '',
		created_at %s NOT NULL,
		updated_at %s NOT NULL
	)`, idType, docType, timeType, timeType))
	return err
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) upsert() string {
	switch s.dialect {
	case DialectMySQL:
		return `INSERT INTO kits (id, document, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE document = VALUES(document), version = VALUES(version), updated_at = VALUES(updated_at)`
	default:
		return `INSERT INTO kits (id, document, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET document = excluded.document, version = excluded.version, updated_at = excluded.updated_at`
	}
}

func (s *SQLStore) Put(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("encode kit %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(s.upsert()),
		rec.ID, string(doc), rec.Version, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put kit %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	var doc string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, document, version, created_at, updated_at FROM kits WHERE id = ?`), id,
	).Scan(&rec.ID, &doc, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, kitNotFound(id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get kit %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(doc), &rec.Document); err != nil {
		return Record{}, fmt.Errorf("decode kit %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, version, updated_at FROM kits ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list kits: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Version, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kits WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete kit %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return kitNotFound(id)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
