package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// sqlStore is the shared Store implementation for SQLite, MySQL and
// Postgres. Queries are written with ? placeholders and rebound per dialect.
type sqlStore struct {
	driverName string
	db         *sql.DB
	logger     zerolog.Logger
}

// migrations is the portable schema shared by all SQL backends.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS topics (
		id VARCHAR(64) PRIMARY KEY,
		title TEXT NOT NULL,
		icon TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sub_topics (
		id VARCHAR(64) PRIMARY KEY,
		topic_id VARCHAR(64) NOT NULL,
		title TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS contents (
		id VARCHAR(64) PRIMARY KEY,
		sub_topic_id VARCHAR(64) NOT NULL,
		content_data TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sub_topics_topic ON sub_topics(topic_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contents_sub_topic ON contents(sub_topic_id)`,
}

// newSQLiteStore opens (or creates) the local SQLite store.
func newSQLiteStore(path string, logger zerolog.Logger) (*sqlStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer — limit to a single connection to
	// prevent SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &sqlStore{driverName: "sqlite", db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newSQLStore opens a remote SQL store (mysql or postgres).
func newSQLStore(driverName, dsn string, logger zerolog.Logger) (*sqlStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	s := &sqlStore{driverName: driverName, db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) migrate() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $1..$n for postgres.
func (s *sqlStore) rebind(query string) string {
	if s.driverName != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) FetchByForeignKey(ctx context.Context, table, keyField string, keyValue any) ([]Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	if err := checkIdent(keyField); err != nil {
		return nil, err
	}
	query := s.rebind(fmt.Sprintf(`SELECT * FROM %s WHERE %s = ?`, table, keyField))
	rows, err := s.db.QueryContext(ctx, query, keyValue)
	if err != nil {
		return nil, fmt.Errorf("fetch %s by %s: %w", table, keyField, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *sqlStore) FetchOneByForeignKey(ctx context.Context, table, keyField string, keyValue any) (Record, error) {
	recs, err := s.FetchByForeignKey(ctx, table, keyField, keyValue)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (s *sqlStore) FetchAll(ctx context.Context, table string) ([]Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("fetch all %s: %w", table, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *sqlStore) fetchByID(ctx context.Context, table, id string) (Record, error) {
	return s.FetchOneByForeignKey(ctx, table, "id", id)
}

func (s *sqlStore) Insert(ctx context.Context, table string, fields Record) (Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	row := cloneRecord(fields)
	id := String(row, "id")
	if id == "" {
		id = newID()
		row["id"] = id
	}

	cols := sortedKeys(row)
	args := make([]any, 0, len(cols))
	marks := make([]string, 0, len(cols))
	for _, c := range cols {
		if err := checkIdent(c); err != nil {
			return nil, err
		}
		args = append(args, row[c])
		marks = append(marks, "?")
	}
	query := s.rebind(fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		table, strings.Join(cols, ", "), strings.Join(marks, ", "),
	))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	s.logger.Debug().Str("table", table).Str("id", id).Msg("record inserted")
	return s.fetchByID(ctx, table, id)
}

func (s *sqlStore) Update(ctx context.Context, table, id string, fields Record) (Record, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	cols := sortedKeys(fields)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		if c == "id" {
			continue
		}
		if err := checkIdent(c); err != nil {
			return nil, err
		}
		sets = append(sets, c+" = ?")
		args = append(args, fields[c])
	}
	if len(sets) == 0 {
		return s.fetchByID(ctx, table, id)
	}
	args = append(args, id)
	query := s.rebind(fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = ?`, table, strings.Join(sets, ", "),
	))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update %s: no record with id %s", table, id)
	}
	return s.fetchByID(ctx, table, id)
}

func (s *sqlStore) Delete(ctx context.Context, table, id string) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	query := s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table))
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func (s *sqlStore) BulkDelete(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := checkIdent(table); err != nil {
		return err
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	query := s.rebind(fmt.Sprintf(
		`DELETE FROM %s WHERE id IN (%s)`, table, strings.Join(marks, ", "),
	))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk delete from %s: %w", table, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// scanRecords reads all rows into generic field maps.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildPostgresDSN constructs a Postgres connection string.
func buildPostgresDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslMode,
	)
}

// buildMySQLDSN constructs a MySQL DSN.
func buildMySQLDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
