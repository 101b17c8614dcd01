// Package gateway is the persistence boundary: a generic record store with
// create/read/update/delete calls over named tables. The editing session and
// the tree mutator speak only this surface; which backend actually holds the
// records is a configuration detail.
package gateway

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongoDB  = "mongodb"
)

// Record is one stored row/document as a generic field map.
type Record map[string]any

// Store is the generic record store consumed by the engine. Implementations
// assign a uuid id on insert when the caller supplies none, and Insert and
// Update return the record as stored so callers can reconcile server-computed
// fields.
type Store interface {
	// FetchByForeignKey returns all records whose keyField equals keyValue.
	FetchByForeignKey(ctx context.Context, table, keyField string, keyValue any) ([]Record, error)

	// FetchOneByForeignKey returns the first matching record, or nil.
	FetchOneByForeignKey(ctx context.Context, table, keyField string, keyValue any) (Record, error)

	// FetchAll returns every record in the table.
	FetchAll(ctx context.Context, table string) ([]Record, error)

	Insert(ctx context.Context, table string, fields Record) (Record, error)
	Update(ctx context.Context, table, id string, fields Record) (Record, error)
	Delete(ctx context.Context, table, id string) error
	BulkDelete(ctx context.Context, table string, ids []string) error

	Close() error
}

// Config selects and parameterizes the backend.
type Config struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"` // sqlite file path
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
}

// Open creates a Store for the configured driver.
func Open(cfg Config, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return newSQLiteStore(cfg.Path, logger)
	case DriverPostgres:
		return newSQLStore("postgres", buildPostgresDSN(cfg), logger)
	case DriverMySQL:
		return newSQLStore("mysql", buildMySQLDSN(cfg), logger)
	case DriverMongoDB:
		return newMongoStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// newID assigns the server-side identifier for a freshly inserted record.
func newID() string {
	return uuid.New().String()
}

// identPattern guards table/column names interpolated into SQL text.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier: %q", name)
	}
	return nil
}

// String reads a string field from a record, tolerating missing values.
func String(rec Record, key string) string {
	if rec == nil {
		return ""
	}
	if s, ok := rec[key].(string); ok {
		return s
	}
	return ""
}

// Int reads an integer field from a record. SQL drivers scan integers as
// int64 and mongo decodes them as int32, so both are normalized here.
func Int(rec Record, key string) int {
	if rec == nil {
		return 0
	}
	switch v := rec[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
