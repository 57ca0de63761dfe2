package adapters

import (
	"context"
	"fmt"
	"path/filepath"
)

// Storage drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongo"
)

// StorageOptions selects and configures a Store.
type StorageOptions struct {
	Driver string
	// Dir is the kit directory of the file driver and the default location
	// of the sqlite database.
	Dir string
	// DSN is the connection string of the SQL and mongo drivers.
	DSN        string
	Database   string
	Collection string
}

// Open creates the Store named by opts.Driver.
func Open(ctx context.Context, opts StorageOptions) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverFile:
		return NewFileStore(opts.Dir)
	case DriverSQLite:
		dsn := opts.DSN
		if dsn == "" {
			dsn = filepath.Join(opts.Dir, "mediakit.db")
		}
		return OpenSQL(ctx, DialectSQLite, dsn)
	case DriverPostgres:
		return OpenSQL(ctx, DialectPostgres, opts.DSN)
	case DriverMySQL:
		return OpenSQL(ctx, DialectMySQL, opts.DSN)
	case DriverMongo:
		return OpenMongo(ctx, opts.DSN, opts.Database, opts.Collection)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", opts.Driver)
	}
}
