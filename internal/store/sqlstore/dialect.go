package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DSN holds the network database settings. Unused for sqlite.
type DSN struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// Dialect returns the gorm dialector for cfg.Driver.
func Dialect(cfg Config) (gorm.Dialector, error) {
	switch normalizeDriver(cfg.Driver) {
	case DriverMySQL:
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DSN.User,
			cfg.DSN.Password,
			cfg.DSN.Host,
			cfg.DSN.Port,
			cfg.DSN.Name,
		)), nil
	case DriverPostgres:
		sslMode := cfg.DSN.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DSN.Host,
			cfg.DSN.User,
			cfg.DSN.Password,
			cfg.DSN.Name,
			cfg.DSN.Port,
			sslMode,
		)), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, errors.New("sqlstore: database path is required")
		}
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", DriverSQLite, "sqlite3":
		return DriverSQLite
	case DriverPostgres, "postgresql", "pg":
		return DriverPostgres
	case DriverMySQL, "mariadb":
		return DriverMySQL
	default:
		return raw
	}
}

// isDuplicateKey reports whether err is a unique-constraint violation on
// any supported driver.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "duplicate key value violates unique constraint"): // postgres 23505
		return true
	case strings.Contains(msg, "Error 1062"): // mysql
		return true
	case strings.Contains(msg, "UNIQUE constraint failed"): // sqlite
		return true
	}
	return false
}
