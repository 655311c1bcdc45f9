package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"

	_ "modernc.org/sqlite"
)

// Store keeps alerts and persisted metrics in a SQLite database.
type Store struct {
	DB *sql.DB
}

// InitDB opens the database at dbPath and creates the alerts table described
// by config and the metrics table.
func InitDB(dbPath string, config types.TableConfig) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.Migrate(context.Background(), config); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug("Database initialized successfully.")
	return s, nil
}

// Migrate creates the alerts and metrics tables when they do not exist.
func (s *Store) Migrate(ctx context.Context, config types.TableConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	createTableQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		%s TEXT PRIMARY KEY,
		%s REAL NOT NULL,
		%s TEXT NOT NULL,
		%s TEXT NOT NULL,
		%s TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
		quote(config.TableName),
		quote(config.HashColumnName),
		quote(config.PriceLevelColumnName),
		quote(config.UserIDColumnName),
		quote(config.SymbolColumnName),
		quote(config.DirectionColumnName),
	)
	if _, err := s.DB.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("failed to create %s table: %w", config.TableName, err)
	}

	createUserIndex := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s);`,
		quote("idx_"+config.TableName+"_"+config.UserIDColumnName),
		quote(config.TableName),
		quote(config.UserIDColumnName),
	)
	if _, err := s.DB.ExecContext(ctx, createUserIndex); err != nil {
		return errors.Wrap(err, "failed to create user index")
	}

	createMetricsTable := `
		CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err := s.DB.ExecContext(ctx, createMetricsTable); err != nil {
		return fmt.Errorf("failed to create metrics table: %w", err)
	}
	return nil
}

func (s *Store) CloseDB() error {
	if s != nil && s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// quote makes an already validated identifier safe to splice into SQL.
func quote(identifier string) string {
	return `"` + identifier + `"`
}
