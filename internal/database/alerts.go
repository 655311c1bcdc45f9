package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"trade-alerts/internal/types"
)

// deleteBatchSize keeps IN lists well under sqlite's bound parameter limit.
const deleteBatchSize = 500

// AddAlert saves an alert; an alert with the same hash already stored is left untouched.
func (s *Store) AddAlert(ctx context.Context, alert types.Alert, config types.TableConfig) error {
	if err := config.Validate(); err != nil {
		return types.NewRepositoryError("add alert", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (%s, %s, %s, %s, %s)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (%s) DO NOTHING;`,
		quote(config.TableName),
		quote(config.HashColumnName),
		quote(config.PriceLevelColumnName),
		quote(config.UserIDColumnName),
		quote(config.SymbolColumnName),
		quote(config.DirectionColumnName),
		quote(config.HashColumnName),
	)

	res, err := s.DB.ExecContext(ctx, query, string(alert.Hash), alert.PriceLevel, alert.UserID, alert.Symbol, string(alert.Direction))
	if err != nil {
		return types.NewRepositoryError("add alert", errors.Wrap(err, "failed to insert alert"))
	}

	if n, _ := res.RowsAffected(); n == 0 {
		log.Debugf("Alert %s already stored", alert.Hash)
		return nil
	}
	log.WithFields(log.Fields{
		"hash":      alert.Hash,
		"user_id":   alert.UserID,
		"symbol":    alert.Symbol,
		"level":     alert.PriceLevel,
		"direction": alert.Direction,
	}).Debug("Alert inserted successfully")
	return nil
}

// FetchHashesByUserID lists the hashes of a user's alerts, oldest first.
func (s *Store) FetchHashesByUserID(ctx context.Context, userID string, config types.TableConfig) ([]types.Hash, error) {
	if err := config.Validate(); err != nil {
		return nil, types.NewRepositoryError("fetch hashes", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY created_at, %s;`,
		quote(config.HashColumnName),
		quote(config.TableName),
		quote(config.UserIDColumnName),
		quote(config.HashColumnName),
	)

	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, types.NewRepositoryError("fetch hashes", errors.Wrapf(err, "failed to query alerts for user %s", userID))
	}
	defer rows.Close()

	hashes := []types.Hash{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, types.NewRepositoryError("fetch hashes", errors.Wrap(err, "failed to scan row"))
		}
		hashes = append(hashes, types.Hash(h))
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewRepositoryError("fetch hashes", err)
	}
	return hashes, nil
}

// FetchDetailsByHash loads one alert. A missing hash yields an error matching types.ErrNotFound.
func (s *Store) FetchDetailsByHash(ctx context.Context, hash types.Hash, config types.TableConfig) (types.Alert, error) {
	if err := config.Validate(); err != nil {
		return types.Alert{}, types.NewRepositoryError("fetch details", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?;`,
		selectColumns(config),
		quote(config.TableName),
		quote(config.HashColumnName),
	)

	alert, err := scanAlert(s.DB.QueryRowContext(ctx, query, string(hash)))
	if err == sql.ErrNoRows {
		return types.Alert{}, types.NewRepositoryError("fetch details", errors.Wrapf(types.ErrNotFound, "hash %s", hash))
	}
	if err != nil {
		return types.Alert{}, types.NewRepositoryError("fetch details", errors.Wrap(err, "failed to query alert"))
	}
	return alert, nil
}

// DeleteAlertsByHashes removes every given hash in one transaction.
func (s *Store) DeleteAlertsByHashes(ctx context.Context, hashes types.HashSet, config types.TableConfig) error {
	if err := config.Validate(); err != nil {
		return types.NewRepositoryError("delete alerts", err)
	}
	if hashes.Len() == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return types.NewRepositoryError("delete alerts", errors.Wrap(err, "failed to begin transaction"))
	}
	defer tx.Rollback()

	all := hashes.Slice()
	var deleted int64
	for start := 0; start < len(all); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(all) {
			end = len(all)
		}
		batch := all[start:end]

		args := make([]interface{}, len(batch))
		for i, h := range batch {
			args[i] = string(h)
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s IN (%s);`,
			quote(config.TableName),
			quote(config.HashColumnName),
			placeholders(len(batch)),
		)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return types.NewRepositoryError("delete alerts", errors.Wrap(err, "failed to delete alerts"))
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return types.NewRepositoryError("delete alerts", errors.Wrap(err, "failed to commit delete"))
	}
	log.Debugf("Deleted %d of %d alerts", deleted, len(all))
	return nil
}

// FetchUniqueSymbols lists the distinct symbols that have at least one alert.
func (s *Store) FetchUniqueSymbols(ctx context.Context, config types.TableConfig) (types.SymbolSet, error) {
	if err := config.Validate(); err != nil {
		return nil, types.NewRepositoryError("fetch symbols", err)
	}

	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s;`, quote(config.SymbolColumnName), quote(config.TableName))
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, types.NewRepositoryError("fetch symbols", errors.Wrap(err, "failed to query symbols"))
	}
	defer rows.Close()

	symbols := make(types.SymbolSet)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, types.NewRepositoryError("fetch symbols", errors.Wrap(err, "failed to scan row"))
		}
		symbols.Add(symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewRepositoryError("fetch symbols", err)
	}
	return symbols, nil
}

// FetchAllAlerts loads every stored alert.
func (s *Store) FetchAllAlerts(ctx context.Context, config types.TableConfig) ([]types.Alert, error) {
	if err := config.Validate(); err != nil {
		return nil, types.NewRepositoryError("fetch all", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at, %s;`,
		selectColumns(config),
		quote(config.TableName),
		quote(config.HashColumnName),
	)
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, types.NewRepositoryError("fetch all", errors.Wrap(err, "failed to query alerts"))
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, types.NewRepositoryError("fetch all", errors.Wrap(err, "failed to scan row"))
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewRepositoryError("fetch all", err)
	}
	return alerts, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func selectColumns(config types.TableConfig) string {
	return strings.Join([]string{
		quote(config.HashColumnName),
		quote(config.PriceLevelColumnName),
		quote(config.SymbolColumnName),
		quote(config.UserIDColumnName),
		quote(config.DirectionColumnName),
		"created_at",
	}, ", ")
}

func scanAlert(row scanner) (types.Alert, error) {
	var (
		hash, symbol, userID, direction string
		priceLevel                      float64
		createdAt                       sql.NullString
	)
	if err := row.Scan(&hash, &priceLevel, &symbol, &userID, &direction, &createdAt); err != nil {
		return types.Alert{}, err
	}

	d, err := types.ParseDirection(direction)
	if err != nil {
		log.Warnf("Alert %s has unknown direction %q, using the default", hash, direction)
	}
	alert := types.NewAlert(types.Hash(hash), priceLevel, symbol, userID).WithDirection(d)
	alert.CreatedAt = parseTimestamp(createdAt)
	return alert, nil
}

// parseTimestamp reads created_at whether the driver hands it back as
// sqlite text or as a formatted time.
func parseTimestamp(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
