package logstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
)

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// filterClauses translates a record filter into SQL conditions.
func filterClauses(filter model.Filter) (conditions []string, args []interface{}) {
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Search != "" {
		conditions = append(conditions, "(message ILIKE ? OR username ILIKE ? OR ip_address LIKE ?)")
		needle := "%" + filter.Search + "%"
		args = append(args, needle, needle, needle)
	}
	return conditions, args
}

// Recent returns the most recent records matching the filter. With
// newestFirst the result is ordered newest to oldest, otherwise
// chronologically.
func (s *Store) Recent(limit int, filter model.Filter, newestFirst bool) ([]model.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	conditions, args := filterClauses(filter)
	inner := "SELECT id, timestamp, type, message, ip_address, username FROM records"
	if len(conditions) > 0 {
		inner += " WHERE " + strings.Join(conditions, " AND ")
	}
	inner += " ORDER BY row_id DESC LIMIT ?"
	args = append(args, limit)

	query := inner
	if !newestFirst {
		// Wrap so final results come back in chronological order.
		query = "SELECT * FROM (" + inner + ") ORDER BY row_id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.LogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			log.WithError(err).Warn("logstore: scan error (Recent)")
			continue
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// TotalCount returns the total number of stored records.
func (s *Store) TotalCount() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count)
	return count, err
}

// MinuteCounts is a per-minute record count bucket.
type MinuteCounts struct {
	Minute time.Time `json:"minute"`
	Errors int64     `json:"errors"`
	Total  int64     `json:"total"`
}

// CountsByMinute returns per-minute record volumes for a trailing window,
// feeding the console's log-rate chart.
func (s *Store) CountsByMinute(window time.Duration) ([]MinuteCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	cutoff := time.Now().Add(-window)

	rows, err := s.db.QueryContext(ctx, `
		SELECT date_trunc('minute', timestamp) AS minute,
			SUM(CASE WHEN type='error' THEN 1 ELSE 0 END) AS errors,
			COUNT(*) AS total
		FROM records
		WHERE timestamp >= ?
		GROUP BY minute ORDER BY minute`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MinuteCounts
	for rows.Next() {
		var mc MinuteCounts
		if err := rows.Scan(&mc.Minute, &mc.Errors, &mc.Total); err != nil {
			log.WithError(err).Warn("logstore: scan error (CountsByMinute)")
			continue
		}
		results = append(results, mc)
	}
	return results, rows.Err()
}

// TypeCounts returns the total count per record category.
func (s *Store) TypeCounts() (map[model.Category]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM records GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[model.Category]int64)
	for rows.Next() {
		var typ string
		var count int64
		if err := rows.Scan(&typ, &count); err != nil {
			log.WithError(err).Warn("logstore: scan error (TypeCounts)")
			continue
		}
		result[model.Category(typ)] = count
	}
	return result, rows.Err()
}

func scanRecord(rows *sql.Rows) (model.LogRecord, error) {
	var rec model.LogRecord
	var ts time.Time
	var typ string
	var ip, user sql.NullString
	if err := rows.Scan(&rec.ID, &ts, &typ, &rec.Message, &ip, &user); err != nil {
		return model.LogRecord{}, err
	}
	rec.Timestamp = ts.Format(model.TimestampLayout)
	rec.Type = model.Category(typ)
	rec.IPAddress = ip.String
	rec.Username = user.String
	return rec, nil
}
