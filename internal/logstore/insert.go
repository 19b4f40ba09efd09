package logstore

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
)

// InsertBatch appends a batch of log records in a single transaction.
// If the batch fails, records are retried one at a time so a single bad
// record does not discard its neighbours.
func (s *Store) InsertBatch(records []model.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.insertBatchTx(ctx, records)
	if err == nil {
		return nil
	}

	var failed int
	for _, r := range records {
		if rerr := s.insertBatchTx(ctx, []model.LogRecord{r}); rerr != nil {
			failed++
			log.WithError(rerr).Warnf("logstore: dropping record (type=%s msg=%.80s)", r.Type, r.Message)
		}
	}
	if failed > 0 {
		log.Warnf("logstore: batch partially failed, %d/%d records dropped", failed, len(records))
	}
	return nil
}

func (s *Store) insertBatchTx(ctx context.Context, records []model.LogRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (id, timestamp, type, message, ip_address, username) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		ts := r.Time()
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, r.ID, ts, string(r.Type), r.Message, r.IPAddress, r.Username); err != nil {
			return fmt.Errorf("record insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
