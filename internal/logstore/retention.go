package logstore

// Prune deletes the oldest records beyond maxRows, keeping the database
// bounded on long-lived servers. A maxRows of zero disables pruning.
func (s *Store) Prune(maxRows int64) (int64, error) {
	if maxRows <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM records
		WHERE row_id <= (
			SELECT COALESCE(MAX(row_id), 0) - ? FROM records
		)`, maxRows)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
