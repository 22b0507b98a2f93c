package database

import (
	"context"
	"time"

	"maternal-care-platform/internal/logger"
)

// LogSearch records one retrieval, fire-and-forget. Failures are
// logged and swallowed so audit writes never affect request handling.
func (s *Store) LogSearch(userID, query string, resultsCount int, processingTime time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs (user_id, query, results_count, processing_time_ms)
		 VALUES (NULLIF($1, ''), $2, $3, $4)`,
		userID, query, resultsCount, processingTime.Milliseconds())
	if err != nil {
		logger.Warn("Failed to write search log", "error", err)
	}
}

// RecentSearchCount returns the number of searches logged in the
// trailing window, used by the stats endpoint.
func (s *Store) RecentSearchCount(ctx context.Context, window time.Duration) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM search_logs WHERE created_at >= $1`,
		time.Now().Add(-window),
	).Scan(&count)
	return count, err
}
