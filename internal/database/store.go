package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store wraps the Postgres connection used for chat history, search
// logs, user profiles, recommendations, and predictions. Retrieval
// correctness never depends on it; writes are audit/history only.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}
	return s, nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies the Postgres connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_name VARCHAR(255) NOT NULL,
			message_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id, updated_at DESC)`,

		`CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			content TEXT NOT NULL,
			processing_time_ms BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS search_logs (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT,
			query TEXT NOT NULL,
			results_count INT NOT NULL DEFAULT 0,
			processing_time_ms BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_logs_created ON search_logs (created_at)`,

		`CREATE TABLE IF NOT EXISTS user_profiles (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			pregnancy_week INT,
			preferences TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			recommendation TEXT NOT NULL,
			recommendation_date DATE NOT NULL,
			source TEXT NOT NULL DEFAULT 'ai',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, recommendation_date)
		)`,

		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			user_email TEXT NOT NULL,
			age DOUBLE PRECISION NOT NULL,
			systolic_bp DOUBLE PRECISION NOT NULL,
			diastolic_bp DOUBLE PRECISION NOT NULL,
			blood_sugar DOUBLE PRECISION NOT NULL,
			body_temp DOUBLE PRECISION NOT NULL,
			bmi DOUBLE PRECISION NOT NULL,
			heart_rate DOUBLE PRECISION NOT NULL,
			previous_complications INT NOT NULL DEFAULT 0,
			preexisting_diabetes INT NOT NULL DEFAULT 0,
			gestational_diabetes INT NOT NULL DEFAULT 0,
			mental_health INT NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL,
			risk_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			health_advice TEXT NOT NULL DEFAULT '',
			advice_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			input_summary JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_user ON predictions (user_email, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
