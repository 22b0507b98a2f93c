package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"maternal-care-platform/models"

	"github.com/google/uuid"
)

// CreateSession inserts a new chat session owned by userID.
func (s *Store) CreateSession(ctx context.Context, userID, sessionName string) (*models.ChatSession, error) {
	if sessionName == "" {
		sessionName = "Chat " + time.Now().Format("2006-01-02 15:04")
	}

	session := &models.ChatSession{
		ID:          uuid.NewString(),
		UserID:      userID,
		SessionName: sessionName,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, session_name)
		 VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		session.ID, session.UserID, session.SessionName,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %v", err)
	}

	return session, nil
}

// GetSession returns a session only when it is owned by userID.
func (s *Store) GetSession(ctx context.Context, sessionID, userID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, session_name, message_count, created_at, updated_at
		 FROM chat_sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	).Scan(&session.ID, &session.UserID, &session.SessionName, &session.MessageCount, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}
	return &session, nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]models.ChatSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, session_name, message_count, created_at, updated_at
		 FROM chat_sessions WHERE user_id = $1
		 ORDER BY updated_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", err)
	}
	defer rows.Close()

	sessions := []models.ChatSession{}
	for rows.Next() {
		var session models.ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.SessionName, &session.MessageCount, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// DeleteSession removes a session and its messages (cascade). Returns
// false when the session does not exist or belongs to another user.
func (s *Store) DeleteSession(ctx context.Context, sessionID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddMessage appends one message to a session and bumps the session's
// message count and updated_at.
func (s *Store) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO chat_messages (session_id, user_id, role, content, processing_time_ms)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		msg.SessionID, msg.UserID, msg.Role, msg.Content, msg.ProcessingTimeMS,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %v", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chat_sessions SET message_count = message_count + 1, updated_at = now()
		 WHERE id = $1`,
		msg.SessionID)
	if err != nil {
		return fmt.Errorf("failed to update session counters: %v", err)
	}

	return tx.Commit()
}

// GetMessages returns a session's messages in chronological order,
// only when the session is owned by userID.
func (s *Store) GetMessages(ctx context.Context, sessionID, userID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.session_id, m.user_id, m.role, m.content, COALESCE(m.processing_time_ms, 0), m.created_at
		 FROM chat_messages m
		 JOIN chat_sessions cs ON cs.id = m.session_id
		 WHERE m.session_id = $1 AND cs.user_id = $2
		 ORDER BY m.created_at, m.id`,
		sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %v", err)
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.Role, &m.Content, &m.ProcessingTimeMS, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// GetUserStats aggregates a user's activity over the trailing window.
func (s *Store) GetUserStats(ctx context.Context, userID string, days int) (*models.UserStats, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	stats := &models.UserStats{UserID: userID, Days: days}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT session_id), COUNT(*),
		        COALESCE(MIN(created_at), to_timestamp(0)), COALESCE(MAX(created_at), to_timestamp(0))
		 FROM chat_messages WHERE user_id = $1 AND created_at >= $2`,
		userID, since,
	).Scan(&stats.SessionCount, &stats.MessageCount, &stats.FirstActivity, &stats.LastActivity)
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %v", err)
	}

	return stats, nil
}
