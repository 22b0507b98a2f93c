package models

import "time"

// ChatSession groups a user's messages into a named conversation.
// Stored in Postgres; the session id is a UUID string.
type ChatSession struct {
	ID           string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	SessionName  string    `json:"session_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ChatMessage is one turn of a conversation, user or assistant.
type ChatMessage struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	UserID           string    `json:"user_id"`
	Role             string    `json:"role"` // "user" or "assistant"
	Content          string    `json:"content"`
	ProcessingTimeMS int64     `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type ChatRequest struct {
	Message             string   `json:"message" binding:"required,min=1,max=2000"`
	SessionID           string   `json:"session_id,omitempty"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

type ChatResponse struct {
	Response         string    `json:"response"`
	SessionID        string    `json:"session_id"`
	AIStatus         string    `json:"ai_status"` // "ok" or "degraded"
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	TopK             int       `json:"top_k"`
	Threshold        float64   `json:"similarity_threshold"`
	Timestamp        time.Time `json:"timestamp"`
}

type CreateSessionRequest struct {
	SessionName string `json:"session_name" binding:"omitempty,max=255"`
}

// SearchLog is a fire-and-forget audit row for every retrieval.
type SearchLog struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id,omitempty"`
	Query            string    `json:"query"`
	ResultsCount     int       `json:"results_count"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// UserStats aggregates a user's chat activity over a window of days.
type UserStats struct {
	UserID        string    `json:"user_id"`
	Days          int       `json:"days"`
	SessionCount  int       `json:"session_count"`
	MessageCount  int       `json:"message_count"`
	FirstActivity time.Time `json:"first_activity,omitempty"`
	LastActivity  time.Time `json:"last_activity,omitempty"`
}
