package models

import "time"

// Recommendation is one generated daily recommendation. At most one row
// exists per user per date; repeated requests the same day reuse it.
type Recommendation struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Recommendation     string    `json:"recommendation"`
	RecommendationDate string    `json:"recommendation_date"` // YYYY-MM-DD
	Source             string    `json:"source"`              // "ai" or "fallback"
	CreatedAt          time.Time `json:"created_at"`
}

type RecommendationResponse struct {
	UserID         int64  `json:"user_id"`
	Name           string `json:"name"`
	PregnancyWeek  int    `json:"pregnancy_week"`
	Recommendation string `json:"recommendation"`
	Date           string `json:"date"`
	Source         string `json:"source"`
	Cached         bool   `json:"cached"`
}
