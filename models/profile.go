package models

import "time"

// UserProfile is the stored health profile driving daily recommendations.
type UserProfile struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PregnancyWeek int       `json:"pregnancy_week"`
	Preferences   string    `json:"preferences"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type RegisterProfileRequest struct {
	Name          string `json:"name" binding:"required,max=255"`
	PregnancyWeek int    `json:"pregnancy_week" binding:"required,min=1,max=45"`
	Preferences   string `json:"preferences,omitempty"`
}

type UpdateProfileRequest struct {
	Name          *string `json:"name,omitempty" binding:"omitempty,max=255"`
	PregnancyWeek *int    `json:"pregnancy_week,omitempty" binding:"omitempty,min=1,max=45"`
	Preferences   *string `json:"preferences,omitempty"`
}
