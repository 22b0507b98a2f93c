package database

import (
	"context"
	"database/sql"
	"fmt"

	"maternal-care-platform/models"
)

// CreateProfile registers a health profile and returns its id.
func (s *Store) CreateProfile(ctx context.Context, req *models.RegisterProfileRequest) (*models.UserProfile, error) {
	profile := &models.UserProfile{
		Name:          req.Name,
		PregnancyWeek: req.PregnancyWeek,
		Preferences:   req.Preferences,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO user_profiles (name, pregnancy_week, preferences)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		profile.Name, profile.PregnancyWeek, profile.Preferences,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %v", err)
	}

	return profile, nil
}

// GetProfile returns a profile by id, or nil when absent.
func (s *Store) GetProfile(ctx context.Context, id int64) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(pregnancy_week, 0), preferences, created_at, updated_at
		 FROM user_profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PregnancyWeek, &p.Preferences, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %v", err)
	}
	return &p, nil
}

// UpdateProfile applies the non-nil fields of req to an existing
// profile and returns the updated row, or nil when the profile does
// not exist.
func (s *Store) UpdateProfile(ctx context.Context, id int64, req *models.UpdateProfileRequest) (*models.UserProfile, error) {
	current, err := s.GetProfile(ctx, id)
	if err != nil || current == nil {
		return current, err
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.PregnancyWeek != nil {
		current.PregnancyWeek = *req.PregnancyWeek
	}
	if req.Preferences != nil {
		current.Preferences = *req.Preferences
	}

	err = s.db.QueryRowContext(ctx,
		`UPDATE user_profiles SET name = $1, pregnancy_week = $2, preferences = $3, updated_at = now()
		 WHERE id = $4
		 RETURNING updated_at`,
		current.Name, current.PregnancyWeek, current.Preferences, id,
	).Scan(&current.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %v", err)
	}

	return current, nil
}

// ListProfiles returns all profiles, used by the daily recommendation
// job to iterate over registered users.
func (s *Store) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(pregnancy_week, 0), preferences, created_at, updated_at
		 FROM user_profiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %v", err)
	}
	defer rows.Close()

	profiles := []models.UserProfile{}
	for rows.Next() {
		var p models.UserProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.PregnancyWeek, &p.Preferences, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// GetRecommendationForDate returns the stored recommendation for a
// user and date, or nil when none was generated yet.
func (s *Store) GetRecommendationForDate(ctx context.Context, userID int64, date string) (*models.Recommendation, error) {
	var r models.Recommendation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, recommendation, to_char(recommendation_date, 'YYYY-MM-DD'), source, created_at
		 FROM recommendations WHERE user_id = $1 AND recommendation_date = $2`,
		userID, date,
	).Scan(&r.ID, &r.UserID, &r.Recommendation, &r.RecommendationDate, &r.Source, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation: %v", err)
	}
	return &r, nil
}

// StoreRecommendation upserts the recommendation for a user and date.
func (s *Store) StoreRecommendation(ctx context.Context, rec *models.Recommendation) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO recommendations (user_id, recommendation, recommendation_date, source)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, recommendation_date)
		 DO UPDATE SET recommendation = EXCLUDED.recommendation, source = EXCLUDED.source
		 RETURNING id, created_at`,
		rec.UserID, rec.Recommendation, rec.RecommendationDate, rec.Source,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store recommendation: %v", err)
	}
	return nil
}

// GetRecommendationHistory returns a user's recommendations, newest
// first.
func (s *Store) GetRecommendationHistory(ctx context.Context, userID int64, limit int) ([]models.Recommendation, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, recommendation, to_char(recommendation_date, 'YYYY-MM-DD'), source, created_at
		 FROM recommendations WHERE user_id = $1
		 ORDER BY recommendation_date DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation history: %v", err)
	}
	defer rows.Close()

	recs := []models.Recommendation{}
	for rows.Next() {
		var r models.Recommendation
		if err := rows.Scan(&r.ID, &r.UserID, &r.Recommendation, &r.RecommendationDate, &r.Source, &r.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}

	return recs, rows.Err()
}
