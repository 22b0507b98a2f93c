package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"maternal-care-platform/models"
)

const predictionColumns = `id, user_email, age, systolic_bp, diastolic_bp, blood_sugar, body_temp, bmi, heart_rate,
	previous_complications, preexisting_diabetes, gestational_diabetes, mental_health,
	risk_level, risk_confidence, health_advice, advice_confidence, input_summary, created_at, updated_at`

// StorePrediction inserts a classifier result owned by userEmail.
func (s *Store) StorePrediction(ctx context.Context, p *models.Prediction) error {
	summary, err := json.Marshal(p.InputSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal input summary: %v", err)
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO predictions (user_email, age, systolic_bp, diastolic_bp, blood_sugar, body_temp, bmi, heart_rate,
			previous_complications, preexisting_diabetes, gestational_diabetes, mental_health,
			risk_level, risk_confidence, health_advice, advice_confidence, input_summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, created_at, updated_at`,
		p.UserEmail,
		p.Input.Age, p.Input.SystolicBP, p.Input.DiastolicBP, p.Input.BS, p.Input.BodyTemp, p.Input.BMI, p.Input.HeartRate,
		p.Input.PreviousComplications, p.Input.PreexistingDiabetes, p.Input.GestationalDiabetes, p.Input.MentalHealth,
		p.Result.RiskLevel, p.Result.RiskConfidence, p.Result.HealthAdvice, p.Result.AdviceConfidence, summary,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to store prediction: %v", err)
	}

	return nil
}

// UpdatePrediction overwrites an existing prediction when it belongs
// to userEmail. Returns false when no such row exists.
func (s *Store) UpdatePrediction(ctx context.Context, id int64, userEmail string, p *models.Prediction) (bool, error) {
	summary, err := json.Marshal(p.InputSummary)
	if err != nil {
		return false, fmt.Errorf("failed to marshal input summary: %v", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE predictions SET
			age = $1, systolic_bp = $2, diastolic_bp = $3, blood_sugar = $4, body_temp = $5, bmi = $6, heart_rate = $7,
			previous_complications = $8, preexisting_diabetes = $9, gestational_diabetes = $10, mental_health = $11,
			risk_level = $12, risk_confidence = $13, health_advice = $14, advice_confidence = $15,
			input_summary = $16, updated_at = now()
		 WHERE id = $17 AND user_email = $18`,
		p.Input.Age, p.Input.SystolicBP, p.Input.DiastolicBP, p.Input.BS, p.Input.BodyTemp, p.Input.BMI, p.Input.HeartRate,
		p.Input.PreviousComplications, p.Input.PreexistingDiabetes, p.Input.GestationalDiabetes, p.Input.MentalHealth,
		p.Result.RiskLevel, p.Result.RiskConfidence, p.Result.HealthAdvice, p.Result.AdviceConfidence,
		summary, id, userEmail)
	if err != nil {
		return false, fmt.Errorf("failed to update prediction: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetPrediction returns one prediction owned by userEmail, or nil.
func (s *Store) GetPrediction(ctx context.Context, id int64, userEmail string) (*models.Prediction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE id = $1 AND user_email = $2`,
		id, userEmail)
	return scanPrediction(row)
}

// GetLatestPrediction returns the user's most recent prediction, or nil.
func (s *Store) GetLatestPrediction(ctx context.Context, userEmail string) (*models.Prediction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE user_email = $1
		 ORDER BY created_at DESC LIMIT 1`,
		userEmail)
	return scanPrediction(row)
}

// GetUserPredictions returns the user's predictions, newest first.
func (s *Store) GetUserPredictions(ctx context.Context, userEmail string, limit int) ([]models.Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+predictionColumns+` FROM predictions WHERE user_email = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userEmail, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %v", err)
	}
	defer rows.Close()

	predictions := []models.Prediction{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, *p)
	}

	return predictions, rows.Err()
}

// DeletePrediction removes a prediction owned by userEmail. Returns
// false when no matching row exists.
func (s *Store) DeletePrediction(ctx context.Context, id int64, userEmail string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM predictions WHERE id = $1 AND user_email = $2`,
		id, userEmail)
	if err != nil {
		return false, fmt.Errorf("failed to delete prediction: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(row rowScanner) (*models.Prediction, error) {
	var p models.Prediction
	var summary []byte

	err := row.Scan(
		&p.ID, &p.UserEmail,
		&p.Input.Age, &p.Input.SystolicBP, &p.Input.DiastolicBP, &p.Input.BS, &p.Input.BodyTemp, &p.Input.BMI, &p.Input.HeartRate,
		&p.Input.PreviousComplications, &p.Input.PreexistingDiabetes, &p.Input.GestationalDiabetes, &p.Input.MentalHealth,
		&p.Result.RiskLevel, &p.Result.RiskConfidence, &p.Result.HealthAdvice, &p.Result.AdviceConfidence,
		&summary, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan prediction: %v", err)
	}

	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &p.InputSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input summary: %v", err)
		}
	}

	return &p, nil
}
