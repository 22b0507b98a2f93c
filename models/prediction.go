package models

import "time"

// PredictionInput carries the maternal vitals sent to the external
// risk classifier. Field names match the classifier's feature schema.
type PredictionInput struct {
	Age                   float64 `json:"Age" binding:"required"`
	SystolicBP            float64 `json:"SystolicBP" binding:"required"`
	DiastolicBP           float64 `json:"DiastolicBP" binding:"required"`
	BS                    float64 `json:"BS" binding:"required"`
	BodyTemp              float64 `json:"BodyTemp" binding:"required"`
	BMI                   float64 `json:"BMI" binding:"required"`
	HeartRate             float64 `json:"HeartRate" binding:"required"`
	PreviousComplications int     `json:"PreviousComplications"`
	PreexistingDiabetes   int     `json:"PreexistingDiabetes"`
	GestationalDiabetes   int     `json:"GestationalDiabetes"`
	MentalHealth          int     `json:"MentalHealth"`
}

// PredictionResult is the classifier's verdict for one set of vitals.
type PredictionResult struct {
	RiskLevel         string             `json:"risk_level"`
	RiskConfidence    float64            `json:"risk_confidence"`
	RiskProbabilities map[string]float64 `json:"risk_probabilities,omitempty"`
	HealthAdvice      string             `json:"health_advice"`
	AdviceConfidence  float64            `json:"advice_confidence"`
	AlternativeAdvice []AdviceOption     `json:"alternative_advice,omitempty"`
}

type AdviceOption struct {
	Advice     string  `json:"advice"`
	Confidence float64 `json:"confidence"`
}

// InputSummary is the rule-based interpretation of the vitals, derived
// locally rather than by the classifier.
type InputSummary struct {
	AgeCategory   string   `json:"age_category"`
	BPStatus      string   `json:"bp_status"`
	BMICategory   string   `json:"bmi_category"`
	GlucoseStatus string   `json:"glucose_status"`
	RiskFactors   []string `json:"risk_factors"`
}

// Prediction is a stored classifier result, owned by one user.
type Prediction struct {
	ID           int64            `json:"prediction_id"`
	UserEmail    string           `json:"user_email"`
	Input        PredictionInput  `json:"input_data"`
	Result       PredictionResult `json:"prediction"`
	InputSummary InputSummary     `json:"input_summary"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ModelInfo proxies the classifier service's metadata endpoint.
type ModelInfo struct {
	RiskLevels         []string `json:"risk_levels"`
	TotalAdviceOptions int      `json:"total_advice_options"`
	FeatureCount       int      `json:"feature_count"`
	Features           []string `json:"features"`
}
