package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/models"
)

// PredictorClient calls the external maternal-risk classifier service.
// The model itself is a black box; this client validates inputs,
// forwards them, and derives the rule-based input summary locally.
type PredictorClient struct {
	baseURL string
	client  *http.Client
}

func NewPredictorClient(cfg *config.Config) *PredictorClient {
	return &PredictorClient{
		baseURL: cfg.PredictorServiceURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.PredictorTimeout) * time.Second,
		},
	}
}

// Predict sends the vitals to the classifier and returns its verdict.
func (pc *PredictorClient) Predict(ctx context.Context, input *models.PredictionInput) (*models.PredictionResult, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction input: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classifier service returned %d: %s", resp.StatusCode, string(data))
	}

	var result models.PredictionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %v", err)
	}

	return &result, nil
}

// ModelInfo proxies the classifier's metadata endpoint.
func (pc *PredictorClient) ModelInfo(ctx context.Context) (*models.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.baseURL+"/model-info", nil)
	if err != nil {
		return nil, err
	}

	resp, err := pc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier service unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier service returned %d", resp.StatusCode)
	}

	var info models.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode model info: %v", err)
	}

	return &info, nil
}

// ValidatePredictionInput checks vitals for physiologically plausible
// ranges before they reach the classifier.
func ValidatePredictionInput(input *models.PredictionInput) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"Age", input.Age, 10, 70},
		{"SystolicBP", input.SystolicBP, 60, 250},
		{"DiastolicBP", input.DiastolicBP, 30, 160},
		{"BS", input.BS, 30, 500},
		{"BodyTemp", input.BodyTemp, 90, 110},
		{"BMI", input.BMI, 10, 70},
		{"HeartRate", input.HeartRate, 30, 220},
	}

	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%s value %.1f is outside the accepted range [%.0f, %.0f]", c.name, c.value, c.min, c.max)
		}
	}

	for _, flag := range []struct {
		name  string
		value int
	}{
		{"PreviousComplications", input.PreviousComplications},
		{"PreexistingDiabetes", input.PreexistingDiabetes},
		{"GestationalDiabetes", input.GestationalDiabetes},
		{"MentalHealth", input.MentalHealth},
	} {
		if flag.value != 0 && flag.value != 1 {
			return fmt.Errorf("%s must be 0 or 1", flag.name)
		}
	}

	return nil
}

// SummarizeInput derives the rule-based interpretation of the vitals.
func SummarizeInput(input *models.PredictionInput) models.InputSummary {
	summary := models.InputSummary{}

	switch {
	case input.Age < 18:
		summary.AgeCategory = "Very young maternal age"
	case input.Age <= 25:
		summary.AgeCategory = "Young maternal age"
	case input.Age <= 35:
		summary.AgeCategory = "Optimal maternal age"
	default:
		summary.AgeCategory = "Advanced maternal age"
	}

	switch {
	case input.SystolicBP >= 140 || input.DiastolicBP >= 90:
		summary.BPStatus = "Hypertensive"
	case input.SystolicBP >= 130 || input.DiastolicBP >= 80:
		summary.BPStatus = "Stage 1 Hypertension"
	case input.SystolicBP >= 120:
		summary.BPStatus = "Elevated"
	default:
		summary.BPStatus = "Normal"
	}

	switch {
	case input.BMI < 18.5:
		summary.BMICategory = "Underweight"
	case input.BMI < 25:
		summary.BMICategory = "Normal weight"
	case input.BMI < 30:
		summary.BMICategory = "Overweight"
	default:
		summary.BMICategory = "Obese"
	}

	switch {
	case input.BS >= 126:
		summary.GlucoseStatus = "Diabetic range"
	case input.BS >= 100:
		summary.GlucoseStatus = "Prediabetic range"
	default:
		summary.GlucoseStatus = "Normal glucose"
	}

	var riskFactors []string
	if input.PreviousComplications == 1 {
		riskFactors = append(riskFactors, "Previous complications")
	}
	if input.PreexistingDiabetes == 1 {
		riskFactors = append(riskFactors, "Preexisting diabetes")
	}
	if input.GestationalDiabetes == 1 {
		riskFactors = append(riskFactors, "Gestational diabetes")
	}
	if input.MentalHealth == 1 {
		riskFactors = append(riskFactors, "Mental health concerns")
	}
	if len(riskFactors) == 0 {
		riskFactors = []string{"None identified"}
	}
	summary.RiskFactors = riskFactors

	return summary
}
