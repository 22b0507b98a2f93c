package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/models"
)

func validInput() models.PredictionInput {
	return models.PredictionInput{
		Age:         28,
		SystolicBP:  115,
		DiastolicBP: 75,
		BS:          90,
		BodyTemp:    98.6,
		BMI:         23,
		HeartRate:   78,
	}
}

func TestValidatePredictionInput(t *testing.T) {
	t.Run("accepts plausible vitals", func(t *testing.T) {
		input := validInput()
		assert.NoError(t, ValidatePredictionInput(&input))
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*models.PredictionInput)
		}{
			{"age too low", func(in *models.PredictionInput) { in.Age = 9 }},
			{"age too high", func(in *models.PredictionInput) { in.Age = 71 }},
			{"systolic too high", func(in *models.PredictionInput) { in.SystolicBP = 260 }},
			{"diastolic too low", func(in *models.PredictionInput) { in.DiastolicBP = 20 }},
			{"blood sugar too high", func(in *models.PredictionInput) { in.BS = 600 }},
			{"body temp too low", func(in *models.PredictionInput) { in.BodyTemp = 80 }},
			{"bmi too high", func(in *models.PredictionInput) { in.BMI = 80 }},
			{"heart rate too low", func(in *models.PredictionInput) { in.HeartRate = 20 }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				input := validInput()
				tc.mutate(&input)
				assert.Error(t, ValidatePredictionInput(&input))
			})
		}
	})

	t.Run("rejects non binary flags", func(t *testing.T) {
		input := validInput()
		input.GestationalDiabetes = 2
		require.Error(t, ValidatePredictionInput(&input))

		input = validInput()
		input.MentalHealth = -1
		require.Error(t, ValidatePredictionInput(&input))
	})
}

func TestSummarizeInput(t *testing.T) {
	t.Run("age categories", func(t *testing.T) {
		cases := []struct {
			age  float64
			want string
		}{
			{17, "Very young maternal age"},
			{18, "Young maternal age"},
			{25, "Young maternal age"},
			{26, "Optimal maternal age"},
			{35, "Optimal maternal age"},
			{36, "Advanced maternal age"},
		}
		for _, tc := range cases {
			input := validInput()
			input.Age = tc.age
			assert.Equal(t, tc.want, SummarizeInput(&input).AgeCategory, "age %.0f", tc.age)
		}
	})

	t.Run("blood pressure categories", func(t *testing.T) {
		input := validInput()
		input.SystolicBP, input.DiastolicBP = 145, 85
		assert.Equal(t, "Hypertensive", SummarizeInput(&input).BPStatus)

		input.SystolicBP, input.DiastolicBP = 118, 92
		assert.Equal(t, "Hypertensive", SummarizeInput(&input).BPStatus)

		input.SystolicBP, input.DiastolicBP = 132, 70
		assert.Equal(t, "Stage 1 Hypertension", SummarizeInput(&input).BPStatus)

		input.SystolicBP, input.DiastolicBP = 122, 70
		assert.Equal(t, "Elevated", SummarizeInput(&input).BPStatus)

		input.SystolicBP, input.DiastolicBP = 112, 70
		assert.Equal(t, "Normal", SummarizeInput(&input).BPStatus)
	})

	t.Run("bmi and glucose categories", func(t *testing.T) {
		input := validInput()

		input.BMI = 17
		assert.Equal(t, "Underweight", SummarizeInput(&input).BMICategory)
		input.BMI = 24.9
		assert.Equal(t, "Normal weight", SummarizeInput(&input).BMICategory)
		input.BMI = 29.9
		assert.Equal(t, "Overweight", SummarizeInput(&input).BMICategory)
		input.BMI = 31
		assert.Equal(t, "Obese", SummarizeInput(&input).BMICategory)

		input.BS = 130
		assert.Equal(t, "Diabetic range", SummarizeInput(&input).GlucoseStatus)
		input.BS = 110
		assert.Equal(t, "Prediabetic range", SummarizeInput(&input).GlucoseStatus)
		input.BS = 90
		assert.Equal(t, "Normal glucose", SummarizeInput(&input).GlucoseStatus)
	})

	t.Run("risk factors", func(t *testing.T) {
		input := validInput()
		assert.Equal(t, []string{"None identified"}, SummarizeInput(&input).RiskFactors)

		input.PreviousComplications = 1
		input.PreexistingDiabetes = 1
		input.GestationalDiabetes = 1
		input.MentalHealth = 1
		assert.Equal(t, []string{
			"Previous complications",
			"Preexisting diabetes",
			"Gestational diabetes",
			"Mental health concerns",
		}, SummarizeInput(&input).RiskFactors)
	})
}

func TestPredictorClient(t *testing.T) {
	t.Run("forwards vitals and decodes verdict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/predict", r.URL.Path)

			var input models.PredictionInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
			assert.Equal(t, 28.0, input.Age)

			json.NewEncoder(w).Encode(models.PredictionResult{
				RiskLevel:      "low risk",
				RiskConfidence: 0.92,
				HealthAdvice:   "Maintain regular prenatal checkups.",
			})
		}))
		defer srv.Close()

		client := NewPredictorClient(&config.Config{PredictorServiceURL: srv.URL, PredictorTimeout: 5})

		input := validInput()
		result, err := client.Predict(context.Background(), &input)
		require.NoError(t, err)
		assert.Equal(t, "low risk", result.RiskLevel)
		assert.InDelta(t, 0.92, result.RiskConfidence, 1e-9)
	})

	t.Run("surfaces non-200 responses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewPredictorClient(&config.Config{PredictorServiceURL: srv.URL, PredictorTimeout: 5})

		input := validInput()
		_, err := client.Predict(context.Background(), &input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		client := NewPredictorClient(&config.Config{PredictorServiceURL: srv.URL, PredictorTimeout: 5})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		input := validInput()
		_, err := client.Predict(ctx, &input)
		assert.Error(t, err)
	})

	t.Run("model info", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/model-info", r.URL.Path)
			json.NewEncoder(w).Encode(models.ModelInfo{
				RiskLevels:   []string{"low risk", "mid risk", "high risk"},
				FeatureCount: 11,
			})
		}))
		defer srv.Close()

		client := NewPredictorClient(&config.Config{PredictorServiceURL: srv.URL, PredictorTimeout: 5})

		info, err := client.ModelInfo(context.Background())
		require.NoError(t, err)
		assert.Len(t, info.RiskLevels, 3)
		assert.Equal(t, 11, info.FeatureCount)
	})
}
