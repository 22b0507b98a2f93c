package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"maternal-care-platform/internal/database"
	"maternal-care-platform/internal/logger"
	"maternal-care-platform/internal/rag"
	"maternal-care-platform/models"
)

const recommenderSystemPrompt = "You are a helpful AI assistant providing pregnancy advice based on medical literature."

// Recommender generates daily recommendations for registered health
// profiles by running the retrieval pipeline over a profile-derived
// query. At most one recommendation is generated per user per day.
type Recommender struct {
	store     *database.Store
	retriever *rag.Retriever
	llm       rag.CompletionClient
}

func NewRecommender(store *database.Store, retriever *rag.Retriever, llm rag.CompletionClient) *Recommender {
	return &Recommender{
		store:     store,
		retriever: retriever,
		llm:       llm,
	}
}

// DailyRecommendation returns today's recommendation for the profile,
// generating and storing it when absent. The Cached flag tells callers
// whether an existing row was reused.
func (r *Recommender) DailyRecommendation(ctx context.Context, profile *models.UserProfile) (*models.RecommendationResponse, error) {
	today := time.Now().Format("2006-01-02")

	existing, err := r.store.GetRecommendationForDate(ctx, profile.ID, today)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &models.RecommendationResponse{
			UserID:         profile.ID,
			Name:           profile.Name,
			PregnancyWeek:  profile.PregnancyWeek,
			Recommendation: existing.Recommendation,
			Date:           existing.RecommendationDate,
			Source:         existing.Source,
			Cached:         true,
		}, nil
	}

	text, source := r.generate(ctx, profile)

	rec := &models.Recommendation{
		UserID:             profile.ID,
		Recommendation:     text,
		RecommendationDate: today,
		Source:             source,
	}
	if err := r.store.StoreRecommendation(ctx, rec); err != nil {
		logger.Error("Failed to store recommendation", "user_id", profile.ID, "error", err)
	}

	return &models.RecommendationResponse{
		UserID:         profile.ID,
		Name:           profile.Name,
		PregnancyWeek:  profile.PregnancyWeek,
		Recommendation: text,
		Date:           today,
		Source:         source,
	}, nil
}

// GenerateForAllProfiles runs the daily generation for every profile,
// used by the scheduled job. Failures on one profile never stop the
// rest.
func (r *Recommender) GenerateForAllProfiles(ctx context.Context) {
	profiles, err := r.store.ListProfiles(ctx)
	if err != nil {
		logger.Error("Failed to list profiles for daily recommendations", "error", err)
		return
	}

	generated := 0
	for i := range profiles {
		if _, err := r.DailyRecommendation(ctx, &profiles[i]); err != nil {
			logger.Error("Daily recommendation failed", "user_id", profiles[i].ID, "error", err)
			continue
		}
		generated++
	}

	logger.Info("Daily recommendation run finished", "profiles", len(profiles), "generated", generated)
}

func (r *Recommender) generate(ctx context.Context, profile *models.UserProfile) (text, source string) {
	query := profileQuery(profile)
	ranked := r.retriever.Retrieve(ctx, query, 3, 0.1)

	contextChunks := make([]string, 0, 3)
	for i, rc := range ranked {
		if i == 3 {
			break
		}
		contextChunks = append(contextChunks, rc.Text)
	}
	contextText := strings.Join(contextChunks, "\n")

	if !isPregnancyRelated(contextText) {
		logger.Info("Context not pregnancy related, using fallback recommendation", "user_id", profile.ID)
		return fallbackRecommendation(profile), "fallback"
	}

	prompt := buildRecommendationPrompt(profile, contextText)

	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	response, err := r.llm.Complete(callCtx, recommenderSystemPrompt, prompt, 0.7)
	if err != nil {
		logger.Warn("LLM recommendation failed, using fallback", "user_id", profile.ID, "error", err)
		return fallbackRecommendation(profile), "fallback"
	}

	return strings.TrimSpace(response), "ai"
}

func profileQuery(profile *models.UserProfile) string {
	query := fmt.Sprintf("pregnancy week %d recommendations nutrition exercise health", profile.PregnancyWeek)
	if profile.Preferences != "" {
		query += " " + profile.Preferences
	}
	return query
}

func buildRecommendationPrompt(profile *models.UserProfile, contextText string) string {
	return fmt.Sprintf(`Based on the following medical information about pregnancy, provide a daily recommendation for a pregnant woman.

User Information:
- Pregnancy Week: %d
- Name: %s
- Preferences: %s

Medical Context:
%s

Please provide a personalized daily recommendation that is:
1. Safe and appropriate for the pregnancy week
2. Evidence-based
3. Actionable and practical
4. Considering the user's preferences

Keep the recommendation concise (2-3 sentences) and friendly in tone.`,
		profile.PregnancyWeek, profile.Name, preferencesOrNone(profile.Preferences), contextText)
}

func preferencesOrNone(preferences string) string {
	if preferences == "" {
		return "None specified"
	}
	return preferences
}

func isPregnancyRelated(contextText string) bool {
	if contextText == "" {
		return false
	}
	lower := strings.ToLower(contextText)
	for _, keyword := range []string{"pregnancy", "pregnant", "prenatal", "maternal", "fetal", "trimester", "nutrition", "exercise"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// fallbackRecommendation builds a static recommendation from the
// trimester and stated preferences, used whenever the LLM or the
// retrieved context is unusable.
func fallbackRecommendation(profile *models.UserProfile) string {
	var base string
	switch {
	case profile.PregnancyWeek <= 12:
		base = fmt.Sprintf("Hi %s! Focus on taking prenatal vitamins with folic acid, stay hydrated, and get plenty of rest during this important early stage.", profile.Name)
	case profile.PregnancyWeek <= 28:
		base = fmt.Sprintf("Hi %s! Continue with balanced nutrition, gentle exercise like walking or swimming, and monitor your baby's movements.", profile.Name)
	default:
		base = fmt.Sprintf("Hi %s! Focus on preparing for birth, practice breathing exercises, and ensure adequate calcium and iron intake.", profile.Name)
	}

	preferences := strings.ToLower(profile.Preferences)
	if strings.Contains(preferences, "vegetarian") {
		base += " Make sure to get enough protein from legumes, nuts, and dairy."
	}
	if strings.Contains(preferences, "yoga") {
		base += " Prenatal yoga can help with flexibility and relaxation."
	}
	if strings.Contains(preferences, "exercise") {
		base += " Continue with safe, approved exercises for your pregnancy stage."
	}

	return base
}
