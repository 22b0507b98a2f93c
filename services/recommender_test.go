package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"maternal-care-platform/models"
)

func TestFallbackRecommendation(t *testing.T) {
	t.Run("first trimester", func(t *testing.T) {
		text := fallbackRecommendation(&models.UserProfile{Name: "Asha", PregnancyWeek: 8})
		assert.Contains(t, text, "Hi Asha!")
		assert.Contains(t, text, "folic acid")
	})

	t.Run("second trimester", func(t *testing.T) {
		text := fallbackRecommendation(&models.UserProfile{Name: "Asha", PregnancyWeek: 20})
		assert.Contains(t, text, "balanced nutrition")
		assert.Contains(t, text, "baby's movements")
	})

	t.Run("third trimester", func(t *testing.T) {
		text := fallbackRecommendation(&models.UserProfile{Name: "Asha", PregnancyWeek: 34})
		assert.Contains(t, text, "preparing for birth")
		assert.Contains(t, text, "calcium and iron")
	})

	t.Run("trimester boundaries", func(t *testing.T) {
		week12 := fallbackRecommendation(&models.UserProfile{Name: "A", PregnancyWeek: 12})
		assert.Contains(t, week12, "folic acid")

		week28 := fallbackRecommendation(&models.UserProfile{Name: "A", PregnancyWeek: 28})
		assert.Contains(t, week28, "balanced nutrition")

		week29 := fallbackRecommendation(&models.UserProfile{Name: "A", PregnancyWeek: 29})
		assert.Contains(t, week29, "preparing for birth")
	})

	t.Run("preference add-ons", func(t *testing.T) {
		text := fallbackRecommendation(&models.UserProfile{
			Name:          "Asha",
			PregnancyWeek: 20,
			Preferences:   "Vegetarian, prenatal YOGA, light exercise",
		})
		assert.Contains(t, text, "legumes, nuts, and dairy")
		assert.Contains(t, text, "Prenatal yoga")
		assert.Contains(t, text, "safe, approved exercises")
	})

	t.Run("no preferences no add-ons", func(t *testing.T) {
		text := fallbackRecommendation(&models.UserProfile{Name: "Asha", PregnancyWeek: 20})
		assert.NotContains(t, text, "legumes")
		assert.NotContains(t, text, "yoga")
	})
}

func TestIsPregnancyRelated(t *testing.T) {
	assert.False(t, isPregnancyRelated(""))
	assert.False(t, isPregnancyRelated("Quarterly revenue grew by twelve percent."))
	assert.True(t, isPregnancyRelated("Prenatal vitamins are recommended."))
	assert.True(t, isPregnancyRelated("NUTRITION advice for the second TRIMESTER"))
}

func TestProfileQuery(t *testing.T) {
	query := profileQuery(&models.UserProfile{PregnancyWeek: 24, Preferences: "vegetarian"})
	assert.Equal(t, "pregnancy week 24 recommendations nutrition exercise health vegetarian", query)

	query = profileQuery(&models.UserProfile{PregnancyWeek: 24})
	assert.Equal(t, "pregnancy week 24 recommendations nutrition exercise health", query)
}

func TestBuildRecommendationPrompt(t *testing.T) {
	profile := &models.UserProfile{Name: "Asha", PregnancyWeek: 24, Preferences: "vegetarian"}
	prompt := buildRecommendationPrompt(profile, "Iron needs rise in pregnancy.")

	assert.Contains(t, prompt, "Pregnancy Week: 24")
	assert.Contains(t, prompt, "Name: Asha")
	assert.Contains(t, prompt, "Preferences: vegetarian")
	assert.Contains(t, prompt, "Iron needs rise in pregnancy.")
	assert.True(t, strings.HasSuffix(prompt, "concise (2-3 sentences) and friendly in tone."))

	noPrefs := buildRecommendationPrompt(&models.UserProfile{Name: "Asha", PregnancyWeek: 24}, "ctx")
	assert.Contains(t, noPrefs, "Preferences: None specified")
}
