package ai

import (
	"context"
	"sync"
	"time"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/logger"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// GroqClient talks to Groq's OpenAI-compatible chat completions API
// behind a circuit breaker and a client-side rate limiter.
type GroqClient struct {
	client       *openai.Client
	model        string
	maxTokens    int
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	usageCounter *UsageCounter
	tier         string
}

// UsageCounter tracks request and token consumption across minute and
// day windows to stay within the provider's quota.
type UsageCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
}

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func getRateLimits(tier string) RateLimits {
	switch tier {
	case "free":
		return RateLimits{RPM: 30, TPM: 6000, RPD: 14400}
	case "dev":
		return RateLimits{RPM: 60, TPM: 20000, RPD: 100000}
	default:
		return RateLimits{RPM: 30, TPM: 6000, RPD: 14400}
	}
}

func NewGroqClient(cfg *config.Config) *GroqClient {
	clientConfig := openai.DefaultConfig(cfg.GroqAPIKey)
	clientConfig.BaseURL = cfg.GroqAPIURL

	limits := getRateLimits(cfg.LLMTier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GroqAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), maxInt(limits.RPM/10, 1))

	return &GroqClient{
		client:       openai.NewClientWithConfig(clientConfig),
		model:        cfg.LLMModel,
		maxTokens:    cfg.MaxResponseTokens,
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		usageCounter: &UsageCounter{limits: limits},
		tier:         cfg.LLMTier,
	}
}

// Complete sends one system/user prompt pair and returns the model's
// reply. Rate limiting, quota accounting, and the circuit breaker all
// apply; callers handle retries.
func (gc *GroqClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	tracer := otel.Tracer("groq-client")
	ctx, span := tracer.Start(ctx, "groq.chat_completion")
	defer span.End()

	estimatedTokens := (len(systemPrompt) + len(userPrompt)) / 4
	span.SetAttributes(
		attribute.Int("groq.estimated_tokens", estimatedTokens),
		attribute.String("groq.model", gc.model),
	)

	if !gc.usageCounter.CanConsume(estimatedTokens+gc.maxTokens, 1) {
		span.SetAttributes(attribute.Bool("groq.rate_limited", true))
		return "", ErrQuotaExceeded
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("groq.rate_limited", true))
		return "", err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		resp, err := gc.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: gc.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			MaxTokens:   gc.maxTokens,
			Temperature: temperature,
		})
		if err != nil {
			span.SetAttributes(attribute.Bool("groq.error", true))
			span.SetAttributes(attribute.String("groq.error_message", err.Error()))
			return nil, err
		}

		gc.usageCounter.RecordUsage(resp.Usage.TotalTokens, 1)
		span.SetAttributes(attribute.Int("groq.actual_tokens", resp.Usage.TotalTokens))

		return resp, nil
	})
	if err != nil {
		return "", err
	}

	resp := result.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	span.SetAttributes(attribute.Bool("groq.success", true))
	return resp.Choices[0].Message.Content, nil
}

func (uc *UsageCounter) CanConsume(tokens, requests int) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := time.Now()

	if now.Sub(uc.lastMinuteReset) >= time.Minute {
		uc.minuteTokens = 0
		uc.minuteRequests = 0
		uc.lastMinuteReset = now
	}
	if now.Sub(uc.lastDayReset) >= 24*time.Hour {
		uc.dailyTokens = 0
		uc.dailyRequests = 0
		uc.lastDayReset = now
	}

	if uc.minuteRequests+requests > uc.limits.RPM {
		return false
	}
	if uc.minuteTokens+tokens > uc.limits.TPM {
		return false
	}
	if uc.dailyRequests+requests > uc.limits.RPD {
		return false
	}

	return true
}

func (uc *UsageCounter) RecordUsage(tokens, requests int) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.minuteTokens += tokens
	uc.minuteRequests += requests
	uc.dailyTokens += tokens
	uc.dailyRequests += requests
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
