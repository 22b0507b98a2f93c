package queue

import (
	"strings"

	"github.com/hibiken/asynq"

	"maternal-care-platform/internal/config"
	"maternal-care-platform/internal/logger"
)

// RedisConnOpt builds the asynq connection options from config,
// accepting either a full redis:// URL or a bare host:port.
func RedisConnOpt(cfg *config.Config) asynq.RedisConnOpt {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err == nil {
			return opt
		}
		logger.Warn("Failed to parse Redis URL for task queue, falling back to host:port", "error", err)
	}

	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
