package classifyjourney

import (
	"time"

	"journey-board/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func LoadConfig(appConfig *config.Config) *Config {
	if appConfig == nil {
		return &Config{
			Enabled:       true,
			MaxJobsActive: 5,
			Timeout:       30 * time.Second,
		}
	}

	w := config.GetWorkerConfig(appConfig, TaskType)
	return &Config{
		Enabled:       w.Enabled,
		MaxJobsActive: w.MaxJobsActive,
		Timeout:       config.GetDuration(w.Timeout),
	}
}
