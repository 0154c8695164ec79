// internal/workers/ai-conversation/answer-question/config.go
package answerquestion

import (
	"time"

	"cattle-chatbot/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	MaxRetries    int
}

// NewConfig reads the worker's entry from the workers section.
func NewConfig(appConfig *config.Config) *Config {
	wc := config.GetWorkerConfig(appConfig, WorkerName)
	return &Config{
		Enabled:       wc.Enabled,
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
		MaxRetries:    wc.MaxRetries,
	}
}
