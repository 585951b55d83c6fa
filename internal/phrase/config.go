package phrase

import "time"

// Config holds LLM phrasing settings.
type Config struct {
	MaxTokens   int           `koanf:"max_tokens"`
	Temperature float64       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
}

// DefaultConfig returns the phrasing defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   200,
		Temperature: 0.4,
		Timeout:     6 * time.Second,
	}
}
