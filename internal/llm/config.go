package llm

import "time"

// Config holds the settings for the generative-language client.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig returns a Config with the production endpoint and the
// lightweight report model. The timeout matches the platform bound on
// a single generation call.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://generativelanguage.googleapis.com",
		Model:   "gemini-2.5-flash-lite",
		Timeout: 5 * time.Minute,
	}
}

// withDefaults fills any zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
