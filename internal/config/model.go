package config

import "github.com/caarlos0/env/v11"

// ModelConfig describes the generation backend. An empty APIKey means no
// backend is configured and every dialogue line takes the template path.
type ModelConfig struct {
	APIKey      string  `env:"MODEL_API_KEY"`
	BaseURL     string  `env:"MODEL_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	Model       string  `env:"MODEL_NAME" envDefault:"llama-3.1-8b-instant"`
	MaxTokens   int     `env:"MODEL_MAX_TOKENS" envDefault:"120"`
	Temperature float64 `env:"MODEL_TEMPERATURE" envDefault:"0.9"`
	TimeoutMS   int     `env:"MODEL_TIMEOUT_MS" envDefault:"10000"`
}

func LoadModel() (ModelConfig, error) {
	var cfg ModelConfig
	err := env.Parse(&cfg)
	return cfg, err
}
