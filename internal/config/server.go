package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8765"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	PersonasPath string `env:"PERSONAS_PATH"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
