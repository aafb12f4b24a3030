package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env    string `yaml:"env" env:"APP_ENV"`
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
	Wellness Wellness `yaml:"wellness"`
	Notify   struct {
		SES SES `yaml:"ses"`
	} `yaml:"notify"`
}

type Wellness struct {
	Study             string     `yaml:"study" env:"WELLNESS_STUDY"`
	GetReady          string     `yaml:"get_ready" env:"WELLNESS_GET_READY"`
	Response          string     `yaml:"response" env:"WELLNESS_RESPONSE"`
	FailureWindow     string     `yaml:"failure_window" env:"WELLNESS_FAILURE_WINDOW"`
	FailureThreshold  int        `yaml:"failure_threshold" env:"WELLNESS_FAILURE_THRESHOLD"`
	EscalationPolicy  string     `yaml:"escalation_policy" env:"WELLNESS_ESCALATION_POLICY"`
	SideEffectTimeout string     `yaml:"side_effect_timeout" env:"WELLNESS_SIDE_EFFECT_TIMEOUT"`
	DelegateCacheTTL  string     `yaml:"delegate_cache_ttl" env:"WELLNESS_DELEGATE_CACHE_TTL"`
	WordSets          [][]string `yaml:"word_sets"`
	Distractors       []string   `yaml:"distractors"`
}

type SES struct {
	Region     string `yaml:"region" env:"AWS_REGION"`
	FromEmail  string `yaml:"from_email" env:"SES_FROM_EMAIL"`
	FromName   string `yaml:"from_name" env:"SES_FROM_NAME"`
	AppBaseURL string `yaml:"app_base_url" env:"APP_BASE_URL"`
}

// Load reads YAML config from path and overlays any environment variables that are set.
// A missing file is not an error; the environment alone can configure the service.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// DurationOr parses a duration string or returns the fallback if empty or invalid.
func DurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
