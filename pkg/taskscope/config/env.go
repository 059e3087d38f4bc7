package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds everything needed to wire an observer against a broker
// and a result backend.
type Settings struct {
	// BrokerAddr is the broker host:port the bus subscribes to.
	BrokerAddr string `env:"TASKSCOPE_BROKER_ADDR" envDefault:"localhost:6379"`

	// BrokerDB is the broker database number.
	BrokerDB int `env:"TASKSCOPE_BROKER_DB" envDefault:"0"`

	// Exchange is the logical exchange dispatch events are published on.
	Exchange string `env:"TASKSCOPE_EXCHANGE" envDefault:"tasks"`

	// ResultAddr is the result backend host:port. Defaults to the broker
	// address when empty.
	ResultAddr string `env:"TASKSCOPE_RESULT_ADDR"`

	// ResultDB is the result backend database number.
	ResultDB int `env:"TASKSCOPE_RESULT_DB" envDefault:"0"`

	// ResultKeyPrefix overrides the backend's task-meta key prefix.
	ResultKeyPrefix string `env:"TASKSCOPE_RESULT_KEY_PREFIX"`

	// RetainParams stores captured call arguments in the registry.
	RetainParams bool `env:"TASKSCOPE_RETAIN_PARAMS" envDefault:"true"`

	// Capacity bounds the registry.
	Capacity int `env:"TASKSCOPE_CAPACITY" envDefault:"10000"`

	// PollInterval is the reactive fetcher's polling cadence.
	PollInterval time.Duration `env:"TASKSCOPE_POLL_INTERVAL" envDefault:"1s"`
}

// FromEnv parses Settings from TASKSCOPE_* environment variables.
func FromEnv() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// SettingsFromConfig derives Settings from a generic Config, for programs
// that keep observer settings in a file.
func SettingsFromConfig(c Config) Settings {
	s := Settings{
		BrokerAddr:      c.String("broker_addr", "localhost:6379"),
		BrokerDB:        c.Int("broker_db", 0),
		Exchange:        c.String("exchange", "tasks"),
		ResultAddr:      c.String("result_addr", ""),
		ResultDB:        c.Int("result_db", 0),
		ResultKeyPrefix: c.String("result_key_prefix", ""),
		RetainParams:    c.Bool("retain_params", true),
		Capacity:        c.Int("capacity", 10_000),
		PollInterval:    c.Duration("poll_interval", time.Second),
	}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.ResultAddr == "" {
		s.ResultAddr = s.BrokerAddr
	}
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
}
