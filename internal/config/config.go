package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Observability struct {
	LogLevel    string `yaml:"log_level"`    // "debug","info","warn","error"
	MetricsAddr string `yaml:"metrics_addr"` // e.g. ":9090"; empty disables the listener
}

type Rule struct {
	Limit    int `yaml:"limit"`
	WindowMS int `yaml:"window_ms"`
}

type Demo struct {
	Calls       int `yaml:"calls"`       // how many Perform calls to fire
	Concurrency int `yaml:"concurrency"` // how many run at once
}

type Root struct {
	Observability Observability `yaml:"observability"`
	Rules         []Rule        `yaml:"rules"`
	Demo          Demo          `yaml:"demo"`
}

func (r Rule) Window() time.Duration {
	if r.WindowMS <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowMS) * time.Millisecond
}

func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = []Rule{{Limit: 60, WindowMS: 60_000}}
	}
	for i := range cfg.Rules {
		if cfg.Rules[i].Limit <= 0 {
			cfg.Rules[i].Limit = 60
		}
		if cfg.Rules[i].WindowMS <= 0 {
			cfg.Rules[i].WindowMS = 60_000
		}
	}
	if cfg.Demo.Calls <= 0 {
		cfg.Demo.Calls = 20
	}
	if cfg.Demo.Concurrency <= 0 {
		cfg.Demo.Concurrency = 4
	}
	return &cfg, nil
}
