package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
// Sensitive or deployment-specific values can be overridden through
// environment variables after the file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	// Owner is the only identity allowed to run administrative operations.
	Owner string `yaml:"owner"`

	Risk struct {
		MinConfidence       uint64 `yaml:"min_confidence"`
		HighConfidence      uint64 `yaml:"high_confidence"`
		MaxTradePct         uint64 `yaml:"max_trade_pct"`
		CooldownBlocks      uint64 `yaml:"cooldown_blocks"`
		BreakerThresholdPct uint64 `yaml:"breaker_threshold_pct"`
	} `yaml:"risk"`

	Feed struct {
		Enabled  bool   `yaml:"enabled"`
		WSURL    string `yaml:"ws_url"`
		Operator string `yaml:"operator"`
		// Intake throttle guarding against a misbehaving prediction source
		Burst     int     `yaml:"burst"`
		PerSecond float64 `yaml:"per_second"`
	} `yaml:"feed"`

	Snapshot struct {
		Cron string `yaml:"cron"` // robfig/cron spec with seconds field
		Keep int    `yaml:"keep"`
	} `yaml:"snapshot"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner identity is required")
	}

	if c.Risk.MinConfidence > 100 || c.Risk.HighConfidence > 100 {
		return fmt.Errorf("confidence thresholds must be 0-100")
	}
	if c.Risk.HighConfidence < c.Risk.MinConfidence {
		return fmt.Errorf("high_confidence must be >= min_confidence")
	}
	if c.Risk.MaxTradePct == 0 || c.Risk.MaxTradePct > 100 {
		return fmt.Errorf("max_trade_pct must be 1-100")
	}
	if c.Risk.BreakerThresholdPct == 0 || c.Risk.BreakerThresholdPct > 100 {
		return fmt.Errorf("breaker_threshold_pct must be 1-100")
	}

	if c.Feed.Enabled {
		if !hasPrefix(c.Feed.WSURL, "ws://") && !hasPrefix(c.Feed.WSURL, "wss://") {
			return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
		}
		if c.Feed.Operator == "" {
			return fmt.Errorf("feed operator identity is required when the feed is enabled")
		}
	}

	if c.Snapshot.Keep < 0 {
		return fmt.Errorf("snapshot keep count must not be negative")
	}

	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values.
// Environment wins so deployments never need secrets in the config file.
func overrideWithEnv(cfg *Config) {
	if owner := os.Getenv("ARB_OWNER"); owner != "" {
		cfg.Owner = owner
	}
	if url := os.Getenv("ARB_FEED_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if op := os.Getenv("ARB_FEED_OPERATOR"); op != "" {
		cfg.Feed.Operator = op
	}
	if level := os.Getenv("ARB_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
