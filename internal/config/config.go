// Package config loads the demo bot's configuration from environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all demo bot configuration loaded from environment variables.
type Config struct {
	Discord   DiscordConfig
	Prompt    PromptConfig
	Menu      MenuConfig
	Reactions ReactionConfig
}

// DiscordConfig holds Discord connection and targeting settings.
type DiscordConfig struct {
	Token     string
	ChannelID string
	UserID    string
}

// PromptConfig holds prompt defaults.
type PromptConfig struct {
	Timeout time.Duration
}

// MenuConfig holds menu defaults.
type MenuConfig struct {
	Timeout       time.Duration
	IdleTimeout   bool
	PageIndicator bool
}

// ReactionConfig holds reaction attachment settings.
type ReactionConfig struct {
	NonBlocking  bool
	RateInterval time.Duration
	RateBurst    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	promptTimeout, err := getEnvDuration("WAITFOR_PROMPT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	menuTimeout, err := getEnvDuration("WAITFOR_MENU_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	idleTimeout, err := getEnvBool("WAITFOR_MENU_IDLE_TIMEOUT", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	pageIndicator, err := getEnvBool("WAITFOR_MENU_PAGE_INDICATOR", true)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	nonBlocking, err := getEnvBool("WAITFOR_REACTIONS_NON_BLOCKING", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateInterval, err := getEnvDuration("WAITFOR_REACTIONS_RATE_INTERVAL", 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("WAITFOR_REACTIONS_RATE_BURST", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Discord: DiscordConfig{
			Token:     getEnv("WAITFOR_DISCORD_TOKEN", ""),
			ChannelID: getEnv("WAITFOR_CHANNEL_ID", ""),
			UserID:    getEnv("WAITFOR_USER_ID", ""),
		},
		Prompt: PromptConfig{
			Timeout: promptTimeout,
		},
		Menu: MenuConfig{
			Timeout:       menuTimeout,
			IdleTimeout:   idleTimeout,
			PageIndicator: pageIndicator,
		},
		Reactions: ReactionConfig{
			NonBlocking:  nonBlocking,
			RateInterval: rateInterval,
			RateBurst:    rateBurst,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return errors.New("WAITFOR_DISCORD_TOKEN is required")
	}
	if c.Discord.ChannelID == "" {
		return errors.New("WAITFOR_CHANNEL_ID is required")
	}
	if c.Discord.UserID == "" {
		return errors.New("WAITFOR_USER_ID is required")
	}
	if c.Prompt.Timeout <= 0 {
		return fmt.Errorf("WAITFOR_PROMPT_TIMEOUT must be positive, got %s", c.Prompt.Timeout)
	}
	if c.Menu.Timeout <= 0 {
		return fmt.Errorf("WAITFOR_MENU_TIMEOUT must be positive, got %s", c.Menu.Timeout)
	}
	if c.Reactions.RateInterval <= 0 {
		return fmt.Errorf("WAITFOR_REACTIONS_RATE_INTERVAL must be positive, got %s", c.Reactions.RateInterval)
	}
	if c.Reactions.RateBurst < 1 {
		return fmt.Errorf("WAITFOR_REACTIONS_RATE_BURST must be >= 1, got %d", c.Reactions.RateBurst)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}
