package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.starmark/config.toml.
type Config struct {
	// PageSize is the number of favorites shown per panel page.
	PageSize int `toml:"page_size"`
	// PreviewPrefix is the reserved label prepended to preview chat names.
	PreviewPrefix string `toml:"preview_prefix"`
	// SwitchTimeoutMS bounds the wait for a chat-switch confirmation.
	SwitchTimeoutMS int `toml:"switch_timeout_ms"`
	// ClearTimeoutMS bounds the poll for the target chat draining to zero messages.
	ClearTimeoutMS int `toml:"clear_timeout_ms"`
	// ClearPollMS is the poll interval while waiting for the clear.
	ClearPollMS int `toml:"clear_poll_ms"`
	// InsertBatchSize is how many messages are inserted between yields.
	InsertBatchSize int `toml:"insert_batch_size"`
	// InsertYieldMS is the pause between insertion batches.
	InsertYieldMS int `toml:"insert_yield_ms"`
	// PersistDebounceMS is the quiet period before chat metadata is persisted.
	PersistDebounceMS int `toml:"persist_debounce_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PageSize:          5,
		PreviewPrefix:     "[Favorites Preview] ",
		SwitchTimeoutMS:   7000,
		ClearTimeoutMS:    3000,
		ClearPollMS:       100,
		InsertBatchSize:   15,
		InsertYieldMS:     100,
		PersistDebounceMS: 500,
	}
}

// Load reads config from the given path, falling back to defaults for
// unset fields. A missing file yields the full default config.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = Default().PageSize
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = Default().InsertBatchSize
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// SwitchTimeout returns the chat-switch wait bound as a duration.
func (c *Config) SwitchTimeout() time.Duration {
	return time.Duration(c.SwitchTimeoutMS) * time.Millisecond
}

// ClearTimeout returns the clear-confirmation bound as a duration.
func (c *Config) ClearTimeout() time.Duration {
	return time.Duration(c.ClearTimeoutMS) * time.Millisecond
}

// ClearPoll returns the clear poll interval as a duration.
func (c *Config) ClearPoll() time.Duration {
	return time.Duration(c.ClearPollMS) * time.Millisecond
}

// InsertYield returns the inter-batch pause as a duration.
func (c *Config) InsertYield() time.Duration {
	return time.Duration(c.InsertYieldMS) * time.Millisecond
}

// PersistDebounce returns the metadata persist quiet period as a duration.
func (c *Config) PersistDebounce() time.Duration {
	return time.Duration(c.PersistDebounceMS) * time.Millisecond
}
