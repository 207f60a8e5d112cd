package stage

import (
	"fmt"
	"time"

	"github.com/lguibr/actorstage/directory"
	"github.com/lguibr/actorstage/mailbox"
	"github.com/spf13/viper"
)

// Config is the flat struct of Stage tunables (mirrors the teacher's
// utils.Config), loadable from YAML/env via viper (SPEC_FULL §1).
type Config struct {
	// DirectoryBuckets and DirectoryBucketCapacity size the Directory
	// (spec.md §6); DirectoryBuckets <= 0 falls back to
	// directory.DefaultConfig(), and otherwise a DirectoryBucketCapacity
	// below 1 is raised to 1.
	DirectoryBuckets        int `mapstructure:"directory_buckets"`
	DirectoryBucketCapacity int `mapstructure:"directory_bucket_capacity"`

	// DefaultMailboxCapacity and DefaultMailboxPolicy apply to any actor
	// spawned without an explicit mailbox configuration in its Definition;
	// capacity <= 0 means unbounded.
	DefaultMailboxCapacity int    `mapstructure:"default_mailbox_capacity"`
	DefaultMailboxPolicy   string `mapstructure:"default_mailbox_policy"`

	// ChildStopTimeout bounds how long Stage.Close waits for each root
	// actor's Stop before force-closing it (spec.md §4.5). It does not apply
	// further down the tree: a parent stopping its own children waits up to
	// a fixed 5s for each.
	ChildStopTimeout time.Duration `mapstructure:"child_stop_timeout"`

	// MetricsEnabled toggles the prometheus client_golang collectors
	// (ambient; no runtime behavior depends on them).
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// DefaultConfig returns production-reasonable defaults.
func DefaultConfig() Config {
	return Config{
		DirectoryBuckets:        32,
		DirectoryBucketCapacity: 16,
		DefaultMailboxCapacity:  0,
		DefaultMailboxPolicy:    "reject",
		ChildStopTimeout:        5 * time.Second,
		MetricsEnabled:          true,
	}
}

func (c Config) directoryConfig() directory.Config {
	if c.DirectoryBuckets <= 0 {
		return directory.DefaultConfig()
	}
	return directory.Config{Buckets: c.DirectoryBuckets, InitialCapacityPerBucket: c.DirectoryBucketCapacity}
}

func (c Config) mailboxPolicy() mailbox.OverflowPolicy {
	switch c.DefaultMailboxPolicy {
	case "drop-oldest":
		return mailbox.DropOldest
	case "drop-newest":
		return mailbox.DropNewest
	default:
		return mailbox.Reject
	}
}

// LoadConfig reads Config from path (YAML, TOML, or JSON, detected by
// extension) via viper, merging over DefaultConfig so a partial file only
// overrides what it sets.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("directory_buckets", cfg.DirectoryBuckets)
	v.SetDefault("directory_bucket_capacity", cfg.DirectoryBucketCapacity)
	v.SetDefault("default_mailbox_capacity", cfg.DefaultMailboxCapacity)
	v.SetDefault("default_mailbox_policy", cfg.DefaultMailboxPolicy)
	v.SetDefault("child_stop_timeout", cfg.ChildStopTimeout)
	v.SetDefault("metrics_enabled", cfg.MetricsEnabled)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("stage: reading config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("stage: decoding config %s: %w", path, err)
	}
	return cfg, nil
}
