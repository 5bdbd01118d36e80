package executor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tessera-db/tessera/engine/checkpoint"
)

// Duration decodes YAML duration strings ("250ms", "5m") as well as bare
// integers, which are taken as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// EngineConfig is the on-disk YAML form of Options.
type EngineConfig struct {
	Adaptive struct {
		Enabled             bool    `yaml:"enabled"`
		SampleSize          int     `yaml:"sample_size"`
		AdaptationThreshold float64 `yaml:"adaptation_threshold"`
	} `yaml:"adaptive"`

	FaultTolerance struct {
		CheckpointInterval int      `yaml:"checkpoint_interval"`
		MaxRetries         int      `yaml:"max_retries"`
		RetryBackoff       Duration `yaml:"retry_backoff"`
		FailureThreshold   int      `yaml:"failure_threshold"`
		RecoveryWindow     Duration `yaml:"recovery_window"`
		CheckpointDir      string   `yaml:"checkpoint_dir"`
	} `yaml:"fault_tolerance"`

	Parallel struct {
		PartitionCount int `yaml:"partition_count"`
		MaxWorkers     int `yaml:"max_workers"`
	} `yaml:"parallel"`

	Cache struct {
		MaxSize int      `yaml:"max_size"`
		TTL     Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Debug bool `yaml:"debug"`
}

// FaultToleranceCollaborators builds the checkpoint manager and failure
// detector described by the fault_tolerance section, for attaching to a
// Context. Without a checkpoint_dir the section is inert and both
// collaborators are nil; failure_threshold and recovery_window fall back to
// the detector's defaults when unset.
func (c *EngineConfig) FaultToleranceCollaborators() (*checkpoint.Manager, *checkpoint.FailureDetector, error) {
	if c == nil || c.FaultTolerance.CheckpointDir == "" {
		return nil, nil, nil
	}
	manager, err := checkpoint.NewManager(c.FaultTolerance.CheckpointDir)
	if err != nil {
		return nil, nil, err
	}
	detector := checkpoint.NewFailureDetector(
		c.FaultTolerance.FailureThreshold,
		time.Duration(c.FaultTolerance.RecoveryWindow),
	)
	return manager, detector, nil
}

// LoadConfig reads a YAML engine config and merges it over DefaultOptions.
// Zero-valued fields keep their defaults.
func LoadConfig(path string) (Options, *EngineConfig, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return opts, nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	opts.EnableAdaptive = cfg.Adaptive.Enabled
	if cfg.Adaptive.SampleSize > 0 {
		opts.SampleSize = cfg.Adaptive.SampleSize
	}
	if cfg.Adaptive.AdaptationThreshold > 0 {
		opts.AdaptationThreshold = cfg.Adaptive.AdaptationThreshold
	}
	if cfg.FaultTolerance.CheckpointInterval > 0 {
		opts.CheckpointInterval = cfg.FaultTolerance.CheckpointInterval
	}
	if cfg.FaultTolerance.MaxRetries > 0 {
		opts.MaxRetries = cfg.FaultTolerance.MaxRetries
	}
	if cfg.FaultTolerance.RetryBackoff > 0 {
		opts.RetryBackoff = time.Duration(cfg.FaultTolerance.RetryBackoff)
	}
	if cfg.Parallel.PartitionCount > 0 {
		opts.PartitionCount = cfg.Parallel.PartitionCount
	}
	if cfg.Parallel.MaxWorkers > 0 {
		opts.MaxWorkers = cfg.Parallel.MaxWorkers
	}
	if cfg.Cache.MaxSize > 0 {
		opts.CacheMaxSize = cfg.Cache.MaxSize
	}
	if cfg.Cache.TTL > 0 {
		opts.CacheTTL = time.Duration(cfg.Cache.TTL)
	}
	opts.EnableDebugLogging = cfg.Debug

	return opts, &cfg, nil
}
