package config

import (
	"fmt"
	"os"
)

// DefaultConfig returns the configuration defaults used when no file, env
// var, or flag overrides a setting.
func DefaultConfig() *Config {
	return &Config{
		DictPath: "",
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			Grouping: GroupingConfig{
				ToleranceFraction: 0.5,
				MinTolerancePx:    10.0,
			},
			Mapper: MapperConfig{
				RowTextConfidence:  0.55,
				CompleteBonus:      0.15,
				FallbackConfidence: 0.35,
				MinSimilarity:      0.7,
			},
			Parallel: ParallelConfig{
				MaxWorkers: 0,
			},
		},
		Output: OutputConfig{
			Format: "json",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     100 * 1024 * 1024,
			},
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validFormats = map[string]bool{
	"json": true,
	"csv":  true,
	"text": true,
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output format %q (must be json, csv, or text)", c.Output.Format)
	}

	if c.DictPath != "" {
		if _, err := os.Stat(c.DictPath); os.IsNotExist(err) {
			return fmt.Errorf("dict_path does not exist: %s", c.DictPath)
		}
	}

	g := c.Pipeline.Grouping
	if g.ToleranceFraction <= 0 {
		return fmt.Errorf("grouping tolerance_fraction must be positive, got %g", g.ToleranceFraction)
	}
	if g.MinTolerancePx < 0 {
		return fmt.Errorf("grouping min_tolerance_px must be non-negative, got %g", g.MinTolerancePx)
	}

	m := c.Pipeline.Mapper
	for name, v := range map[string]float64{
		"rowtext_confidence":  m.RowTextConfidence,
		"complete_bonus":      m.CompleteBonus,
		"fallback_confidence": m.FallbackConfidence,
		"min_similarity":      m.MinSimilarity,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("mapper %s must be in [0,1], got %g", name, v)
		}
	}

	if c.Pipeline.Parallel.MaxWorkers < 0 {
		return fmt.Errorf("parallel max_workers must be non-negative, got %d", c.Pipeline.Parallel.MaxWorkers)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("server timeout_sec must be positive, got %d", c.Server.TimeoutSec)
	}

	return nil
}
