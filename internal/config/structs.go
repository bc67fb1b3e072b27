package config

// Config represents the complete configuration for the labxtract
// application. It covers the extract and serve commands and supports
// loading from configuration files, environment variables, and flags.
type Config struct {
	// Global settings
	DictPath string `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Extraction pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains extraction pipeline settings.
type PipelineConfig struct {
	Grouping GroupingConfig `mapstructure:"grouping" yaml:"grouping" json:"grouping"`
	Mapper   MapperConfig   `mapstructure:"mapper" yaml:"mapper" json:"mapper"`
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// GroupingConfig contains row-grouping tolerance settings.
type GroupingConfig struct {
	ToleranceFraction float64 `mapstructure:"tolerance_fraction" yaml:"tolerance_fraction" json:"tolerance_fraction"`
	MinTolerancePx    float64 `mapstructure:"min_tolerance_px" yaml:"min_tolerance_px" json:"min_tolerance_px"`
}

// MapperConfig contains field-mapping strategy weights and the dictionary
// fuzzy-match threshold.
type MapperConfig struct {
	RowTextConfidence  float64 `mapstructure:"rowtext_confidence" yaml:"rowtext_confidence" json:"rowtext_confidence"`
	CompleteBonus      float64 `mapstructure:"complete_bonus" yaml:"complete_bonus" json:"complete_bonus"`
	FallbackConfidence float64 `mapstructure:"fallback_confidence" yaml:"fallback_confidence" json:"fallback_confidence"`
	MinSimilarity      float64 `mapstructure:"min_similarity" yaml:"min_similarity" json:"min_similarity"`
}

// ParallelConfig contains per-row parallelism settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int64           `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains request rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}
