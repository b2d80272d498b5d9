package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LERNSPARK_"

// Config represents the application configuration
type Config struct {
	Dataset DatasetConfig `json:"dataset" yaml:"dataset" envPrefix:"DATASET_"`
	Probe   ProbeConfig   `json:"probe"   yaml:"probe"   envPrefix:"PROBE_"`
	Storage StorageConfig `json:"storage" yaml:"storage" envPrefix:"STORAGE_"`
	Logging LoggingConfig `json:"logging" yaml:"logging" envPrefix:"LOG_"`
	Debug   DebugConfig   `json:"debug"   yaml:"debug"`
}

// DatasetConfig controls the schema-to-dataset pipeline
type DatasetConfig struct {
	SchemaPath        string `json:"schema_path"         yaml:"schema_path"         env:"SCHEMA_PATH"         envDefault:"data.sql"`
	OutputDir         string `json:"output_dir"          yaml:"output_dir"          env:"OUTPUT_DIR"          envDefault:"./examples"`
	ArchiveName       string `json:"archive_name"        yaml:"archive_name"        env:"ARCHIVE_NAME"        envDefault:"examples.zip"`
	TempDir           string `json:"temp_dir"            yaml:"temp_dir"            env:"TEMP_DIR"`
	MinRows           int    `json:"min_rows"            yaml:"min_rows"            env:"MIN_ROWS"            envDefault:"1000"`
	MaxRows           int    `json:"max_rows"            yaml:"max_rows"            env:"MAX_ROWS"            envDefault:"10000"`
	BatchSize         int    `json:"batch_size"          yaml:"batch_size"          env:"BATCH_SIZE"          envDefault:"50000"`
	Seed              uint64 `json:"seed"                yaml:"seed"                env:"SEED"                envDefault:"0"`
	ParallelWriters   int64  `json:"parallel_writers"    yaml:"parallel_writers"    env:"PARALLEL_WRITERS"    envDefault:"4"`
	MemoryThresholdMB int64  `json:"memory_threshold_mb" yaml:"memory_threshold_mb" env:"MEMORY_THRESHOLD_MB" envDefault:"512"`
}

// ProbeConfig controls the storage capability probe
type ProbeConfig struct {
	BucketPrefix string `json:"bucket_prefix" yaml:"bucket_prefix" env:"BUCKET_PREFIX" envDefault:"lernspark-probe"`
	MinUploads   int    `json:"min_uploads"   yaml:"min_uploads"   env:"MIN_UPLOADS"   envDefault:"5"`
	MaxUploads   int    `json:"max_uploads"   yaml:"max_uploads"   env:"MAX_UPLOADS"   envDefault:"100"`
	MinSizeMiB   int    `json:"min_size_mib"  yaml:"min_size_mib"  env:"MIN_SIZE_MIB"  envDefault:"1"`
	MaxSizeMiB   int    `json:"max_size_mib"  yaml:"max_size_mib"  env:"MAX_SIZE_MIB"  envDefault:"16"`
	Concurrency  int    `json:"concurrency"   yaml:"concurrency"   env:"CONCURRENCY"   envDefault:"0"` // 0 runs one worker per upload
	CallTimeout  string `json:"call_timeout"  yaml:"call_timeout"  env:"CALL_TIMEOUT"  envDefault:"2m"`
}

// StorageConfig selects and configures the object storage backend
type StorageConfig struct {
	Provider        string `json:"provider"          yaml:"provider"          env:"PROVIDER"          envDefault:"s3"` // s3, minio
	Profile         string `json:"profile"           yaml:"profile"           env:"PROFILE"`
	Region          string `json:"region"            yaml:"region"            env:"REGION"`                             // empty defers to AWS_REGION or the profile
	Endpoint        string `json:"endpoint"          yaml:"endpoint"          env:"ENDPOINT"`
	AccessKeyID     string `json:"access_key_id"     yaml:"access_key_id"     env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-"                 yaml:"-"                 env:"SECRET_ACCESS_KEY"`
	UseSSL          bool   `json:"use_ssl"           yaml:"use_ssl"           env:"USE_SSL"           envDefault:"true"`
	ForcePathStyle  bool   `json:"force_path_style"  yaml:"force_path_style"  env:"FORCE_PATH_STYLE"  envDefault:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      yaml:"level"      env:"LEVEL"      envDefault:"info"`                              // debug, info, warn, error
	Format    string `json:"format"     yaml:"format"     env:"FORMAT"     envDefault:"text"`                              // text, json
	Output    string `json:"output"     yaml:"output"     env:"OUTPUT"     envDefault:"stderr"`                            // stdout, stderr, file
	File      string `json:"file"       yaml:"file"       env:"FILE"       envDefault:"~/.config/lernspark/logs/app.log"` // log file path when output is file
	AddSource bool   `json:"add_source" yaml:"add_source" env:"ADD_SOURCE" envDefault:"false"`                             // add source file and line info to logs
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" yaml:"verbose" env:"VERBOSE" envDefault:"false"`
}

// DefaultConfig returns the configuration with every default applied and no
// file or environment input.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{
		Prefix:      envPrefix,
		Environment: map[string]string{},
	})

	return cfg
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath(flagOverrides)
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Environment wins over the file. Parsing into a separate struct keeps
	// envDefault values from clobbering what the file set.
	envConfig := &Config{}
	setKeys := make(map[string]bool)

	if err := env.ParseWithOptions(envConfig, env.Options{
		Prefix: envPrefix,
		// OnSet also fires for unset variables without a default
		OnSet: func(key string, _ interface{}, isDefault bool) {
			if _, present := os.LookupEnv(key); present && !isDefault {
				setKeys[key] = true
			}
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	overlaySet(reflect.ValueOf(config).Elem(), reflect.ValueOf(envConfig).Elem(), envPrefix, setKeys)

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	normalizeConfig(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// overlaySet copies into target every field whose environment variable was
// present, including values equal to the default.
func overlaySet(target, source reflect.Value, prefix string, set map[string]bool) {
	for i := range source.NumField() {
		field := source.Type().Field(i)

		if field.Type.Kind() == reflect.Struct {
			overlaySet(target.Field(i), source.Field(i), prefix+field.Tag.Get("envPrefix"), set)
			continue
		}

		key, _, _ := strings.Cut(field.Tag.Get("env"), ",")
		if key != "" && set[prefix+key] {
			target.Field(i).Set(source.Field(i))
		}
	}
}

// loadConfigFromFile loads configuration from a JSON or YAML file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding onto the existing struct leaves absent keys at their defaults.
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "config-file":
			// consumed by getConfigPath
		case "schema":
			if str, ok := value.(string); ok && str != "" {
				config.Dataset.SchemaPath = str
			}
		case "output-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Dataset.OutputDir = str
			}
		case "archive-name":
			if str, ok := value.(string); ok && str != "" {
				config.Dataset.ArchiveName = str
			}
		case "min-rows":
			if n, ok := toInt(value); ok && n > 0 {
				config.Dataset.MinRows = n
			}
		case "max-rows":
			if n, ok := toInt(value); ok && n > 0 {
				config.Dataset.MaxRows = n
			}
		case "seed":
			if n, ok := value.(uint64); ok && n > 0 {
				config.Dataset.Seed = n
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Provider = str
			}
		case "region":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Region = str
			}
		case "profile":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Profile = str
			}
		case "endpoint":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Endpoint = str
			}
		case "bucket-prefix":
			if str, ok := value.(string); ok && str != "" {
				config.Probe.BucketPrefix = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// toInt accepts the integer widths flag libraries hand back
func toInt(value interface{}) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

// normalizeConfig lowercases the enumerated settings so later comparisons
// can match exactly.
func normalizeConfig(config *Config) {
	config.Storage.Provider = strings.ToLower(strings.TrimSpace(config.Storage.Provider))
	config.Logging.Level = strings.ToLower(config.Logging.Level)
	config.Logging.Format = strings.ToLower(config.Logging.Format)
	config.Logging.Output = strings.ToLower(config.Logging.Output)
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if config.Dataset.MinRows <= 0 || config.Dataset.MaxRows < config.Dataset.MinRows {
		return fmt.Errorf(
			"invalid row range: [%d, %d]",
			config.Dataset.MinRows, config.Dataset.MaxRows,
		)
	}

	if config.Dataset.BatchSize <= 0 {
		return fmt.Errorf("dataset batch size must be positive: %d", config.Dataset.BatchSize)
	}

	if config.Dataset.ArchiveName == "" || filepath.Base(config.Dataset.ArchiveName) != config.Dataset.ArchiveName {
		return fmt.Errorf("invalid archive name: %q", config.Dataset.ArchiveName)
	}

	if config.Probe.MinUploads <= 0 || config.Probe.MaxUploads < config.Probe.MinUploads {
		return fmt.Errorf(
			"invalid upload count range: [%d, %d]",
			config.Probe.MinUploads, config.Probe.MaxUploads,
		)
	}

	if config.Probe.MinSizeMiB <= 0 || config.Probe.MaxSizeMiB < config.Probe.MinSizeMiB {
		return fmt.Errorf(
			"invalid upload size range: [%d, %d] MiB",
			config.Probe.MinSizeMiB, config.Probe.MaxSizeMiB,
		)
	}

	if config.Probe.Concurrency < 0 {
		return fmt.Errorf("probe concurrency must not be negative: %d", config.Probe.Concurrency)
	}

	if _, err := time.ParseDuration(config.Probe.CallTimeout); err != nil {
		return fmt.Errorf("invalid probe call timeout: %s", config.Probe.CallTimeout)
	}

	validProviders := map[string]bool{
		"s3": true, "minio": true,
	}
	if !validProviders[strings.ToLower(config.Storage.Provider)] {
		return fmt.Errorf("invalid storage provider: %s (must be s3 or minio)", config.Storage.Provider)
	}

	if strings.EqualFold(config.Storage.Provider, "minio") && config.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required for provider minio")
	}

	return nil
}

// CallTimeout returns the parsed per-call timeout. validateConfig guarantees it parses.
func (c *Config) CallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Probe.CallTimeout)
	if err != nil {
		return 2 * time.Minute
	}

	return d
}

// ArchivePath returns the full path of the bundled archive
func (c *Config) ArchivePath() string {
	return filepath.Join(expandPath(c.Dataset.OutputDir), c.Dataset.ArchiveName)
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath(nil)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the file LoadConfig reads and SaveConfig writes
func ConfigPath() string {
	return getConfigPath(nil)
}

// getConfigPath returns the path to the configuration file
func getConfigPath(flagOverrides map[string]interface{}) string {
	if str, ok := flagOverrides["config-file"].(string); ok && str != "" {
		return expandPath(str)
	}

	if configPath := os.Getenv(envPrefix + "CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) string {
	return expandPath(path)
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Dataset.SchemaPath = expandPath(c.Dataset.SchemaPath)
	c.Dataset.OutputDir = expandPath(c.Dataset.OutputDir)
	c.Dataset.TempDir = expandPath(c.Dataset.TempDir)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/lernspark"
	}

	return filepath.Join(homeDir, ".config", "lernspark")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Dataset.OutputDir, c.Dataset.TempDir}
	if c.Logging.Output == "file" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
