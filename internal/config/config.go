// Package config loads the abrstream service configuration. Values come from
// built-in defaults, then an optional YAML file, then environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Ladder modes
const (
	LadderModeDynamic = "dynamic"
	LadderModeStatic  = "static"
)

// Storage backends
const (
	StorageBackendS3         = "s3"
	StorageBackendFilesystem = "filesystem"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg" json:"ffmpeg"`
	Ladder   LadderConfig   `yaml:"ladder" json:"ladder"`
	Pipeline PipelineConfig `yaml:"pipeline" json:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host          string        `yaml:"host" json:"host" env:"ABRSTREAM_HOST"`
	Port          int           `yaml:"port" json:"port" env:"ABRSTREAM_PORT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" json:"read_timeout" env:"ABRSTREAM_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" json:"write_timeout" env:"ABRSTREAM_WRITE_TIMEOUT"`
	MaxUploadSize int64         `yaml:"max_upload_size" json:"max_upload_size" env:"ABRSTREAM_MAX_UPLOAD_SIZE"`
}

// DatabaseConfig selects where job records are kept
type DatabaseConfig struct {
	Type     string `yaml:"type" json:"type" env:"DATABASE_TYPE"`
	Path     string `yaml:"path" json:"path" env:"ABRSTREAM_DATABASE_PATH"`
	URL      string `yaml:"url" json:"url" env:"DATABASE_URL"`
	LogLevel string `yaml:"log_level" json:"log_level" env:"DB_LOG_LEVEL"`
}

// StorageConfig describes the object store holding uploads and HLS output
type StorageConfig struct {
	Backend   string `yaml:"backend" json:"backend" env:"ABRSTREAM_STORAGE_BACKEND"`
	Endpoint  string `yaml:"endpoint" json:"endpoint" env:"MINIO_ENDPOINT"`
	Region    string `yaml:"region" json:"region" env:"MINIO_REGION"`
	Bucket    string `yaml:"bucket" json:"bucket" env:"MINIO_BUCKET"`
	AccessKey string `yaml:"access_key" json:"-" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" json:"-" env:"MINIO_SECRET_KEY"`
	RootDir   string `yaml:"root_dir" json:"root_dir" env:"ABRSTREAM_STORAGE_DIR"`
}

// FFmpegConfig points at the external codec, segmenter and prober binaries
type FFmpegConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path" json:"ffmpeg_path" env:"FFMPEG_PATH"`
	FFprobePath  string `yaml:"ffprobe_path" json:"ffprobe_path" env:"FFPROBE_PATH"`
	AudioBitrate string `yaml:"audio_bitrate" json:"audio_bitrate" env:"ABRSTREAM_AUDIO_BITRATE"`
	SegmentTime  int    `yaml:"segment_time" json:"segment_time" env:"ABRSTREAM_SEGMENT_TIME"`
}

// LadderConfig chooses between the source-aware and the fixed rendition ladder
type LadderConfig struct {
	Mode string `yaml:"mode" json:"mode" env:"ABRSTREAM_LADDER_MODE"`
}

// PipelineConfig controls per-upload execution
type PipelineConfig struct {
	WorkDir               string `yaml:"work_dir" json:"work_dir" env:"ABRSTREAM_WORK_DIR"`
	MaxParallelRenditions int    `yaml:"max_parallel_renditions" json:"max_parallel_renditions" env:"ABRSTREAM_MAX_PARALLEL_RENDITIONS"`
	CleanupOnFailure      bool   `yaml:"cleanup_on_failure" json:"cleanup_on_failure" env:"ABRSTREAM_CLEANUP_ON_FAILURE"`
	KeepWorkFiles         bool   `yaml:"keep_work_files" json:"keep_work_files" env:"ABRSTREAM_KEEP_WORK_FILES"`
	// StaleAfter is the age at which leftover run directories are swept; 0 disables the sweep
	StaleAfter    time.Duration `yaml:"stale_after" json:"stale_after" env:"ABRSTREAM_STALE_AFTER"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval" env:"ABRSTREAM_SWEEP_INTERVAL"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT"`
}

// ConfigManager owns the active configuration
type ConfigManager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
}

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a manager seeded with the defaults
func NewConfigManager() *ConfigManager {
	return &ConfigManager{config: DefaultConfig()}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			ReadTimeout:   30 * time.Minute,
			WriteTimeout:  30 * time.Minute,
			MaxUploadSize: 4 << 30,
		},
		Database: DatabaseConfig{
			Type:     "sqlite",
			Path:     "./data/abrstream.db",
			LogLevel: "warn",
		},
		Storage: StorageConfig{
			Backend: StorageBackendFilesystem,
			Region:  "us-east-1",
			Bucket:  "videos",
			RootDir: "./data/objects",
		},
		FFmpeg: FFmpegConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			AudioBitrate: "128k",
			SegmentTime:  10,
		},
		Ladder: LadderConfig{
			Mode: LadderModeDynamic,
		},
		Pipeline: PipelineConfig{
			WorkDir:               "./output",
			MaxParallelRenditions: 1,
			StaleAfter:            6 * time.Hour,
			SweepInterval:         time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory, when present, is applied to the
// process environment first.
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.configPath = configPath
	newConfig := DefaultConfig()

	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if fileExists(".env") {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = newConfig
	return nil
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	if c.Database.Type != "sqlite" && c.Database.Type != "postgres" {
		return &ValidationError{Field: "database.type", Message: "must be sqlite or postgres"}
	}
	if c.Database.Type == "postgres" && c.Database.URL == "" {
		return &ValidationError{Field: "database.url", Message: "required for postgres"}
	}
	switch c.Storage.Backend {
	case StorageBackendFilesystem:
		if c.Storage.RootDir == "" {
			return &ValidationError{Field: "storage.root_dir", Message: "required for filesystem backend"}
		}
	case StorageBackendS3:
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			return &ValidationError{Field: "storage.endpoint", Message: "endpoint and bucket are required for s3 backend"}
		}
	default:
		return &ValidationError{Field: "storage.backend", Message: "must be s3 or filesystem"}
	}
	if c.Ladder.Mode != LadderModeDynamic && c.Ladder.Mode != LadderModeStatic {
		return &ValidationError{Field: "ladder.mode", Message: "must be dynamic or static"}
	}
	if c.FFmpeg.SegmentTime <= 0 {
		return &ValidationError{Field: "ffmpeg.segment_time", Message: "must be positive"}
	}
	if c.Pipeline.MaxParallelRenditions < 0 {
		return &ValidationError{Field: "pipeline.max_parallel_renditions", Message: "must not be negative"}
	}
	if c.Pipeline.StaleAfter < 0 || c.Pipeline.SweepInterval < 0 {
		return &ValidationError{Field: "pipeline.stale_after", Message: "durations must not be negative"}
	}
	if c.Pipeline.WorkDir == "" {
		return &ValidationError{Field: "pipeline.work_dir", Message: "required"}
	}
	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error in field '" + e.Field + "': " + e.Message
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads the global configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}
