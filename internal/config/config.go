// Package config loads kbb settings from defaults, an optional YAML file and
// KBB_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given. It may be absent.
const DefaultFile = "kbb.yaml"

type Config struct {
	// Templates
	SearchPaths []string `yaml:"search_paths"`
	OverlayID   string   `yaml:"overlay_id" validate:"required"`

	// Output
	OutputDir string `yaml:"output_dir" validate:"required"`
	KeepSVG   bool   `yaml:"keep_svg"`
	PNG       bool   `yaml:"png"`
	Minify    bool   `yaml:"minify"`

	// Raster conversion
	Converter      string        `yaml:"converter" validate:"oneof=inkscape chrome none"`
	InkscapeBin    string        `yaml:"inkscape_bin"`
	ChromeBin      string        `yaml:"chrome_bin"`
	ConvertTimeout time.Duration `yaml:"convert_timeout" validate:"min=0"`

	// Variant builds
	Workers  int  `yaml:"workers" validate:"min=1,max=64"`
	FailFast bool `yaml:"fail_fast"`

	// Build history ("" disables it)
	HistoryDB string `yaml:"history_db"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Build service
	Port           string        `yaml:"port" validate:"required,numeric"`
	APIKey         string        `yaml:"api_key"`
	WorkDir        string        `yaml:"work_dir"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"min=1"`
	MaxQueueSize   int           `yaml:"max_queue_size" validate:"min=1"`
	ServerWorkers  int           `yaml:"server_workers" validate:"min=1"`
	JobTTL         time.Duration `yaml:"job_ttl" validate:"min=0"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		OverlayID:      "Night-Tint",
		OutputDir:      ".",
		PNG:            true,
		Converter:      "inkscape",
		InkscapeBin:    "inkscape",
		ConvertTimeout: 2 * time.Minute,
		Workers:        4,
		FailFast:       true,
		LogLevel:       "info",
		Port:           "8090",
		WorkDir:        "kbb-jobs",
		MaxUploadBytes: 10485760, // 10MB
		MaxQueueSize:   100,
		ServerWorkers:  2,
		JobTTL:         1 * time.Hour,
	}
}

// Load builds the configuration. An empty path reads DefaultFile when it
// exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", file, err)
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("KBB_SEARCH_PATHS"); v != "" {
		cfg.SearchPaths = strings.Split(v, string(os.PathListSeparator))
	}
	cfg.OverlayID = envOr("KBB_OVERLAY_ID", cfg.OverlayID)

	cfg.OutputDir = envOr("KBB_OUTPUT_DIR", cfg.OutputDir)
	cfg.KeepSVG = envBool("KBB_KEEP_SVG", cfg.KeepSVG)
	cfg.PNG = envBool("KBB_PNG", cfg.PNG)
	cfg.Minify = envBool("KBB_MINIFY", cfg.Minify)

	cfg.Converter = envOr("KBB_CONVERTER", cfg.Converter)
	cfg.InkscapeBin = envOr("KBB_INKSCAPE_BIN", cfg.InkscapeBin)
	cfg.ChromeBin = envOr("KBB_CHROME_BIN", cfg.ChromeBin)
	cfg.ConvertTimeout = envDuration("KBB_CONVERT_TIMEOUT", cfg.ConvertTimeout)

	cfg.Workers = envInt("KBB_WORKERS", cfg.Workers)
	cfg.FailFast = envBool("KBB_FAIL_FAST", cfg.FailFast)
	cfg.HistoryDB = envOr("KBB_HISTORY_DB", cfg.HistoryDB)
	cfg.LogLevel = envOr("KBB_LOG_LEVEL", cfg.LogLevel)

	cfg.Port = envOr("PORT", envOr("KBB_PORT", cfg.Port))
	cfg.APIKey = envOr("KBB_API_KEY", cfg.APIKey)
	cfg.WorkDir = envOr("KBB_WORK_DIR", cfg.WorkDir)
	cfg.MaxUploadBytes = envInt64("KBB_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxQueueSize = envInt("KBB_MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.ServerWorkers = envInt("KBB_SERVER_WORKERS", cfg.ServerWorkers)
	cfg.JobTTL = envDuration("KBB_JOB_TTL", cfg.JobTTL)
}

var validate = validator.New()

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ValidateServer additionally checks the build service settings.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("KBB_API_KEY is required")
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
