package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
}

// DatabaseConfig holds job-store configuration. DSN may be a Postgres
// URL (postgres://...) or a SQLite path; the repository picks the driver.
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	QueueSize      int           `yaml:"queue_size"`
	Workers        int           `yaml:"workers"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

// PipelineConfig holds page-pipeline options.
type PipelineConfig struct {
	DPI      int  `yaml:"dpi"`
	MaxPages int  `yaml:"max_pages"`
	ForceOCR bool `yaml:"force_ocr"`
	Strong   bool `yaml:"strong"`
}

// OCRConfig holds OCR engine configuration.
type OCRConfig struct {
	Languages   []string `yaml:"languages"`
	TessdataDir string   `yaml:"tessdata_dir"`
	Pdftotext   string   `yaml:"pdftotext"`
	Pdftoppm    string   `yaml:"pdftoppm"`
}

// LLMConfig holds field-extraction model configuration.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoadConfig loads configuration from environment variables. If path is
// non-empty, values from the YAML file are applied first and environment
// variables override them.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "contract-extractor.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 64),
			Workers:        getEnvAsInt("WORKERS", 1),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 5*time.Minute),
		},
		Pipeline: PipelineConfig{
			DPI:      getEnvAsInt("OCR_DPI", 300),
			MaxPages: getEnvAsInt("MAX_PAGES", 10),
			ForceOCR: getEnvAsBool("FORCE_OCR", false),
			Strong:   getEnvAsBool("STRONG_MODE", false),
		},
		OCR: OCRConfig{
			Languages:   []string{getEnv("OCR_LANG", "rus+eng")},
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			Pdftotext:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "http://localhost:11434/v1"),
			Model:       getEnv("LLM_MODEL", "gemma3:4b"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(b, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		mergeConfig(cfg, &fileCfg)
	}

	return cfg, nil
}

// mergeConfig overlays non-zero file values onto dst. Environment
// variables win only where the file leaves a field unset.
func mergeConfig(dst, file *Config) {
	if file.Database.DSN != "" {
		dst.Database.DSN = file.Database.DSN
	}
	if file.Database.MaxConns > 0 {
		dst.Database.MaxConns = file.Database.MaxConns
	}
	if file.Server.Addr != "" {
		dst.Server.Addr = file.Server.Addr
	}
	if file.Server.QueueSize > 0 {
		dst.Server.QueueSize = file.Server.QueueSize
	}
	if file.Server.Workers > 0 {
		dst.Server.Workers = file.Server.Workers
	}
	if file.Pipeline.DPI > 0 {
		dst.Pipeline.DPI = file.Pipeline.DPI
	}
	if file.Pipeline.MaxPages > 0 {
		dst.Pipeline.MaxPages = file.Pipeline.MaxPages
	}
	if file.Pipeline.ForceOCR {
		dst.Pipeline.ForceOCR = true
	}
	if file.Pipeline.Strong {
		dst.Pipeline.Strong = true
	}
	if len(file.OCR.Languages) > 0 {
		dst.OCR.Languages = file.OCR.Languages
	}
	if file.OCR.TessdataDir != "" {
		dst.OCR.TessdataDir = file.OCR.TessdataDir
	}
	if file.OCR.Pdftotext != "" {
		dst.OCR.Pdftotext = file.OCR.Pdftotext
	}
	if file.OCR.Pdftoppm != "" {
		dst.OCR.Pdftoppm = file.OCR.Pdftoppm
	}
	if file.LLM.BaseURL != "" {
		dst.LLM.BaseURL = file.LLM.BaseURL
	}
	if file.LLM.Model != "" {
		dst.LLM.Model = file.LLM.Model
	}
	if file.LLM.APIKey != "" {
		dst.LLM.APIKey = file.LLM.APIKey
	}
	if file.LLM.Timeout > 0 {
		dst.LLM.Timeout = file.LLM.Timeout
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.LLM.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "LLM_BASE_URL is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
