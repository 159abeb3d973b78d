package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Converter ConverterConfig
	Extractor ExtractorConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// ConverterConfig holds HEIC conversion configuration
type ConverterConfig struct {
	HeicConverter string // heif-convert | magick | sips
	JPEGQuality   int    // 1..100
	Timeout       time.Duration
}

// ExtractorConfig holds OCR backend configuration
type ExtractorConfig struct {
	Provider      string // gemini | openai | tesseract
	Model         string
	APIKey        string
	BaseURL       string
	Temperature   float32
	Timeout       time.Duration
	TesseractLang string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 20<<20),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 90*time.Second),
		},
		Converter: ConverterConfig{
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
			JPEGQuality:   getEnvAsInt("HEIC_JPEG_QUALITY", 80),
			Timeout:       getEnvAsDuration("HEIC_TIMEOUT", 30*time.Second),
		},
		Extractor: ExtractorConfig{
			Provider:      getEnv("EXTRACTOR_PROVIDER", "gemini"),
			Model:         getEnv("EXTRACTOR_MODEL", ""),
			APIKey:        getEnv("EXTRACTOR_API_KEY", ""),
			BaseURL:       getEnv("EXTRACTOR_BASE_URL", ""),
			Temperature:   getEnvAsFloat32("EXTRACTOR_TEMPERATURE", 0.0),
			Timeout:       getEnvAsDuration("EXTRACTOR_TIMEOUT", 60*time.Second),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Extractor.Provider {
	case "gemini", "openai":
		if c.Extractor.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "EXTRACTOR_API_KEY is required for provider "+c.Extractor.Provider, ErrInvalidInput)
		}
	case "tesseract":
		// local engine, no key
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACTOR_PROVIDER must be one of: gemini | openai | tesseract", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if q := c.Converter.JPEGQuality; q < 1 || q > 100 {
		return NewAppError("CONFIG_ERROR", "HEIC_JPEG_QUALITY must be in 1..100", ErrInvalidInput)
	}
	return nil
}
