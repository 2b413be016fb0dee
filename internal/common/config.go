package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. It is built once at startup and
// passed explicitly to each component; there is no global settings object.
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	OCR      OCRConfig
	Export   ExportConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN         string
	DialTimeout time.Duration
}

// LLMProvider selects which reasoning-service transport is in use.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderAzure  LLMProvider = "azure"
)

// LLMConfig holds reasoning-service configuration. Azure fields are only
// consulted when Provider is "azure".
type LLMConfig struct {
	Provider    LLMProvider
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration

	AzureEndpoint   string
	AzureDeployment string
	AzureAPIVersion string

	PromptsPath string
}

// OCRConfig holds text-extraction configuration
type OCRConfig struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string
	DPI       int
	MaxPages  int
}

// ExportConfig holds flat-file export configuration
type ExportConfig struct {
	CSVPath  string
	XLSXPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:         getEnv("DB_URL", "lab_results.db"),
			DialTimeout: getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		LLM: LLMConfig{
			Provider:        LLMProvider(strings.ToLower(getEnv("LLM_PROVIDER", "openai"))),
			Model:           getEnv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			AzureAPIVersion: getEnv("AZURE_API_VERSION", "2024-02-01"),
			PromptsPath:     getEnv("PROMPTS_PATH", ""),
		},
		OCR: OCRConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract: getEnv("TESSERACT_BIN", "tesseract"),
			DPI:       getEnvAsInt("OCR_DPI", 300),
			MaxPages:  getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Export: ExportConfig{
			CSVPath:  getEnv("EXPORT_CSV_PATH", "lab_results.csv"),
			XLSXPath: getEnv("EXPORT_XLSX_PATH", ""),
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
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAzure:
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai or azure", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.Provider == ProviderAzure {
		if c.LLM.AzureEndpoint == "" || c.LLM.AzureDeployment == "" {
			return NewAppError("CONFIG_ERROR", "AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_DEPLOYMENT are required for the azure provider", ErrInvalidInput)
		}
	}
	return nil
}
