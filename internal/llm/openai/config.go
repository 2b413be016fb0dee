package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/llm"
)

// ProviderOptions is a tagged variant over the supported chat-completions
// providers. Each variant carries its own strongly-typed field set; there is
// no free-form parameter map.
type ProviderOptions interface {
	endpoint() string
	headers() map[string]string
	modelField(model string) string
}

// OpenAIOptions targets api.openai.com (or a compatible BaseURL).
type OpenAIOptions struct {
	APIKey  string // if empty, falls back to env OPENAI_API_KEY
	BaseURL string // default https://api.openai.com/v1
}

func (o OpenAIOptions) endpoint() string {
	base := o.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}

func (o OpenAIOptions) headers() map[string]string {
	key := o.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	return map[string]string{"Authorization": "Bearer " + key}
}

func (o OpenAIOptions) modelField(model string) string { return model }

// AzureOptions targets an Azure OpenAI deployment. The deployment, not the
// request body, selects the model.
type AzureOptions struct {
	APIKey     string
	Endpoint   string // e.g. https://myresource.openai.azure.com
	Deployment string
	APIVersion string // default 2024-02-01
}

func (a AzureOptions) endpoint() string {
	version := a.APIVersion
	if version == "" {
		version = "2024-02-01"
	}
	return strings.TrimRight(a.Endpoint, "/") +
		"/openai/deployments/" + a.Deployment +
		"/chat/completions?api-version=" + version
}

func (a AzureOptions) headers() map[string]string {
	return map[string]string{"api-key": a.APIKey}
}

func (a AzureOptions) modelField(model string) string { return "" }

// Config for the chat-completions client.
type Config struct {
	Provider    ProviderOptions
	Model       string // e.g. "gpt-4o-mini"; ignored by the azure variant
	Temperature float32
	Timeout     time.Duration // http client timeout
	Prompts     common.Prompts
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Provider == nil {
		cfg.Provider = OpenAIOptions{}
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = llm.DefaultTimeout
	}
	if cfg.Prompts == (common.Prompts{}) {
		cfg.Prompts = common.DefaultPrompts()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

// FromConfig builds the right provider variant from application config.
func FromConfig(cfg common.LLMConfig, logger *slog.Logger) *Client {
	var provider ProviderOptions
	switch cfg.Provider {
	case common.ProviderAzure:
		provider = AzureOptions{
			APIKey:     cfg.APIKey,
			Endpoint:   cfg.AzureEndpoint,
			Deployment: cfg.AzureDeployment,
			APIVersion: cfg.AzureAPIVersion,
		}
	default:
		provider = OpenAIOptions{APIKey: cfg.APIKey}
	}
	prompts, err := common.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("llm.prompts.load_failed", "path", cfg.PromptsPath, "error", err)
	}
	return NewClient(Config{
		Provider:    provider,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Prompts:     prompts,
	}, logger)
}
