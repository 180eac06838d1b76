package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth. Empty disables bearer auth.
	APIKey string `yaml:"api_key"`

	// Model provider: azure, openai or anthropic.
	LLMProvider           string `yaml:"llm_provider"`
	AzureOpenAIEndpoint   string `yaml:"azure_openai_endpoint"`
	AzureOpenAIKey        string `yaml:"azure_openai_key"`
	AzureOpenAIDeployment string `yaml:"azure_openai_deployment"`
	AzureOpenAIAPIVersion string `yaml:"azure_openai_api_version"`
	OpenAIAPIKey          string `yaml:"openai_api_key"`
	OpenAIModel           string `yaml:"openai_model"`
	OpenAIBaseURL         string `yaml:"openai_base_url"`
	AnthropicAPIKey       string `yaml:"anthropic_api_key"`
	AnthropicModel        string `yaml:"anthropic_model"`

	// Layout analysis: azure or local.
	LayoutBackend        string `yaml:"layout_backend"`
	DocIntelEndpoint     string `yaml:"docintel_endpoint"`
	DocIntelKey          string `yaml:"docintel_key"`
	PDFFallbackPdftotext bool   `yaml:"pdf_fallback_pdftotext"`

	// Persistence: memory or pathstore.
	StoreBackend    string `yaml:"store_backend"`
	PathstoreURL    string `yaml:"pathstore_url"`
	PathstoreAPIKey string `yaml:"pathstore_api_key"`

	// Events. Empty URL disables publishing.
	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`

	// Worker pool
	WorkerCount          int `yaml:"worker_count"`
	MaxQueueSize         int `yaml:"max_queue_size"`
	MaxConcurrentExtract int `yaml:"max_concurrent_extract"`

	// Sectioning
	ValidatorConcurrency int    `yaml:"validator_concurrency"`
	KeepUnvalidated      bool   `yaml:"keep_unvalidated"`
	TOCFirstPage         int    `yaml:"toc_first_page"`
	TOCLastPage          int    `yaml:"toc_last_page"`
	PageNormalizer       string `yaml:"page_normalizer"`

	// Requirement extraction
	MaxSectionTokens int `yaml:"max_section_tokens"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL      time.Duration `yaml:"job_ttl"`
	StatsWindow time.Duration `yaml:"stats_window"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                  "8090",
		LLMProvider:           "azure",
		AzureOpenAIAPIVersion: "2024-05-01-preview",
		OpenAIModel:           "gpt-4o",
		AnthropicModel:        "claude-sonnet-4-5-20250929",
		LayoutBackend:         "azure",
		PDFFallbackPdftotext:  true,
		StoreBackend:          "pathstore",
		PathstoreURL:          "http://localhost:8080",
		NATSSubjectPrefix:     "rfpgest.jobs",
		WorkerCount:           4,
		MaxQueueSize:          100,
		MaxConcurrentExtract:  5,
		ValidatorConcurrency:  3,
		KeepUnvalidated:       true,
		TOCFirstPage:          2,
		TOCLastPage:           12,
		PageNormalizer:        "rule",
		MaxSectionTokens:      3000,
		MaxUploadBytes:        52428800, // 50MB
		JobTTL:                1 * time.Hour,
		StatsWindow:           1 * time.Hour,
	}
}

// Load builds the config from defaults, then the YAML file named by
// RFPGEST_CONFIG, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("RFPGEST_CONFIG"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.overlayEnv()
	cfg.fixDefaults()
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = envOr("PORT", c.Port)
	c.APIKey = envOr("RFPGEST_API_KEY", c.APIKey)

	c.LLMProvider = envOr("LLM_PROVIDER", c.LLMProvider)
	c.AzureOpenAIEndpoint = envOr("AZURE_OPENAI_ENDPOINT", c.AzureOpenAIEndpoint)
	c.AzureOpenAIKey = envOr("AZURE_OPENAI_API_KEY", c.AzureOpenAIKey)
	c.AzureOpenAIDeployment = envOr("AZURE_OPENAI_DEPLOYMENT_NAME", c.AzureOpenAIDeployment)
	c.AzureOpenAIAPIVersion = envOr("AZURE_OPENAI_API_VERSION", c.AzureOpenAIAPIVersion)
	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = envOr("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envOr("ANTHROPIC_MODEL", c.AnthropicModel)

	c.LayoutBackend = envOr("LAYOUT_BACKEND", c.LayoutBackend)
	c.DocIntelEndpoint = envOr("DOCINTEL_ENDPOINT", c.DocIntelEndpoint)
	c.DocIntelKey = envOr("DOCINTEL_KEY", c.DocIntelKey)
	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)

	c.StoreBackend = envOr("STORE_BACKEND", c.StoreBackend)
	c.PathstoreURL = envOr("PATHSTORE_URL", c.PathstoreURL)
	c.PathstoreAPIKey = envOr("PATHSTORE_API_KEY", c.PathstoreAPIKey)

	c.NATSURL = envOr("NATS_URL", c.NATSURL)
	c.NATSSubjectPrefix = envOr("NATS_SUBJECT_PREFIX", c.NATSSubjectPrefix)

	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.MaxQueueSize = envInt("MAX_QUEUE_SIZE", c.MaxQueueSize)
	c.MaxConcurrentExtract = envInt("MAX_CONCURRENT_EXTRACT", c.MaxConcurrentExtract)

	c.ValidatorConcurrency = envInt("VALIDATOR_CONCURRENCY", c.ValidatorConcurrency)
	c.KeepUnvalidated = envBool("KEEP_UNVALIDATED", c.KeepUnvalidated)
	c.TOCFirstPage = envInt("TOC_FIRST_PAGE", c.TOCFirstPage)
	c.TOCLastPage = envInt("TOC_LAST_PAGE", c.TOCLastPage)
	c.PageNormalizer = envOr("PAGE_NORMALIZER", c.PageNormalizer)

	c.MaxSectionTokens = envInt("MAX_SECTION_TOKENS", c.MaxSectionTokens)
	c.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", c.MaxUploadBytes)
	c.JobTTL = envDuration("JOB_TTL", c.JobTTL)
	c.StatsWindow = envDuration("STATS_WINDOW", c.StatsWindow)
}

func (c *Config) fixDefaults() {
	d := Defaults()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxConcurrentExtract <= 0 {
		c.MaxConcurrentExtract = d.MaxConcurrentExtract
	}
	if c.ValidatorConcurrency <= 0 {
		c.ValidatorConcurrency = d.ValidatorConcurrency
	}
	if c.TOCFirstPage <= 0 {
		c.TOCFirstPage = d.TOCFirstPage
	}
	if c.TOCLastPage <= 0 {
		c.TOCLastPage = d.TOCLastPage
	}
	if c.MaxSectionTokens <= 0 {
		c.MaxSectionTokens = d.MaxSectionTokens
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = d.StatsWindow
	}
}

// Validate checks the settings needed by the selected backends.
func (c Config) Validate() error {
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	switch c.LayoutBackend {
	case "azure":
		if c.DocIntelEndpoint == "" || c.DocIntelKey == "" {
			return fmt.Errorf("DOCINTEL_ENDPOINT and DOCINTEL_KEY are required")
		}
	case "local":
	default:
		return fmt.Errorf("unknown LAYOUT_BACKEND %q", c.LayoutBackend)
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.PageNormalizer != "rule" && c.PageNormalizer != "llm" {
		return fmt.Errorf("unknown PAGE_NORMALIZER %q", c.PageNormalizer)
	}
	if c.TOCFirstPage > c.TOCLastPage {
		return fmt.Errorf("TOC_FIRST_PAGE (%d) must not exceed TOC_LAST_PAGE (%d)", c.TOCFirstPage, c.TOCLastPage)
	}
	return nil
}

// ValidateLLM checks the selected model provider.
func (c Config) ValidateLLM() error {
	switch c.LLMProvider {
	case "azure":
		if c.AzureOpenAIEndpoint == "" || c.AzureOpenAIKey == "" || c.AzureOpenAIDeployment == "" {
			return fmt.Errorf("AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT_NAME are required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

// ValidateStore checks the selected record store.
func (c Config) ValidateStore() error {
	switch c.StoreBackend {
	case "pathstore":
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	return nil
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
