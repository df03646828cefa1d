package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"assistanthub/pkg/runtime"
	"assistanthub/pkg/state"
	"assistanthub/pkg/x/llm"
)

type ModelConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	VisionModel       string `yaml:"vision_model"`
	STTModel          string `yaml:"stt_model"`
	MaxRetries        int    `yaml:"max_retries"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// SecondFactorCode is the fixed code accepted by the second login step.
	SecondFactorCode string `yaml:"second_factor_code"`
	// AccountsPath persists sign-ups. "none" keeps them in memory only.
	AccountsPath string `yaml:"accounts_path"`
}

type FilesConfig struct {
	// SearchRoot is where relative folder/file names are searched recursively.
	SearchRoot   string `yaml:"search_root"`
	MaxFileChars int    `yaml:"max_file_chars"`
}

type ReminderConfig struct {
	// StorePath persists pending reminders. Empty disables persistence.
	StorePath string `yaml:"store_path"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != "" && strings.TrimSpace(m.From) != ""
}

type ToolsConfig struct {
	JokeURL       string `yaml:"joke_url"`
	SearchURL     string `yaml:"search_url"`
	NewsFeedURL   string `yaml:"news_feed_url"`
	GeocodeURL    string `yaml:"geocode_url"`
	ForecastURL   string `yaml:"forecast_url"`
	StockQuoteURL string `yaml:"stock_quote_url"`
	// Proxy applies to tool HTTP calls (http://, socks5://, "env" or "direct").
	Proxy string `yaml:"proxy"`
}

type UserConfig struct {
	// Timezone is an IANA name or fixed offset ("+08:00", "UTC+8"). Empty means local time.
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Model     ModelConfig    `yaml:"model"`
	Server    ServerConfig   `yaml:"server"`
	Files     FilesConfig    `yaml:"files"`
	Reminders ReminderConfig `yaml:"reminders"`
	Mail      MailConfig     `yaml:"mail"`
	Tools     ToolsConfig    `yaml:"tools"`
	User      UserConfig     `yaml:"user"`
}

// Load reads the optional YAML file, applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	runtime.LoadDotEnv(LogPrefix, "")

	cfg := &Config{}
	if p := strings.TrimSpace(path); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
		parsed, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", p, err)
		}
		cfg = parsed
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML, rejecting unknown keys.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("invalid config YAML: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Model.BaseURL, "ASSISTANTHUB_MODEL_BASE_URL")
	setString(&c.Model.APIKey, "ASSISTANTHUB_MODEL_API_KEY")
	if c.Model.APIKey == "" {
		setString(&c.Model.APIKey, "OPENAI_API_KEY")
	}
	setString(&c.Model.Model, "ASSISTANTHUB_MODEL")
	setString(&c.Model.VisionModel, "ASSISTANTHUB_VISION_MODEL")
	setString(&c.Server.Addr, "ASSISTANTHUB_ADDR")
	setString(&c.Server.SecondFactorCode, "ASSISTANTHUB_SECOND_FACTOR_CODE")
	setString(&c.Server.AccountsPath, "ASSISTANTHUB_ACCOUNTS_STORE")
	setString(&c.Files.SearchRoot, "ASSISTANTHUB_SEARCH_ROOT")
	setString(&c.Reminders.StorePath, "ASSISTANTHUB_REMINDER_STORE")
	setString(&c.Mail.Host, "ASSISTANTHUB_SMTP_HOST")
	setString(&c.Mail.Username, "ASSISTANTHUB_SMTP_USERNAME")
	setString(&c.Mail.Password, "ASSISTANTHUB_SMTP_PASSWORD")
	setString(&c.Mail.From, "ASSISTANTHUB_SMTP_FROM")
	setString(&c.Tools.Proxy, "ASSISTANTHUB_TOOLS_PROXY")
	setString(&c.User.Timezone, "ASSISTANTHUB_TIMEZONE")

	if v := strings.TrimSpace(os.Getenv("ASSISTANTHUB_SMTP_PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid ASSISTANTHUB_SMTP_PORT: %q", v)
		}
		c.Mail.Port = n
	}
	if v := strings.TrimSpace(os.Getenv("ASSISTANTHUB_MODEL_RPM")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid ASSISTANTHUB_MODEL_RPM: %q", v)
		}
		c.Model.RequestsPerMinute = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) withDefaults() {
	if strings.TrimSpace(c.Model.BaseURL) == "" {
		c.Model.BaseURL = llm.DefaultOpenAIBaseURL
	}
	if strings.TrimSpace(c.Model.Model) == "" {
		c.Model.Model = DefaultModel
	}
	if strings.TrimSpace(c.Model.VisionModel) == "" {
		c.Model.VisionModel = DefaultVisionModel
	}
	if strings.TrimSpace(c.Model.STTModel) == "" {
		c.Model.STTModel = DefaultSTTModel
	}
	if c.Model.MaxRetries <= 0 {
		c.Model.MaxRetries = DefaultMaxLLMRetries
	}
	if c.Model.RequestsPerMinute == 0 {
		c.Model.RequestsPerMinute = DefaultModelRequestsPerMin
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.Server.SecondFactorCode) == "" {
		c.Server.SecondFactorCode = DefaultSecondFactor
	}
	if c.Server.AccountsPath == "" {
		c.Server.AccountsPath = state.AccountsFile()
	} else if strings.EqualFold(c.Server.AccountsPath, "none") {
		c.Server.AccountsPath = ""
	}
	if strings.TrimSpace(c.Files.SearchRoot) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Files.SearchRoot = home
		} else {
			c.Files.SearchRoot = string(os.PathSeparator)
		}
	}
	if c.Files.MaxFileChars <= 0 {
		c.Files.MaxFileChars = DefaultMaxFileChars
	}
	if c.Reminders.StorePath == "" {
		c.Reminders.StorePath = state.RemindersFile()
	} else if strings.EqualFold(c.Reminders.StorePath, "none") {
		c.Reminders.StorePath = ""
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = DefaultSMTPPort
	}
	if c.Tools.JokeURL == "" {
		c.Tools.JokeURL = DefaultJokeURL
	}
	if c.Tools.SearchURL == "" {
		c.Tools.SearchURL = DefaultSearchURL
	}
	if c.Tools.NewsFeedURL == "" {
		c.Tools.NewsFeedURL = DefaultNewsFeedURL
	}
	if c.Tools.GeocodeURL == "" {
		c.Tools.GeocodeURL = DefaultGeocodeURL
	}
	if c.Tools.ForecastURL == "" {
		c.Tools.ForecastURL = DefaultForecastURL
	}
	if c.Tools.StockQuoteURL == "" {
		c.Tools.StockQuoteURL = DefaultStockQuoteURL
	}
}

func (c *Config) Validate() error {
	if err := runtime.ValidateHTTPURL(c.Model.BaseURL); err != nil {
		return fmt.Errorf("model.base_url: %w", err)
	}
	for name, u := range map[string]string{
		"tools.joke_url":        c.Tools.JokeURL,
		"tools.search_url":      c.Tools.SearchURL,
		"tools.news_feed_url":   c.Tools.NewsFeedURL,
		"tools.geocode_url":     c.Tools.GeocodeURL,
		"tools.forecast_url":    c.Tools.ForecastURL,
		"tools.stock_quote_url": c.Tools.StockQuoteURL,
	} {
		if err := runtime.ValidateHTTPURL(u); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Mail.Port > 65535 {
		return fmt.Errorf("mail.port out of range: %d", c.Mail.Port)
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	return nil
}

// ChatConfig returns the model settings for the chat completion helper.
// An empty API key is reported at call time, so offline commands keep working.
func (c *Config) ChatConfig() llm.OpenAIChatConfig {
	return llm.OpenAIChatConfig{
		BaseURL: strings.TrimSpace(c.Model.BaseURL),
		APIKey:  strings.TrimSpace(c.Model.APIKey),
		Model:   strings.TrimSpace(c.Model.Model),
	}
}

func (c *Config) TimeLocation() (*time.Location, error) {
	return ResolveTimezoneLocation(c.User.Timezone)
}
