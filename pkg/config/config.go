package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every option the downloader pipelines need. It is built once
// at startup and passed explicitly to each component; nothing reads it as
// ambient state.
type Config struct {
	// Target site
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	TargetUID   string            `json:"target_uid" yaml:"target_uid"`
	Cookies     map[string]string `json:"cookies" yaml:"cookies"`
	CookieNames map[string]string `json:"cookie_names" yaml:"cookie_names"`
	Proxy       string            `json:"proxy" yaml:"proxy"`
	UserAgent   string            `json:"user_agent" yaml:"user_agent"`
	APIPaths    APIPaths          `json:"api_paths" yaml:"api_paths"`

	Request RequestConfig `json:"request" yaml:"request"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	QA      QAConfig      `json:"qa" yaml:"qa"`
	Unlock  UnlockConfig  `json:"unlock" yaml:"unlock"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// APIPaths holds the endpoint path templates. Placeholders: {uid}, {page},
// {article_id}, {qa_id}.
type APIPaths struct {
	Profile     string `json:"api_profile" yaml:"api_profile"`
	Articles    string `json:"api_articles" yaml:"api_articles"`
	ArticlePage string `json:"article_page" yaml:"article_page"`
	QAPage      string `json:"qa_page" yaml:"qa_page"`
}

// RequestConfig holds HTTP pacing and retry settings. Delays are in seconds.
type RequestConfig struct {
	DelayBetweenPages float64 `json:"delay_between_pages" yaml:"delay_between_pages"`
	DelayBetweenItems float64 `json:"delay_between_items" yaml:"delay_between_items"`
	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int     `json:"max_retries" yaml:"max_retries"`
	RequestsPerMinute int     `json:"requests_per_minute" yaml:"requests_per_minute"`
}

// OutputConfig holds output directory configuration.
type OutputConfig struct {
	SaveDir     string `json:"save_dir" yaml:"save_dir"`
	QASaveDir   string `json:"qa_save_dir" yaml:"qa_save_dir"`
	SkipImages  bool   `json:"skip_images" yaml:"skip_images"`
	TitleMaxLen int    `json:"title_max_len" yaml:"title_max_len"`
}

// QAConfig holds Q&A specific settings.
type QAConfig struct {
	// UnlockedMinChars is the answer-length heuristic that separates a fully
	// served answer from a paywalled stub. Site-specific, hence configurable.
	UnlockedMinChars int `json:"unlocked_min_chars" yaml:"unlocked_min_chars"`
}

// UnlockConfig holds browser-automation settings for the unlock pass.
type UnlockConfig struct {
	BatchSize          int      `json:"batch_size" yaml:"batch_size"`
	Headless           bool     `json:"headless" yaml:"headless"`
	NavigationTimeout  int      `json:"navigation_timeout_seconds" yaml:"navigation_timeout_seconds"`
	SettleDelaySeconds float64  `json:"settle_delay_seconds" yaml:"settle_delay_seconds"`
	RevealDelaySeconds float64  `json:"reveal_delay_seconds" yaml:"reveal_delay_seconds"`
	UnlockSelector     string   `json:"unlock_selector" yaml:"unlock_selector"`
	AnswerSelectors    []string `json:"answer_selectors" yaml:"answer_selectors"`
	QuestionSelectors  []string `json:"question_selectors" yaml:"question_selectors"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// DefaultConfig returns a Config with sensible defaults. Site identity
// (base_url, target_uid, cookies) always comes from the config file or
// environment.
func DefaultConfig() *Config {
	return &Config{
		Cookies:     make(map[string]string),
		CookieNames: map[string]string{"xsrf": "XSRF-TOKEN"},
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		APIPaths: APIPaths{
			QAPage: "/p/{qa_id}",
		},
		Request: RequestConfig{
			DelayBetweenPages: 1,
			DelayBetweenItems: 2,
			TimeoutSeconds:    20,
			MaxRetries:        3,
			RequestsPerMinute: 60,
		},
		Output: OutputConfig{
			SaveDir:     "./output",
			QASaveDir:   "./qa_output",
			TitleMaxLen: 80,
		},
		QA: QAConfig{
			UnlockedMinChars: 150,
		},
		Unlock: UnlockConfig{
			BatchSize:          5,
			Headless:           false,
			NavigationTimeout:  20,
			SettleDelaySeconds: 3,
			RevealDelaySeconds: 4,
			UnlockSelector:     `[node-type="free_look_btn"]`,
			AnswerSelectors: []string{
				".answer_con", ".answer_text",
				`[node-type="answer_text"]`, `[node-type="answer_content"]`,
				".main_answer .WB_text", ".main_answer", ".WB_answer_wrap",
			},
			QuestionSelectors: []string{".ask_con", `[node-type="askTitle"]`},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (JSON, or YAML when the extension is
// .yaml/.yml), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	// A .env alongside the binary is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	cfg.LoadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile merges the file at path into the config.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return nil
}

// LoadFromEnv applies ARTICLEGRAB_* environment overrides.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("ARTICLEGRAB_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("ARTICLEGRAB_TARGET_UID"); v != "" {
		c.TargetUID = v
	}
	if v := os.Getenv("ARTICLEGRAB_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("ARTICLEGRAB_SAVE_DIR"); v != "" {
		c.Output.SaveDir = v
	}
	if v := os.Getenv("ARTICLEGRAB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ARTICLEGRAB_COOKIES"); v != "" {
		for name, value := range ParseCookieString(v) {
			c.Cookies[name] = value
		}
	}
	if v := os.Getenv("ARTICLEGRAB_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Unlock.BatchSize = n
		}
	}
}

// Validate checks that the config identifies a real target.
func (c *Config) Validate() error {
	if c.BaseURL == "" || strings.Contains(c.BaseURL, "example.com") {
		return fmt.Errorf("'base_url' must be set to the real target site URL")
	}
	if c.TargetUID == "" {
		return fmt.Errorf("'target_uid' is required")
	}
	if c.APIPaths.Profile == "" {
		return fmt.Errorf("'api_paths.api_profile' is required")
	}
	if c.APIPaths.Articles == "" {
		return fmt.Errorf("'api_paths.api_articles' is required")
	}
	if c.APIPaths.ArticlePage == "" {
		return fmt.Errorf("'api_paths.article_page' is required")
	}
	if c.Output.TitleMaxLen <= 0 {
		c.Output.TitleMaxLen = 80
	}
	return nil
}

// CleanCookies returns the configured cookies with empty values dropped.
func (c *Config) CleanCookies() map[string]string {
	out := make(map[string]string, len(c.Cookies))
	for name, value := range c.Cookies {
		if value != "" {
			out[name] = value
		}
	}
	return out
}

// XSRFCookieName resolves the logical "xsrf" cookie to the site-specific key.
func (c *Config) XSRFCookieName() string {
	if name, ok := c.CookieNames["xsrf"]; ok && name != "" {
		return name
	}
	return "XSRF-TOKEN"
}

// PageDelay is the pause between listing page fetches.
func (r RequestConfig) PageDelay() time.Duration {
	return time.Duration(r.DelayBetweenPages * float64(time.Second))
}

// ItemDelay is the pause between item downloads.
func (r RequestConfig) ItemDelay() time.Duration {
	return time.Duration(r.DelayBetweenItems * float64(time.Second))
}

// Timeout is the per-request HTTP timeout.
func (r RequestConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// NavTimeout is the per-page navigation budget of the unlock pass.
func (u UnlockConfig) NavTimeout() time.Duration {
	if u.NavigationTimeout <= 0 {
		return 20 * time.Second
	}
	return time.Duration(u.NavigationTimeout) * time.Second
}

// SettleDelay is the wait after navigation before touching the page.
func (u UnlockConfig) SettleDelay() time.Duration {
	return time.Duration(u.SettleDelaySeconds * float64(time.Second))
}

// RevealDelay is the wait after clicking the unlock control.
func (u UnlockConfig) RevealDelay() time.Duration {
	return time.Duration(u.RevealDelaySeconds * float64(time.Second))
}

// ParseCookieString splits a "name=value; name2=value2" string into a map.
func ParseCookieString(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}
