package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dyike/marktbot/consts"
)

type Config struct {
	ProjectDir string `json:"project_dir"`
	DataDir    string `json:"data_dir"`

	// Marketplace
	BaseURL     string        `json:"base_url"`
	Email       string        `json:"email"`
	Password    string        `json:"-"`
	UserAgent   string        `json:"user_agent"`
	HTTPTimeout time.Duration `json:"http_timeout"`

	// Search
	SearchStrategy string   `json:"search_strategy"`
	PageSize       int      `json:"page_size"`
	MaxPages       int      `json:"max_pages"`
	Conditions     []string `json:"conditions"`

	// LLM
	LLMProvider string `json:"llm_provider"`
	LLMModel    string `json:"llm_model"`
	LLMAPIKey   string `json:"-"`
	LLMBaseURL  string `json:"llm_base_url"`
	LLMMaxToken int    `json:"llm_max_tokens"`

	// Pipeline
	PoliteDelay       time.Duration `json:"polite_delay"`
	ItemTimeout       time.Duration `json:"item_timeout"`
	MinRating         int           `json:"min_rating"`
	FavorableKeywords []string      `json:"favorable_keywords"`
	Locale            string        `json:"locale"`

	// Storage
	StoreDriver string `json:"store_driver"`
	DBPath      string `json:"db_path"`

	ListenAddr string `json:"listen_addr"`
	Debug      bool   `json:"debug"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/122.0.0.0 Safari/537.36"

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir: currentDir,
		DataDir:    filepath.Join(currentDir, "data"),

		BaseURL:     "https://www.marktplaats.nl",
		UserAgent:   defaultUserAgent,
		HTTPTimeout: 30 * time.Second,

		SearchStrategy: consts.Strategy_API,
		PageSize:       30,

		LLMProvider: consts.Provider_DeepSeek,
		LLMModel:    "deepseek-chat",
		LLMMaxToken: 1024,

		PoliteDelay:       time.Second,
		ItemTimeout:       60 * time.Second,
		MinRating:         4,
		FavorableKeywords: []string{"recommend", "aanrader"},
		Locale:            consts.Locale_NL,

		StoreDriver: consts.Store_Memory,
		ListenAddr:  ":5000",
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, "marktbot.db")

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.DBPath = filepath.Join(val, "marktbot.db")
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("MARKTPLAATS_BASE_URL"); val != "" {
		c.BaseURL = strings.TrimRight(val, "/")
	}
	if val := os.Getenv("MARKTPLAATS_EMAIL"); val != "" {
		c.Email = val
	}
	if val := os.Getenv("MARKTPLAATS_PASSWORD"); val != "" {
		c.Password = val
	}
	if val := os.Getenv("USER_AGENT"); val != "" {
		c.UserAgent = val
	}
	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTPTimeout = d
		}
	}

	if val := os.Getenv("SEARCH_STRATEGY"); val != "" {
		c.SearchStrategy = strings.ToLower(val)
	}
	if val := os.Getenv("SEARCH_PAGE_SIZE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.PageSize = v
		}
	}
	if val := os.Getenv("SEARCH_MAX_PAGES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxPages = v
		}
	}
	if val := os.Getenv("CONDITION_FILTER"); val != "" {
		c.Conditions = splitList(val)
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LLMMaxToken = v
		}
	}
	for _, key := range []string{"LLM_API_KEY", "DEEPSEEK_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		if val := os.Getenv(key); val != "" {
			c.LLMAPIKey = val
			break
		}
	}

	if val := os.Getenv("POLITE_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.PoliteDelay = d
		}
	}
	if val := os.Getenv("ITEM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ItemTimeout = d
		}
	}
	if val := os.Getenv("MIN_RATING"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MinRating = v
		}
	}
	if val := os.Getenv("FAVORABLE_KEYWORDS"); val != "" {
		c.FavorableKeywords = splitList(val)
	}
	if val := os.Getenv("LOCALE"); val != "" {
		c.Locale = strings.ToLower(val)
	}

	if val := os.Getenv("STORE_DRIVER"); val != "" {
		c.StoreDriver = strings.ToLower(val)
	}
	if val := os.Getenv("PORT"); val != "" {
		c.ListenAddr = ":" + val
	}
	if val := os.Getenv("MARKTBOT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base url is required")
	}
	if !slices.Contains([]string{consts.Strategy_API, consts.Strategy_Embedded, consts.Strategy_HTML}, c.SearchStrategy) {
		return fmt.Errorf("unknown search strategy %q", c.SearchStrategy)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must not be negative")
	}
	if !slices.Contains([]string{consts.Provider_DeepSeek, consts.Provider_OpenAI, consts.Provider_OpenAIJSON}, c.LLMProvider) {
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.MinRating < 1 || c.MinRating > 5 {
		return fmt.Errorf("min rating must be between 1 and 5")
	}
	if c.PoliteDelay < 0 {
		return fmt.Errorf("polite delay must not be negative")
	}
	if c.ItemTimeout <= 0 {
		return fmt.Errorf("item timeout must be positive")
	}
	if c.Locale != consts.Locale_NL && c.Locale != consts.Locale_EN {
		return fmt.Errorf("unsupported locale %q", c.Locale)
	}
	if c.StoreDriver != consts.Store_Memory && c.StoreDriver != consts.Store_SQLite {
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	return nil
}

// HasCredentials reports whether both marketplace credentials are set.
func (c *Config) HasCredentials() bool {
	return c.Email != "" && c.Password != ""
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
