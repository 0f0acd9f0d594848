package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvFile is the dotenv file used both for loading configuration and for
// persisting the refreshed eBay token across restarts.
const EnvFile = ".env"

// Config represents the application configuration
type Config struct {
	// Marketplace scraping
	SearchURL       string
	ScrapeBlockTime time.Duration
	PollInterval    time.Duration

	// Evaluation store
	SQLitePath string

	// eBay Browse API
	EbayClientID     string
	EbayClientSecret string
	EbayScope        string
	EbayToken        string
	EbayTokenExpiry  time.Time
	EbayTokenURL     string
	EbayAPIBaseURL   string
	EbayMarketplace  string

	// Text-completion oracle
	OllamaHost  string
	OllamaModel string
	RulesPath   string

	// Mail notification
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	MailFrom       string
	MailRecipient  string
	ScoreThreshold float64

	// Kept-deal event stream
	RedisAddr         string
	RedisDB           int
	RedisStream       string
	RedisStreamMaxLen int

	// Rate-limit cache
	MemcacheAddr string

	// Browse API service
	APIAddr       string
	APIAllowClear bool

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	pollInterval, _ := strconv.Atoi(getEnv("POLL_INTERVAL_SECONDS", "300"))
	blockTime, _ := strconv.Atoi(getEnv("SCRAPE_BLOCK_SECONDS", "600"))
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAXLEN", "500"))
	threshold, _ := strconv.ParseFloat(getEnv("NOTIFY_SCORE_THRESHOLD", "80"), 64)

	var tokenExpiry time.Time
	if raw := getEnv("EBAY_TOKEN_EXPIRY", ""); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			tokenExpiry = time.Unix(int64(secs), 0)
		}
	}

	return Config{
		SearchURL:       getEnv("SEARCH_URL", "https://www.kijiji.ca/b-computer-components/city-of-toronto/c788l1700273"),
		ScrapeBlockTime: time.Duration(blockTime) * time.Second,
		PollInterval:    time.Duration(pollInterval) * time.Second,

		SQLitePath: getEnv("SQLITE_PATH", "evaluations.db"),

		EbayClientID:     getEnv("EBAY_CLIENT_ID", ""),
		EbayClientSecret: getEnv("EBAY_CLIENT_SECRET", ""),
		EbayScope:        getEnv("EBAY_API_SCOPE", "https://api.ebay.com/oauth/api_scope"),
		EbayToken:        getEnv("EBAY_TOKEN", ""),
		EbayTokenExpiry:  tokenExpiry,
		EbayTokenURL:     getEnv("EBAY_TOKEN_URL", "https://api.ebay.com/identity/v1/oauth2/token"),
		EbayAPIBaseURL:   getEnv("EBAY_API_BASE_URL", "https://api.ebay.com"),
		EbayMarketplace:  getEnv("EBAY_MARKETPLACE_ID", "EBAY_CA"),

		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "deepseek-r1:8b"),
		RulesPath:   getEnv("ORACLE_RULES_PATH", "configs/rules.yaml"),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       smtpPort,
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		MailFrom:       getEnv("MAIL_FROM", ""),
		MailRecipient:  getEnv("MAIL_RECIPIENT", ""),
		ScoreThreshold: threshold,

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           redisDB,
		RedisStream:       getEnv("REDIS_STREAM", "deals"),
		RedisStreamMaxLen: streamMaxLen,

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),

		APIAddr:       getEnv("API_ADDR", ":8080"),
		APIAllowClear: getEnv("API_ALLOW_CLEAR", "false") == "true",

		Environment: getEnv("DEALSCOUT_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable for the worker.
func (c Config) Validate() error {
	if c.SearchURL == "" {
		return fmt.Errorf("SEARCH_URL must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.EbayClientID == "" || c.EbayClientSecret == "" {
		return fmt.Errorf("EBAY_CLIENT_ID and EBAY_CLIENT_SECRET are required")
	}
	if c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH must not be empty")
	}
	return nil
}

// SaveEbayToken writes a refreshed token and its expiry back into the dotenv
// file so the token survives process restarts, and updates the current
// process environment.
func SaveEbayToken(token string, expiry time.Time) error {
	env, err := godotenv.Read(EnvFile)
	if err != nil {
		env = map[string]string{}
	}
	env["EBAY_TOKEN"] = token
	env["EBAY_TOKEN_EXPIRY"] = strconv.FormatInt(expiry.Unix(), 10)

	if err := godotenv.Write(env, EnvFile); err != nil {
		return fmt.Errorf("failed to persist ebay token: %w", err)
	}

	os.Setenv("EBAY_TOKEN", token)
	os.Setenv("EBAY_TOKEN_EXPIRY", strconv.FormatInt(expiry.Unix(), 10))
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
