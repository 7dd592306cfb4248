package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBPath string

	// HTTP
	HTTPPort       int
	MetricsEnabled bool

	// Logging
	LogLevel slog.Level

	// TonAPI
	TonAPIKey     string
	TonAPIBaseURL string
	TonTestnet    bool

	// Ledger bootstrap, used only when the database holds no config yet
	OwnerAddress     string
	CollectionA      string
	CollectionB      string
	RewardCollection string

	// Minting
	MintTokenPrefix      string
	MinterURL            string
	MinterAPIKey         string
	MintDispatchInterval time.Duration
	MintMaxAttempts      int

	// Telegram
	BotToken       string
	OperatorChatID int64
}

func Load() *Config {
	return &Config{
		// Database
		DBPath: getEnv("DB_PATH", "./staking.db"),

		// HTTP
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		// Logging
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		// TonAPI
		TonAPIKey:     getEnv("TONAPI_API_KEY", ""),
		TonAPIBaseURL: strings.TrimSuffix(getEnv("TONAPI_BASE_URL", "https://tonapi.io/v2"), "/"),
		TonTestnet:    getEnvBool("TON_TESTNET", false),

		// Ledger bootstrap
		OwnerAddress:     getEnv("OWNER_ADDRESS", ""),
		CollectionA:      getEnv("COLLECTION_A", ""),
		CollectionB:      getEnv("COLLECTION_B", ""),
		RewardCollection: getEnv("REWARD_COLLECTION", ""),

		// Minting
		MintTokenPrefix:      getEnv("MINT_TOKEN_PREFIX", "baybe_ape"),
		MinterURL:            strings.TrimSuffix(getEnv("MINTER_URL", ""), "/"),
		MinterAPIKey:         getEnv("MINTER_API_KEY", ""),
		MintDispatchInterval: getEnvDuration("MINT_DISPATCH_INTERVAL", 30*time.Second),
		MintMaxAttempts:      getEnvInt("MINT_MAX_ATTEMPTS", 5),

		// Telegram
		BotToken:       getEnv("BOT_TOKEN", ""),
		OperatorChatID: getEnvInt64("OPERATOR_CHAT_ID", 0),
	}
}

// Bootstrap reports whether the ledger can be instantiated from env
func (c *Config) Bootstrap() bool {
	return c.OwnerAddress != "" && c.CollectionA != "" && c.CollectionB != "" && c.RewardCollection != ""
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}
