package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port               string
	AllowOrigins       string
	AccessPasswordHash string

	AggregatorAPIKey  string
	AggregatorAuthURL string
	AggregatorAPIURL  string
	AggregatorVersion string

	LedgerURL         string
	LedgerAccessToken string
	InstallIdentity   string

	JobsDir       string
	ReqTimeoutSec int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func Load() *Config {
	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		AllowOrigins:       getenv("ALLOW_ORIGINS", "*"),
		AccessPasswordHash: getenv("ACCESS_PASSWORD_HASH", ""),
		AggregatorAPIKey:   getenv("AGGREGATOR_API_KEY", ""),
		AggregatorAuthURL:  getenv("AGGREGATOR_AUTH_URL", "https://au-api.basiq.io/token"),
		AggregatorAPIURL:   getenv("AGGREGATOR_API_URL", "https://au-api.basiq.io"),
		AggregatorVersion:  getenv("AGGREGATOR_API_VERSION", "3.0"),
		LedgerURL:          getenv("LEDGER_URL", ""),
		LedgerAccessToken:  getenv("LEDGER_ACCESS_TOKEN", ""),
		InstallIdentity:    getenv("INSTALL_IDENTITY", ""),
		JobsDir:            getenv("JOBS_DIR", "./jobs"),
		ReqTimeoutSec:      atoi("REQUEST_TIMEOUT_SECONDS", 30),
	}

	// The ledger base URL doubles as the install identity unless overridden:
	// it is the stable key the remote user link is scoped to.
	if cfg.InstallIdentity == "" {
		cfg.InstallIdentity = cfg.LedgerURL
	}
	return cfg
}
