package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends understood by StorageBackend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

// Config holds application configuration.
type Config struct {
	Port               string
	IsProduction       bool
	LogLevel           string
	StorageBackend     string
	DatabaseURL        string
	EnableDBCheck      bool
	BoltPath           string
	JWTSecret          string
	JWTIssuer          string
	RateLimit          string
	CORSAllowedOrigins []string

	AssetCacheSize         int
	CoinSelectionBatchSize int
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("BOLT_PATH", "ledger.db")
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_ISSUER", "voledger")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("ASSET_CACHE_SIZE", 256)
	v.SetDefault("COIN_SELECTION_BATCH_SIZE", 32)
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom reads the configuration from v after applying defaults and the
// environment. Command line flags bound to v take precedence.
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:                   v.GetString("PORT"),
		IsProduction:           v.GetBool("IS_PRODUCTION"),
		LogLevel:               strings.ToLower(v.GetString("LOG_LEVEL")),
		StorageBackend:         strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DatabaseURL:            v.GetString("PGSQL_URL"),
		EnableDBCheck:          v.GetBool("ENABLE_DB_CHECK"),
		BoltPath:               v.GetString("BOLT_PATH"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		JWTIssuer:              v.GetString("JWT_ISSUER"),
		RateLimit:              v.GetString("RATE_LIMIT"),
		AssetCacheSize:         v.GetInt("ASSET_CACHE_SIZE"),
		CoinSelectionBatchSize: v.GetInt("COIN_SELECTION_BATCH_SIZE"),
	}
	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendBolt:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT not set. Defaulting to %s\n", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.IsProduction && cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET is the default insecure key.")
	}
	if cfg.AssetCacheSize <= 0 {
		log.Printf("Warning: invalid ASSET_CACHE_SIZE %d. Defaulting to 256.\n", cfg.AssetCacheSize)
		cfg.AssetCacheSize = 256
	}
	if cfg.CoinSelectionBatchSize <= 0 {
		log.Printf("Warning: invalid COIN_SELECTION_BATCH_SIZE %d. Defaulting to 32.\n", cfg.CoinSelectionBatchSize)
		cfg.CoinSelectionBatchSize = 32
	}

	return cfg, nil
}
