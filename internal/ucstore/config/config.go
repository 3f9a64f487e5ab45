package config

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config contains application configuration
type Config struct {
	RunAddress  string
	DatabaseURI string
	ConfigFile  string
	LogLevel    string

	JWTSecret     string
	AdminUsername string
	AdminPassword string
	TokenTTL      time.Duration

	PlayerLookupDelay time.Duration
	RapidAPIKey       string
	RedisAddr         string

	ShopierAPIKey     string
	ShopierAPISecret  string
	ShopierPaymentURL string
	PublicBaseURL     string

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool

	// GeneratedJWTSecret is set when no secret was configured and a random
	// one was generated for this process
	GeneratedJWTSecret bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_address", ":8080")
	v.SetDefault("database_uri", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("player_lookup_delay", "300ms")
	v.SetDefault("rapidapi_key", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("shopier_api_key", "")
	v.SetDefault("shopier_api_secret", "")
	v.SetDefault("shopier_payment_url", "")
	v.SetDefault("public_base_url", "")
	v.SetDefault("rate_limit_rps", 10.0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("trust_proxy", false)
}

// NewConfig creates a new configuration from flags, environment variables and
// an optional config file
func NewConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration. Environment variables override flags, flags
// override the config file, and the file overrides defaults.
func Load(args []string) (*Config, error) {
	var runAddress, databaseURI, configFile string

	fs := flag.NewFlagSet("ucstore", flag.ContinueOnError)
	fs.StringVar(&runAddress, "a", "", "Server run address")
	fs.StringVar(&databaseURI, "d", "", "Database URI")
	fs.StringVar(&configFile, "c", "", "Config file (yaml)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if envFile := os.Getenv("CONFIG_FILE"); envFile != "" {
		configFile = envFile
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// Flags win over the file but not over the environment
	if runAddress != "" && os.Getenv("RUN_ADDRESS") == "" {
		v.Set("run_address", runAddress)
	}
	if databaseURI != "" && os.Getenv("DATABASE_URI") == "" {
		v.Set("database_uri", databaseURI)
	}

	cfg := &Config{
		RunAddress:        v.GetString("run_address"),
		DatabaseURI:       v.GetString("database_uri"),
		ConfigFile:        configFile,
		LogLevel:          v.GetString("log_level"),
		JWTSecret:         v.GetString("jwt_secret"),
		AdminUsername:     v.GetString("admin_username"),
		AdminPassword:     v.GetString("admin_password"),
		TokenTTL:          v.GetDuration("token_ttl"),
		PlayerLookupDelay: v.GetDuration("player_lookup_delay"),
		RapidAPIKey:       v.GetString("rapidapi_key"),
		RedisAddr:         v.GetString("redis_addr"),
		ShopierAPIKey:     v.GetString("shopier_api_key"),
		ShopierAPISecret:  v.GetString("shopier_api_secret"),
		ShopierPaymentURL: v.GetString("shopier_payment_url"),
		PublicBaseURL:     v.GetString("public_base_url"),
		RateLimitRPS:      v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:    v.GetInt("rate_limit_burst"),
		TrustProxy:        v.GetBool("trust_proxy"),
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = ":8080"
	}
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("admin username and password must not be empty")
	}
	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		cfg.GeneratedJWTSecret = true
	}

	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
