package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Planner  Planner  `mapstructure:"planner"`
	Quote    Quote    `mapstructure:"quote"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Planner holds the default plan inputs and the engine limits.
type Planner struct {
	DefaultFunds            float64 `mapstructure:"default_funds"`
	DefaultInitialPrice     float64 `mapstructure:"default_initial_price"`
	DefaultStopLossPrice    float64 `mapstructure:"default_stop_loss_price"`
	DefaultNumGrids         int     `mapstructure:"default_num_grids"`
	DefaultAllocationMethod string  `mapstructure:"default_allocation_method"`
	ReservePercentage       float64 `mapstructure:"reserve_percentage"`
	MaxGrids                int     `mapstructure:"max_grids"`
	MaxIterations           int     `mapstructure:"max_iterations"`
}

// Quote holds the configuration for the price query providers.
type Quote struct {
	Provider            string        `mapstructure:"provider"`
	YahooBaseURL        string        `mapstructure:"yahoo_base_url"`
	AlphaVantageBaseURL string        `mapstructure:"alpha_vantage_base_url"`
	AlphaVantageKey     string        `mapstructure:"alpha_vantage_key"`
	RateLimit           float64       `mapstructure:"rate_limit"`
	RateLimitBurst      int           `mapstructure:"rate_limit_burst"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRetries          int           `mapstructure:"max_retries"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// LoadConfig reads config.yml from path, applies GRIDPLAN_* environment
// overrides (a .env file is honoured) and fills in defaults. A missing
// config file is not an error.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("gridplan")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("planner.default_funds", 50000.0)
	v.SetDefault("planner.default_initial_price", 50.0)
	v.SetDefault("planner.default_stop_loss_price", 30.0)
	v.SetDefault("planner.default_num_grids", 10)
	v.SetDefault("planner.default_allocation_method", "exponential")
	v.SetDefault("planner.reserve_percentage", 0.0)
	v.SetDefault("planner.max_grids", 100)
	v.SetDefault("planner.max_iterations", 1_000_000)

	v.SetDefault("quote.provider", "yahoo")
	v.SetDefault("quote.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quote.alpha_vantage_base_url", "https://www.alphavantage.co")
	v.SetDefault("quote.alpha_vantage_key", "")
	v.SetDefault("quote.rate_limit", 2)       // requests per second
	v.SetDefault("quote.rate_limit_burst", 2) // burst size
	v.SetDefault("quote.timeout", 10*time.Second)
	v.SetDefault("quote.max_retries", 3)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "gridplan.db")
}
