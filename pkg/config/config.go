package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig       `mapstructure:"app"`
	Server         ServerConfig    `mapstructure:"server"`
	UserDatabase   DatabaseConfig  `mapstructure:"user_database"`   // user-service
	RecipeDatabase DatabaseConfig  `mapstructure:"recipe_database"` // recipe-service
	Redis          RedisConfig     `mapstructure:"redis"`
	Kafka          KafkaConfig     `mapstructure:"kafka"`
	JWT            JWTConfig       `mapstructure:"jwt"`
	OTel           OTelConfig      `mapstructure:"otel"`
	Services       ServicesConfig  `mapstructure:"services"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// ServicesConfig holds URLs of the other services
type ServicesConfig struct {
	UserServiceURL    string        `mapstructure:"user_service_url"`
	RecipeServiceURL  string        `mapstructure:"recipe_service_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	GatewayRoutesFile string        `mapstructure:"gateway_routes_file"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka/Redpanda connection settings
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	ConsumerGroup     string   `mapstructure:"consumer_group"`
	ClientID          string   `mapstructure:"client_id"`
	RecipeEventsTopic string   `mapstructure:"recipe_events_topic"`
}

// JWTConfig holds token settings. Access and refresh tokens use independent secrets.
type JWTConfig struct {
	AccessSecret    string        `mapstructure:"access_secret"`
	RefreshSecret   string        `mapstructure:"refresh_secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	Issuer          string        `mapstructure:"issuer"`
}

// TokenConfig converts JWTConfig into the token package configuration
func (j *JWTConfig) TokenConfig() token.Config {
	return token.Config{
		AccessSecret:  j.AccessSecret,
		RefreshSecret: j.RefreshSecret,
		AccessTTL:     j.AccessTokenTTL,
		RefreshTTL:    j.RefreshTokenTTL,
		Issuer:        j.Issuer,
	}
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// RateLimitConfig holds gateway rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// A missing .env is fine, environment variables still apply
	_ = v.ReadInConfig()

	return load(v)
}

// LoadWithPath loads configuration from a specific env file
func LoadWithPath(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "gazpacho")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults (port 0 lets each service pick its own)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 0)
	v.SetDefault("SERVER_READ_TIMEOUT", "5s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	setDatabaseDefaults(v, "USER_DATABASE", "gazpacho_users")
	setDatabaseDefaults(v, "RECIPE_DATABASE", "gazpacho_recipes")

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_ENABLED", true)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "gazpacho")
	v.SetDefault("KAFKA_CLIENT_ID", "gazpacho")
	v.SetDefault("KAFKA_RECIPE_EVENTS_TOPIC", "recipe-events")

	// JWT defaults. Secrets have no default on purpose.
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", "168h") // 7 days
	v.SetDefault("JWT_ISSUER", "gazpacho")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "gazpacho")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Inter-service defaults
	v.SetDefault("SERVICES_USER_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("SERVICES_RECIPE_SERVICE_URL", "http://localhost:8082")
	v.SetDefault("SERVICES_REQUEST_TIMEOUT", "5s")
	v.SetDefault("GATEWAY_ROUTES_FILE", "")

	// Rate limit defaults
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_SECOND", 100)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 200)
}

func setDatabaseDefaults(v *viper.Viper, prefix, dbName string) {
	v.SetDefault(prefix+"_HOST", "localhost")
	v.SetDefault(prefix+"_PORT", 5432)
	v.SetDefault(prefix+"_USER", "postgres")
	v.SetDefault(prefix+"_PASSWORD", "postgres")
	v.SetDefault(prefix+"_DBNAME", dbName)
	v.SetDefault(prefix+"_SSLMODE", "disable")
	v.SetDefault(prefix+"_MAX_OPEN_CONNS", 10)
	v.SetDefault(prefix+"_MAX_IDLE_CONNS", 2)
	v.SetDefault(prefix+"_CONN_MAX_LIFETIME", "30m")
	v.SetDefault(prefix+"_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault(prefix+"_AUTO_MIGRATE", true)
}

func bindDatabase(v *viper.Viper, prefix string, db *DatabaseConfig) {
	db.Host = v.GetString(prefix + "_HOST")
	db.Port = v.GetInt(prefix + "_PORT")
	db.User = v.GetString(prefix + "_USER")
	db.Password = v.GetString(prefix + "_PASSWORD")
	db.DBName = v.GetString(prefix + "_DBNAME")
	db.SSLMode = v.GetString(prefix + "_SSLMODE")
	db.MaxOpenConns = v.GetInt(prefix + "_MAX_OPEN_CONNS")
	db.MaxIdleConns = v.GetInt(prefix + "_MAX_IDLE_CONNS")
	db.ConnMaxLifetime = v.GetDuration(prefix + "_CONN_MAX_LIFETIME")
	db.ConnMaxIdleTime = v.GetDuration(prefix + "_CONN_MAX_IDLE_TIME")
	db.AutoMigrate = v.GetBool(prefix + "_AUTO_MIGRATE")
}

func bindConfig(v *viper.Viper, cfg *Config) {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	bindDatabase(v, "USER_DATABASE", &cfg.UserDatabase)
	bindDatabase(v, "RECIPE_DATABASE", &cfg.RecipeDatabase)

	// Redis
	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("KAFKA_ENABLED")
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.ConsumerGroup = v.GetString("KAFKA_CONSUMER_GROUP")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.RecipeEventsTopic = v.GetString("KAFKA_RECIPE_EVENTS_TOPIC")

	// JWT
	cfg.JWT.AccessSecret = v.GetString("JWT_ACCESS_SECRET")
	cfg.JWT.RefreshSecret = v.GetString("JWT_REFRESH_SECRET")
	cfg.JWT.AccessTokenTTL = v.GetDuration("JWT_ACCESS_TOKEN_TTL")
	cfg.JWT.RefreshTokenTTL = v.GetDuration("JWT_REFRESH_TOKEN_TTL")
	cfg.JWT.Issuer = v.GetString("JWT_ISSUER")

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Services
	cfg.Services.UserServiceURL = v.GetString("SERVICES_USER_SERVICE_URL")
	cfg.Services.RecipeServiceURL = v.GetString("SERVICES_RECIPE_SERVICE_URL")
	cfg.Services.RequestTimeout = v.GetDuration("SERVICES_REQUEST_TIMEOUT")
	cfg.Services.GatewayRoutesFile = v.GetString("GATEWAY_ROUTES_FILE")

	// Rate limit
	cfg.RateLimit.Enabled = v.GetBool("RATE_LIMIT_ENABLED")
	cfg.RateLimit.RequestsPerSecond = v.GetInt("RATE_LIMIT_REQUESTS_PER_SECOND")
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST_SIZE")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration. Token secrets are checked here so a
// misconfigured process never starts serving.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.JWT.TokenConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// ValidateUserDatabase validates user database configuration
func (c *Config) ValidateUserDatabase() error {
	return validateDatabase("USER_DATABASE", &c.UserDatabase)
}

// ValidateRecipeDatabase validates recipe database configuration
func (c *Config) ValidateRecipeDatabase() error {
	return validateDatabase("RECIPE_DATABASE", &c.RecipeDatabase)
}

func validateDatabase(prefix string, db *DatabaseConfig) error {
	if db.Host == "" {
		return fmt.Errorf("%s_HOST is required", prefix)
	}
	if db.DBName == "" {
		return fmt.Errorf("%s_DBNAME is required", prefix)
	}
	return nil
}

// PortOr returns the configured server port or the service default
func (c *Config) PortOr(def int) int {
	if c.Server.Port == 0 {
		return def
	}
	return c.Server.Port
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
