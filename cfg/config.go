package cfg

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	User           string
	Password       string
	Host           string
	Port           string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type AuthConfig struct {
	TokenSecret string
	SessionTTL  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ObservabilityConfig struct {
	OtelEndpoint string
	ServiceName  string
}

type OAuth2ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether the provider has credentials configured.
func (c OAuth2ProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type Config struct {
	AppEnv              string
	AppPort             string
	PublicURL           string
	Location            *time.Location
	PostgresConfig      PostgresConfig
	RedisConfig         RedisConfig
	AuthConfig          AuthConfig
	SMTPConfig          SMTPConfig
	ObservabilityConfig *ObservabilityConfig
	GoogleOAuth2        OAuth2ProviderConfig
	GitHubOAuth2        OAuth2ProviderConfig
	CacheTTLMinutes     int
	SnowflakeNodeID     int64
}

func Load() (*Config, error) {
	var errs []error

	// A missing .env file is fine, the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.New("failed load cfg: " + err.Error())
	}

	appEnv := mustEnv("APP_ENV", &errs)
	appPort := envOr("APP_PORT", "8080")
	publicURL := envOr("APP_PUBLIC_URL", "http://localhost:"+appPort)

	location, err := time.LoadLocation(envOr("APP_TIMEZONE", "UTC"))
	if err != nil {
		errs = append(errs, errors.New("invalid env: APP_TIMEZONE"))
	}

	postgres := PostgresConfig{
		User:           mustEnv("POSTGRES_USER", &errs),
		Password:       mustEnv("POSTGRES_PASSWORD", &errs),
		Host:           mustEnv("POSTGRES_HOST", &errs),
		Port:           mustEnv("POSTGRES_PORT", &errs),
		DBName:         mustEnv("POSTGRES_DB", &errs),
		SSLMode:        envOr("POSTGRES_SSLMODE", "disable"),
		MigrationsPath: envOr("MIGRATIONS_PATH", "file://db/migrations"),
	}

	redisConfig := RedisConfig{
		Host:     mustEnv("REDIS_HOST", &errs),
		Port:     mustEnv("REDIS_PORT", &errs),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	cacheTTLMinutes := atoi("CACHE_TTL_MINUTES", envOr("CACHE_TTL_MINUTES", "5"), &errs)
	sessionTTLHours := atoi("SESSION_TTL_HOURS", envOr("SESSION_TTL_HOURS", "24"), &errs)
	snowflakeNode := atoi("SNOWFLAKE_NODE_ID", envOr("SNOWFLAKE_NODE_ID", "1"), &errs)

	tokenSecret := mustEnv("TOKEN_SECRET", &errs)

	smtp := SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     atoi("SMTP_PORT", envOr("SMTP_PORT", "587"), &errs),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     envOr("MAIL_FROM", "no-reply@flightbooker.local"),
	}

	var observability *ObservabilityConfig
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		observability = &ObservabilityConfig{
			OtelEndpoint: endpoint,
			ServiceName:  envOr("OTEL_SERVICE_NAME", "flightbooker"),
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Config{
		AppEnv:         appEnv,
		AppPort:        appPort,
		PublicURL:      publicURL,
		Location:       location,
		PostgresConfig: postgres,
		RedisConfig:    redisConfig,
		AuthConfig: AuthConfig{
			TokenSecret: tokenSecret,
			SessionTTL:  time.Duration(sessionTTLHours) * time.Hour,
		},
		SMTPConfig:          smtp,
		ObservabilityConfig: observability,
		GoogleOAuth2: OAuth2ProviderConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		GitHubOAuth2: OAuth2ProviderConfig{
			ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),
		},
		CacheTTLMinutes: cacheTTLMinutes,
		SnowflakeNodeID: int64(snowflakeNode),
	}, nil
}

func mustEnv(key string, errs *[]error) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		*errs = append(*errs, errors.New("missing env: "+key))
	}
	return value
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func atoi(key, value string, errs *[]error) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, errors.New("conversion failed env: "+key))
	}
	return n
}
