package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	// Endpoint overrides the account endpoint, for S3 compatible stores.
	Endpoint  string
	PublicURL string
}

type Config struct {
	AppURL                string
	FrontendURL           string
	Port                  string
	LogLevel              string
	PostgresURI           string
	RedisURI              string
	SecretKey             string
	CookieName            string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	FacebookAppID         string
	FacebookAppSecret     string
	FacebookGraphVersion  string
	InstagramClientID     string
	InstagramClientSecret string
	WordPressClientID     string
	WordPressClientSecret string
	FunctionsURL          string
	FunctionsAPIKey       string
	SDKLoadTimeout        time.Duration
	SDKPollInterval       time.Duration
	QueueConcurrency      int
	SweepSchedule         string
	R2                    R2
}

func LoadConfig() *Config {
	return &Config{
		AppURL:                strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		FrontendURL:           strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		Port:                  getEnv("PORT", "3000"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", "localhost:6379"),
		SecretKey:             getEnv("SECRET_KEY", ""),
		CookieName:            getEnv("COOKIE_NAME", "socialdesk_session"),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000/login/callback"),
		FacebookAppID:         getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:     getEnv("FACEBOOK_APP_SECRET", ""),
		FacebookGraphVersion:  getEnv("FACEBOOK_GRAPH_VERSION", "v19.0"),
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		WordPressClientID:     getEnv("WORDPRESS_CLIENT_ID", ""),
		WordPressClientSecret: getEnv("WORDPRESS_CLIENT_SECRET", ""),
		FunctionsURL:          getEnv("FUNCTIONS_URL", ""),
		FunctionsAPIKey:       getEnv("FUNCTIONS_API_KEY", ""),
		SDKLoadTimeout:        getDuration("SDK_LOAD_TIMEOUT", 10*time.Second),
		SDKPollInterval:       getDuration("SDK_POLL_INTERVAL", 100*time.Millisecond),
		QueueConcurrency:      getInt("QUEUE_CONCURRENCY", 10),
		SweepSchedule:         getEnv("SWEEP_SCHEDULE", "@every 1m"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			Endpoint:   getEnv("R2_ENDPOINT", ""),
			PublicURL:  strings.TrimRight(getEnv("MEDIA_PUBLIC_URL", ""), "/"),
		},
	}
}

// Validate reports every missing or malformed required setting.
func (c *Config) Validate() error {
	var errs []error
	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_URI is required"))
	}
	if c.RedisURI == "" {
		errs = append(errs, errors.New("REDIS_URI is required"))
	}
	if n := len(c.SecretKey); n != 16 && n != 24 && n != 32 {
		errs = append(errs, fmt.Errorf("SECRET_KEY must be 16, 24 or 32 bytes, got %d", n))
	}
	if !strings.HasPrefix(c.AppURL, "http://") && !strings.HasPrefix(c.AppURL, "https://") {
		errs = append(errs, errors.New("APP_URL must be an absolute http(s) URL"))
	}
	if c.QueueConcurrency < 1 {
		errs = append(errs, errors.New("QUEUE_CONCURRENCY must be positive"))
	}
	if c.SDKLoadTimeout <= 0 {
		errs = append(errs, errors.New("SDK_LOAD_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
