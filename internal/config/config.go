package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned by Load when a variable is present but malformed.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort           string
	AppEnv            string
	LogLevel          slog.Level
	AWSRegion         string
	AWSEndpointURL    string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID    string
	AWSSecretKey      string
	DynamoTables      DynamoTables
	StreamBucket      string
	SNSRegion         string
	SNSTopicARN       string // empty disables the SNS notification channel
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	AllowedOrigins    []string // CORS and websocket origins
	Reconcile         ReconcileConfig
	Demo              DemoConfig
	SeedData          bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users     string
	Matches   string
	Playlists string
}

// ReconcileConfig drives the live-status reconciliation loop.
type ReconcileConfig struct {
	Interval   time.Duration
	LiveWindow time.Duration
}

// DemoConfig drives the development-only status randomiser.
type DemoConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads all configuration from environment variables. Malformed values are
// reported together so the process can fail before anything starts.
func Load() (*Config, error) {
	l := &loader{}
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       l.level("LOG_LEVEL", slog.LevelInfo),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:     getEnv("DYNAMO_TABLE_USERS", "users"),
			Matches:   getEnv("DYNAMO_TABLE_MATCHES", "matches"),
			Playlists: getEnv("DYNAMO_TABLE_PLAYLISTS", "playlists"),
		},
		StreamBucket:      getEnv("S3_STREAM_BUCKET", "sports-playlist-streams"),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(l.positiveInt("JWT_EXPIRY_DAYS", 1)) * 24 * time.Hour,
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:4200"), ","),
		Reconcile: ReconcileConfig{
			Interval:   l.duration("RECONCILE_INTERVAL", 30*time.Second),
			LiveWindow: l.duration("LIVE_WINDOW", 90*time.Minute),
		},
		Demo: DemoConfig{
			Enabled:  l.boolean("DEMO_MODE", false),
			Interval: l.duration("DEMO_INTERVAL", 15*time.Second),
		},
		SeedData: l.boolean("SEED_DATA", true),
	}
	if len(l.errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(l.errs, "; "))
	}
	return cfg, nil
}

// loader collects parse failures instead of silently falling back.
type loader struct {
	errs []string
}

func (l *loader) fail(key, value, want string) {
	l.errs = append(l.errs, fmt.Sprintf("%s=%q: %s", key, value, want))
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		l.fail(key, v, "expected a positive duration such as 30s or 90m")
		return fallback
	}
	return d
}

func (l *loader) positiveInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		l.fail(key, v, "expected a positive integer")
		return fallback
	}
	return n
}

func (l *loader) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, v, "expected true or false")
		return fallback
	}
	return b
}

func (l *loader) level(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		l.fail(key, v, "expected debug, info, warn or error")
		return fallback
	}
	return lvl
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
