package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	DefaultDatabase = "exportersindia"
	devJWTSecret    = "dev-secret-change-me"
	environmentProd = "production"
)

// Config holds runtime configuration for the marketplace service.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"5000"`
	ClientURL string `envconfig:"CLIENT_URL" default:"http://localhost:3000"`

	MongoURI string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017/exportersindia"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	RedisURL string `envconfig:"REDIS_URL"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"marketplace.events"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"marketplace-notifications"`

	AWSRegion        string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpoint      string `envconfig:"AWS_ENDPOINT"`
	AWSAccessKeyID   string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey     string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	S3Bucket         string `envconfig:"AWS_S3_BUCKET"`
	S3Prefix         string `envconfig:"AWS_S3_PREFIX" default:"listings/"`
	CloudFrontDomain string `envconfig:"AWS_CLOUDFRONT_DOMAIN"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ClientURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CLIENT_URL must be an absolute URL, got %q", c.ClientURL)
	}
	if _, err := connstring.ParseAndValidate(c.MongoURI); err != nil {
		return fmt.Errorf("invalid MONGODB_URI: %w", err)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be overridden in production")
	}
	return nil
}

// DatabaseName is the database named in MONGODB_URI, or DefaultDatabase.
func (c *Config) DatabaseName() string {
	cs, err := connstring.ParseAndValidate(c.MongoURI)
	if err != nil || cs.Database == "" {
		return DefaultDatabase
	}
	return cs.Database
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == environmentProd
}

// UsesDevSecret reports whether the built-in JWT secret is in use.
func (c *Config) UsesDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func (c *Config) RedisEnabled() bool   { return c.RedisURL != "" }
func (c *Config) KafkaEnabled() bool   { return len(c.KafkaBrokers) > 0 }
func (c *Config) StorageEnabled() bool { return c.S3Bucket != "" }
