package config_test

import (
	"os"
	"testing"
	"time"

	"marketplace-service/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variables for the duration of the test. An empty but
// set variable would override envconfig defaults.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"APP_ENV", "PORT", "CLIENT_URL", "MONGODB_URI", "JWT_SECRET", "JWT_TTL",
		"REDIS_URL", "KAFKA_BROKERS", "AWS_S3_BUCKET",
	} {
		prev, had := os.LookupEnv(k)
		require.NoError(t, os.Unsetenv(k))
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(k, prev)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.ClientURL)
	assert.Equal(t, "mongodb://localhost:27017/exportersindia", cfg.MongoURI)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "exportersindia", cfg.DatabaseName())
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.StorageEnabled())
	assert.True(t, cfg.UsesDevSecret())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("CLIENT_URL", "https://buyers.example.com")
	t.Setenv("MONGODB_URI", "mongodb://db:27017/market")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "https://buyers.example.com", cfg.ClientURL)
	assert.Equal(t, "market", cfg.DatabaseName())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
}

func TestDatabaseNameFallsBack(t *testing.T) {
	cfg := &config.Config{MongoURI: "mongodb://localhost:27017"}
	assert.Equal(t, config.DefaultDatabase, cfg.DatabaseName())
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			ClientURL: "http://localhost:3000",
			MongoURI:  "mongodb://localhost:27017/exportersindia",
			JWTSecret: "s3cret",
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("relative client url", func(t *testing.T) {
		cfg := base()
		cfg.ClientURL = "localhost"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad mongo uri", func(t *testing.T) {
		cfg := base()
		cfg.MongoURI = "postgres://nope"
		assert.Error(t, cfg.Validate())
	})

	t.Run("dev secret in production", func(t *testing.T) {
		cfg := base()
		cfg.AppEnv = "production"
		cfg.JWTSecret = "dev-secret-change-me"
		assert.Error(t, cfg.Validate())
	})
}
