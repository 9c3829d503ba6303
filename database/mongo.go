package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	pingTimeout       = 10 * time.Second
	disconnectTimeout = 5 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// Mongo holds the process-wide client and tracks whether the server has
// answered a ping yet. Repositories receive DB explicitly.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	ready  atomic.Bool
	log    *zap.Logger
}

// NewMongo creates the client without contacting the server. The driver
// connects lazily, so this only fails on a malformed URI.
func NewMongo(uri, dbName string, log *zap.Logger) (*Mongo, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}
	return &Mongo{
		Client: client,
		DB:     client.Database(dbName),
		log:    log,
	}, nil
}

// Ready reports whether the server has been reached.
func (m *Mongo) Ready() bool {
	return m.ready.Load()
}

// Ping checks connectivity once.
func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := m.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return nil
}

// WaitReady pings until the server answers or ctx ends, doubling the delay
// between attempts. onReady runs once after the first successful ping and
// before the ready flag is raised.
func (m *Mongo) WaitReady(ctx context.Context, onReady func(context.Context) error) error {
	delay := time.Second
	for attempt := 1; ; attempt++ {
		err := m.Ping(ctx)
		if err == nil {
			break
		}
		m.log.Warn("MongoDB not reachable yet", zap.Int("attempt", attempt), zap.Duration("retry_in", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	if onReady != nil {
		if err := onReady(ctx); err != nil {
			// Indexes are an optimisation; serve traffic anyway.
			m.log.Error("MongoDB post-connect setup failed", zap.Error(err))
		}
	}
	m.ready.Store(true)
	m.log.Info("Connected to MongoDB", zap.String("database", m.DB.Name()))
	return nil
}

// Close disconnects from MongoDB
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	m.ready.Store(false)
	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.log.Info("Disconnected from MongoDB")
	return nil
}
