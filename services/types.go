package services

import (
	"context"
	"time"

	"marketplace-service/models"
	"marketplace-service/storage"
)

// EventPublisher sends domain events to the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// Pusher delivers a realtime event to every live connection of a user.
type Pusher interface {
	Push(userID, eventType string, data interface{})
}

// ListCache caches JSON-serialisable query results.
type ListCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	SetAsync(key string, value interface{})
	Invalidate(ctx context.Context) error
}

// Uploader issues presigned uploads for media.
type Uploader interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string, expires time.Duration) (*storage.Upload, error)
}

// MessageSender is the part of the chat service other services use.
type MessageSender interface {
	Send(ctx context.Context, actor models.Actor, req *models.SendMessageRequest) (*models.Message, error)
}

// Realtime event types pushed to clients.
const (
	PushMessageNew   = "message:new"
	PushMessageRead  = "message:read"
	PushTyping       = "typing"
	PushNotification = "notification"
)

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool { return false }
func (noopCache) SetAsync(string, interface{})                  {}
func (noopCache) Invalidate(context.Context) error              { return nil }

type noopPusher struct{}

func (noopPusher) Push(string, string, interface{}) {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.Event) error { return nil }
