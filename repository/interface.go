package repository

import (
	"context"
	"errors"
	"time"

	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate key")
)

// ListingRepository persists listings. Updates take plain maps of field
// names to values.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	FindBySlug(ctx context.Context, slug string) (*models.Listing, error)
	Find(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Listing, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	IncrementInquiries(ctx context.Context, id primitive.ObjectID) error
	Categories(ctx context.Context) ([]string, error)
	Count(ctx context.Context, filter map[string]interface{}) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// SupplierRepository persists suppliers.
type SupplierRepository interface {
	Create(ctx context.Context, supplier *models.Supplier) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Supplier, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Supplier, error)
	Find(ctx context.Context, filter models.SupplierFilter) ([]models.Supplier, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Supplier, error)
	IncrementInquiries(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context, filter map[string]interface{}) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Find(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.User, error)
	Count(ctx context.Context, filter map[string]interface{}) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// MessageRepository persists chat messages and conversation summaries.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	FindByConversation(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID string, readerID primitive.ObjectID) (int64, error)
	TouchConversation(ctx context.Context, msg *models.Message) error
	ResetUnread(ctx context.Context, conversationID string, userID primitive.ObjectID) error
	Conversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	Count(ctx context.Context, filter map[string]interface{}) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	Find(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}
