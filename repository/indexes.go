package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Repositories bundles every Mongo repository built over one database.
type Repositories struct {
	Listings      *MongoListingRepository
	Suppliers     *MongoSupplierRepository
	Users         *MongoUserRepository
	Messages      *MongoMessageRepository
	Notifications *MongoNotificationRepository
}

func New(db *mongo.Database) *Repositories {
	return &Repositories{
		Listings:      NewListingRepository(db),
		Suppliers:     NewSupplierRepository(db),
		Users:         NewUserRepository(db),
		Messages:      NewMessageRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// EnsureIndexes creates the indexes of every collection.
func (r *Repositories) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		r.Listings.EnsureIndexes,
		r.Suppliers.EnsureIndexes,
		r.Users.EnsureIndexes,
		r.Messages.EnsureIndexes,
		r.Notifications.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
