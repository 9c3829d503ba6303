package services

import (
	"context"
	"fmt"
	"time"

	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// AdminService serves the admin dashboard. Moderation of individual
// suppliers and listings lives on their own services.
type AdminService interface {
	Stats(ctx context.Context) (*models.AdminStats, error)
}

type adminService struct {
	users     repository.UserRepository
	suppliers repository.SupplierRepository
	listings  repository.ListingRepository
	messages  repository.MessageRepository
	now       func() time.Time
}

func NewAdminService(users repository.UserRepository, suppliers repository.SupplierRepository, listings repository.ListingRepository, messages repository.MessageRepository) AdminService {
	return &adminService{
		users:     users,
		suppliers: suppliers,
		listings:  listings,
		messages:  messages,
		now:       time.Now,
	}
}

// Stats runs the dashboard counts concurrently.
func (s *adminService) Stats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	now := s.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, fn func(context.Context, map[string]interface{}) (int64, error), filter bson.M) {
		g.Go(func() error {
			n, err := fn(gctx, filter)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	count(&stats.Users, s.users.Count, bson.M{})
	count(&stats.Suppliers, s.suppliers.Count, bson.M{})
	count(&stats.VerifiedSuppliers, s.suppliers.Count, bson.M{"verified": true})
	count(&stats.PremiumSuppliers, s.suppliers.Count, bson.M{
		"isPremium": true,
		"$or": bson.A{
			bson.M{"premiumExpiry": nil},
			bson.M{"premiumExpiry": bson.M{"$gt": now}},
		},
	})
	count(&stats.Listings, s.listings.Count, bson.M{})
	count(&stats.ActiveListings, s.listings.Count, bson.M{"isActive": true})
	count(&stats.Messages, s.messages.Count, bson.M{})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &stats, nil
}
