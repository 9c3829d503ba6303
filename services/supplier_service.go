package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/logger"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SupplierService defines supplier profile operations.
type SupplierService interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateSupplierRequest) (*models.Supplier, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Supplier, error)
	GetByUser(ctx context.Context, actor models.Actor) (*models.Supplier, error)
	List(ctx context.Context, filter models.SupplierFilter) (*models.SupplierPage, error)
	Update(ctx context.Context, actor models.Actor, req *models.UpdateSupplierRequest) (*models.Supplier, error)
	Deactivate(ctx context.Context, actor models.Actor) error
	SetActive(ctx context.Context, id string, active bool) (*models.Supplier, error)
	SetVerified(ctx context.Context, id string, verified bool) (*models.Supplier, error)
	SetPremium(ctx context.Context, id string, expiry *time.Time) (*models.Supplier, error)
	ApplyReviewAggregate(ctx context.Context, id string, req *models.ReviewAggregateRequest) (*models.Supplier, error)
	Listings(ctx context.Context, actor models.Actor, id string, page, limit int) (*models.ListingPage, error)
}

type supplierService struct {
	suppliers repository.SupplierRepository
	users     repository.UserRepository
	listings  repository.ListingRepository
	events    EventPublisher
	cache     ListCache
	now       func() time.Time
}

func NewSupplierService(suppliers repository.SupplierRepository, users repository.UserRepository, listings repository.ListingRepository, events EventPublisher, cache ListCache) SupplierService {
	if events == nil {
		events = noopPublisher{}
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &supplierService{
		suppliers: suppliers,
		users:     users,
		listings:  listings,
		events:    events,
		cache:     cache,
		now:       time.Now,
	}
}

func (s *supplierService) Create(ctx context.Context, actor models.Actor, req *models.CreateSupplierRequest) (*models.Supplier, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	req.CompanyName = trimmed(req.CompanyName)
	req.Description = trimmed(req.Description)
	req.Categories = cleanStrings(req.Categories)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.suppliers.FindByUserID(ctx, userID); err == nil {
		return nil, apperrors.Conflict("Supplier profile already exists for this user")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	supplier := &models.Supplier{
		UserID:          userID,
		CompanyName:     req.CompanyName,
		Description:     req.Description,
		Categories:      req.Categories,
		Products:        cleanStrings(req.Products),
		YearEstablished: req.YearEstablished,
		EmployeeCount:   trimmed(req.EmployeeCount),
		Website:         trimmed(req.Website),
		ContactInfo:     req.ContactInfo,
		Address:         req.Address,
		BusinessType:    req.BusinessType,
		Certifications:  req.Certifications,
		Logo:            trimmed(req.Logo),
		Images:          cleanStrings(req.Images),
		ResponseRate:    req.ResponseRate,
		IsActive:        true,
		LastActive:      s.now().UTC(),
	}
	if supplier.Certifications == nil {
		supplier.Certifications = []models.Certification{}
	}
	if err := validateStruct(supplier); err != nil {
		return nil, err
	}

	if err := s.suppliers.Create(ctx, supplier); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Supplier profile already exists for this user")
		}
		return nil, fmt.Errorf("create supplier: %w", err)
	}

	if actor.Role == models.RoleBuyer {
		if _, err := s.users.Update(ctx, userID, map[string]interface{}{"role": models.RoleSupplier}); err != nil {
			logger.FromContext(ctx).Warn("Failed to promote user to supplier", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}

	logger.FromContext(ctx).Info("Supplier created",
		zap.String("supplier_id", supplier.ID.Hex()),
		zap.String("user_id", actor.UserID),
	)
	supplier.Derive(s.now())
	return supplier, nil
}

func (s *supplierService) Get(ctx context.Context, actor models.Actor, id string) (*models.Supplier, error) {
	supplierID, err := parsePathID(id, "Supplier")
	if err != nil {
		return nil, err
	}
	supplier, err := s.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return nil, notFoundOr(err, "Supplier not found")
	}
	if !supplier.IsActive && !actor.IsAdmin() && supplier.UserID.Hex() != actor.UserID {
		return nil, apperrors.NotFound("Supplier not found")
	}
	supplier.Derive(s.now())
	return supplier, nil
}

func (s *supplierService) GetByUser(ctx context.Context, actor models.Actor) (*models.Supplier, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	supplier, err := s.suppliers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Supplier profile not found")
	}
	supplier.Derive(s.now())
	return supplier, nil
}

func (s *supplierService) List(ctx context.Context, filter models.SupplierFilter) (*models.SupplierPage, error) {
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	filter.Query = trimmed(filter.Query)

	key := supplierCacheKey(filter)
	if !filter.IncludeInactive {
		var cached models.SupplierPage
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	suppliers, total, err := s.suppliers.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	now := s.now()
	for i := range suppliers {
		suppliers[i].Derive(now)
	}
	page := &models.SupplierPage{
		Suppliers: suppliers,
		Meta:      models.NewPageMeta(filter.Page, filter.Limit, total),
	}
	if !filter.IncludeInactive {
		s.cache.SetAsync(key, page)
	}
	return page, nil
}

func (s *supplierService) Update(ctx context.Context, actor models.Actor, req *models.UpdateSupplierRequest) (*models.Supplier, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	current, err := s.GetByUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	updates, err := supplierUpdates(req)
	if err != nil {
		return nil, err
	}
	updates["lastActive"] = s.now().UTC()
	return s.apply(ctx, current.ID, updates)
}

func (s *supplierService) Deactivate(ctx context.Context, actor models.Actor) error {
	current, err := s.GetByUser(ctx, actor)
	if err != nil {
		return err
	}
	if !current.IsActive {
		return nil
	}
	_, err = s.apply(ctx, current.ID, map[string]interface{}{"isActive": false})
	return err
}

func (s *supplierService) SetActive(ctx context.Context, id string, active bool) (*models.Supplier, error) {
	supplierID, err := parsePathID(id, "Supplier")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, supplierID, map[string]interface{}{"isActive": active})
}

func (s *supplierService) SetVerified(ctx context.Context, id string, verified bool) (*models.Supplier, error) {
	supplierID, err := parsePathID(id, "Supplier")
	if err != nil {
		return nil, err
	}
	supplier, err := s.apply(ctx, supplierID, map[string]interface{}{"verified": verified})
	if err != nil {
		return nil, err
	}
	if verified {
		s.publish(ctx, models.Event{
			Type:        models.EventSupplierVerified,
			RecipientID: supplier.UserID.Hex(),
			SupplierID:  supplier.ID.Hex(),
			Title:       "Supplier verified",
			Message:     fmt.Sprintf("%s is now a verified supplier", supplier.CompanyName),
			Link:        "/suppliers/" + supplier.ID.Hex(),
			OccurredAt:  s.now().UTC(),
		})
	}
	return supplier, nil
}

// SetPremium grants premium until expiry. A nil expiry revokes it.
func (s *supplierService) SetPremium(ctx context.Context, id string, expiry *time.Time) (*models.Supplier, error) {
	supplierID, err := parsePathID(id, "Supplier")
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"isPremium": false, "premiumExpiry": nil}
	if expiry != nil {
		if !expiry.After(s.now()) {
			return nil, apperrors.ValidationField("premiumExpiry", "must be in the future")
		}
		updates["isPremium"] = true
		updates["premiumExpiry"] = expiry.UTC()
	}
	supplier, err := s.apply(ctx, supplierID, updates)
	if err != nil {
		return nil, err
	}
	if expiry != nil {
		s.publish(ctx, models.Event{
			Type:        models.EventSupplierPremium,
			RecipientID: supplier.UserID.Hex(),
			SupplierID:  supplier.ID.Hex(),
			Title:       "Premium membership active",
			Message:     fmt.Sprintf("Premium membership is active until %s", expiry.UTC().Format("2006-01-02")),
			Link:        "/suppliers/" + supplier.ID.Hex(),
			OccurredAt:  s.now().UTC(),
		})
	}
	return supplier, nil
}

func (s *supplierService) ApplyReviewAggregate(ctx context.Context, id string, req *models.ReviewAggregateRequest) (*models.Supplier, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	supplierID, err := parsePathID(id, "Supplier")
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, supplierID, map[string]interface{}{
		"rating":      req.Rating,
		"reviewCount": req.ReviewCount,
	})
}

func (s *supplierService) Listings(ctx context.Context, actor models.Actor, id string, page, limit int) (*models.ListingPage, error) {
	supplier, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	filter := models.ListingFilter{
		SupplierID:      &supplier.ID,
		IncludeInactive: actor.IsAdmin() || supplier.UserID.Hex() == actor.UserID,
		Sort:            models.SortNewest,
	}
	filter.Page, filter.Limit = models.NormalizePage(page, limit)

	listings, total, err := s.listings.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list supplier listings: %w", err)
	}
	return &models.ListingPage{
		Listings: listings,
		Meta:     models.NewPageMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *supplierService) apply(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.Supplier, error) {
	supplier, err := s.suppliers.Update(ctx, id, updates)
	if err != nil {
		return nil, notFoundOr(err, "Supplier not found")
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Error("Failed to invalidate supplier cache", zap.Error(err))
	}
	supplier.Derive(s.now())
	return supplier, nil
}

func (s *supplierService) publish(ctx context.Context, event models.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish supplier event",
			zap.String("type", event.Type),
			zap.String("supplier_id", event.SupplierID),
			zap.Error(err),
		)
	}
}

func supplierUpdates(req *models.UpdateSupplierRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if req.CompanyName != nil {
		name := trimmed(*req.CompanyName)
		if name == "" {
			return nil, apperrors.ValidationField("companyName", "cannot be empty")
		}
		updates["companyName"] = name
	}
	if req.Description != nil {
		desc := trimmed(*req.Description)
		if desc == "" {
			return nil, apperrors.ValidationField("description", "cannot be empty")
		}
		updates["description"] = desc
	}
	if req.Categories != nil {
		categories := cleanStrings(*req.Categories)
		if len(categories) == 0 {
			return nil, apperrors.ValidationField("categories", "must contain at least one category")
		}
		updates["categories"] = categories
	}
	if req.Products != nil {
		updates["products"] = cleanStrings(*req.Products)
	}
	if req.YearEstablished != nil {
		updates["yearEstablished"] = *req.YearEstablished
	}
	if req.EmployeeCount != nil {
		updates["employeeCount"] = trimmed(*req.EmployeeCount)
	}
	if req.Website != nil {
		updates["website"] = trimmed(*req.Website)
	}
	if req.ContactInfo != nil {
		updates["contactInfo"] = *req.ContactInfo
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.BusinessType != nil {
		bt := trimmed(*req.BusinessType)
		if bt != "" && !models.ValidBusinessType(bt) {
			return nil, apperrors.ValidationField("businessType", "must be one of Manufacturer, Exporter, Supplier, Wholesaler, Retailer or Service Provider")
		}
		updates["businessType"] = bt
	}
	if req.Certifications != nil {
		updates["certifications"] = *req.Certifications
	}
	if req.Logo != nil {
		updates["logo"] = trimmed(*req.Logo)
	}
	if req.Images != nil {
		updates["images"] = cleanStrings(*req.Images)
	}
	if req.ResponseRate != nil {
		updates["responseRate"] = *req.ResponseRate
	}
	return updates, nil
}

func supplierCacheKey(f models.SupplierFilter) string {
	return fmt.Sprintf("suppliers:p:%d:l:%d:q:%s:c:%s:co:%s:bt:%s:v:%s",
		f.Page, f.Limit, f.Query, f.Category, f.Country, f.BusinessType, boolKey(f.Verified))
}
