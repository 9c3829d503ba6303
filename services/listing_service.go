package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/logger"
	"marketplace-service/models"
	"marketplace-service/repository"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const uploadExpiry = 15 * time.Minute

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ListingService defines the listing operations exposed over HTTP.
type ListingService interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateListingRequest) (*models.Listing, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Listing, error)
	View(ctx context.Context, actor models.Actor, id string) (*models.Listing, error)
	GetBySlug(ctx context.Context, actor models.Actor, slug string) (*models.Listing, error)
	List(ctx context.Context, actor models.Actor, filter models.ListingFilter) (*models.ListingPage, error)
	Search(ctx context.Context, query string, page, limit int) (*models.ListingPage, error)
	Mine(ctx context.Context, actor models.Actor, page, limit int) (*models.ListingPage, error)
	Update(ctx context.Context, actor models.Actor, id string, req *models.UpdateListingRequest) (*models.Listing, error)
	Deactivate(ctx context.Context, actor models.Actor, id string) error
	RecordInquiry(ctx context.Context, actor models.Actor, id string, req *models.InquiryRequest) (*models.Message, error)
	SetFeatured(ctx context.Context, id string, featured bool) (*models.Listing, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Listing, error)
	Categories(ctx context.Context) ([]string, error)
	PresignImageUpload(ctx context.Context, actor models.Actor, req *models.UploadRequest) (*models.UploadResponse, error)
}

type listingService struct {
	listings  repository.ListingRepository
	suppliers repository.SupplierRepository
	chat      MessageSender
	events    EventPublisher
	cache     ListCache
	uploader  Uploader
	now       func() time.Time
}

// ListingDeps collects the optional collaborators of the listing service.
// Nil fields fall back to no-ops; a nil Uploader disables uploads.
type ListingDeps struct {
	Chat     MessageSender
	Events   EventPublisher
	Cache    ListCache
	Uploader Uploader
}

func NewListingService(listings repository.ListingRepository, suppliers repository.SupplierRepository, deps ListingDeps) ListingService {
	s := &listingService{
		listings:  listings,
		suppliers: suppliers,
		chat:      deps.Chat,
		events:    deps.Events,
		cache:     deps.Cache,
		uploader:  deps.Uploader,
		now:       time.Now,
	}
	if s.events == nil {
		s.events = noopPublisher{}
	}
	if s.cache == nil {
		s.cache = noopCache{}
	}
	return s
}

func (s *listingService) Create(ctx context.Context, actor models.Actor, req *models.CreateListingRequest) (*models.Listing, error) {
	req.Title = trimmed(req.Title)
	req.Description = trimmed(req.Description)
	req.Category = trimmed(req.Category)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	supplierID, err := parseFieldID("supplierId", req.SupplierID)
	if err != nil {
		return nil, err
	}

	supplier, err := s.resolveSupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && supplier.UserID.Hex() != actor.UserID {
		return nil, apperrors.Forbidden("You can only create listings for your own supplier account")
	}

	listing := &models.Listing{
		ID:               primitive.NewObjectID(),
		SupplierID:       supplierID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Subcategory:      trimmed(req.Subcategory),
		Price:            priceFromInput(req.Price),
		Images:           nonNilImages(req.Images),
		Specifications:   nonNilSpecs(req.Specifications),
		MinOrderQuantity: req.MinOrderQuantity,
		SupplyAbility:    req.SupplyAbility,
		DeliveryTime:     req.DeliveryTime,
		PackagingDetails: req.PackagingDetails,
		PaymentTerms:     cleanStrings(req.PaymentTerms),
		Certifications:   cleanStrings(req.Certifications),
		Tags:             normalizeTags(req.Tags),
		Featured:         req.Featured && actor.IsAdmin(),
		IsActive:         true,
	}
	listing.Slug = listingSlug(listing.Title, listing.ID)

	if err := validateStruct(listing); err != nil {
		return nil, err
	}
	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	s.invalidate(ctx)

	logger.FromContext(ctx).Info("Listing created",
		zap.String("listing_id", listing.ID.Hex()),
		zap.String("supplier_id", supplierID.Hex()),
	)
	return listing, nil
}

func (s *listingService) Get(ctx context.Context, actor models.Actor, id string) (*models.Listing, error) {
	listingID, err := parsePathID(id, "Listing")
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFoundOr(err, "Listing not found")
	}
	if err := s.checkVisible(ctx, actor, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// View is Get for display: the view counter is bumped atomically.
func (s *listingService) View(ctx context.Context, actor models.Actor, id string) (*models.Listing, error) {
	listing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.countView(ctx, listing)
}

func (s *listingService) GetBySlug(ctx context.Context, actor models.Actor, slugValue string) (*models.Listing, error) {
	listing, err := s.listings.FindBySlug(ctx, slugValue)
	if err != nil {
		return nil, notFoundOr(err, "Listing not found")
	}
	if err := s.checkVisible(ctx, actor, listing); err != nil {
		return nil, err
	}
	return s.countView(ctx, listing)
}

func (s *listingService) List(ctx context.Context, actor models.Actor, filter models.ListingFilter) (*models.ListingPage, error) {
	filter.Page, filter.Limit = models.NormalizePage(filter.Page, filter.Limit)
	filter.Query = trimmed(filter.Query)
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, apperrors.ValidationField("minPrice", "must not exceed maxPrice")
	}

	if filter.IncludeInactive && !actor.IsAdmin() {
		owner := false
		if filter.SupplierID != nil {
			var err error
			if owner, err = s.ownsSupplier(ctx, actor, *filter.SupplierID); err != nil {
				return nil, err
			}
		}
		filter.IncludeInactive = owner
	}

	cacheable := !filter.IncludeInactive
	key := listCacheKey(filter)
	if cacheable {
		var cached models.ListingPage
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	listings, total, err := s.listings.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	page := &models.ListingPage{
		Listings: listings,
		Meta:     models.NewPageMeta(filter.Page, filter.Limit, total),
	}
	if cacheable {
		s.cache.SetAsync(key, page)
	}
	return page, nil
}

func (s *listingService) Search(ctx context.Context, query string, page, limit int) (*models.ListingPage, error) {
	query = trimmed(query)
	if query == "" {
		return nil, apperrors.ValidationField("q", "is required")
	}
	return s.List(ctx, models.Actor{}, models.ListingFilter{
		Query: query,
		Sort:  models.SortRelevance,
		Page:  page,
		Limit: limit,
	})
}

// Mine lists the caller's own listings, inactive ones included.
func (s *listingService) Mine(ctx context.Context, actor models.Actor, page, limit int) (*models.ListingPage, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	supplier, err := s.suppliers.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Supplier profile not found")
	}
	return s.List(ctx, actor, models.ListingFilter{
		SupplierID:      &supplier.ID,
		IncludeInactive: true,
		Sort:            models.SortNewest,
		Page:            page,
		Limit:           limit,
	})
}

func (s *listingService) Update(ctx context.Context, actor models.Actor, id string, req *models.UpdateListingRequest) (*models.Listing, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	listing, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates, err := listingUpdates(req, listing.Price)
	if err != nil {
		return nil, err
	}
	if title, ok := updates["title"].(string); ok {
		updates["slug"] = listingSlug(title, listing.ID)
	}
	if len(updates) == 0 {
		return listing, nil
	}

	updated, err := s.listings.Update(ctx, listing.ID, updates)
	if err != nil {
		return nil, notFoundOr(err, "Listing not found")
	}
	s.invalidate(ctx)
	return updated, nil
}

func (s *listingService) Deactivate(ctx context.Context, actor models.Actor, id string) error {
	listing, err := s.loadForWrite(ctx, actor, id)
	if err != nil {
		return err
	}
	if !listing.IsActive {
		return nil
	}
	if _, err := s.listings.Update(ctx, listing.ID, map[string]interface{}{"isActive": false}); err != nil {
		return notFoundOr(err, "Listing not found")
	}
	s.invalidate(ctx)
	logger.FromContext(ctx).Info("Listing deactivated", zap.String("listing_id", listing.ID.Hex()))
	return nil
}

// RecordInquiry counts a buyer inquiry on the listing and its supplier and
// forwards the inquiry text to the supplier as a chat message.
func (s *listingService) RecordInquiry(ctx context.Context, actor models.Actor, id string, req *models.InquiryRequest) (*models.Message, error) {
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	req.Message = trimmed(req.Message)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	listing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive {
		return nil, apperrors.NotFound("Listing not found")
	}
	supplier, err := s.suppliers.FindByID(ctx, listing.SupplierID)
	if err != nil {
		return nil, notFoundOr(err, "Supplier not found")
	}
	if supplier.UserID.Hex() == actor.UserID {
		return nil, apperrors.Validation("You cannot send an inquiry to your own listing")
	}

	if err := s.listings.IncrementInquiries(ctx, listing.ID); err != nil {
		return nil, notFoundOr(err, "Listing not found")
	}
	if err := s.suppliers.IncrementInquiries(ctx, supplier.ID); err != nil {
		logger.FromContext(ctx).Warn("Failed to count supplier inquiry", zap.String("supplier_id", supplier.ID.Hex()), zap.Error(err))
	}

	var msg *models.Message
	if s.chat != nil {
		msg, err = s.chat.Send(ctx, actor, &models.SendMessageRequest{
			RecipientID: supplier.UserID.Hex(),
			Text:        inquiryText(listing, req),
			ListingID:   listing.ID.Hex(),
		})
		if err != nil {
			return nil, err
		}
	}

	event := models.Event{
		Type:        models.EventListingInquiry,
		RecipientID: supplier.UserID.Hex(),
		ActorID:     actor.UserID,
		ListingID:   listing.ID.Hex(),
		SupplierID:  supplier.ID.Hex(),
		Title:       "New inquiry",
		Message:     fmt.Sprintf("You received an inquiry for %q", listing.Title),
		Link:        "/listings/" + listing.ID.Hex(),
		OccurredAt:  s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish inquiry event", zap.String("listing_id", listing.ID.Hex()), zap.Error(err))
	}
	return msg, nil
}

func (s *listingService) SetFeatured(ctx context.Context, id string, featured bool) (*models.Listing, error) {
	listing, err := s.adminUpdate(ctx, id, map[string]interface{}{"featured": featured})
	if err != nil {
		return nil, err
	}
	if featured {
		if supplier, err := s.suppliers.FindByID(ctx, listing.SupplierID); err == nil {
			err = s.events.Publish(ctx, models.Event{
				Type:        models.EventListingFeatured,
				RecipientID: supplier.UserID.Hex(),
				ListingID:   listing.ID.Hex(),
				SupplierID:  supplier.ID.Hex(),
				Title:       "Listing featured",
				Message:     fmt.Sprintf("%q is now featured", listing.Title),
				Link:        "/listings/" + listing.ID.Hex(),
				OccurredAt:  s.now().UTC(),
			})
			if err != nil {
				logger.FromContext(ctx).Warn("Failed to publish featured event", zap.String("listing_id", listing.ID.Hex()), zap.Error(err))
			}
		} else {
			logger.FromContext(ctx).Warn("Featured listing has no resolvable supplier", zap.String("listing_id", listing.ID.Hex()), zap.Error(err))
		}
	}
	return listing, nil
}

func (s *listingService) SetActive(ctx context.Context, id string, active bool) (*models.Listing, error) {
	return s.adminUpdate(ctx, id, map[string]interface{}{"isActive": active})
}

func (s *listingService) Categories(ctx context.Context) ([]string, error) {
	const key = "categories"
	var cached []string
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	categories, err := s.listings.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	s.cache.SetAsync(key, categories)
	return categories, nil
}

func (s *listingService) PresignImageUpload(ctx context.Context, actor models.Actor, req *models.UploadRequest) (*models.UploadResponse, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, apperrors.Unavailable("Image uploads are not configured", nil)
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	contentType := strings.ToLower(trimmed(req.ContentType))
	if !allowedImageTypes[contentType] {
		return nil, apperrors.ValidationField("contentType", "must be a JPEG, PNG, WebP or GIF image")
	}

	folder := "admin"
	if !actor.IsAdmin() {
		supplier, err := s.suppliers.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.Forbidden("Only suppliers can upload listing images")
			}
			return nil, err
		}
		folder = supplier.ID.Hex()
	}

	up, err := s.uploader.PresignUpload(ctx, folder, req.Filename, contentType, uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &models.UploadResponse{
		UploadURL: up.URL,
		PublicURL: up.PublicURL,
		Key:       up.Key,
		Headers:   up.Headers,
		ExpiresIn: int64(up.Expires.Seconds()),
	}, nil
}

// resolveSupplier is the reference check run before a listing is written.
func (s *listingService) resolveSupplier(ctx context.Context, id primitive.ObjectID) (*models.Supplier, error) {
	supplier, err := s.suppliers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ValidationField("supplierId", "supplier does not exist")
		}
		return nil, err
	}
	if !supplier.IsActive {
		return nil, apperrors.ValidationField("supplierId", "supplier is not active")
	}
	return supplier, nil
}

func (s *listingService) ownsSupplier(ctx context.Context, actor models.Actor, supplierID primitive.ObjectID) (bool, error) {
	if actor.IsAnonymous() {
		return false, nil
	}
	supplier, err := s.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return supplier.UserID.Hex() == actor.UserID, nil
}

// checkVisible hides inactive listings from everyone but their owner and
// admins.
func (s *listingService) checkVisible(ctx context.Context, actor models.Actor, listing *models.Listing) error {
	if listing.IsActive || actor.IsAdmin() {
		return nil
	}
	owner, err := s.ownsSupplier(ctx, actor, listing.SupplierID)
	if err != nil {
		return err
	}
	if !owner {
		return apperrors.NotFound("Listing not found")
	}
	return nil
}

func (s *listingService) loadForWrite(ctx context.Context, actor models.Actor, id string) (*models.Listing, error) {
	if _, err := actorID(actor); err != nil {
		return nil, err
	}
	listing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return listing, nil
	}
	owner, err := s.ownsSupplier(ctx, actor, listing.SupplierID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, apperrors.Forbidden("You can only modify your own listings")
	}
	return listing, nil
}

func (s *listingService) adminUpdate(ctx context.Context, id string, updates map[string]interface{}) (*models.Listing, error) {
	listingID, err := parsePathID(id, "Listing")
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.Update(ctx, listingID, updates)
	if err != nil {
		return nil, notFoundOr(err, "Listing not found")
	}
	s.invalidate(ctx)
	return listing, nil
}

func (s *listingService) countView(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	updated, err := s.listings.IncrementViews(ctx, listing.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to count listing view", zap.String("listing_id", listing.ID.Hex()), zap.Error(err))
		return listing, nil
	}
	return updated, nil
}

func (s *listingService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Error("Failed to invalidate listing cache", zap.Error(err))
	}
}

// listingUpdates turns a partial update into a field map, rejecting attempts
// to blank required fields. Price changes are merged into current.
func listingUpdates(req *models.UpdateListingRequest, current models.Price) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	required := func(field string, v *string) error {
		if v == nil {
			return nil
		}
		t := trimmed(*v)
		if t == "" {
			return apperrors.ValidationField(field, "cannot be empty")
		}
		updates[field] = t
		return nil
	}
	if err := required("title", req.Title); err != nil {
		return nil, err
	}
	if err := required("description", req.Description); err != nil {
		return nil, err
	}
	if err := required("category", req.Category); err != nil {
		return nil, err
	}

	if req.Subcategory != nil {
		updates["subcategory"] = trimmed(*req.Subcategory)
	}
	if req.Price != nil {
		updates["price"] = mergePrice(current, req.Price)
	}
	if req.Images != nil {
		updates["images"] = nonNilImages(*req.Images)
	}
	if req.Specifications != nil {
		updates["specifications"] = nonNilSpecs(*req.Specifications)
	}
	if req.MinOrderQuantity != nil {
		updates["minOrderQuantity"] = req.MinOrderQuantity
	}
	if req.SupplyAbility != nil {
		updates["supplyAbility"] = req.SupplyAbility
	}
	if req.DeliveryTime != nil {
		updates["deliveryTime"] = *req.DeliveryTime
	}
	if req.PackagingDetails != nil {
		updates["packagingDetails"] = *req.PackagingDetails
	}
	if req.PaymentTerms != nil {
		updates["paymentTerms"] = cleanStrings(*req.PaymentTerms)
	}
	if req.Certifications != nil {
		updates["certifications"] = cleanStrings(*req.Certifications)
	}
	if req.Tags != nil {
		updates["tags"] = normalizeTags(*req.Tags)
	}
	return updates, nil
}

func priceFromInput(in *models.PriceInput) models.Price {
	price := models.Price{Currency: models.DefaultCurrency, Negotiable: true}
	if in == nil {
		return price
	}
	price.Amount = in.Amount
	price.Unit = trimmed(in.Unit)
	if c := trimmed(in.Currency); c != "" {
		price.Currency = strings.ToUpper(c)
	}
	if in.Negotiable != nil {
		price.Negotiable = *in.Negotiable
	}
	return price
}

func mergePrice(current models.Price, in *models.PriceUpdate) models.Price {
	if current.Currency == "" {
		current.Currency = models.DefaultCurrency
	}
	if in.Amount != nil {
		current.Amount = *in.Amount
	}
	if in.Currency != nil {
		if c := trimmed(*in.Currency); c != "" {
			current.Currency = strings.ToUpper(c)
		}
	}
	if in.Unit != nil {
		current.Unit = trimmed(*in.Unit)
	}
	if in.Negotiable != nil {
		current.Negotiable = *in.Negotiable
	}
	return current
}

// normalizeTags lowercases, trims and de-duplicates tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func nonNilImages(in []models.ListingImage) []models.ListingImage {
	if in == nil {
		return []models.ListingImage{}
	}
	return in
}

func nonNilSpecs(in []models.Specification) []models.Specification {
	if in == nil {
		return []models.Specification{}
	}
	return in
}

// listingSlug is the title slug plus the id tail, unique per listing.
func listingSlug(title string, id primitive.ObjectID) string {
	hex := id.Hex()
	base := slug.Make(title)
	if base == "" {
		return hex
	}
	return base + "-" + hex[len(hex)-6:]
}

func inquiryText(listing *models.Listing, req *models.InquiryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inquiry about %q", listing.Title)
	if req.Quantity > 0 {
		fmt.Fprintf(&b, " (quantity: %g", req.Quantity)
		if req.Unit != "" {
			b.WriteString(" " + req.Unit)
		}
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(req.Message)
	return b.String()
}

func listCacheKey(f models.ListingFilter) string {
	supplier := ""
	if f.SupplierID != nil {
		supplier = f.SupplierID.Hex()
	}
	return fmt.Sprintf("list:p:%d:l:%d:c:%s:sc:%s:s:%s:q:%s:min:%s:max:%s:f:%s:o:%s",
		f.Page, f.Limit, f.Category, f.Subcategory, supplier, strings.ToLower(f.Query),
		floatKey(f.MinPrice), floatKey(f.MaxPrice), boolKey(f.Featured), f.Sort)
}

func floatKey(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func boolKey(v *bool) string {
	if v == nil {
		return ""
	}
	if *v {
		return "1"
	}
	return "0"
}

// notFoundOr maps repository.ErrNotFound to a NotFound error with message and
// passes other errors through.
func notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(message)
	}
	return err
}
