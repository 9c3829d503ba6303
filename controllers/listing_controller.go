package controllers

import (
	"net/http"

	apperrors "marketplace-service/errors"
	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListingController handles HTTP requests for listings.
type ListingController struct {
	listingService services.ListingService
}

func NewListingController(listingService services.ListingService) *ListingController {
	return &ListingController{listingService: listingService}
}

// List handles GET /api/listings.
func (lc *ListingController) List(c *gin.Context) {
	filter, err := listingFilterFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}
	result, err := lc.listingService.List(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search handles GET /api/listings/search?q=.
func (lc *ListingController) Search(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	result, err := lc.listingService.Search(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Categories handles GET /api/listings/categories.
func (lc *ListingController) Categories(c *gin.Context) {
	categories, err := lc.listingService.Categories(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetBySlug handles GET /api/listings/slug/:slug.
func (lc *ListingController) GetBySlug(c *gin.Context) {
	listing, err := lc.listingService.GetBySlug(c.Request.Context(), middleware.GetActor(c), c.Param("slug"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Get handles GET /api/listings/:id and counts a view.
func (lc *ListingController) Get(c *gin.Context) {
	listing, err := lc.listingService.View(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Mine handles GET /api/listings/mine.
func (lc *ListingController) Mine(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	result, err := lc.listingService.Mine(c.Request.Context(), middleware.GetActor(c), page, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create handles POST /api/listings.
func (lc *ListingController) Create(c *gin.Context) {
	var req models.CreateListingRequest
	if !bindJSON(c, &req) {
		return
	}
	listing, err := lc.listingService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": listing})
}

// Update handles PUT /api/listings/:id.
func (lc *ListingController) Update(c *gin.Context) {
	var req models.UpdateListingRequest
	if !bindJSON(c, &req) {
		return
	}
	listing, err := lc.listingService.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// Delete handles DELETE /api/listings/:id. Listings are deactivated, not
// removed.
func (lc *ListingController) Delete(c *gin.Context) {
	if err := lc.listingService.Deactivate(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deactivated"})
}

// Inquire handles POST /api/listings/:id/inquiries.
func (lc *ListingController) Inquire(c *gin.Context) {
	var req models.InquiryRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := lc.listingService.RecordInquiry(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Inquiry sent", "chatMessage": msg})
}

// PresignUpload handles POST /api/listings/uploads.
func (lc *ListingController) PresignUpload(c *gin.Context) {
	var req models.UploadRequest
	if !bindJSON(c, &req) {
		return
	}
	upload, err := lc.listingService.PresignImageUpload(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func listingFilterFromQuery(c *gin.Context) (models.ListingFilter, error) {
	page, limit := parsePaginationParams(c)
	filter := models.ListingFilter{
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Query:       c.Query("q"),
		Sort:        c.Query("sort"),
		Page:        page,
		Limit:       limit,
	}
	switch filter.Sort {
	case "", models.SortNewest, models.SortPriceAsc, models.SortPriceDesc, models.SortPopular, models.SortRelevance:
	default:
		return filter, apperrors.ValidationField("sort", "must be one of newest, price_asc, price_desc, popular, relevance")
	}
	if raw := c.Query("supplierId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return filter, apperrors.ValidationField("supplierId", "must be a valid id")
		}
		filter.SupplierID = &id
	}

	var err error
	if filter.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.Featured, err = queryBool(c, "featured"); err != nil {
		return filter, err
	}
	includeInactive, err := queryBool(c, "includeInactive")
	if err != nil {
		return filter, err
	}
	filter.IncludeInactive = includeInactive != nil && *includeInactive
	return filter, nil
}
