package controllers

import (
	"net/http"

	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// AdminController exposes moderation endpoints. Every route is behind
// middleware.AdminOnly.
type AdminController struct {
	adminService    services.AdminService
	supplierService services.SupplierService
	listingService  services.ListingService
	userService     services.UserService
}

func NewAdminController(admin services.AdminService, suppliers services.SupplierService, listings services.ListingService, users services.UserService) *AdminController {
	return &AdminController{
		adminService:    admin,
		supplierService: suppliers,
		listingService:  listings,
		userService:     users,
	}
}

// Stats handles GET /api/admin/stats.
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.adminService.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Users handles GET /api/admin/users.
func (ac *AdminController) Users(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	result, err := ac.userService.List(c.Request.Context(), models.UserFilter{Role: c.Query("role"), Page: page, Limit: limit})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// VerifySupplier handles PUT /api/admin/suppliers/:id/verify.
func (ac *AdminController) VerifySupplier(c *gin.Context) {
	var req flagRequest
	if !bindJSON(c, &req) {
		return
	}
	verified, ok := requireFlag(c, "verified", req.Verified)
	if !ok {
		return
	}
	ac.supplierResult(c)(ac.supplierService.SetVerified(c.Request.Context(), c.Param("id"), verified))
}

// SetSupplierPremium handles PUT /api/admin/suppliers/:id/premium. A null
// premiumExpiry revokes premium.
func (ac *AdminController) SetSupplierPremium(c *gin.Context) {
	var req models.PremiumRequest
	if !bindJSON(c, &req) {
		return
	}
	ac.supplierResult(c)(ac.supplierService.SetPremium(c.Request.Context(), c.Param("id"), req.PremiumExpiry))
}

// SetSupplierReviews handles PUT /api/admin/suppliers/:id/reviews.
func (ac *AdminController) SetSupplierReviews(c *gin.Context) {
	var req models.ReviewAggregateRequest
	if !bindJSON(c, &req) {
		return
	}
	ac.supplierResult(c)(ac.supplierService.ApplyReviewAggregate(c.Request.Context(), c.Param("id"), &req))
}

// SetSupplierStatus handles PUT /api/admin/suppliers/:id/status.
func (ac *AdminController) SetSupplierStatus(c *gin.Context) {
	var req flagRequest
	if !bindJSON(c, &req) {
		return
	}
	active, ok := requireFlag(c, "isActive", req.IsActive)
	if !ok {
		return
	}
	ac.supplierResult(c)(ac.supplierService.SetActive(c.Request.Context(), c.Param("id"), active))
}

// FeatureListing handles PUT /api/admin/listings/:id/featured.
func (ac *AdminController) FeatureListing(c *gin.Context) {
	var req flagRequest
	if !bindJSON(c, &req) {
		return
	}
	featured, ok := requireFlag(c, "featured", req.Featured)
	if !ok {
		return
	}
	ac.listingResult(c)(ac.listingService.SetFeatured(c.Request.Context(), c.Param("id"), featured))
}

// SetListingStatus handles PUT /api/admin/listings/:id/status.
func (ac *AdminController) SetListingStatus(c *gin.Context) {
	var req flagRequest
	if !bindJSON(c, &req) {
		return
	}
	active, ok := requireFlag(c, "isActive", req.IsActive)
	if !ok {
		return
	}
	ac.listingResult(c)(ac.listingService.SetActive(c.Request.Context(), c.Param("id"), active))
}

func (ac *AdminController) supplierResult(c *gin.Context) func(*models.Supplier, error) {
	return func(s *models.Supplier, err error) {
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"supplier": s})
	}
}

func (ac *AdminController) listingResult(c *gin.Context) func(*models.Listing, error) {
	return func(l *models.Listing, err error) {
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"listing": l})
	}
}
