package controllers

import (
	"net/http"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// SupplierController handles HTTP requests for supplier profiles.
type SupplierController struct {
	supplierService services.SupplierService
}

func NewSupplierController(supplierService services.SupplierService) *SupplierController {
	return &SupplierController{supplierService: supplierService}
}

// List handles GET /api/suppliers.
func (sc *SupplierController) List(c *gin.Context) {
	verified, err := queryBool(c, "verified")
	if err != nil {
		c.Error(err)
		return
	}
	page, limit := parsePaginationParams(c)
	result, err := sc.supplierService.List(c.Request.Context(), models.SupplierFilter{
		Query:        c.Query("q"),
		Category:     c.Query("category"),
		Country:      c.Query("country"),
		BusinessType: c.Query("businessType"),
		Verified:     verified,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/suppliers/:id.
func (sc *SupplierController) Get(c *gin.Context) {
	supplier, err := sc.supplierService.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": supplier})
}

// Listings handles GET /api/suppliers/:id/listings.
func (sc *SupplierController) Listings(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	result, err := sc.supplierService.Listings(c.Request.Context(), middleware.GetActor(c), c.Param("id"), page, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Create handles POST /api/suppliers.
func (sc *SupplierController) Create(c *gin.Context) {
	var req models.CreateSupplierRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := sc.supplierService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"supplier": supplier})
}

// GetMine handles GET /api/suppliers/me.
func (sc *SupplierController) GetMine(c *gin.Context) {
	supplier, err := sc.supplierService.GetByUser(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": supplier})
}

// UpdateMine handles PUT /api/suppliers/me.
func (sc *SupplierController) UpdateMine(c *gin.Context) {
	var req models.UpdateSupplierRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := sc.supplierService.Update(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"supplier": supplier})
}

// DeactivateMine handles DELETE /api/suppliers/me.
func (sc *SupplierController) DeactivateMine(c *gin.Context) {
	if err := sc.supplierService.Deactivate(c.Request.Context(), middleware.GetActor(c)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier deactivated"})
}
