package controllers

import (
	"strconv"
	"time"

	apperrors "marketplace-service/errors"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the request body into dst, recording a validation error on
// failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(apperrors.New(apperrors.ErrValidation.Code, "Invalid request body", err))
		return false
	}
	return true
}

// parsePaginationParams reads page and limit; clamping happens in the
// services.
func parsePaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	return page, limit
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperrors.ValidationField(name, "must be a non-negative number")
	}
	return &v, nil
}

func queryBool(c *gin.Context, name string) (*bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.ValidationField(name, "must be true or false")
	}
	return &v, nil
}

func queryTime(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.ValidationField(name, "must be an RFC 3339 timestamp")
	}
	return &v, nil
}

// flagRequest is the body of admin toggles such as {"isActive": false}.
type flagRequest struct {
	IsActive *bool `json:"isActive"`
	Featured *bool `json:"featured"`
	Verified *bool `json:"verified"`
}

func requireFlag(c *gin.Context, field string, v *bool) (bool, bool) {
	if v == nil {
		c.Error(apperrors.ValidationField(field, "is required"))
		return false, false
	}
	return *v, true
}
