package controllers

import (
	"net/http"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	userService services.UserService
}

func NewUserController(userService services.UserService) *UserController {
	return &UserController{userService: userService}
}

// GetMe handles GET /api/users/me.
func (uc *UserController) GetMe(c *gin.Context) {
	user, err := uc.userService.Profile(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe handles PUT /api/users/me.
func (uc *UserController) UpdateMe(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.userService.UpdateProfile(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetProfile handles GET /api/users/:id.
func (uc *UserController) GetProfile(c *gin.Context) {
	profile, err := uc.userService.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}
