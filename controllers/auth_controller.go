package controllers

import (
	"net/http"
	"time"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

// AuthController handles registration and session cookies.
type AuthController struct {
	authService  services.AuthService
	secureCookie bool
}

func NewAuthController(authService services.AuthService, secureCookie bool) *AuthController {
	return &AuthController{authService: authService, secureCookie: secureCookie}
}

// Register handles POST /api/auth/register.
func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ac.authService.Register(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	ac.setSession(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusCreated, res)
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := ac.authService.Login(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	ac.setSession(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, res)
}

// Logout handles POST /api/auth/logout.
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", ac.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me handles GET /api/auth/me.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.authService.Me(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (ac *AuthController) setSession(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", ac.secureCookie, true)
}
