package routes

import (
	"net/http"
	"time"

	"marketplace-service/controllers"
	apperrors "marketplace-service/errors"
	"marketplace-service/logger"
	"marketplace-service/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controllers groups the HTTP handlers mounted under /api.
type Controllers struct {
	Auth          *controllers.AuthController
	Users         *controllers.UserController
	Suppliers     *controllers.SupplierController
	Listings      *controllers.ListingController
	Chat          *controllers.ChatController
	Notifications *controllers.NotificationController
	Admin         *controllers.AdminController
}

// Options configures NewRouter. Ready gates /api until the database is
// reachable; Metrics, APILimiter and WebSocket are optional.
type Options struct {
	Log            *zap.Logger
	ClientURL      string
	Production     bool
	RequestTimeout time.Duration
	Ready          func() bool
	Tokens         middleware.TokenValidator
	Metrics        *middleware.Metrics
	APILimiter     *middleware.RateLimiter
	WebSocket      gin.HandlerFunc
	Controllers    Controllers
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Ready == nil {
		opts.Ready = func() bool { return true }
	}

	r := gin.New()
	r.Use(apperrors.Recovery(opts.Log))
	r.Use(logger.RequestID())
	r.Use(logger.HTTPLogger(opts.Log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	// Renders errors recorded by everything below it, middleware included.
	r.Use(apperrors.ErrorMiddleware(opts.Log))
	r.Use(middleware.SecurityHeaders(opts.Production, opts.Log))
	r.Use(middleware.CORS(opts.ClientURL))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ExportersIndia B2B Clone API"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		if !opts.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "connected"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.WebSocket != nil {
		r.GET("/ws", opts.WebSocket)
	}
	r.NoRoute(apperrors.NotFoundHandler())

	api := r.Group("/api")
	api.Use(middleware.RequireReady(opts.Ready))
	if opts.APILimiter != nil {
		api.Use(middleware.RateLimit(opts.APILimiter))
	}
	api.Use(middleware.Authenticate(opts.Tokens))

	ctl := opts.Controllers
	registerAuthRoutes(api, ctl.Auth)
	registerUserRoutes(api, ctl.Users)
	registerSupplierRoutes(api, ctl.Suppliers)
	registerListingRoutes(api, ctl.Listings)
	registerChatRoutes(api, ctl.Chat)
	registerNotificationRoutes(api, ctl.Notifications)
	registerAdminRoutes(api, ctl.Admin)

	return r
}

func registerAuthRoutes(api *gin.RouterGroup, ac *controllers.AuthController) {
	if ac == nil {
		return
	}
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", ac.Register)
		authRoutes.POST("/login", middleware.LoginRateLimit(), ac.Login)
		authRoutes.POST("/logout", ac.Logout)
		authRoutes.GET("/me", middleware.RequireAuth(), ac.Me)
	}
}

func registerUserRoutes(api *gin.RouterGroup, uc *controllers.UserController) {
	if uc == nil {
		return
	}
	userRoutes := api.Group("/users", middleware.RequireAuth())
	{
		userRoutes.GET("/me", uc.GetMe)
		userRoutes.PUT("/me", uc.UpdateMe)
		userRoutes.GET("/:id", uc.GetProfile)
	}
}

func registerSupplierRoutes(api *gin.RouterGroup, sc *controllers.SupplierController) {
	if sc == nil {
		return
	}
	supplierRoutes := api.Group("/suppliers")
	{
		supplierRoutes.GET("", sc.List)
		supplierRoutes.GET("/me", middleware.RequireAuth(), sc.GetMine)
		supplierRoutes.PUT("/me", middleware.RequireAuth(), sc.UpdateMine)
		supplierRoutes.DELETE("/me", middleware.RequireAuth(), sc.DeactivateMine)
		supplierRoutes.POST("", middleware.RequireAuth(), sc.Create)
		supplierRoutes.GET("/:id", sc.Get)
		supplierRoutes.GET("/:id/listings", sc.Listings)
	}
}

func registerListingRoutes(api *gin.RouterGroup, lc *controllers.ListingController) {
	if lc == nil {
		return
	}
	listingRoutes := api.Group("/listings")
	{
		listingRoutes.GET("", lc.List)
		listingRoutes.GET("/search", lc.Search)
		listingRoutes.GET("/categories", lc.Categories)
		listingRoutes.GET("/slug/:slug", lc.GetBySlug)
		listingRoutes.GET("/mine", middleware.RequireAuth(), lc.Mine)
		listingRoutes.POST("/uploads", middleware.RequireAuth(), lc.PresignUpload)
		listingRoutes.POST("", middleware.RequireAuth(), lc.Create)
		listingRoutes.GET("/:id", lc.Get)
		listingRoutes.PUT("/:id", middleware.RequireAuth(), lc.Update)
		listingRoutes.DELETE("/:id", middleware.RequireAuth(), lc.Delete)
		listingRoutes.POST("/:id/inquiries", middleware.RequireAuth(), lc.Inquire)
	}
}

func registerChatRoutes(api *gin.RouterGroup, cc *controllers.ChatController) {
	if cc == nil {
		return
	}
	chatRoutes := api.Group("/chat", middleware.RequireAuth())
	{
		chatRoutes.GET("/conversations", cc.Conversations)
		chatRoutes.GET("/conversations/:userId/messages", cc.Messages)
		chatRoutes.PUT("/conversations/:userId/read", cc.MarkRead)
		chatRoutes.POST("/messages", cc.Send)
	}
}

func registerNotificationRoutes(api *gin.RouterGroup, nc *controllers.NotificationController) {
	if nc == nil {
		return
	}
	notificationRoutes := api.Group("/notifications", middleware.RequireAuth())
	{
		notificationRoutes.GET("", nc.List)
		notificationRoutes.GET("/unread-count", nc.UnreadCount)
		notificationRoutes.PUT("/read-all", nc.MarkAllRead)
		notificationRoutes.PUT("/:id/read", nc.MarkRead)
	}
}

func registerAdminRoutes(api *gin.RouterGroup, ac *controllers.AdminController) {
	if ac == nil {
		return
	}
	adminRoutes := api.Group("/admin", middleware.AdminOnly())
	{
		adminRoutes.GET("/stats", ac.Stats)
		adminRoutes.GET("/users", ac.Users)
		adminRoutes.PUT("/suppliers/:id/verify", ac.VerifySupplier)
		adminRoutes.PUT("/suppliers/:id/premium", ac.SetSupplierPremium)
		adminRoutes.PUT("/suppliers/:id/reviews", ac.SetSupplierReviews)
		adminRoutes.PUT("/suppliers/:id/status", ac.SetSupplierStatus)
		adminRoutes.PUT("/listings/:id/featured", ac.FeatureListing)
		adminRoutes.PUT("/listings/:id/status", ac.SetListingStatus)
	}
}
