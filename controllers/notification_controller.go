package controllers

import (
	"net/http"

	"marketplace-service/middleware"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notificationService services.NotificationService
}

func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: notificationService}
}

// List handles GET /api/notifications.
func (nc *NotificationController) List(c *gin.Context) {
	unread, err := queryBool(c, "unread")
	if err != nil {
		c.Error(err)
		return
	}
	page, limit := parsePaginationParams(c)
	result, err := nc.notificationService.List(c.Request.Context(), middleware.GetActor(c), unread != nil && *unread, page, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UnreadCount handles GET /api/notifications/unread-count.
func (nc *NotificationController) UnreadCount(c *gin.Context) {
	n, err := nc.notificationService.UnreadCount(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkRead handles PUT /api/notifications/:id/read.
func (nc *NotificationController) MarkRead(c *gin.Context) {
	if err := nc.notificationService.MarkRead(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	n, err := nc.notificationService.MarkAllRead(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
