package controllers

import (
	"net/http"

	"marketplace-service/middleware"
	"marketplace-service/models"
	"marketplace-service/services"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	chatService services.ChatService
}

func NewChatController(chatService services.ChatService) *ChatController {
	return &ChatController{chatService: chatService}
}

// Conversations handles GET /api/chat/conversations.
func (cc *ChatController) Conversations(c *gin.Context) {
	convs, err := cc.chatService.Conversations(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// Messages handles GET /api/chat/conversations/:userId/messages.
func (cc *ChatController) Messages(c *gin.Context) {
	before, err := queryTime(c, "before")
	if err != nil {
		c.Error(err)
		return
	}
	_, limit := parsePaginationParams(c)
	msgs, err := cc.chatService.History(c.Request.Context(), middleware.GetActor(c), c.Param("userId"), before, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Send handles POST /api/chat/messages.
func (cc *ChatController) Send(c *gin.Context) {
	var req models.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := cc.chatService.Send(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead handles PUT /api/chat/conversations/:userId/read.
func (cc *ChatController) MarkRead(c *gin.Context) {
	n, err := cc.chatService.MarkRead(c.Request.Context(), middleware.GetActor(c), c.Param("userId"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
