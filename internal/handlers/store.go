package handlers

import (
	"net/http"

	"github.com/challengehub/challengehub/internal/middleware"
	"github.com/challengehub/challengehub/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StoreHandler struct {
	rewardsService *services.RewardsService
}

func NewStoreHandler(rewardsService *services.RewardsService) *StoreHandler {
	return &StoreHandler{rewardsService: rewardsService}
}

func (h *StoreHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"badges": h.rewardsService.Catalog()})
}

type purchaseRequest struct {
	Badge string `json:"badge" binding:"required"`
}

func (h *StoreHandler) Purchase(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.rewardsService.Purchase(c.Request.Context(), userID, req.Badge)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Badge purchased successfully",
		"user":    user,
	})
}
