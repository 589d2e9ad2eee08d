package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateReactivationRequest lets a frozen DSA petition for reinstatement.
func CreateReactivationRequest(c *gin.Context) {
	var req struct {
		Reason        string `json:"reason" binding:"required"`
		Clarification string `json:"clarification" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	request, err := reactivationService.Request(userID.(int), req.Reason, req.Clarification)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Reactivation request submitted",
		"request": request,
	})
}

// GetMyReactivationRequests lists the calling DSA's reactivation requests,
// newest first.
func GetMyReactivationRequests(c *gin.Context) {
	userID, _ := c.Get("userID")

	requests, err := reactivationService.ForReviewer(userID.(int))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reactivation requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    len(requests),
	})
}
