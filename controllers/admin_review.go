package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AssignReviewers attaches a reviewer pool, threshold and deadline to a
// pending application (admin only).
func AssignReviewers(c *gin.Context) {
	applicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || applicationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	userID, _ := c.Get("userID")

	result, err := assignmentService.Assign(applicationID, userID.(int))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Reviewers assigned",
		"result":  result,
	})
}

// TriggerSweep runs a deadline sweep on demand (admin only). The same sweep
// also runs on a schedule in the background.
func TriggerSweep(c *gin.Context) {
	report, err := sweeperService.Sweep(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// GetReviewerStatistics returns one DSA's performance counters (admin only).
func GetReviewerStatistics(c *gin.Context) {
	reviewerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || reviewerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reviewer ID"})
		return
	}

	stats, err := directoryService.Statistics(reviewerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}

// GetPendingReactivationRequests lists all pending reactivation requests
// (admin only).
func GetPendingReactivationRequests(c *gin.Context) {
	requests, err := reactivationService.Pending()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reactivation requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    len(requests),
	})
}

// DecideReactivation resolves a DSA's pending reactivation request (admin
// only).
func DecideReactivation(c *gin.Context) {
	reviewerID, err := strconv.Atoi(c.Param("id"))
	if err != nil || reviewerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reviewer ID"})
		return
	}

	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID, _ := c.Get("userID")

	request, err := reactivationService.Decide(reviewerID, userID.(int), req.Approve, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Reactivation request rejected"
	if req.Approve {
		message = "Reviewer reactivated"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"request": request,
	})
}
