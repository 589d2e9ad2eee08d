package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"loan-management-api/config"
	"loan-management-api/models"

	"github.com/gin-gonic/gin"
)

var reviewVerdicts = map[string]string{
	"approve":  models.VerdictApproved,
	"approved": models.VerdictApproved,
	"reject":   models.VerdictRejected,
	"rejected": models.VerdictRejected,
}

// GetAssignedReviews lists the calling DSA's decision slots, optionally
// filtered by verdict (default: pending).
func GetAssignedReviews(c *gin.Context) {
	userID, _ := c.Get("userID")

	verdict := strings.TrimSpace(c.Query("verdict"))
	if verdict == "" {
		verdict = models.VerdictPending
	}

	query := config.DB.Preload("Reviewer").
		Where("reviewer_id = ?", userID)
	if verdict != "all" {
		query = query.Where("verdict = ?", verdict)
	}

	var decisions []models.ReviewDecision
	if err := query.Order("assigned_at DESC").Find(&decisions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assigned reviews"})
		return
	}

	// Hydrate the applications in one pass instead of per-row lookups.
	applicationIDs := make([]int, 0, len(decisions))
	for _, d := range decisions {
		applicationIDs = append(applicationIDs, d.ApplicationID)
	}

	applications := map[int]models.LoanApplication{}
	if len(applicationIDs) > 0 {
		var rows []models.LoanApplication
		if err := config.DB.Preload("User").
			Where("application_id IN ? AND delete_at IS NULL", applicationIDs).
			Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
			return
		}
		for _, row := range rows {
			applications[row.ApplicationID] = row
		}
	}

	type assignedReview struct {
		Decision    models.ReviewDecision  `json:"decision"`
		Application models.LoanApplication `json:"application"`
	}
	result := make([]assignedReview, 0, len(decisions))
	for _, d := range decisions {
		application, ok := applications[d.ApplicationID]
		if !ok {
			continue
		}
		result = append(result, assignedReview{Decision: d, Application: application})
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": result,
		"total":   len(result),
	})
}

// SubmitReviewDecision records the calling DSA's approve/reject decision on
// an assigned application.
func SubmitReviewDecision(c *gin.Context) {
	applicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || applicationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}

	var req struct {
		Decision string `json:"decision" binding:"required"`
		Comment  string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	verdict, ok := reviewVerdicts[strings.ToLower(strings.TrimSpace(req.Decision))]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Decision must be either 'approve' or 'reject'"})
		return
	}

	userID, _ := c.Get("userID")

	application, err := reviewService.SubmitDecision(applicationID, userID.(int), verdict, req.Comment)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Decision recorded"
	switch application.Status {
	case models.StatusApproved:
		message = "Decision recorded; application approved"
	case models.StatusRejected:
		message = "Decision recorded; application rejected"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     message,
		"application": application,
	})
}
