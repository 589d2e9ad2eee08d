package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loan-management-api/config"
	"loan-management-api/models"
	"loan-management-api/services"
	"loan-management-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetApplications returns list of loan applications
func GetApplications(c *gin.Context) {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var applications []models.LoanApplication
	query := config.DB.Preload("User").
		Where("loan_applications.delete_at IS NULL")

	// Applicants only see their own applications
	if roleID.(int) != models.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Order("application_id DESC").Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": applications,
		"total":        len(applications),
	})
}

// GetApplication returns single loan application by ID
func GetApplication(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	var application models.LoanApplication
	query := config.DB.Preload("User").Preload("Decisions").
		Where("application_id = ? AND loan_applications.delete_at IS NULL", id)

	if roleID.(int) != models.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}

	if err := query.First(&application).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": application,
	})
}

// CreateApplication creates a new loan application in pending status.
func CreateApplication(c *gin.Context) {
	type CreateApplicationRequest struct {
		LoanAmount float64 `json:"loan_amount" binding:"required,gt=0"`
		Purpose    string  `json:"purpose" binding:"required"`
		TermMonths int     `json:"term_months" binding:"required,gt=0"`
	}

	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := c.Get("userID")

	now := time.Now()
	application := models.LoanApplication{
		ApplicationNumber: generateApplicationNumber(),
		UserID:            userID.(int),
		LoanAmount:        req.LoanAmount,
		Purpose:           utils.SanitizeInput(req.Purpose),
		TermMonths:        req.TermMonths,
		Status:            models.StatusPending,
		SubmittedAt:       &now,
		CreateAt:          &now,
		UpdateAt:          &now,
	}

	if err := config.DB.Create(&application).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application"})
		return
	}

	config.DB.Preload("User").First(&application, application.ApplicationID)

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Application created successfully",
		"application": application,
	})
}

// UpdateApplication updates a pending application owned by the caller.
func UpdateApplication(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("userID")

	type UpdateApplicationRequest struct {
		LoanAmount float64 `json:"loan_amount"`
		Purpose    string  `json:"purpose"`
		TermMonths int     `json:"term_months"`
	}

	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var application models.LoanApplication
	if err := config.DB.Where("application_id = ? AND user_id = ? AND delete_at IS NULL", id, userID).
		First(&application).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	// Only pending applications can be edited
	if application.Status != models.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot edit an application already in review"})
		return
	}

	now := time.Now()
	if req.LoanAmount > 0 {
		application.LoanAmount = req.LoanAmount
	}
	if strings.TrimSpace(req.Purpose) != "" {
		application.Purpose = utils.SanitizeInput(req.Purpose)
	}
	if req.TermMonths > 0 {
		application.TermMonths = req.TermMonths
	}
	application.Version++
	application.UpdateAt = &now

	if err := config.DB.Save(&application).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Application updated successfully",
		"application": application,
	})
}

// DeleteApplication soft deletes a pending application
func DeleteApplication(c *gin.Context) {
	id := c.Param("id")
	userID, _ := c.Get("userID")

	var application models.LoanApplication
	if err := config.DB.Where("application_id = ? AND user_id = ? AND delete_at IS NULL", id, userID).
		First(&application).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	if application.Status != models.StatusPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete an application already in review"})
		return
	}

	now := time.Now()
	application.DeleteAt = &now
	application.UpdateAt = &now
	application.Version++

	if err := config.DB.Save(&application).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete application"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// GetApplicationReviewStatus returns the aggregate review progress for an
// application. Applicants see their own; assigned DSAs and admins see any
// application they are involved with.
func GetApplicationReviewStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application ID"})
		return
	}
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")

	status, err := reviewService.GetReviewStatus(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !canSeeReviewStatus(status, userID.(int), roleID.(int)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"review_status": status})
}

func canSeeReviewStatus(status *services.ReviewStatus, userID, roleID int) bool {
	if roleID == models.RoleAdmin {
		return true
	}
	if roleID == models.RoleDSA {
		for _, d := range status.Decisions {
			if d.ReviewerID == userID {
				return true
			}
		}
		return false
	}

	var owned int64
	config.DB.Model(&models.LoanApplication{}).
		Where("application_id = ? AND user_id = ?", status.ApplicationID, userID).
		Count(&owned)
	return owned > 0
}

// generateApplicationNumber builds a unique human-readable reference, e.g.
// LN-20260826-1A2B3C4D.
func generateApplicationNumber() string {
	dateStr := time.Now().Format("20060102")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("LN-%s-%s", dateStr, suffix)
}
