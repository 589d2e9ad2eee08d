package controllers

import (
	"errors"
	"net/http"

	"loan-management-api/services"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps the services error taxonomy onto HTTP status
// codes. State conflicts are 409 so clients know to re-fetch; a frozen
// account is 403 with a pointer at the reactivation workflow.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, services.ErrAccountFrozen):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Your account is frozen. Submit a reactivation request to regain access.",
		})
	case errors.Is(err, services.ErrInsufficientReviewers):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Not enough active reviewers to assign this application"})
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrDeadlineExpired),
		errors.Is(err, services.ErrNotAssigned),
		errors.Is(err, services.ErrDuplicatePending),
		errors.Is(err, services.ErrAlreadyActive):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
