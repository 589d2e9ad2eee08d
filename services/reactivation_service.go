package services

import (
	"errors"
	"fmt"
	"strings"

	"loan-management-api/models"
	"loan-management-api/utils"

	"gorm.io/gorm"
)

const (
	reactivationReasonMinLen        = 10
	reactivationClarificationMinLen = 20
)

// ReactivationService handles a frozen DSA's petition for reinstatement and
// the administrator decision on it.
type ReactivationService struct {
	db        *gorm.DB
	directory *DirectoryService
	notifier  *NotificationService
	clock     Clock
}

func NewReactivationService(db *gorm.DB, directory *DirectoryService, notifier *NotificationService, clock Clock) *ReactivationService {
	return &ReactivationService{
		db:        db,
		directory: directory,
		notifier:  notifier,
		clock:     clock,
	}
}

// Request files a new reactivation request for a frozen reviewer. A reviewer
// may file again after a rejection, but never while one is pending.
func (s *ReactivationService) Request(reviewerID int, reason, clarification string) (*models.ReactivationRequest, error) {
	reason = utils.SanitizeInput(reason)
	clarification = utils.SanitizeInput(clarification)

	if !utils.ValidateMinLength(reason, reactivationReasonMinLen) {
		return nil, fmt.Errorf("%w: reason must be at least %d characters", ErrInvalidInput, reactivationReasonMinLen)
	}
	if !utils.ValidateMinLength(clarification, reactivationClarificationMinLen) {
		return nil, fmt.Errorf("%w: clarification must be at least %d characters", ErrInvalidInput, reactivationClarificationMinLen)
	}

	reviewer, err := s.directory.Get(reviewerID)
	if err != nil {
		return nil, err
	}
	if reviewer.IsActive {
		return nil, ErrAlreadyActive
	}

	var pendingCount int64
	if err := s.db.Model(&models.ReactivationRequest{}).
		Where("reviewer_id = ? AND status = ?", reviewerID, models.ReactivationPending).
		Count(&pendingCount).Error; err != nil {
		return nil, err
	}
	if pendingCount > 0 {
		return nil, ErrDuplicatePending
	}

	request := models.ReactivationRequest{
		ReviewerID:    reviewerID,
		Reason:        reason,
		Clarification: clarification,
		Status:        models.ReactivationPending,
		RequestedAt:   s.clock.Now(),
	}
	if err := s.db.Create(&request).Error; err != nil {
		return nil, err
	}

	s.notifier.NotifyRole(models.RoleAdmin,
		"Reactivation request submitted",
		fmt.Sprintf("%s has requested account reactivation.", reviewer.FullName()),
		"info", nil)

	return &request, nil
}

// Decide resolves the reviewer's pending request. Approval reinstates the
// account through the directory; rejection stores the admin notes. Either way
// the request is stamped with the deciding admin and time and becomes
// immutable.
func (s *ReactivationService) Decide(reviewerID, adminID int, approve bool, notes string) (*models.ReactivationRequest, error) {
	notes = strings.TrimSpace(notes)
	now := s.clock.Now()

	var request models.ReactivationRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("reviewer_id = ? AND status = ?", reviewerID, models.ReactivationPending).
			Order("requested_at DESC").
			First(&request).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		status := models.ReactivationRejected
		if approve {
			status = models.ReactivationApproved
		}
		updates := map[string]interface{}{
			"status":      status,
			"reviewed_by": adminID,
			"reviewed_at": now,
		}
		if notes != "" {
			updates["admin_notes"] = notes
		}
		if err := tx.Model(&models.ReactivationRequest{}).
			Where("request_id = ?", request.RequestID).
			Updates(updates).Error; err != nil {
			return err
		}

		if approve {
			if err := s.directory.WithTx(tx).Reactivate(reviewerID); err != nil {
				return err
			}
		}

		request.Status = status
		request.ReviewedBy = &adminID
		request.ReviewedAt = &now
		if notes != "" {
			request.AdminNotes = &notes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if request.Status == models.ReactivationApproved {
		s.notifier.Notify(reviewerID,
			"Account reactivated",
			"Your reviewer account has been reactivated. You may receive new assignments.",
			"success", nil)
	} else {
		s.notifier.Notify(reviewerID,
			"Reactivation request rejected",
			"Your reactivation request was rejected. You may submit a new request.",
			"warning", nil)
	}

	return &request, nil
}

// Pending lists all pending reactivation requests, oldest first.
func (s *ReactivationService) Pending() ([]models.ReactivationRequest, error) {
	var requests []models.ReactivationRequest
	err := s.db.Preload("Reviewer").
		Where("status = ?", models.ReactivationPending).
		Order("requested_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// ForReviewer lists a reviewer's own requests, newest first.
func (s *ReactivationService) ForReviewer(reviewerID int) ([]models.ReactivationRequest, error) {
	var requests []models.ReactivationRequest
	err := s.db.
		Where("reviewer_id = ?", reviewerID).
		Order("requested_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
