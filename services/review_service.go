package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"loan-management-api/models"

	"gorm.io/gorm"
)

// ReviewService is the state machine that accepts individual DSA decisions
// and aggregates them against the application's approval threshold.
//
// Transitions: under_review -> approved once the threshold is met, and
// under_review -> rejected on the first rejection (reject-one-reject-all;
// review never waits for a rejection consensus). Terminal applications accept
// no further decisions.
type ReviewService struct {
	db        *gorm.DB
	directory *DirectoryService
	notifier  *NotificationService
	clock     Clock
}

func NewReviewService(db *gorm.DB, directory *DirectoryService, notifier *NotificationService, clock Clock) *ReviewService {
	return &ReviewService{
		db:        db,
		directory: directory,
		notifier:  notifier,
		clock:     clock,
	}
}

// SubmitDecision records one reviewer's verdict and re-evaluates the
// aggregate. All checks and writes run under the per-application lock inside
// a single transaction, so two simultaneous decisions cannot both race past
// the threshold check.
func (s *ReviewService) SubmitDecision(applicationID, reviewerID int, verdict, comment string) (*models.LoanApplication, error) {
	verdict = strings.ToLower(strings.TrimSpace(verdict))
	if verdict != models.VerdictApproved && verdict != models.VerdictRejected {
		return nil, fmt.Errorf("%w: verdict must be approved or rejected", ErrInvalidInput)
	}

	reviewer, err := s.directory.Get(reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.IsActive {
		return nil, ErrAccountFrozen
	}

	lock := applicationLocks.forApplication(applicationID)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock.Now()
	comment = strings.TrimSpace(comment)

	var newStatus string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var application models.LoanApplication
		err := tx.Where("application_id = ? AND delete_at IS NULL", applicationID).
			First(&application).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if application.Status != models.StatusUnderReview {
			return fmt.Errorf("%w: application is %s", ErrInvalidState, application.Status)
		}
		if application.ReviewDeadline != nil && now.After(*application.ReviewDeadline) {
			return ErrDeadlineExpired
		}

		var slot models.ReviewDecision
		err = tx.Where("application_id = ? AND reviewer_id = ?", applicationID, reviewerID).
			First(&slot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotAssigned
		}
		if err != nil {
			return err
		}
		if slot.Verdict != models.VerdictPending {
			return ErrAlreadyReviewed
		}

		updates := map[string]interface{}{
			"verdict":    verdict,
			"decided_at": now,
		}
		if comment != "" {
			updates["comment"] = comment
		}
		if err := tx.Model(&models.ReviewDecision{}).
			Where("decision_id = ?", slot.DecisionID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := s.directory.WithTx(tx).RecordOutcome(reviewerID, verdict); err != nil {
			return err
		}

		var decisions []models.ReviewDecision
		if err := tx.Where("application_id = ?", applicationID).
			Order("assigned_order ASC").
			Find(&decisions).Error; err != nil {
			return err
		}

		approved := 0
		for _, d := range decisions {
			if d.Verdict == models.VerdictApproved {
				approved++
			}
		}

		newStatus = models.StatusUnderReview
		appUpdates := map[string]interface{}{
			"version":   gorm.Expr("version + 1"),
			"update_at": now,
		}
		switch {
		case verdict == models.VerdictRejected:
			newStatus = models.StatusRejected
			appUpdates["status"] = newStatus
			appUpdates["rejected_at"] = now
			appUpdates["rejected_by"] = reviewerID
			if comment != "" {
				appUpdates["rejection_reason"] = comment
			}
		case approved >= application.ApprovalThreshold:
			newStatus = models.StatusApproved
			appUpdates["status"] = newStatus
			appUpdates["approved_at"] = now
			appUpdates["approved_by"] = reviewerID
		}

		if err := tx.Model(&models.LoanApplication{}).
			Where("application_id = ?", applicationID).
			Updates(appUpdates).Error; err != nil {
			return err
		}

		oldStatus := application.Status
		notes := fmt.Sprintf("decision:%s;reviewer=%d", verdict, reviewerID)
		history := models.ApplicationStatusHistory{
			ApplicationID: applicationID,
			OldStatus:     &oldStatus,
			NewStatus:     newStatus,
			ChangedBy:     reviewerID,
			Notes:         &notes,
			CreatedAt:     now,
		}
		if comment != "" {
			history.Reason = &comment
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}

	var updated models.LoanApplication
	if err := s.db.Preload("Decisions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assigned_order ASC")
	}).Where("application_id = ?", applicationID).First(&updated).Error; err != nil {
		return nil, err
	}

	switch newStatus {
	case models.StatusApproved:
		s.notifier.Notify(updated.UserID,
			"Loan application approved",
			fmt.Sprintf("Your application %s has been approved.", updated.ApplicationNumber),
			"success", &applicationID)
	case models.StatusRejected:
		s.notifier.Notify(updated.UserID,
			"Loan application rejected",
			fmt.Sprintf("Your application %s has been rejected.", updated.ApplicationNumber),
			"error", &applicationID)
	}

	return &updated, nil
}

// ReviewStatus is the read model for an application's review progress.
type ReviewStatus struct {
	ApplicationID     int                     `json:"application_id"`
	ApplicationNumber string                  `json:"application_number"`
	Status            string                  `json:"status"`
	ReviewState       string                  `json:"review_state"`
	ApprovalThreshold int                     `json:"approval_threshold"`
	ApprovedCount     int                     `json:"approved_count"`
	RejectedCount     int                     `json:"rejected_count"`
	PendingCount      int                     `json:"pending_count"`
	ReviewDeadline    *time.Time              `json:"review_deadline,omitempty"`
	Decisions         []models.ReviewDecision `json:"decisions"`
}

// GetReviewStatus returns the current aggregate for an application.
func (s *ReviewService) GetReviewStatus(applicationID int) (*ReviewStatus, error) {
	var application models.LoanApplication
	err := s.db.Preload("Decisions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assigned_order ASC")
	}).Preload("Decisions.Reviewer").
		Where("application_id = ? AND delete_at IS NULL", applicationID).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	status := &ReviewStatus{
		ApplicationID:     application.ApplicationID,
		ApplicationNumber: application.ApplicationNumber,
		Status:            application.Status,
		ReviewState:       application.ReviewState(),
		ApprovalThreshold: application.ApprovalThreshold,
		ReviewDeadline:    application.ReviewDeadline,
		Decisions:         application.Decisions,
	}
	for _, d := range application.Decisions {
		switch d.Verdict {
		case models.VerdictApproved:
			status.ApprovedCount++
		case models.VerdictRejected:
			status.RejectedCount++
		default:
			status.PendingCount++
		}
	}
	return status, nil
}
