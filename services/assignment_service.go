package services

import (
	"errors"
	"fmt"
	"time"

	"loan-management-api/models"
	"loan-management-api/utils"

	"gorm.io/gorm"
)

const (
	// ReviewWindow is how long an assigned pool has to decide before the
	// sweeper steps in.
	ReviewWindow = 72 * time.Hour

	minReviewersPerApplication = 2
	maxReviewersPerApplication = 3
	approvalThresholdCap       = 2
)

// AssignmentService attaches a reviewer pool, an approval threshold and a
// review deadline to a pending application.
type AssignmentService struct {
	db        *gorm.DB
	directory *DirectoryService
	notifier  *NotificationService
	clock     Clock
	rng       *utils.LockedRand
}

func NewAssignmentService(db *gorm.DB, directory *DirectoryService, notifier *NotificationService, clock Clock, rng *utils.LockedRand) *AssignmentService {
	return &AssignmentService{
		db:        db,
		directory: directory,
		notifier:  notifier,
		clock:     clock,
		rng:       rng,
	}
}

// AssignmentResult reports what a successful assignment attached.
type AssignmentResult struct {
	Application       *models.LoanApplication `json:"application"`
	AssignedReviewers []int                   `json:"assigned_reviewers"`
	ApprovalThreshold int                     `json:"approval_threshold"`
	ReviewDeadline    time.Time               `json:"review_deadline"`
}

// Assign draws a random pool from the active+verified DSAs, sets the
// threshold and deadline, creates one pending decision slot per reviewer and
// moves the application to under_review. Assignment happens exactly once per
// review cycle; a second call fails with ErrInvalidState.
func (s *AssignmentService) Assign(applicationID, actorID int) (*AssignmentResult, error) {
	var application models.LoanApplication
	err := s.db.Where("application_id = ? AND delete_at IS NULL", applicationID).
		First(&application).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if application.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: application is %s", ErrInvalidState, application.Status)
	}

	pool, err := s.directory.ListActive()
	if err != nil {
		return nil, err
	}
	if len(pool) < minReviewersPerApplication {
		return nil, ErrInsufficientReviewers
	}

	selected := s.drawPool(pool)
	threshold := approvalThresholdCap
	if len(selected) < threshold {
		threshold = len(selected)
	}

	now := s.clock.Now()
	deadline := now.Add(ReviewWindow)

	lock := applicationLocks.forApplication(applicationID)
	lock.Lock()
	defer lock.Unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Status may have moved between the read above and taking the lock.
		var current models.LoanApplication
		if err := tx.Where("application_id = ? AND delete_at IS NULL", applicationID).
			First(&current).Error; err != nil {
			return err
		}
		if current.Status != models.StatusPending {
			return fmt.Errorf("%w: application is %s", ErrInvalidState, current.Status)
		}

		if err := tx.Model(&models.LoanApplication{}).
			Where("application_id = ?", applicationID).
			Updates(map[string]interface{}{
				"status":             models.StatusUnderReview,
				"approval_threshold": threshold,
				"review_deadline":    deadline,
				"assigned_at":        now,
				"version":            gorm.Expr("version + 1"),
				"update_at":          now,
			}).Error; err != nil {
			return err
		}

		for i, reviewer := range selected {
			decision := models.ReviewDecision{
				ApplicationID: applicationID,
				ReviewerID:    reviewer.UserID,
				Verdict:       models.VerdictPending,
				AssignedOrder: i + 1,
				AssignedAt:    now,
			}
			if err := tx.Create(&decision).Error; err != nil {
				return err
			}
		}

		oldStatus := current.Status
		notes := fmt.Sprintf("assigned_reviewers=%d;threshold=%d", len(selected), threshold)
		history := models.ApplicationStatusHistory{
			ApplicationID: applicationID,
			OldStatus:     &oldStatus,
			NewStatus:     models.StatusUnderReview,
			ChangedBy:     actorID,
			Notes:         &notes,
			CreatedAt:     now,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}

	reviewerIDs := make([]int, len(selected))
	for i, reviewer := range selected {
		reviewerIDs[i] = reviewer.UserID
		s.notifier.Notify(reviewer.UserID,
			"New loan application assigned",
			fmt.Sprintf("Application %s is awaiting your review. The review deadline is %s.",
				application.ApplicationNumber, deadline.Format(time.RFC1123)),
			"info", &applicationID)
	}

	var updated models.LoanApplication
	if err := s.db.Preload("Decisions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assigned_order ASC")
	}).Where("application_id = ?", applicationID).First(&updated).Error; err != nil {
		return nil, err
	}

	return &AssignmentResult{
		Application:       &updated,
		AssignedReviewers: reviewerIDs,
		ApprovalThreshold: threshold,
		ReviewDeadline:    deadline,
	}, nil
}

// drawPool picks min(rand{2,3}, len(pool)) reviewers uniformly at random.
// Selection is independent per application; even load distribution is not a
// goal.
func (s *AssignmentService) drawPool(pool []models.User) []models.User {
	size := minReviewersPerApplication + s.rng.Intn(maxReviewersPerApplication-minReviewersPerApplication+1)
	if size > len(pool) {
		size = len(pool)
	}

	shuffled := make([]models.User, len(pool))
	copy(shuffled, pool)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:size]
}
