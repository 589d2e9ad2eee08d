package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"loan-management-api/models"

	"gorm.io/gorm"
)

// SweeperService enforces review deadlines. Each sweep freezes DSAs who sat
// on a pending decision past the deadline, resets applications nobody
// responded to, and escalates partially-reviewed ones to an administrator.
// Sweeps are idempotent: already-frozen reviewers and already-handled
// applications are skipped on re-run.
type SweeperService struct {
	db        *gorm.DB
	directory *DirectoryService
	notifier  *NotificationService
	clock     Clock
}

func NewSweeperService(db *gorm.DB, directory *DirectoryService, notifier *NotificationService, clock Clock) *SweeperService {
	return &SweeperService{
		db:        db,
		directory: directory,
		notifier:  notifier,
		clock:     clock,
	}
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	FrozenReviewers       int       `json:"frozen_reviewers"`
	ResetApplications     int       `json:"reset_applications"`
	EscalatedApplications int       `json:"escalated_applications"`
	SweptAt               time.Time `json:"swept_at"`
}

// Sweep processes every under_review application whose deadline passed before
// now and which still has pending decisions.
func (s *SweeperService) Sweep(now time.Time) (*SweepReport, error) {
	report := &SweepReport{SweptAt: now}

	var expired []models.LoanApplication
	err := s.db.
		Where("status = ? AND review_deadline IS NOT NULL AND review_deadline < ? AND delete_at IS NULL",
			models.StatusUnderReview, now).
		Order("application_id ASC").
		Find(&expired).Error
	if err != nil {
		return nil, err
	}

	for _, application := range expired {
		frozen, reset, escalated, err := s.sweepApplication(application.ApplicationID, now)
		if err != nil {
			return nil, err
		}
		report.FrozenReviewers += frozen
		if reset {
			report.ResetApplications++
		}
		if escalated {
			report.EscalatedApplications++
		}
	}

	return report, nil
}

// sweepApplication handles one expired application under the same lock used
// for decision submission, so the sweep and a late decision agree on a single
// outcome at the deadline boundary.
func (s *SweeperService) sweepApplication(applicationID int, now time.Time) (frozen int, reset, escalated bool, err error) {
	lock := applicationLocks.forApplication(applicationID)
	lock.Lock()
	defer lock.Unlock()

	var notifyApplicationID int
	var notifyNumber string

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var application models.LoanApplication
		err := tx.Where("application_id = ? AND delete_at IS NULL", applicationID).
			First(&application).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		// A decision may have landed between the scan and taking the lock.
		if application.Status != models.StatusUnderReview ||
			application.ReviewDeadline == nil ||
			!application.ReviewDeadline.Before(now) {
			return nil
		}

		var decisions []models.ReviewDecision
		if err := tx.Where("application_id = ?", applicationID).
			Order("assigned_order ASC").
			Find(&decisions).Error; err != nil {
			return err
		}

		pending := 0
		for _, d := range decisions {
			if d.Verdict != models.VerdictPending {
				continue
			}
			pending++

			var reviewer models.User
			if err := tx.Where("user_id = ? AND delete_at IS NULL", d.ReviewerID).
				First(&reviewer).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if !reviewer.IsActive || !reviewer.IsVerified {
				continue
			}

			txDirectory := s.directory.WithTx(tx)
			if err := txDirectory.RecordMissedDeadline(reviewer.UserID); err != nil {
				return err
			}
			if err := txDirectory.Freeze(reviewer.UserID); err != nil {
				return err
			}
			frozen++
		}

		if pending == 0 {
			return nil
		}

		oldStatus := application.Status
		if pending == len(decisions) {
			// Nobody ever responded: clear the cycle and put the application
			// back in the assignment queue.
			if err := tx.Where("application_id = ?", applicationID).
				Delete(&models.ReviewDecision{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.LoanApplication{}).
				Where("application_id = ?", applicationID).
				Updates(map[string]interface{}{
					"status":             models.StatusPending,
					"approval_threshold": 0,
					"review_deadline":    nil,
					"assigned_at":        nil,
					"version":            gorm.Expr("version + 1"),
					"update_at":          now,
				}).Error; err != nil {
				return err
			}
			reset = true

			notes := "deadline_expired:reset"
			history := models.ApplicationStatusHistory{
				ApplicationID: applicationID,
				OldStatus:     &oldStatus,
				NewStatus:     models.StatusPending,
				ChangedBy:     0,
				Notes:         &notes,
				CreatedAt:     now,
			}
			return tx.Create(&history).Error
		}

		// Some reviewers responded before the deadline: escalate instead of
		// guessing an outcome.
		if err := tx.Model(&models.LoanApplication{}).
			Where("application_id = ?", applicationID).
			Updates(map[string]interface{}{
				"status":    models.StatusNeedsAdminDecision,
				"version":   gorm.Expr("version + 1"),
				"update_at": now,
			}).Error; err != nil {
			return err
		}
		escalated = true
		notifyApplicationID = application.ApplicationID
		notifyNumber = application.ApplicationNumber

		notes := "deadline_expired:escalated"
		history := models.ApplicationStatusHistory{
			ApplicationID: applicationID,
			OldStatus:     &oldStatus,
			NewStatus:     models.StatusNeedsAdminDecision,
			ChangedBy:     0,
			Notes:         &notes,
			CreatedAt:     now,
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return 0, false, false, err
	}

	if escalated {
		s.notifier.NotifyRole(models.RoleAdmin,
			"Loan application needs a decision",
			fmt.Sprintf("Application %s expired with a partial review and needs an administrator decision.", notifyNumber),
			"warning", &notifyApplicationID)
	}

	return frozen, reset, escalated, nil
}

// Run executes Sweep on a fixed interval until the context is cancelled.
func (s *SweeperService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Deadline sweeper running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Deadline sweeper stopped")
			return
		case <-ticker.C:
			report, err := s.Sweep(s.clock.Now())
			if err != nil {
				log.Printf("Warning: deadline sweep failed: %v", err)
				continue
			}
			if report.FrozenReviewers > 0 || report.ResetApplications > 0 || report.EscalatedApplications > 0 {
				log.Printf("Deadline sweep: %d reviewers frozen, %d applications reset, %d escalated",
					report.FrozenReviewers, report.ResetApplications, report.EscalatedApplications)
			}
		}
	}
}
