package services

import (
	"errors"
	"time"

	"loan-management-api/models"

	"gorm.io/gorm"
)

// DirectoryService owns DSA account state: who can receive assignments, who
// is frozen, and the per-reviewer performance counters.
type DirectoryService struct {
	db *gorm.DB
}

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

// WithTx returns a copy of the service bound to the given transaction so
// directory mutations commit atomically with the caller's own writes.
func (s *DirectoryService) WithTx(tx *gorm.DB) *DirectoryService {
	return &DirectoryService{db: tx}
}

// ListActive returns DSAs eligible for assignment: active, verified and not
// deleted.
func (s *DirectoryService) ListActive() ([]models.User, error) {
	var reviewers []models.User
	err := s.db.
		Where("role_id = ? AND is_active = ? AND is_verified = ? AND delete_at IS NULL",
			models.RoleDSA, true, true).
		Order("user_id ASC").
		Find(&reviewers).Error
	if err != nil {
		return nil, err
	}
	return reviewers, nil
}

// Get returns a DSA by id.
func (s *DirectoryService) Get(reviewerID int) (*models.User, error) {
	var reviewer models.User
	err := s.db.
		Where("user_id = ? AND role_id = ? AND delete_at IS NULL", reviewerID, models.RoleDSA).
		First(&reviewer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reviewer, nil
}

// Freeze deactivates a DSA account and clears its verification. Freezing an
// already-frozen account is a no-op.
func (s *DirectoryService) Freeze(reviewerID int) error {
	reviewer, err := s.Get(reviewerID)
	if err != nil {
		return err
	}
	if !reviewer.IsActive {
		return nil
	}

	now := time.Now()
	return s.db.Model(&models.User{}).
		Where("user_id = ?", reviewerID).
		Updates(map[string]interface{}{
			"is_active":   false,
			"is_verified": false,
			"update_at":   now,
		}).Error
}

// Reactivate restores a frozen DSA account and resets its missed-deadline
// count. Verification is restored as well; without it a reinstated reviewer
// would never re-enter the assignment pool.
func (s *DirectoryService) Reactivate(reviewerID int) error {
	if _, err := s.Get(reviewerID); err != nil {
		return err
	}

	now := time.Now()
	return s.db.Model(&models.User{}).
		Where("user_id = ?", reviewerID).
		Updates(map[string]interface{}{
			"is_active":             true,
			"is_verified":           true,
			"missed_deadline_count": 0,
			"update_at":             now,
		}).Error
}

// RecordOutcome bumps the reviewer's counters for one decided review. The
// increments run in SQL so concurrent decisions and sweeps cannot lose
// updates.
func (s *DirectoryService) RecordOutcome(reviewerID int, verdict string) error {
	updates := map[string]interface{}{
		"total_reviewed": gorm.Expr("total_reviewed + 1"),
		"update_at":      time.Now(),
	}
	switch verdict {
	case models.VerdictApproved:
		updates["approved_count"] = gorm.Expr("approved_count + 1")
	case models.VerdictRejected:
		updates["rejected_count"] = gorm.Expr("rejected_count + 1")
	default:
		return ErrInvalidInput
	}

	res := s.db.Model(&models.User{}).
		Where("user_id = ? AND role_id = ? AND delete_at IS NULL", reviewerID, models.RoleDSA).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordMissedDeadline bumps the missed-deadline count for a non-responsive
// reviewer. The freeze itself is a separate call.
func (s *DirectoryService) RecordMissedDeadline(reviewerID int) error {
	res := s.db.Model(&models.User{}).
		Where("user_id = ? AND role_id = ? AND delete_at IS NULL", reviewerID, models.RoleDSA).
		Updates(map[string]interface{}{
			"missed_deadline_count": gorm.Expr("missed_deadline_count + 1"),
			"update_at":             time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReviewerStatistics is the read model for a DSA's performance.
type ReviewerStatistics struct {
	ReviewerID          int     `json:"reviewer_id"`
	ReviewerName        string  `json:"reviewer_name"`
	IsActive            bool    `json:"is_active"`
	IsVerified          bool    `json:"is_verified"`
	TotalReviewed       int     `json:"total_reviewed"`
	ApprovedCount       int     `json:"approved_count"`
	RejectedCount       int     `json:"rejected_count"`
	MissedDeadlineCount int     `json:"missed_deadline_count"`
	PendingAssignments  int     `json:"pending_assignments"`
	ApprovalRate        float64 `json:"approval_rate"`
}

// Statistics derives a reviewer's statistics from the stored counters and the
// open decision slots.
func (s *DirectoryService) Statistics(reviewerID int) (*ReviewerStatistics, error) {
	reviewer, err := s.Get(reviewerID)
	if err != nil {
		return nil, err
	}

	var pending int64
	if err := s.db.Model(&models.ReviewDecision{}).
		Where("reviewer_id = ? AND verdict = ?", reviewerID, models.VerdictPending).
		Count(&pending).Error; err != nil {
		return nil, err
	}

	stats := &ReviewerStatistics{
		ReviewerID:          reviewer.UserID,
		ReviewerName:        reviewer.FullName(),
		IsActive:            reviewer.IsActive,
		IsVerified:          reviewer.IsVerified,
		TotalReviewed:       reviewer.TotalReviewed,
		ApprovedCount:       reviewer.ApprovedCount,
		RejectedCount:       reviewer.RejectedCount,
		MissedDeadlineCount: reviewer.MissedDeadlineCount,
		PendingAssignments:  int(pending),
	}
	if reviewer.TotalReviewed > 0 {
		stats.ApprovalRate = float64(reviewer.ApprovedCount) / float64(reviewer.TotalReviewed)
	}
	return stats, nil
}
