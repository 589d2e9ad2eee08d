package services

import (
	"testing"
	"time"

	"loan-management-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSweeperFixture(t *testing.T) (*gorm.DB, *SweeperService, *ReviewService, *fakeClock) {
	db := newTestDB(t)
	clock := newFakeClock()
	directory := NewDirectoryService(db)
	notifier := NewNotificationService(db)
	sweeper := NewSweeperService(db, directory, notifier, clock)
	review := NewReviewService(db, directory, notifier, clock)
	return db, sweeper, review, clock
}

func TestSweepFreezesNonRespondersAndResetsAbandonedApplication(t *testing.T) {
	db, sweeper, _, clock := newSweeperFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	r1 := createDSA(t, db, "dsa1@example.com")
	r2 := createDSA(t, db, "dsa2@example.com")
	application := createApplication(t, db, applicant.UserID)
	startReviewCycle(t, db, clock, application, []*models.User{r1, r2}, 2)

	clock.Advance(ReviewWindow + time.Minute)

	report, err := sweeper.Sweep(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FrozenReviewers)
	assert.Equal(t, 1, report.ResetApplications)
	assert.Equal(t, 0, report.EscalatedApplications)

	for _, id := range []int{r1.UserID, r2.UserID} {
		reviewer := reloadUser(t, db, id)
		assert.False(t, reviewer.IsActive)
		assert.False(t, reviewer.IsVerified)
		assert.Equal(t, 1, reviewer.MissedDeadlineCount)
	}

	updated := reloadApplication(t, db, application.ApplicationID)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Empty(t, updated.Decisions)
	assert.Nil(t, updated.ReviewDeadline)
	assert.Nil(t, updated.AssignedAt)
	assert.Equal(t, 0, updated.ApprovalThreshold)
}

func TestSweepEscalatesPartiallyReviewedApplication(t *testing.T) {
	db, sweeper, review, clock := newSweeperFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	r1 := createDSA(t, db, "dsa1@example.com")
	r2 := createDSA(t, db, "dsa2@example.com")
	r3 := createDSA(t, db, "dsa3@example.com")
	application := createApplication(t, db, applicant.UserID)
	startReviewCycle(t, db, clock, application, []*models.User{r1, r2, r3}, 2)

	_, err := review.SubmitDecision(application.ApplicationID, r1.UserID, models.VerdictApproved, "looks fine")
	require.NoError(t, err)

	clock.Advance(ReviewWindow + time.Minute)

	report, err := sweeper.Sweep(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, report.FrozenReviewers)
	assert.Equal(t, 0, report.ResetApplications)
	assert.Equal(t, 1, report.EscalatedApplications)

	updated := reloadApplication(t, db, application.ApplicationID)
	assert.Equal(t, models.StatusNeedsAdminDecision, updated.Status)
	// Recorded decisions survive escalation.
	require.Len(t, updated.Decisions, 3)
	assert.Equal(t, models.VerdictApproved, updated.Decisions[0].Verdict)

	// The responsive reviewer is untouched.
	responsive := reloadUser(t, db, r1.UserID)
	assert.True(t, responsive.IsActive)
	assert.Equal(t, 0, responsive.MissedDeadlineCount)

	// Admins were notified about the escalation.
	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", admin.UserID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, "warning", notifications[0].Type)
}

func TestSweepIsIdempotent(t *testing.T) {
	db, sweeper, _, clock := newSweeperFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	r1 := createDSA(t, db, "dsa1@example.com")
	r2 := createDSA(t, db, "dsa2@example.com")
	application := createApplication(t, db, applicant.UserID)
	startReviewCycle(t, db, clock, application, []*models.User{r1, r2}, 2)

	clock.Advance(ReviewWindow + time.Minute)
	now := clock.Now()

	first, err := sweeper.Sweep(now)
	require.NoError(t, err)
	require.Equal(t, 2, first.FrozenReviewers)
	require.Equal(t, 1, first.ResetApplications)

	second, err := sweeper.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FrozenReviewers)
	assert.Equal(t, 0, second.ResetApplications)
	assert.Equal(t, 0, second.EscalatedApplications)

	// No double increment on re-run.
	reviewer := reloadUser(t, db, r1.UserID)
	assert.Equal(t, 1, reviewer.MissedDeadlineCount)
}

// A reviewer two misses deep gets frozen on the third.
func TestThirdMissedDeadlineFreezesReviewer(t *testing.T) {
	db, sweeper, _, clock := newSweeperFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	r1 := createDSA(t, db, "dsa1@example.com")
	r2 := createDSA(t, db, "dsa2@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("user_id = ?", r1.UserID).
		Update("missed_deadline_count", 2).Error)

	application := createApplication(t, db, applicant.UserID)
	startReviewCycle(t, db, clock, application, []*models.User{r1, r2}, 2)

	clock.Advance(ReviewWindow + time.Minute)
	_, err := sweeper.Sweep(clock.Now())
	require.NoError(t, err)

	reviewer := reloadUser(t, db, r1.UserID)
	assert.Equal(t, 3, reviewer.MissedDeadlineCount)
	assert.False(t, reviewer.IsActive)
}

func TestSweepIgnoresApplicationsBeforeDeadline(t *testing.T) {
	db, sweeper, _, clock := newSweeperFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	r1 := createDSA(t, db, "dsa1@example.com")
	r2 := createDSA(t, db, "dsa2@example.com")
	application := createApplication(t, db, applicant.UserID)
	startReviewCycle(t, db, clock, application, []*models.User{r1, r2}, 2)

	clock.Advance(time.Hour)

	report, err := sweeper.Sweep(clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, report.FrozenReviewers)
	assert.Equal(t, 0, report.ResetApplications)

	updated := reloadApplication(t, db, application.ApplicationID)
	assert.Equal(t, models.StatusUnderReview, updated.Status)
	reviewer := reloadUser(t, db, r1.UserID)
	assert.True(t, reviewer.IsActive)
}

func TestSweepThenLateDecisionAgreeOnOutcome(t *testing.T) {
	db, sweeper, review, clock := newSweeperFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	r1 := createDSA(t, db, "dsa1@example.com")
	r2 := createDSA(t, db, "dsa2@example.com")
	application := createApplication(t, db, applicant.UserID)
	startReviewCycle(t, db, clock, application, []*models.User{r1, r2}, 2)

	clock.Advance(ReviewWindow + time.Minute)

	_, err := sweeper.Sweep(clock.Now())
	require.NoError(t, err)

	// After the sweep reset, a late decision cannot sneak in: the reviewer is
	// frozen and the application is back in pending.
	_, err = review.SubmitDecision(application.ApplicationID, r1.UserID, models.VerdictApproved, "")
	require.Error(t, err)
	assert.Equal(t, models.StatusPending, reloadApplication(t, db, application.ApplicationID).Status)
}
