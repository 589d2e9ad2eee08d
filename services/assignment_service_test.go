package services

import (
	"testing"
	"time"

	"loan-management-api/models"
	"loan-management-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAssignmentFixture(t *testing.T) (*gorm.DB, *AssignmentService, *fakeClock) {
	db := newTestDB(t)
	clock := newFakeClock()
	directory := NewDirectoryService(db)
	notifier := NewNotificationService(db)
	svc := NewAssignmentService(db, directory, notifier, clock, utils.NewSeededRand(42))
	return db, svc, clock
}

func TestAssignAttachesPoolThresholdAndDeadline(t *testing.T) {
	db, svc, clock := newAssignmentFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	for _, email := range []string{"dsa1@example.com", "dsa2@example.com", "dsa3@example.com", "dsa4@example.com"} {
		createDSA(t, db, email)
	}
	application := createApplication(t, db, applicant.UserID)

	result, err := svc.Assign(application.ApplicationID, admin.UserID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnderReview, result.Application.Status)
	assert.GreaterOrEqual(t, len(result.AssignedReviewers), 2)
	assert.LessOrEqual(t, len(result.AssignedReviewers), 3)
	assert.Equal(t, 2, result.ApprovalThreshold)
	assert.LessOrEqual(t, result.ApprovalThreshold, len(result.AssignedReviewers))
	assert.Equal(t, clock.Now().Add(ReviewWindow), result.ReviewDeadline)

	decisions := result.Application.Decisions
	require.Len(t, decisions, len(result.AssignedReviewers))
	seen := map[int]bool{}
	for i, d := range decisions {
		assert.Equal(t, models.VerdictPending, d.Verdict)
		assert.Equal(t, i+1, d.AssignedOrder)
		assert.False(t, seen[d.ReviewerID], "reviewer assigned twice")
		seen[d.ReviewerID] = true
	}

	var history []models.ApplicationStatusHistory
	require.NoError(t, db.Where("application_id = ?", application.ApplicationID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusUnderReview, history[0].NewStatus)

	// Each assigned reviewer got a notification.
	var notified int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("related_application_id = ?", application.ApplicationID).
		Count(&notified).Error)
	assert.Equal(t, int64(len(result.AssignedReviewers)), notified)
}

func TestAssignFailsWithInsufficientReviewers(t *testing.T) {
	db, svc, _ := newAssignmentFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	createDSA(t, db, "only-dsa@example.com")
	application := createApplication(t, db, applicant.UserID)

	_, err := svc.Assign(application.ApplicationID, admin.UserID)
	require.ErrorIs(t, err, ErrInsufficientReviewers)

	// Application must remain untouched.
	updated := reloadApplication(t, db, application.ApplicationID)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Empty(t, updated.Decisions)
	assert.Nil(t, updated.ReviewDeadline)
}

func TestAssignTwiceFails(t *testing.T) {
	db, svc, _ := newAssignmentFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	createDSA(t, db, "dsa1@example.com")
	createDSA(t, db, "dsa2@example.com")
	application := createApplication(t, db, applicant.UserID)

	_, err := svc.Assign(application.ApplicationID, admin.UserID)
	require.NoError(t, err)

	_, err = svc.Assign(application.ApplicationID, admin.UserID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestAssignDrawsOnlyActiveVerifiedDSAs(t *testing.T) {
	db, svc, _ := newAssignmentFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")

	eligible1 := createDSA(t, db, "eligible1@example.com")
	eligible2 := createDSA(t, db, "eligible2@example.com")

	frozen := createDSA(t, db, "frozen@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("user_id = ?", frozen.UserID).
		Updates(map[string]interface{}{"is_active": false, "is_verified": false}).Error)

	unverified := createDSA(t, db, "unverified@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("user_id = ?", unverified.UserID).
		Update("is_verified", false).Error)

	application := createApplication(t, db, applicant.UserID)

	result, err := svc.Assign(application.ApplicationID, admin.UserID)
	require.NoError(t, err)

	// Only the two eligible DSAs can be drawn.
	require.Len(t, result.AssignedReviewers, 2)
	assert.ElementsMatch(t, []int{eligible1.UserID, eligible2.UserID}, result.AssignedReviewers)
	assert.Equal(t, 2, result.ApprovalThreshold)
}

func TestAssignUnknownApplication(t *testing.T) {
	db, svc, _ := newAssignmentFixture(t)

	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	createDSA(t, db, "dsa1@example.com")
	createDSA(t, db, "dsa2@example.com")

	_, err := svc.Assign(9999, admin.UserID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssignDeadlineUsesInjectedClock(t *testing.T) {
	db, svc, clock := newAssignmentFixture(t)

	applicant := createUser(t, db, models.RoleApplicant, "applicant@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	createDSA(t, db, "dsa1@example.com")
	createDSA(t, db, "dsa2@example.com")

	clock.Advance(6 * time.Hour)
	application := createApplication(t, db, applicant.UserID)

	result, err := svc.Assign(application.ApplicationID, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(72*time.Hour), result.ReviewDeadline)
}
