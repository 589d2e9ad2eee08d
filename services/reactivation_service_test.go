package services

import (
	"testing"
	"time"

	"loan-management-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newReactivationFixture(t *testing.T) (*gorm.DB, *ReactivationService, *DirectoryService) {
	db := newTestDB(t)
	directory := NewDirectoryService(db)
	notifier := NewNotificationService(db)
	svc := NewReactivationService(db, directory, notifier, newFakeClock())
	return db, svc, directory
}

func frozenDSA(t *testing.T, db *gorm.DB, directory *DirectoryService, email string) *models.User {
	t.Helper()
	dsa := createDSA(t, db, email)
	require.NoError(t, directory.Freeze(dsa.UserID))
	return reloadUser(t, db, dsa.UserID)
}

func TestRequestValidatesLengths(t *testing.T) {
	db, svc, directory := newReactivationFixture(t)
	dsa := frozenDSA(t, db, directory, "dsa@example.com")

	_, err := svc.Request(dsa.UserID, "short", "I underestimated my workload this month and will reduce caseload")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Request(dsa.UserID, "far too busy lately", "too short")
	require.ErrorIs(t, err, ErrInvalidInput)

	// Nothing was created.
	var count int64
	require.NoError(t, db.Model(&models.ReactivationRequest{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRequestThenDuplicatePendingFails(t *testing.T) {
	db, svc, directory := newReactivationFixture(t)
	dsa := frozenDSA(t, db, directory, "dsa@example.com")

	request, err := svc.Request(dsa.UserID, "far too busy lately",
		"I underestimated my workload this month and will reduce caseload")
	require.NoError(t, err)
	assert.Equal(t, models.ReactivationPending, request.Status)

	_, err = svc.Request(dsa.UserID, "still far too busy",
		"a second petition before the first one was even decided")
	require.ErrorIs(t, err, ErrDuplicatePending)
}

func TestRequestFromActiveReviewerFails(t *testing.T) {
	db, svc, _ := newReactivationFixture(t)
	dsa := createDSA(t, db, "dsa@example.com")

	_, err := svc.Request(dsa.UserID, "far too busy lately",
		"I underestimated my workload this month and will reduce caseload")
	require.ErrorIs(t, err, ErrAlreadyActive)
}

func TestRequestUnknownReviewerFails(t *testing.T) {
	_, svc, _ := newReactivationFixture(t)

	_, err := svc.Request(404, "far too busy lately",
		"I underestimated my workload this month and will reduce caseload")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDecideApproveReinstatesReviewer(t *testing.T) {
	db, svc, directory := newReactivationFixture(t)
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	dsa := frozenDSA(t, db, directory, "dsa@example.com")
	require.NoError(t, db.Model(&models.User{}).Where("user_id = ?", dsa.UserID).
		Update("missed_deadline_count", 3).Error)

	_, err := svc.Request(dsa.UserID, "far too busy lately",
		"I underestimated my workload this month and will reduce caseload")
	require.NoError(t, err)

	request, err := svc.Decide(dsa.UserID, admin.UserID, true, "second chance")
	require.NoError(t, err)
	assert.Equal(t, models.ReactivationApproved, request.Status)
	require.NotNil(t, request.ReviewedBy)
	assert.Equal(t, admin.UserID, *request.ReviewedBy)
	require.NotNil(t, request.ReviewedAt)

	reviewer := reloadUser(t, db, dsa.UserID)
	assert.True(t, reviewer.IsActive)
	assert.True(t, reviewer.IsVerified)
	assert.Equal(t, 0, reviewer.MissedDeadlineCount)
}

func TestDecideRejectKeepsReviewerFrozenAndAllowsNewRequest(t *testing.T) {
	db, svc, directory := newReactivationFixture(t)
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	dsa := frozenDSA(t, db, directory, "dsa@example.com")

	_, err := svc.Request(dsa.UserID, "far too busy lately",
		"I underestimated my workload this month and will reduce caseload")
	require.NoError(t, err)

	request, err := svc.Decide(dsa.UserID, admin.UserID, false, "pattern of missed deadlines")
	require.NoError(t, err)
	assert.Equal(t, models.ReactivationRejected, request.Status)
	require.NotNil(t, request.AdminNotes)
	assert.Equal(t, "pattern of missed deadlines", *request.AdminNotes)

	reviewer := reloadUser(t, db, dsa.UserID)
	assert.False(t, reviewer.IsActive)

	// A new request is allowed after a rejection.
	_, err = svc.Request(dsa.UserID, "ready to return now",
		"my workload has been reduced and I can review reliably again")
	require.NoError(t, err)
}

func TestDecideWithoutPendingRequestFails(t *testing.T) {
	db, svc, directory := newReactivationFixture(t)
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")
	dsa := frozenDSA(t, db, directory, "dsa@example.com")

	_, err := svc.Decide(dsa.UserID, admin.UserID, true, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPendingListsOldestFirst(t *testing.T) {
	db, svc, directory := newReactivationFixture(t)
	dsa1 := frozenDSA(t, db, directory, "dsa1@example.com")
	dsa2 := frozenDSA(t, db, directory, "dsa2@example.com")

	_, err := svc.Request(dsa1.UserID, "far too busy lately",
		"I underestimated my workload this month and will reduce caseload")
	require.NoError(t, err)
	svc.clock.(*fakeClock).Advance(time.Minute)
	_, err = svc.Request(dsa2.UserID, "family emergency abroad",
		"I was unexpectedly out of the country for several weeks")
	require.NoError(t, err)

	pending, err := svc.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, dsa1.UserID, pending[0].ReviewerID)
	assert.Equal(t, dsa2.UserID, pending[1].ReviewerID)
}
