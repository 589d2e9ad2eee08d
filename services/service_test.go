package services

import (
	"strconv"
	"testing"
	"time"

	"loan-management-api/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClock pins time so deadline behavior is deterministic.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Keep a single connection so every session sees the same in-memory DB.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.LoanApplication{},
		&models.ReviewDecision{},
		&models.ApplicationStatusHistory{},
		&models.ReactivationRequest{},
		&models.Notification{},
	))

	return db
}

func createUser(t *testing.T, db *gorm.DB, roleID int, email string) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		UserFname:  "Test",
		UserLname:  email,
		Email:      email,
		Password:   "hashed",
		RoleID:     roleID,
		IsActive:   true,
		IsVerified: true,
		CreateAt:   &now,
		UpdateAt:   &now,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createDSA(t *testing.T, db *gorm.DB, email string) *models.User {
	return createUser(t, db, models.RoleDSA, email)
}

func createApplication(t *testing.T, db *gorm.DB, userID int) *models.LoanApplication {
	t.Helper()
	now := time.Now()
	application := &models.LoanApplication{
		ApplicationNumber: nextApplicationNumber(),
		UserID:            userID,
		LoanAmount:        250000,
		Purpose:           "home renovation",
		TermMonths:        36,
		Status:            models.StatusPending,
		SubmittedAt:       &now,
		CreateAt:          &now,
		UpdateAt:          &now,
	}
	require.NoError(t, db.Create(application).Error)
	return application
}

var applicationSeq int

func nextApplicationNumber() string {
	applicationSeq++
	return "LN-TEST-" + strconv.Itoa(applicationSeq)
}

// startReviewCycle puts an application under review with the given reviewers
// and threshold, without going through the random assignment engine.
func startReviewCycle(t *testing.T, db *gorm.DB, clock Clock, application *models.LoanApplication, reviewers []*models.User, threshold int) {
	t.Helper()
	now := clock.Now()
	deadline := now.Add(ReviewWindow)

	require.NoError(t, db.Model(&models.LoanApplication{}).
		Where("application_id = ?", application.ApplicationID).
		Updates(map[string]interface{}{
			"status":             models.StatusUnderReview,
			"approval_threshold": threshold,
			"review_deadline":    deadline,
			"assigned_at":        now,
		}).Error)

	for i, reviewer := range reviewers {
		decision := models.ReviewDecision{
			ApplicationID: application.ApplicationID,
			ReviewerID:    reviewer.UserID,
			Verdict:       models.VerdictPending,
			AssignedOrder: i + 1,
			AssignedAt:    now,
		}
		require.NoError(t, db.Create(&decision).Error)
	}
}

func reloadApplication(t *testing.T, db *gorm.DB, id int) *models.LoanApplication {
	t.Helper()
	var application models.LoanApplication
	require.NoError(t, db.Preload("Decisions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assigned_order ASC")
	}).Where("application_id = ?", id).First(&application).Error)
	return &application
}

func reloadUser(t *testing.T, db *gorm.DB, id int) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("user_id = ?", id).First(&user).Error)
	return &user
}
