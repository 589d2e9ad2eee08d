package controllers

import (
	"loan-management-api/services"
	"loan-management-api/utils"

	"gorm.io/gorm"
)

var (
	directoryService    *services.DirectoryService
	notificationService *services.NotificationService
	assignmentService   *services.AssignmentService
	reviewService       *services.ReviewService
	sweeperService      *services.SweeperService
	reactivationService *services.ReactivationService
)

// InitServices wires the workflow services onto the given database handle.
// Called once from main after the database is up.
func InitServices(db *gorm.DB) {
	clock := services.SystemClock
	rng := utils.NewLockedRand()

	directoryService = services.NewDirectoryService(db)
	notificationService = services.NewNotificationService(db)
	assignmentService = services.NewAssignmentService(db, directoryService, notificationService, clock, rng)
	reviewService = services.NewReviewService(db, directoryService, notificationService, clock)
	sweeperService = services.NewSweeperService(db, directoryService, notificationService, clock)
	reactivationService = services.NewReactivationService(db, directoryService, notificationService, clock)
}

// Sweeper exposes the sweeper for the background runner in main.
func Sweeper() *services.SweeperService {
	return sweeperService
}
