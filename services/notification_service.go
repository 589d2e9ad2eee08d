package services

import (
	"fmt"
	"log"
	"time"

	"loan-management-api/config"
	"loan-management-api/models"

	"gorm.io/gorm"
)

// NotificationService persists in-app notifications and relays them by email
// on a best-effort basis. Delivery is never confirmed; failures are logged
// and otherwise ignored.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Notify stores a notification row for the user and sends a best-effort
// email copy.
func (s *NotificationService) Notify(userID int, title, message, notifType string, applicationID *int) error {
	notification := models.Notification{
		UserID:               userID,
		Title:                title,
		Message:              message,
		Type:                 notifType,
		RelatedApplicationID: applicationID,
		CreateAt:             time.Now(),
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return err
	}

	var user models.User
	if err := s.db.Select("email").Where("user_id = ? AND delete_at IS NULL", userID).
		First(&user).Error; err != nil {
		return nil
	}
	if user.Email == "" {
		return nil
	}

	email := user.Email
	go func() {
		html := fmt.Sprintf("<p>%s</p>", message)
		if err := config.SendMail([]string{email}, title, html); err != nil {
			log.Printf("Warning: failed to send notification mail to %s: %v", email, err)
		}
	}()

	return nil
}

// NotifyRole notifies every active user holding the given role.
func (s *NotificationService) NotifyRole(roleID int, title, message, notifType string, applicationID *int) error {
	var users []models.User
	if err := s.db.Select("user_id").
		Where("role_id = ? AND delete_at IS NULL", roleID).
		Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		if err := s.Notify(u.UserID, title, message, notifType, applicationID); err != nil {
			return err
		}
	}
	return nil
}
