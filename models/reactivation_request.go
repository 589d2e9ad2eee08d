package models

import "time"

// Reactivation request statuses.
const (
	ReactivationPending  = "pending"
	ReactivationApproved = "approved"
	ReactivationRejected = "rejected"
)

// ReactivationRequest is a frozen DSA's petition for reinstatement. At most
// one pending request exists per reviewer; terminal requests are immutable.
type ReactivationRequest struct {
	RequestID     int        `gorm:"primaryKey;column:request_id" json:"request_id"`
	ReviewerID    int        `gorm:"column:reviewer_id" json:"reviewer_id"`
	Reason        string     `gorm:"column:reason" json:"reason"`
	Clarification string     `gorm:"column:clarification" json:"clarification"`
	Status        string     `gorm:"column:status" json:"status"`
	RequestedAt   time.Time  `gorm:"column:requested_at" json:"requested_at"`
	ReviewedBy    *int       `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	AdminNotes    *string    `gorm:"column:admin_notes" json:"admin_notes,omitempty"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table for ReactivationRequest.
func (ReactivationRequest) TableName() string {
	return "reactivation_requests"
}
