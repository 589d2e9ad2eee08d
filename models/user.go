package models

import (
	"time"
)

// Role IDs used across the API.
const (
	RoleApplicant = 1
	RoleDSA       = 2
	RoleAdmin     = 3
)

type User struct {
	UserID    int     `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname string  `gorm:"column:user_fname" json:"user_fname"`
	UserLname string  `gorm:"column:user_lname" json:"user_lname"`
	Email     string  `gorm:"column:email;unique" json:"email"`
	Phone     *string `gorm:"column:phone" json:"phone,omitempty"`
	Password  string  `gorm:"column:password" json:"-"`
	RoleID    int     `gorm:"column:role_id" json:"role_id"`

	// DSA account state. A DSA only receives assignments while both
	// is_active and is_verified are set.
	IsActive   bool `gorm:"column:is_active" json:"is_active"`
	IsVerified bool `gorm:"column:is_verified" json:"is_verified"`

	// DSA performance counters, maintained as atomic increments on write.
	MissedDeadlineCount int `gorm:"column:missed_deadline_count" json:"missed_deadline_count"`
	TotalReviewed       int `gorm:"column:total_reviewed" json:"total_reviewed"`
	ApprovedCount       int `gorm:"column:approved_count" json:"approved_count"`
	RejectedCount       int `gorm:"column:rejected_count" json:"rejected_count"`

	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// FullName joins first and last name for display and stamping.
func (u *User) FullName() string {
	return u.UserFname + " " + u.UserLname
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}
