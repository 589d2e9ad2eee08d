package models

import "time"

// Decision verdicts.
const (
	VerdictPending  = "pending"
	VerdictApproved = "approved"
	VerdictRejected = "rejected"
)

// ReviewDecision is one DSA's decision slot on a loan application. A slot is
// created with verdict pending when the reviewer is assigned and is decided
// at most once.
type ReviewDecision struct {
	DecisionID    int        `gorm:"primaryKey;column:decision_id" json:"decision_id"`
	ApplicationID int        `gorm:"column:application_id;uniqueIndex:uq_application_reviewer" json:"application_id"`
	ReviewerID    int        `gorm:"column:reviewer_id;uniqueIndex:uq_application_reviewer" json:"reviewer_id"`
	Verdict       string     `gorm:"column:verdict" json:"verdict"`
	Comment       *string    `gorm:"column:comment" json:"comment,omitempty"`
	AssignedOrder int        `gorm:"column:assigned_order" json:"assigned_order"`
	AssignedAt    time.Time  `gorm:"column:assigned_at" json:"assigned_at"`
	DecidedAt     *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table for ReviewDecision.
func (ReviewDecision) TableName() string {
	return "review_decisions"
}
