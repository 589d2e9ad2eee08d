package models

import "time"

// Stored application statuses.
const (
	StatusPending            = "pending"
	StatusUnderReview        = "under_review"
	StatusApproved           = "approved"
	StatusRejected           = "rejected"
	StatusNeedsAdminDecision = "needs_admin_decision"
)

// ReviewStatePartiallyApproved is a derived label only, never stored. It is
// reported while an application is under review with some approvals in but
// the threshold not yet met.
const ReviewStatePartiallyApproved = "partially_approved"

type LoanApplication struct {
	ApplicationID     int     `gorm:"primaryKey;column:application_id" json:"application_id"`
	ApplicationNumber string  `gorm:"column:application_number;unique" json:"application_number"`
	UserID            int     `gorm:"column:user_id" json:"user_id"`
	LoanAmount        float64 `gorm:"column:loan_amount" json:"loan_amount"`
	Purpose           string  `gorm:"column:purpose" json:"purpose"`
	TermMonths        int     `gorm:"column:term_months" json:"term_months"`
	Status            string  `gorm:"column:status" json:"status"`

	// Review cycle fields, written by the assignment engine and the review
	// state machine.
	ApprovalThreshold int        `gorm:"column:approval_threshold" json:"approval_threshold"`
	ReviewDeadline    *time.Time `gorm:"column:review_deadline" json:"review_deadline,omitempty"`
	AssignedAt        *time.Time `gorm:"column:assigned_at" json:"assigned_at,omitempty"`

	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovedBy      *int       `gorm:"column:approved_by" json:"approved_by,omitempty"`
	RejectedAt      *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	RejectedBy      *int       `gorm:"column:rejected_by" json:"rejected_by,omitempty"`
	RejectionReason *string    `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`

	// Version is bumped on every write so out-of-band writers are detectable.
	Version int `gorm:"column:version" json:"version"`

	SubmittedAt *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreateAt    *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt    *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	User      User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Decisions []ReviewDecision `gorm:"foreignKey:ApplicationID" json:"decisions,omitempty"`
}

// IsTerminal reports whether no further reviewer decisions apply.
func (a *LoanApplication) IsTerminal() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// ReviewState returns the advisory review state. It differs from Status only
// for an in-flight review where at least one approval has been recorded but
// the threshold is not yet met.
func (a *LoanApplication) ReviewState() string {
	if a.Status != StatusUnderReview {
		return a.Status
	}
	approved := 0
	for _, d := range a.Decisions {
		if d.Verdict == VerdictApproved {
			approved++
		}
	}
	if approved > 0 && approved < a.ApprovalThreshold {
		return ReviewStatePartiallyApproved
	}
	return a.Status
}

// TableName specifies the table for LoanApplication.
func (LoanApplication) TableName() string {
	return "loan_applications"
}
