package services

import "errors"

// Sentinel errors returned by the review workflow services. Controllers map
// these onto HTTP status codes; nothing in this package writes transport
// responses.
var (
	ErrNotFound              = errors.New("record not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidState          = errors.New("operation not applicable in current state")
	ErrInsufficientReviewers = errors.New("not enough active reviewers available")
	ErrNotAssigned           = errors.New("reviewer is not assigned to this application")
	ErrAlreadyReviewed       = errors.New("reviewer has already submitted a decision")
	ErrDeadlineExpired       = errors.New("review deadline has passed")
	ErrAccountFrozen         = errors.New("reviewer account is frozen")
	ErrDuplicatePending      = errors.New("a pending reactivation request already exists")
	ErrAlreadyActive         = errors.New("reviewer account is already active")
)
