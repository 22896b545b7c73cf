package util

import (
	"course_hub_backend/internal/model"
	"errors"
	"strings"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUserNotFound     = errors.New("user not found")
	ErrPermissionDenied = errors.New("you are not authorized to access this resource")
	ErrCourseNotFound   = errors.New("course not found")
	ErrStorage          = errors.New("storage error")
	ErrVersionConflict  = errors.New("course was modified concurrently")
	ErrValidation       = errors.New("validation error")
	ErrSideEffect       = errors.New("side effect failed")
	ErrInvalidThumbnail = errors.New("invalid thumbnail")

	ErrInvalidID         = model.ErrInvalidID
	ErrInvalidContentID  = model.ErrInvalidContentID
	ErrInvalidQuestionID = model.ErrInvalidQuestionID
	ErrInvalidReviewID   = model.ErrInvalidReviewID
)

// SideEffectError reports notification or email failures that happened after
// the primary mutation was committed. It never implies a rollback.
type SideEffectError struct {
	Notification error
	Email        error
}

func (e *SideEffectError) Error() string {
	var parts []string
	if e.Notification != nil {
		parts = append(parts, "notification: "+e.Notification.Error())
	}
	if e.Email != nil {
		parts = append(parts, "email: "+e.Email.Error())
	}
	return "side effect failed: " + strings.Join(parts, "; ")
}

func (e *SideEffectError) Unwrap() error { return ErrSideEffect }

// Warnings lists the failures in a form suitable for the response envelope.
func (e *SideEffectError) Warnings() []string {
	var w []string
	if e.Notification != nil {
		w = append(w, "notification could not be created")
	}
	if e.Email != nil {
		w = append(w, "email could not be sent")
	}
	return w
}

// NewSideEffectError returns nil when both failures are nil.
func NewSideEffectError(notifyErr, emailErr error) error {
	if notifyErr == nil && emailErr == nil {
		return nil
	}
	return &SideEffectError{Notification: notifyErr, Email: emailErr}
}
