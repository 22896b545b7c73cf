package model

import "errors"

// Lookup errors returned while addressing entities nested inside a Course.
var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidContentID  = errors.New("invalid content id")
	ErrInvalidQuestionID = errors.New("invalid question id")
	ErrInvalidReviewID   = errors.New("invalid review id")
)
