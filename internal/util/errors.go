package util

import "errors"

var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrModelNotTrained     = errors.New("model not trained")
	ErrInvalidTestConfig   = errors.New("invalid experiment configuration")
	ErrExperimentCompleted = errors.New("experiment already completed")
	ErrExperimentExists    = errors.New("experiment already exists")
	ErrExperimentNotFound  = errors.New("experiment not found")
	ErrProfileNotFound     = errors.New("learning profile not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrInvalidRating       = errors.New("rating must be between 0 and 5")
)
