package points

import (
	"errors"

	"github.com/sukull/istikrar/streak"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrProgressNotFound  = streak.ErrProgressNotFound
	ErrInvalidInput      = errors.New("invalid input")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrHeartsFull        = errors.New("hearts are already full")
	ErrNotEnoughPoints   = errors.New("not enough points")
	ErrRequirementNotMet = errors.New("istikrar requirement not met")
	ErrSchoolNotFound    = errors.New("school not found")
)

// Status is the soft outcome of a point change.
type Status string

const (
	StatusOK                 Status = "ok"
	StatusInsufficientHearts Status = "insufficient_hearts"
)
