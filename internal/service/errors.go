package service

import "errors"

// Sentinel errors shared across services and mapped to HTTP statuses in
// internal/httputil. Validation failures wrap ErrInvalidResult with detail.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")

	ErrInsufficientParticipants = errors.New("at least 2 participants are required to generate a bracket")
	ErrBracketAlreadyGenerated  = errors.New("bracket has already been generated")

	ErrInvalidResult    = errors.New("invalid match result")
	ErrAlreadyCompleted = errors.New("match result already recorded")

	ErrRegistrationNotOpen     = errors.New("tournament registration is not open")
	ErrTournamentFull          = errors.New("tournament registration is full")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
)
