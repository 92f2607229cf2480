package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrUnauthenticated = errors.New("connection has no authenticated user")
	ErrUserNotFound    = errors.New("user not found")

	// Game errors
	ErrGameNotFound            = errors.New("game not found")
	ErrGameFull                = errors.New("game is full")
	ErrGameNotJoinable         = errors.New("game cannot be joined in its current state")
	ErrGameAlreadyStarted      = errors.New("game has already started")
	ErrAlreadyJoined           = errors.New("user already joined this game")
	ErrNotCreator              = errors.New("user is not the game creator")
	ErrDuplicateCode           = errors.New("game code already exists")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique game code")
	ErrMissingConfig           = errors.New("game configuration is required")

	// Payload errors
	ErrInvalidPayload = errors.New("invalid event payload")
)
