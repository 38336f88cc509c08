package internal

import (
	"errors"

	"github.com/NYCU-SDC/summer/pkg/problem"
)

var (
	// Generic Errors
	ErrPermissionDenied    = errors.New("permission denied")
	ErrUnauthorizedError   = errors.New("unauthorized error")
	ErrInternalServerError = errors.New("internal server error")
	ErrForbiddenError      = errors.New("forbidden error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequestBody  = errors.New("invalid request body")
	ErrDatabaseError       = errors.New("database error")

	// JWT Authentication Errors
	ErrMissingAuthHeader       = errors.New("missing access token")
	ErrInvalidAuthHeaderFormat = errors.New("invalid access token")
	ErrInvalidJWTToken         = errors.New("invalid JWT token")
	ErrInvalidAuthUser         = errors.New("invalid authenticated user")

	// User Errors
	ErrUserNotFound           = errors.New("user not found")
	ErrNoUserInContext        = errors.New("no user found in request context")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidRole            = errors.New("invalid role")
	ErrInvalidState           = errors.New("invalid state")

	// Campaign Errors
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrCampaignNoQuestions = errors.New("campaign has no questions")
	ErrNegativeReward      = errors.New("reward must not be negative")

	// Interpreter Errors
	ErrInterpreterUnavailable = errors.New("interpreter unavailable")
	ErrMalformedToolCall      = errors.New("malformed tool call payload")
	ErrMalformedGeneration    = errors.New("malformed generation output")

	// Session Errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionBusy       = errors.New("session turn queue is full")
	ErrAlreadyConnecting = errors.New("voice session already connecting")
	ErrStreamClosed      = errors.New("voice stream is closed")
)

func NewProblemWriter() *problem.HttpWriter {
	return problem.NewWithMapping(ErrorHandler)
}

func ErrorHandler(err error) problem.Problem {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return problem.NewForbiddenProblem("permission denied")
	case errors.Is(err, ErrUnauthorizedError):
		return problem.NewUnauthorizedProblem("unauthorized error")
	case errors.Is(err, ErrInternalServerError):
		return problem.NewInternalServerProblem("internal server error")
	case errors.Is(err, ErrForbiddenError):
		return problem.NewForbiddenProblem("forbidden error")
	case errors.Is(err, ErrNotFound):
		return problem.NewNotFoundProblem("not found")
	case errors.Is(err, ErrInvalidRequestBody):
		return problem.NewBadRequestProblem("invalid request body")
	case errors.Is(err, ErrDatabaseError):
		return problem.NewBadRequestProblem("database error")

	// JWT Authentication Errors
	case errors.Is(err, ErrMissingAuthHeader):
		return problem.NewUnauthorizedProblem("missing access token")
	case errors.Is(err, ErrInvalidAuthHeaderFormat):
		return problem.NewUnauthorizedProblem("invalid access token")
	case errors.Is(err, ErrInvalidJWTToken):
		return problem.NewUnauthorizedProblem("invalid JWT token")
	case errors.Is(err, ErrInvalidAuthUser):
		return problem.NewUnauthorizedProblem("invalid authenticated user")

	// User Errors
	case errors.Is(err, ErrUserNotFound):
		return problem.NewNotFoundProblem("user not found")
	case errors.Is(err, ErrNoUserInContext):
		return problem.NewUnauthorizedProblem("no user found in request context")
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return problem.NewValidateProblem("this email is already registered")
	case errors.Is(err, ErrInvalidRole):
		return problem.NewValidateProblem("invalid role value")
	case errors.Is(err, ErrInvalidState):
		return problem.NewValidateProblem("invalid state value")

	// Campaign Errors
	case errors.Is(err, ErrCampaignNotFound):
		return problem.NewNotFoundProblem("campaign not found")
	case errors.Is(err, ErrCampaignNoQuestions):
		return problem.NewValidateProblem("campaign must contain at least one question")
	case errors.Is(err, ErrNegativeReward):
		return problem.NewValidateProblem("reward must not be negative")

	// Interpreter Errors
	case errors.Is(err, ErrInterpreterUnavailable):
		return problem.NewInternalServerProblem("interpreter unavailable")
	case errors.Is(err, ErrMalformedToolCall):
		return problem.NewBadRequestProblem("malformed tool call payload")
	case errors.Is(err, ErrMalformedGeneration):
		return problem.NewInternalServerProblem("interpreter returned malformed output")

	// Session Errors
	case errors.Is(err, ErrSessionNotFound):
		return problem.NewNotFoundProblem("session not found")
	case errors.Is(err, ErrSessionClosed):
		return problem.NewValidateProblem("session is closed")
	case errors.Is(err, ErrSessionBusy):
		return problem.NewValidateProblem("session turn queue is full")
	case errors.Is(err, ErrAlreadyConnecting):
		return problem.NewValidateProblem("voice session already connecting")
	case errors.Is(err, ErrStreamClosed):
		return problem.NewValidateProblem("voice stream is closed")
	}
	return problem.Problem{}
}
