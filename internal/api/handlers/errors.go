package handlers

import (
	"errors"
	"net/http"

	"fitmatch/internal/services"
	"fitmatch/pkg/apperror"
)

var (
	errCourierBusy       = apperror.Conflict("courier_busy", "courier is already on a delivery")
	errStepInProgress    = apperror.Conflict("step_in_progress", "another step is being processed for this delivery")
	errInvalidTransition = apperror.New("invalid_transition", "delivery cannot move to that status", http.StatusBadRequest)
	errInvalidLocation   = apperror.New("invalid_location", "coordinates out of range", http.StatusBadRequest)
)

// toAppError maps service sentinels to API errors. Unknown errors become
// internal errors that keep the cause for the request log.
func toAppError(err error) *apperror.AppError {
	switch {
	case errors.Is(err, services.ErrDeliveryNotFound):
		return apperror.NotFound("delivery")
	case errors.Is(err, services.ErrSnapshotNotFound):
		return apperror.NotFound("tracking data")
	case errors.Is(err, services.ErrNotAuthorized):
		return apperror.Forbidden("not authorized to perform this action")
	case errors.Is(err, services.ErrInvalidTransition):
		return errInvalidTransition
	case errors.Is(err, services.ErrCourierBusy):
		return errCourierBusy
	case errors.Is(err, services.ErrStepInProgress):
		return errStepInProgress
	case errors.Is(err, services.ErrInvalidLocation):
		return errInvalidLocation.WithErr(err)
	}
	return apperror.Internal(err)
}
