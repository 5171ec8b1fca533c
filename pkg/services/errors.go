package services

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/pubflow/pubflow/pkg/automation"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

var (
	ErrTitleRequired     = errors.New("pub title is required")
	ErrStageRequired     = errors.New("stage is required")
	ErrFieldRequired     = errors.New("field id is required")
	ErrUnknownActionType = errors.New("unknown action type")
	ErrSameStage         = errors.New("pub is already in the requested stage")
)

// IsNotFound reports whether err is any entity-missing error from storage.
func IsNotFound(err error) bool {
	return errors.Is(err, persistence.ErrPubNotFound) ||
		errors.Is(err, persistence.ErrActionInstanceNotFound) ||
		errors.Is(err, persistence.ErrAutomationNotFound) ||
		errors.Is(err, persistence.ErrActionRunNotFound)
}

// IsValidationError reports whether err is a client-side problem with the
// request payload rather than a storage or engine failure.
func IsValidationError(err error) bool {
	if errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrStageRequired) ||
		errors.Is(err, ErrFieldRequired) ||
		errors.Is(err, ErrUnknownActionType) ||
		errors.Is(err, ErrSameStage) ||
		errors.Is(err, models.ErrInvalidActor) {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return true
	}

	return automation.IsRejected(err)
}
