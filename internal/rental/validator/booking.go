package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"talad/pkg/logger"
	"talad/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// BookingRequest is the user-facing payload for creating a booking.
type BookingRequest struct {
	LockID     string `json:"lock_id" validate:"required,mongodb"`
	PeriodType string `json:"period_type" validate:"required,oneof=daily weekly monthly"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()
	log.Info("Booking validator initialized successfully")
	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks the request payload and returns the parsed start
// date, normalized to midnight UTC.
func (v *BookingValidator) Validate(req *BookingRequest, now time.Time) (time.Time, error) {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return time.Time{}, translateValidationErrors(validationErrs)
		}
		return time.Time{}, err
	}

	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		return time.Time{}, ValidationErrors{
			ValidationError{Field: "StartDate", Message: "start_date must be a valid YYYY-MM-DD date"},
		}
	}

	today := now.UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return time.Time{}, ValidationErrors{
			ValidationError{Field: "StartDate", Message: "start_date cannot be in the past"},
		}
	}

	return start, nil
}

func (v *BookingValidator) ValidateLock(lock *model.Lock) error {
	if err := v.validate.Struct(lock); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must match format %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
