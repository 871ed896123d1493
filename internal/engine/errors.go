package engine

import (
	"errors"
	"fmt"

	"shopdesk-backend/internal/attrs"
	"shopdesk-backend/internal/customfield"
	"shopdesk-backend/internal/schema"
	"shopdesk-backend/internal/store"
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(what, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", what, id),
	}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func ConflictError(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Status: 409, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

// FromDomainError translates sentinel and typed errors from the schema,
// attrs and customfield packages into HTTP-facing AppErrors. Returns nil
// for errors with no domain mapping; those surface as opaque 500s.
func FromDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var fieldErrs attrs.FieldErrors
	if errors.As(err, &fieldErrs) {
		details := make([]ErrorDetail, len(fieldErrs))
		for i, fe := range fieldErrs {
			details[i] = ErrorDetail{Field: fe.Field, Rule: string(fe.Type), Message: fe.Reason}
		}
		return &AppError{
			Code:    "COERCION_FAILED",
			Status:  422,
			Message: "Some values could not be stored; unaffected fields were persisted",
			Details: details,
		}
	}

	switch {
	case errors.Is(err, schema.ErrDuplicateSlug):
		return &AppError{Code: "DUPLICATE_SLUG", Status: 409, Message: err.Error()}
	case errors.Is(err, schema.ErrDuplicateFieldName):
		return &AppError{Code: "DUPLICATE_FIELD_NAME", Status: 409, Message: err.Error()}
	case errors.Is(err, schema.ErrUnknownEntity):
		return &AppError{Code: "UNKNOWN_ENTITY", Status: 404, Message: err.Error()}
	case errors.Is(err, customfield.ErrUnknownKind):
		return &AppError{Code: "UNKNOWN_KIND", Status: 404, Message: err.Error()}
	case errors.Is(err, schema.ErrUnknownFieldType), errors.Is(err, schema.ErrInvalidInput):
		return &AppError{Code: "VALIDATION_FAILED", Status: 422, Message: err.Error()}
	case errors.Is(err, store.ErrNotFound):
		return &AppError{Code: "NOT_FOUND", Status: 404, Message: "Not found"}
	default:
		return nil
	}
}
