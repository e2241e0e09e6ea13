package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("resource not found")
	// ErrUploadReverted is the only error a failed photo step surfaces from a commit
	ErrUploadReverted = errors.New("photo upload failed, registration reverted")
	// ErrConditionFailed is returned when a conditional write loses its precondition
	ErrConditionFailed = errors.New("conditional write failed")
)

// DuplicateError is a unique-key conflict on a natural key or contact field.
type DuplicateError struct {
	Resource string
	Field    string
	Value    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
}

// InvalidReferenceError is raised when a record points at something unknown.
type InvalidReferenceError struct {
	Resource string
	Field    string
	Value    string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown %s %q", e.Resource, e.Field, e.Value)
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// TransportError wraps a network or remote store failure, timeouts included.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransitionError rejects a status change. MissingFields lists every unmet precondition.
type TransitionError struct {
	From          ServiceStatus
	To            ServiceStatus
	MissingFields []string
}

func (e *TransitionError) Error() string {
	if len(e.MissingFields) == 0 {
		return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot move from %s to %s, missing: %s", e.From, e.To, strings.Join(e.MissingFields, ", "))
}

// ForbiddenError is returned when the actor lacks a capability.
type ForbiddenError struct {
	Action string
}

func (e *ForbiddenError) Error() string {
	return "not allowed to " + e.Action
}

// InconsistencyError reports that edits were saved but the status change failed.
// The caller must refetch and may retry the status change alone.
type InconsistencyError struct {
	ServiceID string
	Target    ServiceStatus
	Err       error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("service %s saved but status change to %s failed: %v", e.ServiceID, e.Target, e.Err)
}

func (e *InconsistencyError) Unwrap() error {
	return e.Err
}

var fieldLabels = map[string]string{
	"identification": "identification number",
	"email":          "email",
	"phone":          "phone number",
	"plate":          "plate",
	"orderNumber":    "order number",
	"province":       "province",
	"canton":         "canton",
	"clientId":       "client",
	"vehicleId":      "vehicle",
	"serviceId":      "service",
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// Describe turns any error into a message a workshop user can act on.
func Describe(err error) *APIError {
	var (
		dup        *DuplicateError
		ref        *InvalidReferenceError
		valErr     *ValidationError
		transition *TransitionError
		forbidden  *ForbiddenError
		inconsist  *InconsistencyError
		transport  *TransportError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &dup):
		return &APIError{
			Type:    "DuplicateError",
			Details: fmt.Sprintf("A %s with this %s is already registered.", dup.Resource, label(dup.Field)),
			Field:   dup.Field,
		}
	case errors.As(err, &ref):
		return &APIError{
			Type:    "InvalidReferenceError",
			Details: fmt.Sprintf("The selected %s does not exist.", label(ref.Field)),
			Field:   ref.Field,
		}
	case errors.As(err, &valErr):
		apiErr := &APIError{
			Type:    "ValidationError",
			Details: strings.TrimPrefix(valErr.Error(), "validation failed: "),
			Fields:  append([]FieldError(nil), valErr.Fields...),
		}
		if len(valErr.Fields) == 1 {
			apiErr.Field = valErr.Fields[0].Field
		}
		return apiErr
	case errors.As(err, &transition):
		details := fmt.Sprintf("A service cannot move from %s to %s.", transition.From, transition.To)
		if len(transition.MissingFields) > 0 {
			details = "Complete the following before changing status: " + strings.Join(transition.MissingFields, ", ") + "."
		}
		return &APIError{Type: "TransitionError", Details: details, MissingFields: transition.MissingFields}
	case errors.As(err, &forbidden):
		return &APIError{Type: "AuthorizationError", Details: "You are not allowed to " + forbidden.Action + "."}
	case errors.As(err, &inconsist):
		return &APIError{
			Type:    "InconsistencyError",
			Details: "Changes were saved but the status did not change. Reload the service and retry the status change.",
		}
	case errors.Is(err, ErrUploadReverted):
		return &APIError{Type: "UploadError", Details: "Uploading the photos failed and the registration was reverted. Please submit it again."}
	case errors.Is(err, ErrNotFound):
		return &APIError{Type: "NotFoundError", Details: "The requested record does not exist."}
	case errors.As(err, &transport):
		return &APIError{Type: "TransportError", Details: "The server could not be reached. Please try again."}
	default:
		return &APIError{Type: "InternalError", Details: "An unexpected error occurred. Please try again."}
	}
}
