package models

// APIResponse is a generic structure for all API responses
type APIResponse struct {
	Status  string      `json:"status"`            // "success" or "error"
	Code    int         `json:"code"`              // HTTP status code (200, 400, 500, etc.)
	Message string      `json:"message,omitempty"` // Human-readable message
	Data    interface{} `json:"data,omitempty"`    // Any response data (can be map, struct, list, etc.)
	Error   *APIError   `json:"error,omitempty"`   // Detailed error info (nil if success)
}

// APIError holds detailed error information
type APIError struct {
	Type          string       `json:"type,omitempty"`          // e.g., "ValidationError", "DuplicateError"
	Details       string       `json:"details,omitempty"`       // More context about the error
	Field         string       `json:"field,omitempty"`         // For validation and duplicate errors
	Fields        []FieldError `json:"fields,omitempty"`        // Every invalid field of a validation error
	MissingFields []string     `json:"missingFields,omitempty"` // For rejected status transitions
}

// TransitionRequest is the body of POST /services/:id/transitions
type TransitionRequest struct {
	Target  ServiceStatus `json:"target" validate:"required,oneof=pending in_process finished delivered"`
	Service *Service      `json:"service" validate:"required"`
}

// DirtyCheckResponse is returned by POST /services/:id/changes
type DirtyCheckResponse struct {
	Dirty bool `json:"dirty"`
}

// CommitResponse is returned by POST /services/intake
type CommitResponse struct {
	ServiceID string `json:"serviceId"`
}
