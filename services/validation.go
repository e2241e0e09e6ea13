package services

import (
	"errors"
	"strings"

	"taller-backend/models"

	"github.com/go-playground/validator/v10"
)

// addValidationErrors converts validator failures into field errors under prefix.
func addValidationErrors(into *models.ValidationError, prefix string, err error) {
	if err == nil {
		return
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		into.Add(prefix, err.Error())
		return
	}

	for _, fieldError := range validationErrors {
		field := fieldPath(prefix, fieldError.Namespace())
		switch fieldError.Tag() {
		case "required":
			into.Add(field, field+" is required")
		case "min":
			into.Add(field, field+" must be at least "+fieldError.Param())
		case "max":
			into.Add(field, field+" must be at most "+fieldError.Param())
		case "lt":
			into.Add(field, field+" must be less than "+fieldError.Param())
		case "email":
			into.Add(field, field+" must be a valid email address")
		case "oneof":
			into.Add(field, field+" must be one of: "+strings.ReplaceAll(fieldError.Param(), " ", ", "))
		default:
			into.Add(field, field+" is invalid")
		}
	}
}

// fieldPath turns "Service.Parts[0].Quantity" into "service.Parts[0].Quantity".
func fieldPath(prefix, namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	if prefix == "" {
		return namespace
	}
	return prefix + "." + namespace
}
