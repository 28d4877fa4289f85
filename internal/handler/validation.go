package handler

import "github.com/go-playground/validator/v10"

// formatValidationErrors flattens validator errors into a field → rule map
// suitable for the error envelope's details.
func formatValidationErrors(err error) map[string]string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
