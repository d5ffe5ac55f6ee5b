package apperr

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// FromValidation converts an ozzo-validation result into a VALIDATION_ERROR.
// Nested errors (struct fields, Each over slices) are flattened into dotted
// field paths such as "availability.0.slots.1". A nil input returns nil and
// internal rule failures are passed through untouched.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}

	var fields []FieldError
	flatten("", err, &fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return Validation(fields...)
}

func flatten(prefix string, err error, out *[]FieldError) {
	var errs validation.Errors
	if errors.As(err, &errs) {
		for key, nested := range errs {
			if nested == nil {
				continue
			}
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			flatten(path, nested, out)
		}
		return
	}
	*out = append(*out, FieldError{Field: prefix, Message: err.Error()})
}
