package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/crm-api/internal/model"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var defaultErrorMessages = map[string]string{
	"required":          "Field is required",
	"email":             "Invalid email format",
	"max":               "Value is too long",
	"gt":                "Value must be positive",
	"notification_type": "Must be one of lead_assignment, task_assignment, task_reminder",
}

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags and reports field names
// by their json tag. It is idempotent.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		if err := v.RegisterValidation("notification_type", validateNotificationType); err != nil {
			panic(err)
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

func validateNotificationType(fl validator.FieldLevel) bool {
	return model.NotificationType(fl.Field().String()).Valid()
}

// ValidationErrors flattens a binding error into per-field messages. It returns
// nil when err is not a validation failure.
func ValidationErrors(err error) []ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil
	}

	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg := defaultErrorMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		out = append(out, ValidationError{Field: e.Field(), Message: msg})
	}
	return out
}
