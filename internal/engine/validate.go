package engine

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/bimbridge/internal/ir"
)

// payloadValidate checks payload struct tags. Field names in messages are
// the wire (json) names.
var payloadValidate *validator.Validate

func init() {
	payloadValidate = validator.New(validator.WithRequiredStructEnabled())
	payloadValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// validatePayload runs struct-tag validation and converts the first
// failure into a validation error.
func validatePayload(p ir.Payload) error {
	err := payloadValidate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("invalid payload: %v", err)
	}
	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return NewValidationError("%s is required", field)
	case "oneof":
		return NewValidationError("%s must be one of: %s (got %q)",
			field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "min":
		return NewValidationError("%s must contain at least %s item(s)", field, fe.Param())
	default:
		return NewValidationError("%s failed %q validation", field, fe.Tag())
	}
}

// fieldPath drops the root struct name from a validator namespace:
// "LevelsPayload.levels[0].elevation" becomes "levels[0].elevation".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// requireTargets rejects an empty elementIds list.
func requireTargets(req *ir.Request) error {
	if len(req.TargetIDs) == 0 {
		return NewValidationError("elementIds must contain at least one element id")
	}
	return nil
}
