package jsoncfg

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"shortgen/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateStruct checks v against its validate tags. Failures wrap
// domain.ErrValidation and name the offending field as prefix.field.
func ValidateStruct(prefix string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if prefix != "" {
			field = prefix + "." + field
		}
		switch fe.Tag() {
		case "required", "nonblank":
			fields = append(fields, field+" is required")
		case "oneof":
			fields = append(fields, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		case "min", "gte":
			fields = append(fields, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			fields = append(fields, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			fields = append(fields, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(fields, "; "))
}
