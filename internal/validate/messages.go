package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shelterflex/shelterflex-backend/internal/domain"
)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// collect converts a validator result into fields. Unexpected validator
// failures (such as a non-struct argument) are recorded under fallback.
func collect(fields domain.FieldErrors, fallback string, schema any, err error) {
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		fields.Add("", fallback, "Invalid "+fallback)
		return
	}

	overrides := overridesOf(schema)
	for _, fe := range fieldErrs {
		path := fieldPath(fe.Namespace())
		msg, ok := overrides[path+"."+fe.Tag()]
		if !ok {
			msg = defaultMessage(fe)
		}
		fields.Add(path, fallback, msg)
	}
}

func overridesOf(schema any) map[string]string {
	if p, ok := schema.(MessageProvider); ok {
		return p.Messages()
	}
	if rv := reflect.ValueOf(schema); rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if p, ok := rv.Elem().Interface().(MessageProvider); ok {
			return p.Messages()
		}
	}
	return nil
}

// fieldPath turns "SimulateRequest.args[0].name" into "args.0.name".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		return ""
	}
	return indexPattern.ReplaceAllString(rest, ".$1")
}

func defaultMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	kind := fe.Kind()

	unit := ""
	switch kind {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		unit = " items"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "len":
		return fmt.Sprintf("%s must be exactly %s%s", field, param, unit)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "url", "http_url":
		return field + " must be a valid URL"
	case "email":
		return field + " must be a valid email"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	}
	return field + " is invalid"
}
