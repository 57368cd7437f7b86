package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vango-dev/verdant/pkg/web"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "param", "query"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validateStruct runs `validate` tags on s and converts failures to issues
// rooted at section.
func validateStruct(section string, s any) []web.Issue {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Not a struct or an unusable schema; nothing field-level to report.
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return []web.Issue{{Path: section, Code: "invalid", Message: err.Error()}}
	}

	issues := make([]web.Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, web.Issue{
			Path:    issuePath(section, fe.Namespace()),
			Code:    fe.Tag(),
			Message: issueMessage(fe),
		})
	}
	return issues
}

// validateOutput checks a handler's return value. Structs and pointers to
// structs are validated directly; slices and arrays element by element.
func validateOutput(out any) []web.Issue {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		return validateStruct("output", v.Interface())
	case reflect.Slice, reflect.Array:
		var issues []web.Issue
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			for elem.Kind() == reflect.Ptr && !elem.IsNil() {
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.Struct {
				continue
			}
			issues = append(issues, validateStruct(fmt.Sprintf("output[%d]", i), elem.Interface())...)
		}
		return issues
	}
	return nil
}

// issuePath drops the root type name from a validator namespace:
// "UpdateBody.price" in section "body" becomes "body.price".
func issuePath(section, namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found || rest == "" {
		return section
	}
	return section + "." + rest
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
