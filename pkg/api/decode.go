package api

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/vango-dev/verdant/pkg/router"
	"github.com/vango-dev/verdant/pkg/web"
)

// taggedNames lists the tag values of t's fields carrying tag, in field
// order. Options after a comma are dropped.
func taggedNames(t reflect.Type, tag string) []string {
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var names []string
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get(tag), ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	return names
}

// decodeParams populates the `param`-tagged fields of target. Every tagged
// field is required: a route that matched always binds all of them.
func decodeParams(params router.Params, target any) []web.Issue {
	values := make(map[string][]string, len(params))
	for k, v := range params {
		values[k] = []string{v}
	}
	return decode(values, target, "param", "params", true)
}

// decodeValues populates the fields of target tagged with tag from values.
// Missing values leave the field at its zero value; validate tags decide
// whether that is acceptable.
func decodeValues(values map[string][]string, target any, tag string) []web.Issue {
	return decode(values, target, tag, tag, false)
}

func decode(values map[string][]string, target any, tag, section string, required bool) []web.Issue {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return []web.Issue{{Path: section, Code: "invalid_schema", Message: fmt.Sprintf("target must be a pointer to struct, got %T", target)}}
	}
	v = v.Elem()
	t := v.Type()

	var issues []web.Issue
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name == "" || name == "-" {
			continue
		}
		path := section + "." + name

		raw, ok := values[name]
		if !ok || len(raw) == 0 {
			if required {
				issues = append(issues, web.Issue{Path: path, Code: "required", Message: "is required"})
			}
			continue
		}

		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}
		if err := setField(fieldValue, raw, tag == "param"); err != nil {
			issues = append(issues, web.Issue{Path: path, Code: "invalid_type", Message: err.Error()})
		}
	}
	return issues
}

// setField sets a field value from its string form. Path parameters bound
// by a catch-all decode into []string by splitting on "/"; query values
// decode into []string as repeated keys.
func setField(field reflect.Value, raw []string, pathParam bool) error {
	value := raw[0]

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %q", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %q", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %q", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %q", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		var parts []string
		if pathParam {
			if value != "" {
				parts = strings.Split(value, "/")
			}
		} else {
			parts = append(parts, raw...)
		}
		field.Set(reflect.ValueOf(parts).Convert(field.Type()))

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}
