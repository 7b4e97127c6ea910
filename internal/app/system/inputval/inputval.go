// Package inputval validates HTTP form input structs through
// waffle/pantry/validate and turns rule failures into messages fit for
// rendering back to the user.
//
// Define an input struct with validate tags and optional label tags,
// fill it from form values, then call Validate:
//
//	type settingsInput struct {
//	    SiteName string `validate:"required,max=200" label:"Nome del sito"`
//	}
//
//	if res := inputval.Validate(input); res.HasErrors() {
//	    renderWithError(w, r, res.First())
//	    return
//	}
package inputval

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
)

// Result collects the failures from one Validate call.
type Result struct {
	Errors []FieldError
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or "" when the input passed.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All joins every error message with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	sharedValidator *validate.Validator
	validatorOnce   sync.Once
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		sharedValidator = validate.New(validate.WithStopOnFirstError())
	})
	return sharedValidator
}

// Validate runs the struct's validate tags and maps each failure to a
// message using the field's label tag (falling back to the field name).
// Rules come from pantry/validate: required, email, oneof, timezone,
// min and max.
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	labels := fieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}

			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}

	return result
}

// fieldLabels maps field names (json tag name when present) to their
// label tag values.
func fieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}

		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " è obbligatorio."
	case "email":
		return "Inserisci un indirizzo email valido."
	case "oneof", "enum":
		return label + " deve essere uno tra: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "timezone":
		return label + " deve essere un fuso orario valido."
	case "min":
		return label + " deve contenere almeno " + param + " caratteri."
	case "max":
		return label + " non può superare " + param + " caratteri."
	default:
		return label + " non è valido."
	}
}
