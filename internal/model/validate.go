package model

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	phone10to11 = regexp.MustCompile(`^[0-9]{10,11}$`)
	phone10to15 = regexp.MustCompile(`^[0-9]{10,15}$`)
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Error keys follow the json field names the views render against.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	must(v.RegisterValidation("phone10_11", func(fl validator.FieldLevel) bool {
		return phone10to11.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("phone10_15", func(fl validator.FieldLevel) bool {
		return phone10to15.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("datevalue", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	}))
	// futuredate compares at day granularity: today is still acceptable.
	must(v.RegisterValidation("futuredate", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return !d.Before(today)
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate runs the full set of field checks for an entity and returns a
// json-field-name → message map, empty when the entity is valid.
func Validate(entity interface{}) map[string]string {
	errs := map[string]string{}
	err := validate.Struct(entity)
	if err == nil {
		return errs
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["_"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		errs[fe.Field()] = messageFor(fe)
	}
	return errs
}

// ValidateField re-checks a single field, identified by its json name, and
// returns its message or "" when valid. Cross-field rules (eqfield,
// gtfield) are evaluated against the current values of their partners.
func ValidateField(entity interface{}, jsonName string) string {
	structName := structFieldFor(entity, jsonName)
	if structName == "" {
		return ""
	}
	err := validate.StructPartial(entity, structName)
	if err == nil {
		return ""
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	for _, fe := range verrs {
		if fe.Field() == jsonName {
			return messageFor(fe)
		}
	}
	return ""
}

func structFieldFor(entity interface{}, jsonName string) string {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ""
	}
	return findField(t, jsonName)
}

func findField(t reflect.Type, jsonName string) string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			for ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if name := findField(ft, jsonName); name != "" {
					return name
				}
			}
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == jsonName || (name == "" && f.Name == jsonName) {
			return f.Name
		}
	}
	return ""
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone10_11":
		return "must be 10 to 11 digits"
	case "phone10_15":
		return "must be 10 to 15 digits"
	case "datevalue":
		return "must be a date in YYYY-MM-DD format"
	case "futuredate":
		return "must not be in the past"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s characters", fe.Param())
	case "gtfield":
		return fmt.Sprintf("must be after %s", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
