package validator

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-4]):[0-5]\d(:[0-5]\d)?$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

func registerCustomValidations() {
	// Calendar date, YYYY-MM-DD
	validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("2006-01-02", fl.Field().String())
		return err == nil
	})

	// Wall clock, HH:MM or HH:MM:SS, 24:00 allowed
	validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !clockPattern.MatchString(s) {
			return false
		}
		return !strings.HasPrefix(s, "24:") || strings.Trim(s[3:], ":0") == ""
	})

	validate.RegisterValidation("payment_method", oneOf("pending", "cash", "card", "transfer", ""))

	validate.RegisterValidation("booking_status", oneOf("pending", "confirmed", "cancelled", "completed"))
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range validationErrors {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "uuid":
			errors[field] = "Invalid UUID format"
		case "date":
			errors[field] = "Invalid date. Must be YYYY-MM-DD"
		case "clock":
			errors[field] = "Invalid time. Must be HH:MM"
		case "payment_method":
			errors[field] = "Invalid payment method. Must be: pending, cash, card, or transfer"
		case "booking_status":
			errors[field] = "Invalid status. Must be: pending, confirmed, cancelled, or completed"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
