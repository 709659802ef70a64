// Package validation checks and normalizes intake payloads (leads, bookings,
// SMS) before any side effect happens. Every schema reports all offending
// fields at once through *Error; unparsable bodies are reported separately
// as ErrInvalidJSON.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidJSON marks a body that could not be decoded at all.
var ErrInvalidJSON = errors.New("invalid JSON body")

// FieldError is a single offending field. Path uses the JSON field names,
// dotted for nested objects.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error aggregates every field error found for one payload.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+" "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *Error) Add(path, msg string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Message: msg})
}

func (e *Error) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Options configure the business rules applied on top of the schemas.
type Options struct {
	Location       *time.Location // business timezone for past-date checks
	SlotMinutes    int
	Open           string // HH:MM, first bookable slot
	Close          string // HH:MM, exclusive
	MaxAttachments int
	Now            func() time.Time
}

// Validator is safe for concurrent use.
type Validator struct {
	v    *validator.Validate
	opts Options
}

// New builds a Validator with the custom tags ymd, hhmm and phone registered.
func New(opts Options) *Validator {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 30
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("ymd", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return IsClock(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return &Validator{v: v, opts: opts}
}

// IsDate reports whether s is a calendar-valid YYYY-MM-DD date.
func IsDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsClock reports whether s is a valid 24h HH:MM time.
func IsClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// check runs struct validation and converts the result into *Error.
func (v *Validator) check(s any) *Error {
	verr := &Error{}
	err := v.v.Struct(s)
	if err == nil {
		return verr
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		verr.Add("body", "is invalid")
		return verr
	}
	for _, fe := range ves {
		verr.Add(fieldPath(fe), message(fe))
	}
	return verr
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Bool {
			return "must be true"
		}
		return "is required"
	case "email":
		return "must be a valid email address"
	case "ymd":
		return "must be a valid date in YYYY-MM-DD format"
	case "hhmm":
		return "must be a valid time in HH:MM format"
	case "phone":
		return "must contain 10 to 15 digits"
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}
