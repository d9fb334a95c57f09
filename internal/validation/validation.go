// Package validation adapts go-playground/validator to echo and renders
// failures as the {field, msg} list the API returns.
package validation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Msg
	}
	return strings.Join(parts, "; ")
}

func (e Errors) Unwrap() error { return ErrValidation }

// Normalizer is implemented by request types that clean their input
// (trimming, defaults) before the tag rules run.
type Normalizer interface {
	Normalize()
}

// DateLayouts are the accepted ISO 8601 shapes for request bodies.
var DateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}
		return name
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, ok := ParseAmount(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	})
	return &Validator{v: v}
}

// Validate satisfies echo.Validator. Failures come back as Errors, one
// entry per failing field, in declaration order.
func (v *Validator) Validate(i any) error {
	if n, ok := i.(Normalizer); ok {
		n.Normalize()
	}
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	t := reflect.TypeOf(i)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	out := make(Errors, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, FieldError{Field: field, Msg: message(t, fe)})
	}
	return out
}

// message picks the msg_<tag> struct tag, then msg, then a generic text.
func message(t reflect.Type, fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.StructField(), "[")
	if sf, ok := t.FieldByName(name); ok {
		msg := sf.Tag.Get("msg_" + fe.Tag())
		if msg == "" {
			msg = sf.Tag.Get("msg")
		}
		if msg != "" {
			if strings.Contains(msg, "%v") {
				return fmt.Sprintf(msg, fe.Value())
			}
			return msg
		}
	}
	if fe.Field() == "" {
		return "Invalid value"
	}
	return "Invalid value for " + fe.Field()
}

// Rule checks one constraint that needs more than the request itself,
// usually a reference lookup. A nil FieldError means the rule holds.
type Rule func(ctx context.Context) (*FieldError, error)

// Run evaluates rules in order and collects every failure. A store error
// aborts the run.
func Run(ctx context.Context, rules ...Rule) (Errors, error) {
	var out Errors
	for _, rule := range rules {
		fe, err := rule(ctx)
		if err != nil {
			return nil, err
		}
		if fe != nil {
			out = append(out, *fe)
		}
	}
	return out, nil
}

// Merge joins the result of Validate with rule failures. It returns nil when
// neither reported anything and passes through non-validation errors.
func Merge(structErr error, ruleErrs Errors) error {
	var out Errors
	if structErr != nil {
		var verrs Errors
		if !errors.As(structErr, &verrs) {
			return structErr
		}
		out = append(out, verrs...)
	}
	out = append(out, ruleErrs...)
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseAmount accepts a finite non-negative decimal.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
