package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	dErrors "sarflow/pkg/domain-errors"
	"sarflow/pkg/requestcontext"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// MaxMonetaryValue bounds every monetary amount in either direction.
const MaxMonetaryValue = 100_000_000_000.0

var validate = newValidator()

type todayKey struct{}

// WithToday fixes the date that "not in the future" rules compare against.
// Without it the request time is used, or the wall clock outside a request.
func WithToday(ctx context.Context, today time.Time) context.Context {
	return context.WithValue(ctx, todayKey{}, today)
}

func todayFrom(ctx context.Context) time.Time {
	if t, ok := ctx.Value(todayKey{}).(time.Time); ok {
		return truncateDay(t)
	}
	return truncateDay(requestcontext.Now(ctx))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		return ValidMoney(fl.Field().Float())
	})
	mustRegister(v, "ssn4", func(fl validator.FieldLevel) bool {
		return validSSN4(fl.Field().String())
	})
	if err := v.RegisterValidationCtx("notfuture", func(ctx context.Context, fl validator.FieldLevel) bool {
		d, err := time.Parse(DateLayout, fl.Field().String())
		if err != nil {
			// reported by isodate
			return true
		}
		return !d.After(todayFrom(ctx))
	}); err != nil {
		panic(err)
	}
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s: %v", tag, err))
	}
}

// ValidMoney reports whether f is finite, within ±MaxMonetaryValue and has at
// most two decimal places. f*100 must sit within a few float steps of a whole
// number (never less than 1e-9), so the rounding error of large cent values
// is absorbed while half cents are still rejected at the cap.
func ValidMoney(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if math.Abs(f) > MaxMonetaryValue {
		return false
	}
	shifted := f * 100
	cents := math.Round(shifted)
	return math.Abs(shifted-cents) <= centTolerance(cents)
}

// centTolerance is four units in the last place of c, floored at 1e-9.
func centTolerance(c float64) float64 {
	a := math.Abs(c)
	ulp := math.Nextafter(a, math.Inf(1)) - a
	return math.Max(1e-9, 4*ulp)
}

func validSSN4(s string) bool {
	if len(s) != 4 || s == "0000" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var ruleMessages = map[string]string{
	"notblank":  "must not be blank",
	"isodate":   "must be a date in YYYY-MM-DD format",
	"notfuture": "must not be in the future",
	"money":     "must be finite, within ±1e11 and have at most 2 decimal places",
	"ssn4":      "must be exactly four digits and not 0000",
	"required":  "is required",
	"min":       "must have at least %s item(s)",
	"max":       "must be at most %s characters",
	"gte":       "must be at least %s",
	"lte":       "must be at most %s",
	"oneof":     "must be one of [%s]",
}

func describe(fe validator.FieldError) string {
	msg, ok := ruleMessages[fe.Tag()]
	if !ok {
		return "failed " + fe.Tag()
	}
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, fe.Param())
	}
	if fe.Tag() == "oneof" || fe.Tag() == "isodate" || fe.Tag() == "notfuture" {
		msg = fmt.Sprintf("%s, got %q", msg, fmt.Sprint(fe.Value()))
	}
	return msg
}

// ValidateStruct runs the schema rules on v and returns a coded
// *ValidationError listing every failure, merged after any decode failures
// already collected for the same record. Fields already reported by decoding
// are not reported twice.
func ValidateStruct(ctx context.Context, entity, id string, v any, decoded ...FieldError) error {
	fields := append([]FieldError(nil), decoded...)
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f.Field] = struct{}{}
	}

	if err := validate.StructCtx(ctx, v); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "schema validation failed")
		}
		for _, fe := range ves {
			name := fe.Field()
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			fields = append(fields, FieldError{Field: name, Rule: fe.Tag(), Message: describe(fe)})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return dErrors.Wrap(&ValidationError{Entity: entity, ID: id, Fields: fields}, dErrors.CodeValidation, "record rejected")
}
