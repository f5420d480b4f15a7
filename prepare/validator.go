package prepare

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/go-utils/errs"
	"github.com/xraph/go-utils/val"
	"go.uber.org/zap"

	"github.com/xraph/keel/di"
)

// Rule checks a single value.
type Rule func(value any) error

// Built-in rule names.
const (
	RuleRequired = "required"
	RuleNonEmpty = "non-empty"
	RuleEmail    = "email"
	RuleUUID     = "uuid"
	RuleURL      = "url"
	RuleISO8601  = "iso8601"
)

// ValidateTag is the struct tag listing the rules ValidateStruct applies to a field.
const ValidateTag = "validate"

// CodeUnknownRule is the error code for a rule name nobody registered.
const CodeUnknownRule = "UNKNOWN_RULE"

var (
	// ErrRequired is returned by the required rule.
	ErrRequired = errs.NewError(val.ErrCodeRequired, "value is required", nil)

	// ErrEmpty is returned by the non-empty rule.
	ErrEmpty = errs.NewError(val.ErrCodeMinLength, "value is empty", nil)

	// ErrInvalidFormat is returned by the format rules.
	ErrInvalidFormat = errs.NewError(val.ErrCodeInvalidFormat, "value has an invalid format", nil)

	// ErrUnknownRule matches every unknown rule error.
	ErrUnknownRule = errs.NewError(CodeUnknownRule, "unknown rule", nil)
)

// Validator is a registry of named validation rules.
type Validator struct {
	Logger di.Logger

	mu    sync.RWMutex
	rules map[string]Rule
}

// Prepare installs the built-in rules without replacing registered ones.
func (v *Validator) Prepare(context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rules == nil {
		v.rules = make(map[string]Rule)
	}

	builtin := map[string]Rule{
		RuleRequired: required,
		RuleNonEmpty: nonEmpty,
		RuleEmail:    format(val.IsValidEmail),
		RuleUUID:     format(val.IsValidUUID),
		RuleURL:      format(val.IsValidURL),
		RuleISO8601:  format(val.IsValidISO8601),
	}

	for name, rule := range builtin {
		if _, ok := v.rules[name]; !ok {
			v.rules[name] = rule
		}
	}

	v.Logger.Info("validator prepared", zap.Int("rules", len(v.rules)))

	return nil
}

// Register adds or replaces a rule.
func (v *Validator) Register(name string, rule Rule) error {
	if name == "" || rule == nil {
		return errs.ErrInvalidInput("rule", "needs a name and a function")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rules == nil {
		v.rules = make(map[string]Rule)
	}

	v.rules[name] = rule

	return nil
}

// Validate applies the named rule to value.
func (v *Validator) Validate(name string, value any) error {
	v.mu.RLock()
	rule, ok := v.rules[name]
	v.mu.RUnlock()

	if !ok {
		return errs.NewError(CodeUnknownRule, fmt.Sprintf("unknown rule %q", name), nil).
			WithContext("rule", name).(*errs.Error)
	}

	if err := rule(value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// ValidateAll applies every named rule to value. Failures are collected into
// a *val.ValidationError keyed by rule name; nil means every rule passed.
func (v *Validator) ValidateAll(value any, names ...string) error {
	report := val.NewValidationError()
	for _, name := range names {
		v.collect(report, name, name, value)
	}

	if !report.HasErrors() {
		return nil
	}

	return report
}

// ValidateStruct checks the exported fields of a struct or struct pointer.
// A field that val.IsFieldRequired reports as required must not be zero.
// The rules listed in a field's validate tag run on non-zero values only. Failures
// are keyed by val.GetFieldName.
func (v *Validator) ValidateStruct(target any) error {
	rv := reflect.ValueOf(target)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return errs.ErrInvalidInput("target", fmt.Sprintf("%T is not a struct", target))
	}

	report := val.NewValidationError()
	rt := rv.Type()

	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := val.GetFieldName(field)
		value := rv.Field(i)

		if val.IsZeroValue(value) {
			if val.IsFieldRequired(field) {
				report.AddWithCode(name, ErrRequired.Message, val.ErrCodeRequired, nil)
			}

			continue
		}

		for rule := range strings.SplitSeq(field.Tag.Get(ValidateTag), ",") {
			if rule = strings.TrimSpace(rule); rule != "" {
				v.collect(report, name, rule, value.Interface())
			}
		}
	}

	if !report.HasErrors() {
		return nil
	}

	return report
}

// Rules returns the registered rule names, sorted.
func (v *Validator) Rules() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return slices.Sorted(maps.Keys(v.rules))
}

func (v *Validator) collect(report *val.ValidationError, field, rule string, value any) {
	err := v.Validate(rule, value)
	if err == nil {
		return
	}

	var coded *errs.Error
	if errors.As(err, &coded) {
		report.AddWithCode(field, coded.Message, coded.Code, value)

		return
	}

	report.Add(field, err.Error(), value)
}

func required(value any) error {
	if value == nil {
		return ErrRequired
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if val.IsZeroValue(rv) {
			return ErrRequired
		}
	}

	return nil
}

func nonEmpty(value any) error {
	if err := required(value); err != nil {
		return err
	}

	if val.IsZeroValue(reflect.ValueOf(value)) {
		return ErrEmpty
	}

	return nil
}

func format(valid func(string) bool) Rule {
	return func(value any) error {
		s, ok := value.(string)
		if !ok || !valid(s) {
			return ErrInvalidFormat
		}

		return nil
	}
}
