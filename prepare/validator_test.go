package prepare

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/val"
	"go.uber.org/zap"
)

func preparedValidator(t *testing.T) *Validator {
	t.Helper()

	v := &Validator{Logger: zap.NewNop()}
	require.NoError(t, v.Prepare(context.Background()))

	return v
}

func TestValidator_Builtins(t *testing.T) {
	v := preparedValidator(t)

	assert.Equal(t, []string{RuleEmail, RuleISO8601, RuleNonEmpty, RuleRequired, RuleURL, RuleUUID}, v.Rules())

	var nilPtr *int

	assert.ErrorIs(t, v.Validate(RuleRequired, nil), ErrRequired)
	assert.ErrorIs(t, v.Validate(RuleRequired, nilPtr), ErrRequired)
	assert.NoError(t, v.Validate(RuleRequired, 0))
	assert.NoError(t, v.Validate(RuleRequired, ""))

	assert.ErrorIs(t, v.Validate(RuleNonEmpty, ""), ErrEmpty)
	assert.ErrorIs(t, v.Validate(RuleNonEmpty, []int{}), ErrEmpty)
	assert.ErrorIs(t, v.Validate(RuleNonEmpty, 0), ErrEmpty)
	assert.ErrorIs(t, v.Validate(RuleNonEmpty, nil), ErrRequired)
	assert.NoError(t, v.Validate(RuleNonEmpty, "x"))
	assert.NoError(t, v.Validate(RuleNonEmpty, 1))
}

func TestValidator_FormatRules(t *testing.T) {
	v := preparedValidator(t)

	tests := []struct {
		rule string
		good string
		bad  any
	}{
		{RuleEmail, "ops@example.com", "Ops <ops@example.com>"},
		{RuleUUID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "not-a-uuid"},
		{RuleURL, "https://example.com/x", "ftp://example.com"},
		{RuleISO8601, "2024-05-01T10:00:00Z", "2024-05-01"},
		{RuleEmail, "a@b.co", 42},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			assert.NoError(t, v.Validate(tt.rule, tt.good))
			assert.ErrorIs(t, v.Validate(tt.rule, tt.bad), ErrInvalidFormat)
		})
	}
}

func TestValidator_CustomRules(t *testing.T) {
	v := &Validator{Logger: zap.NewNop()}
	tooLong := errors.New("too long")

	require.NoError(t, v.Register(RuleRequired, func(any) error { return nil }))
	require.NoError(t, v.Register("short", func(value any) error {
		if s, _ := value.(string); len(s) > 3 {
			return tooLong
		}

		return nil
	}))
	require.Error(t, v.Register("", func(any) error { return nil }))
	require.Error(t, v.Register("nil", nil))

	require.NoError(t, v.Prepare(context.Background()))

	assert.NoError(t, v.Validate(RuleRequired, nil), "prepare keeps registered rules")
	assert.ErrorIs(t, v.Validate("short", "long"), tooLong)
	assert.ErrorIs(t, v.Validate("unknown", "x"), ErrUnknownRule)
}

func TestValidator_ValidateAll(t *testing.T) {
	v := preparedValidator(t)

	assert.NoError(t, v.ValidateAll("x", RuleRequired, RuleNonEmpty))

	err := v.ValidateAll("", RuleNonEmpty, "unknown", RuleRequired)
	require.Error(t, err)
	require.True(t, val.IsValidationError(err))

	var report *val.ValidationError
	require.ErrorAs(t, err, &report)
	assert.Equal(t, 2, report.Count())
	assert.Equal(t, val.ErrCodeMinLength, report.GetFieldErrors(RuleNonEmpty)[0].Code)
	assert.Equal(t, CodeUnknownRule, report.GetFieldErrors("unknown")[0].Code)
	assert.False(t, report.HasFieldError(RuleRequired))
}

func TestValidator_ValidateStruct(t *testing.T) {
	type signup struct {
		Email    string  `json:"email" validate:"email"`
		Nickname string  `json:"nickname,omitempty"`
		Referrer *string `json:"referrer"`
		Site     string  `json:"site,omitempty" validate:"url"`
		internal string
	}

	v := preparedValidator(t)

	require.NoError(t, v.ValidateStruct(&signup{Email: "ops@example.com"}))

	err := v.ValidateStruct(signup{Site: "not a url", internal: "x"})
	require.Error(t, err)

	var report *val.ValidationError
	require.ErrorAs(t, err, &report)
	assert.Equal(t, 2, report.Count())
	assert.Equal(t, val.ErrCodeRequired, report.GetFieldErrors("email")[0].Code)
	assert.Equal(t, val.ErrCodeInvalidFormat, report.GetFieldErrors("site")[0].Code)
	assert.False(t, report.HasFieldError("referrer"))

	err = v.ValidateStruct(signup{Email: "nope"})
	require.ErrorAs(t, err, &report)
	assert.Equal(t, []string{"email"}, fieldNames(report))

	assert.Error(t, v.ValidateStruct("plain"))
}

func fieldNames(report *val.ValidationError) []string {
	names := make([]string, 0, report.Count())
	for _, fe := range report.Errors {
		names = append(names, fe.Field)
	}

	return names
}
