package validator_test

import (
	"strings"
	"testing"

	"todo-app/src/domain"
	"todo-app/src/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomValidator_TodoFields(t *testing.T) {
	cv := validator.NewCustomValidator()

	tests := []struct {
		name       string
		validate   func() error
		wantReason domain.ValidationReason
	}{
		{
			name:     "valid title",
			validate: func() error { return cv.ValidateTitle("Buy milk") },
		},
		{
			name:       "empty title",
			validate:   func() error { return cv.ValidateTitle("") },
			wantReason: domain.ReasonEmptyTitle,
		},
		{
			name:       "whitespace title",
			validate:   func() error { return cv.ValidateTitle("   ") },
			wantReason: domain.ReasonEmptyTitle,
		},
		{
			name:     "title at limit counts runes",
			validate: func() error { return cv.ValidateTitle(strings.Repeat("日", 100)) },
		},
		{
			name:       "title too long",
			validate:   func() error { return cv.ValidateTitle(strings.Repeat("a", 101)) },
			wantReason: domain.ReasonTitleTooLong,
		},
		{
			name:     "empty description allowed",
			validate: func() error { return cv.ValidateDescription("") },
		},
		{
			name:       "description too long",
			validate:   func() error { return cv.ValidateDescription(strings.Repeat("a", 501)) },
			wantReason: domain.ReasonDescriptionTooLong,
		},
		{
			name:     "empty priority means default",
			validate: func() error { return cv.ValidatePriority("") },
		},
		{
			name:     "valid priority",
			validate: func() error { return cv.ValidatePriority("high") },
		},
		{
			name:       "invalid priority",
			validate:   func() error { return cv.ValidatePriority("urgent") },
			wantReason: domain.ReasonInvalidPriority,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.validate()
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			ve, ok := domain.AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantReason, ve.Reason)
			assert.NotEmpty(t, ve.Message)
		})
	}
}

func TestCustomValidator_Validate(t *testing.T) {
	cv := validator.NewCustomValidator()

	type request struct {
		Title    string `validate:"not_blank,max=100,no_control_chars"`
		Priority string `validate:"omitempty,oneof=low medium high"`
	}

	t.Run("正常なリクエスト", func(t *testing.T) {
		assert.NoError(t, cv.Validate(request{Title: "ok", Priority: "low"}))
	})

	t.Run("複数のエラー", func(t *testing.T) {
		err := cv.Validate(request{Title: "bad\x00title", Priority: "urgent"})
		require.Error(t, err)

		var ves validator.ValidationErrors
		require.ErrorAs(t, err, &ves)
		require.Len(t, ves.Errors, 2)
		assert.Equal(t, "no_control_chars", ves.Errors[0].Tag)
		assert.Equal(t, "oneof", ves.Errors[1].Tag)
		assert.Contains(t, err.Error(), "2 errors")
	})
}
