package validator

import (
	"errors"
	"fmt"
	"strings"

	"todo-app/src/domain"

	"github.com/go-playground/validator/v10"
)

// Rule tags applied to todo fields.
const (
	TitleRule       = "not_blank,max=100"
	DescriptionRule = "max=500"
	PriorityRule    = "oneof=low medium high"
)

// CustomValidator は拡張バリデーション機能を提供
type CustomValidator struct {
	validator *validator.Validate
}

// ValidationError はバリデーションエラーの詳細情報
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationErrors は複数のバリデーションエラー
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// NewCustomValidator creates a new custom validator instance
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	cv := &CustomValidator{validator: v}

	// カスタムバリデーションルールを登録
	_ = v.RegisterValidation("not_blank", cv.validateNotBlank)
	_ = v.RegisterValidation("no_control_chars", cv.validateNoControlChars)

	return cv
}

// Validate validates a struct and returns detailed error information
func (cv *CustomValidator) Validate(s interface{}) error {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	validationErrors := make([]ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: generateErrorMessage(fe.Field(), fe.Tag(), fe.Param()),
		})
	}
	return ValidationErrors{Errors: validationErrors}
}

// ValidateTitle checks an already trimmed title.
func (cv *CustomValidator) ValidateTitle(title string) error {
	return cv.validateVar("title", title, TitleRule)
}

// ValidateDescription checks an already trimmed description.
func (cv *CustomValidator) ValidateDescription(description string) error {
	return cv.validateVar("description", description, DescriptionRule)
}

// ValidatePriority checks a priority value. Empty means "use the default".
func (cv *CustomValidator) ValidatePriority(priority string) error {
	if priority == "" {
		return nil
	}
	return cv.validateVar("priority", priority, PriorityRule)
}

func (cv *CustomValidator) validateVar(field string, value string, rule string) error {
	err := cv.validator.Var(value, rule)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}
	fe := fieldErrors[0]
	return domain.NewValidationError(field, reasonFor(field, fe.Tag()), generateErrorMessage(field, fe.Tag(), fe.Param()))
}

// reasonFor maps a failed rule to the domain's validation reason.
func reasonFor(field, tag string) domain.ValidationReason {
	switch {
	case field == "title" && (tag == "not_blank" || tag == "required"):
		return domain.ReasonEmptyTitle
	case field == "title" && tag == "max":
		return domain.ReasonTitleTooLong
	case field == "description" && tag == "max":
		return domain.ReasonDescriptionTooLong
	case field == "priority":
		return domain.ReasonInvalidPriority
	default:
		return domain.ValidationReason(tag)
	}
}

// カスタムバリデーション関数

func (cv *CustomValidator) validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func (cv *CustomValidator) validateNoControlChars(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r < 32 && r != 9 && r != 10 && r != 13 { // タブ、改行、復帰以外の制御文字を拒否
			return false
		}
	}
	return true
}

// generateErrorMessage generates user-friendly error messages
func generateErrorMessage(field, tag, param string) string {
	switch tag {
	case "required", "not_blank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "no_control_chars":
		return fmt.Sprintf("%s contains invalid characters", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
