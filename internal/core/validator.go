package core

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"dttools/internal/types"
)

// Validator wraps go-playground/validator with domain-specific rules and
// translates validation failures into structured AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
//
// Custom tags:
//   - plan_name:     value is one of the catalog plan names.
//   - addon_key:     value belongs to the closed add-on key set.
//   - export_format: value is a recognized export format.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field names from json tags so error details match the wire format.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("plan_name", func(fl validator.FieldLevel) bool {
		switch types.PlanName(fl.Field().String()) {
		case types.PlanFree, types.PlanPro, types.PlanTeam, types.PlanEnterprise:
			return true
		}
		return false
	})

	_ = v.RegisterValidation("addon_key", func(fl validator.FieldLevel) bool {
		return types.IsKnownAddonKey(types.AddonKey(fl.Field().String()))
	})

	_ = v.RegisterValidation("export_format", func(fl validator.FieldLevel) bool {
		switch types.ExportFormat(fl.Field().String()) {
		case types.FormatPDF, types.FormatPNG, types.FormatCSV, types.FormatMarkdown:
			return true
		}
		return false
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates the given struct against its validate tags.
// On failure it returns a *types.AppError (400) whose Details map field
// names to human-readable messages.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: the caller passed a non-struct. This is a
		// programming error, not user input.
		v.logger.Error("validator received non-struct value", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "invalid validation target", err)
	}

	details := make(map[string]any, len(validationErrs))
	code := types.ErrCodeValidationInvalidJSON
	for i, fe := range validationErrs {
		details[fe.Field()] = fieldErrorMessage(fe)
		if i == 0 {
			code = fieldErrorCode(fe)
		}
	}

	return types.NewAppErrorWithDetails(code, "request validation failed", nil, details)
}

// fieldErrorCode picks the error code for a single field failure.
func fieldErrorCode(fe validator.FieldError) types.ErrorCode {
	switch fe.Tag() {
	case "required":
		return types.ErrCodeValidationMissingField
	case "email":
		return types.ErrCodeValidationInvalidEmail
	case "plan_name":
		return types.ErrCodeValidationInvalidPlan
	case "addon_key":
		return types.ErrCodeValidationInvalidAddon
	case "export_format":
		return types.ErrCodeValidationFormat
	default:
		return types.ErrCodeValidationInvalidJSON
	}
}

// fieldErrorMessage renders a human-readable message for a field failure.
func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "plan_name":
		return "unknown plan name"
	case "addon_key":
		return "unknown add-on key"
	case "export_format":
		return "unknown export format"
	case "url":
		return "must be a valid URL"
	default:
		return "failed validation rule: " + fe.Tag()
	}
}
