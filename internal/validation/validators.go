package validation

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/benvon/saveprompt/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("negative_style", validateNegativeStyle); err != nil {
		panic(fmt.Sprintf("failed to register negative_style validator: %v", err))
	}
	if err := Validate.RegisterValidation("data_category", validateDataCategory); err != nil {
		panic(fmt.Sprintf("failed to register data_category validator: %v", err))
	}
}

// validateNegativeStyle accepts either a models.NegativeStyle or its string name
func validateNegativeStyle(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		_, err := models.ParseNegativeStyle(field.String())
		return err == nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch models.NegativeStyle(field.Int()) {
		case models.NegativeStyleNeutral, models.NegativeStyleReject:
			return true
		}
	}
	return false
}

// validateDataCategory validates that a string names a known category
func validateDataCategory(fl validator.FieldLevel) bool {
	_, err := models.ParseCategory(fl.Field().String())
	return err == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateRequest checks a prompt request before it is shown
func ValidateRequest(req models.PromptRequest) error {
	if err := Validate.Struct(req); err != nil {
		return fmt.Errorf("invalid prompt request: %w", err)
	}
	return nil
}
