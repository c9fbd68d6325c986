package services

import (
	"errors"
	"sync"

	playground "github.com/go-playground/validator/v10"

	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/validator"
)

var registerRules sync.Once

// RegisterValidationRules installs the domain enum rules on the shared validator.
// It is safe to call more than once.
func RegisterValidationRules() {
	registerRules.Do(func() {
		rules := map[string]playground.Func{
			"lead_status": func(fl playground.FieldLevel) bool {
				return models.LeadStatus(fl.Field().String()).Valid()
			},
			"lead_priority": func(fl playground.FieldLevel) bool {
				return models.LeadPriority(fl.Field().String()).Valid()
			},
			"client_status": func(fl playground.FieldLevel) bool {
				return models.ClientStatus(fl.Field().String()).Valid()
			},
			"notification_type": func(fl playground.FieldLevel) bool {
				return models.NotificationType(fl.Field().String()).Valid()
			},
		}
		for tag, fn := range rules {
			if err := validator.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
	})
}

// validateInput runs struct validation and converts failures into a ValidationError.
func validateInput(input any) error {
	RegisterValidationRules()

	err := validator.ValidateStruct(input)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if errors.As(err, &failures) {
		return apperrors.NewValidation(failures.Error())
	}
	return apperrors.ErrValidation.WithInternal(err)
}

// validateField checks a single value against a validator tag expression.
func validateField(field string, value any, tag string) error {
	RegisterValidationRules()

	err := validator.ValidateVar(field, value, tag)
	if err == nil {
		return nil
	}

	var failures validator.ValidationErrors
	if errors.As(err, &failures) {
		return apperrors.NewValidation(failures.Error())
	}
	return apperrors.ErrValidation.WithInternal(err)
}
