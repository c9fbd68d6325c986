package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type leadPayload struct {
	Name  string  `json:"name" validate:"required"`
	Email string  `json:"email" validate:"required,email"`
	Value float64 `json:"estimated_value" validate:"gte=0"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := leadPayload{Name: "Ada", Email: "ada@example.com", Value: 1200}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(leadPayload{Email: "invalid", Value: -1})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 3)

	fields := map[string]string{}
	for _, v := range vErrs {
		fields[v.Field] = v.Message()
	}
	require.Equal(t, "name is required", fields["name"])
	require.Equal(t, "email must be a valid email address", fields["email"])
	require.Equal(t, "estimated_value must be at least 0", fields["estimated_value"])
}

func TestValidateVarUsesFieldName(t *testing.T) {
	err := ValidateVar("email", "nope", "required,email")
	require.Error(t, err)
	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Equal(t, "email", vErrs[0].Field)

	require.NoError(t, ValidateVar("email", "ada@example.com", "required,email"))
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("hexcolor_token", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) == 7 && fl.Field().String()[0] == '#'
	})
	require.NoError(t, err)

	type custom struct {
		Color string `validate:"hexcolor_token"`
	}

	require.NoError(t, ValidateStruct(custom{Color: "#3b82f6"}))
	require.Error(t, ValidateStruct(custom{Color: "blue"}))
}
