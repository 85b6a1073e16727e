package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsFirstViolation(t *testing.T) {
	v := NewValidator().
		Field("date", "2024-02-30", CalendarDate).
		Field("status", "  ", Required).
		Field("provider", "Dr. Smith", Required)

	require.True(t, v.HasErrors())
	require.Len(t, v.Errors(), 2)

	err := v.Error()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "date", ve.Field)
	assert.Equal(t, "calendarDate", ve.Constraint)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, v.ErrorMessage(), "status")
}

func TestCalendarDate(t *testing.T) {
	tests := []struct {
		value   interface{}
		wantErr bool
	}{
		{"2024-03-20", false},
		{"2024-02-29", false},
		{"2023-02-29", true},
		{"2024-3-20", true},
		{"20/03/2024", true},
		{42, true},
	}
	for _, tt := range tests {
		err := CalendarDate("date", tt.value)
		if tt.wantErr {
			assert.NotNil(t, err, "value %v", tt.value)
		} else {
			assert.Nil(t, err, "value %v", tt.value)
		}
	}
}

func TestNotEqualAndRequired(t *testing.T) {
	assert.NotNil(t, NotEqual("<UNKNOWN>")("provider", "<UNKNOWN>"))
	assert.Nil(t, NotEqual("<UNKNOWN>")("provider", "Dr. Smith"))
	assert.NotNil(t, Required("provider", "   "))
}
