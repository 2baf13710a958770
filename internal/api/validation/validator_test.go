package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fieldops/job-scheduling/pkg/util/errorutil"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Date  string `json:"date" validate:"required,date"`
	Clock string `json:"clock" validate:"required,clock"`
}

func TestStructAcceptsValidPayload(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(sample{Email: "a@b.io", Date: "2024-03-01", Clock: "09:30"}))
}

func TestStructReportsFieldsByJSONName(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "nope", Date: "01/03/2024", Clock: "25:00"})
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	fields, ok := de.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "date", fields["date"])
	assert.Equal(t, "clock", fields["clock"])
}
