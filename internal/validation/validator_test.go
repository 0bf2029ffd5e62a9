package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha/internal/validation"
)

type sample struct {
	Limit int      `validate:"gte=1,lte=100"`
	Tags  []string `validate:"max=3,dive,min=2,max=64,tagname"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, validation.Struct(&sample{Limit: 10, Tags: []string{"vegan", "rock-climbing"}}))
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	err := validation.Struct(&sample{Limit: 0, Tags: []string{"Bad Tag"}})
	require.Error(t, err)

	var ve *validation.RequestValidationError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.IsValidation())
	require.Len(t, ve.Fields, 2)
	assert.Equal(t, "Limit", ve.Fields[0].Field)
	assert.Contains(t, ve.Error(), "greater than or equal to 1")
	assert.Equal(t, "tagname", ve.Fields[1].Tag)
}

func TestErrorf(t *testing.T) {
	err := validation.Errorf("AgeMin", "age_min must not exceed age_max")
	assert.EqualError(t, err, "age_min must not exceed age_max")
}
