package errors_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, errors.HTTPStatusForCode(errors.ErrCodeNotFound))
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.ErrCodeBusinessLogic))
	assert.Equal(t, http.StatusUnprocessableEntity, errors.HTTPStatusForCode(errors.ErrCodeValidation))
	assert.Equal(t, http.StatusConflict, errors.HTTPStatusForCode(errors.ErrCodeVersioningConflict))
	assert.Equal(t, http.StatusNotImplemented, errors.HTTPStatusForCode(errors.ErrCodeNotImplemented))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode("NOPE_1"))
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "versioning conflict", errors.DefaultMessageForCode(errors.ErrCodeVersioningConflict))
	assert.Equal(t, "unknown error", errors.DefaultMessageForCode("NOPE_1"))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, errors.IsClientError(errors.ErrCodeBusinessLogic))
	assert.False(t, errors.IsClientError(errors.ErrCodeDatabaseError))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "SYN", errors.ModuleForCode(errors.ErrCodeBusinessLogic))
	assert.Equal(t, "COMMON", errors.ModuleForCode(errors.ErrCodeNotFound))
	assert.Equal(t, "UNKNOWN", errors.ModuleForCode(errors.CodeOK))
}
