package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"payment-service/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := apperrors.Validation("Missing payment verification parameters")

	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.False(t, errors.Is(err, apperrors.ErrGateway))
	assert.False(t, errors.Is(err, apperrors.ErrSignatureMismatch))

	wrapped := fmt.Errorf("handler: %w", apperrors.SignatureMismatch())
	assert.True(t, errors.Is(wrapped, apperrors.ErrSignatureMismatch))
}

func TestGatewayCarriesCause(t *testing.T) {
	cause := errors.New("The api key provided is invalid")
	err := apperrors.Gateway(cause)

	assert.True(t, errors.Is(err, apperrors.ErrGateway))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "The api key provided is invalid", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.Code)
}

func TestFrom(t *testing.T) {
	appErr := apperrors.Validation("bad input")
	assert.Same(t, appErr, apperrors.From(fmt.Errorf("wrap: %w", appErr)))

	plain := errors.New("boom")
	got := apperrors.From(plain)
	assert.True(t, errors.Is(got, apperrors.ErrInternal))
	assert.Equal(t, "Internal server error", got.Message)
	assert.True(t, errors.Is(got, plain))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, apperrors.StatusCode(nil))
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(apperrors.Validation("x")))
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(apperrors.SignatureMismatch()))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(apperrors.Gateway(nil)))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(errors.New("boom")))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "Payment verification failed", apperrors.SignatureMismatch().Error())
	assert.Equal(t, "Internal server error: disk full", apperrors.Internal(errors.New("disk full")).Error())
}
