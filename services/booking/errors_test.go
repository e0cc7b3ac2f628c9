package booking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please enter a valid name (at least 2 characters).",
		UserMessage(NewValidationError("Please enter a valid name (at least 2 characters).")))
	assert.Equal(t, "This booking is closed. Please start a new one.",
		UserMessage(NewInvalidStateError("This booking is closed. Please start a new one.")))

	// Not-found carries an internal booking id; the customer gets the
	// generic copy instead.
	msg := UserMessage(NewNotFoundError("LXR-1756450000000-ABC123"))
	assert.NotContains(t, msg, "LXR-")
	assert.Contains(t, msg, "start a new booking")

	assert.Contains(t, UserMessage(errors.New("mongo down")), "start a new booking")
}

func TestIsCode(t *testing.T) {
	err := NewAlreadyActiveError("LXR-1")
	assert.True(t, IsCode(err, CodeAlreadyActive))
	assert.False(t, IsCode(err, CodeValidation))
	assert.False(t, IsCode(nil, CodeValidation))
	assert.False(t, IsCode(errors.New("plain"), CodeValidation))
}
