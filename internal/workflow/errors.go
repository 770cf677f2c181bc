package workflow

import (
	"errors"

	"github.com/example/pneumoscan/internal/backendclient"
	"github.com/example/pneumoscan/internal/validator"
)

// User-facing messages raised by the controller itself.
const (
	MessageNoFile      = "Please select an image first."
	MessageUnavailable = "An error occurred while analyzing the image. Please try again."
)

// UserMessage maps an error to the text shown in the error banner.
// Backend and validation messages are shown verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *validator.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var serverErr *backendclient.ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}

	var transportErr *backendclient.TransportError
	if errors.As(err, &transportErr) && transportErr.Message != "" {
		return transportErr.Message
	}

	return MessageUnavailable
}
