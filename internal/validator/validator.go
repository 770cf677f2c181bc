package validator

import (
	"github.com/example/pneumoscan/internal/classification"
)

// MaxUploadSize is the largest image accepted for analysis.
const MaxUploadSize = 5 * 1024 * 1024

// User-facing rejection messages.
const (
	MessageInvalidType = "Please select a valid image file (JPEG, JPG, or PNG)."
	MessageTooLarge    = "File size is too large. Please select an image under 5MB."
)

// Rejection reasons.
const (
	ReasonInvalidType = "invalid type"
	ReasonTooLarge    = "too large"
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/jpg":  {},
}

// ValidationError is returned for files rejected before any network call.
type ValidationError struct {
	Reason  string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the MIME type first, then the size.
func Validate(file classification.SelectedFile) error {
	if _, ok := allowedTypes[file.MIMEType]; !ok {
		return &ValidationError{Reason: ReasonInvalidType, Message: MessageInvalidType}
	}
	if file.SizeBytes > MaxUploadSize {
		return &ValidationError{Reason: ReasonTooLarge, Message: MessageTooLarge}
	}
	return nil
}
