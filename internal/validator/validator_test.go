package validator

import (
	"errors"
	"testing"

	"github.com/example/pneumoscan/internal/classification"
)

func TestValidateRejectsUnsupportedTypesRegardlessOfSize(t *testing.T) {
	sizes := []int64{0, 1024, MaxUploadSize, MaxUploadSize + 1, 50 * MaxUploadSize}
	types := []string{"", "text/plain", "image/gif", "image/webp", "IMAGE/PNG", "application/pdf"}

	for _, mimeType := range types {
		for _, size := range sizes {
			err := Validate(classification.SelectedFile{Name: "x", MIMEType: mimeType, SizeBytes: size})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("type %q size %d: expected ValidationError, got %v", mimeType, size, err)
			}
			if vErr.Reason != ReasonInvalidType || vErr.Error() != MessageInvalidType {
				t.Fatalf("type %q size %d: unexpected rejection %+v", mimeType, size, vErr)
			}
		}
	}
}

func TestValidateAcceptsSupportedTypesWithinLimit(t *testing.T) {
	for _, mimeType := range []string{"image/jpeg", "image/png", "image/jpg"} {
		for _, size := range []int64{0, 1, 2 * 1024 * 1024, MaxUploadSize} {
			if err := Validate(classification.SelectedFile{MIMEType: mimeType, SizeBytes: size}); err != nil {
				t.Fatalf("type %q size %d: expected accept, got %v", mimeType, size, err)
			}
		}
	}
}

func TestValidateRejectsOversizedImage(t *testing.T) {
	err := Validate(classification.SelectedFile{MIMEType: "image/png", SizeBytes: 10 * 1024 * 1024})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Reason != ReasonTooLarge {
		t.Fatalf("unexpected reason %q", vErr.Reason)
	}
	if vErr.Error() != "File size is too large. Please select an image under 5MB." {
		t.Fatalf("unexpected message %q", vErr.Error())
	}
}
