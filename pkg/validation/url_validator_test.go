package validation

import (
	"testing"

	apperrors "go-skin-inspector/internal/errors"
)

func expectMessage(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error %q, got none", message)
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	if appErr.Message != message {
		t.Errorf("Expected %q error, got: %s", message, appErr.Message)
	}
}

func TestValidate_ValidReferences(t *testing.T) {
	validator := NewURLValidator()

	validURLs := []string{
		"http://example.com/skin.jpg",
		"https://cdn.example.com/path/to/arm.png",
		"http://192.168.1.1/photo.jpg",
		"azblob://uploads/2024/patient-a.jpg",
	}

	for _, u := range validURLs {
		if err := validator.Validate(u); err != nil {
			t.Errorf("Expected valid URL %s to pass validation, got error: %v", u, err)
		}
	}
}

func TestValidate_EmptyURL(t *testing.T) {
	validator := NewURLValidator()

	for _, u := range []string{"", "   ", "\t\n"} {
		expectMessage(t, validator.Validate(u), "URL cannot be empty")
	}
}

func TestValidate_InvalidScheme(t *testing.T) {
	validator := NewURLValidator()

	invalidSchemeURLs := []string{
		"ftp://example.com/image.jpg",
		"file://local/path/image.jpg",
		"not-a-url",
		"data:image/png;base64,iVBORw0KGgo=",
	}

	for _, u := range invalidSchemeURLs {
		expectMessage(t, validator.Validate(u), "URL scheme not allowed")
	}
}

func TestValidate_NoHost(t *testing.T) {
	validator := NewURLValidator()

	for _, u := range []string{"http://", "https://", "http:///path"} {
		expectMessage(t, validator.Validate(u), "URL must have a valid host")
	}
}

func TestValidate_BlobWithoutName(t *testing.T) {
	validator := NewURLValidator()

	for _, u := range []string{"azblob://uploads", "azblob://uploads/"} {
		expectMessage(t, validator.Validate(u), "blob reference must name a blob")
	}
}

func TestValidate_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"analyzer.internal:8090"})

	if err := validator.Validate("http://analyzer.internal:8090/analyze"); err != nil {
		t.Errorf("Expected allowed host to pass, got: %v", err)
	}
	expectMessage(t, validator.Validate("http://elsewhere.test/analyze"), "URL host not allowed")
	expectMessage(t, validator.Validate("azblob://uploads/a.jpg"), "URL scheme not allowed")
}
