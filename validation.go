package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	// Upload extensions accepted before decode; anything else is
	// rejected without reading the payload
	allowedUploadExtensions = map[string]bool{
		".wav": true,
	}

	// Max upload size, matching the API's multipart limit
	maxUploadSize = 512 << 20
)

// ValidateUpload checks an uploaded recording's name and size before it
// is queued. The payload itself is validated later by the decoder.
func ValidateUpload(name string, size int) error {
	if size == 0 {
		return fmt.Errorf("empty audio file")
	}

	if size > maxUploadSize {
		return fmt.Errorf("audio file must be %d MB or less", maxUploadSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if ext != "" && !allowedUploadExtensions[ext] {
		return fmt.Errorf("unsupported file type %s", ext)
	}

	return nil
}

// PasswordStrength represents password strength requirements
type PasswordStrength struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// DefaultPasswordStrength returns standard password requirements
func DefaultPasswordStrength() PasswordStrength {
	return PasswordStrength{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: false, // Optional for better UX
	}
}

// ValidatePasswordStrength validates password against strength requirements
// Returns error message if invalid, nil if valid
func ValidatePasswordStrength(password string, strength PasswordStrength) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}

	// Check minimum length
	if len(password) < strength.MinLength {
		return fmt.Errorf("password must be at least %d characters", strength.MinLength)
	}

	// Check maximum length (prevent DoS)
	if len(password) > 128 {
		return fmt.Errorf("password must be 128 characters or less")
	}

	var (
		hasUpper   = false
		hasLower   = false
		hasNumber  = false
		hasSpecial = false
	)

	// Check character requirements
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	// Build error message for missing requirements
	var missing []string

	if strength.RequireUpper && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if strength.RequireLower && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if strength.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if strength.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one %s", strings.Join(missing, ", "))
	}

	return nil
}

// ValidatePassword validates password with default strength requirements
func ValidatePassword(password string) error {
	return ValidatePasswordStrength(password, DefaultPasswordStrength())
}
