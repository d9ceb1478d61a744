package flows

import (
	"fmt"
	"strings"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationError is the structured failure returned by the request
// validation step that fronts every flow.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

const maxEmailLength = 254

func checkEmail(errs *[]FieldError, field, email string) {
	switch {
	case email == "":
		*errs = append(*errs, FieldError{Field: field, Reason: "must not be empty"})
	case len(email) > maxEmailLength:
		*errs = append(*errs, FieldError{Field: field, Reason: "too long"})
	case !strings.Contains(email, "@"):
		*errs = append(*errs, FieldError{Field: field, Reason: "not an email address"})
	}
}

func checkNonEmpty(errs *[]FieldError, field, value string) {
	if value == "" {
		*errs = append(*errs, FieldError{Field: field, Reason: "must not be empty"})
	}
}

func checkNewPassword(errs *[]FieldError, field, password string, minLength int) {
	if password == "" {
		*errs = append(*errs, FieldError{Field: field, Reason: "must not be empty"})
		return
	}
	if len(password) < minLength {
		*errs = append(*errs, FieldError{Field: field, Reason: fmt.Sprintf("must be at least %d bytes", minLength)})
	}
}

func validationResult(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

// ValidateLoginRequest rejects structurally invalid login input before any
// store access.
func ValidateLoginRequest(email, password string) error {
	var errs []FieldError
	checkEmail(&errs, "email", email)
	checkNonEmpty(&errs, "password", password)
	return validationResult(errs)
}

// ValidateRefreshRequest rejects empty refresh input.
func ValidateRefreshRequest(userID, refreshToken string) error {
	var errs []FieldError
	checkNonEmpty(&errs, "user_id", userID)
	checkNonEmpty(&errs, "refresh_token", refreshToken)
	return validationResult(errs)
}

// ValidateUserID rejects an empty user identifier.
func ValidateUserID(userID string) error {
	var errs []FieldError
	checkNonEmpty(&errs, "user_id", userID)
	return validationResult(errs)
}

// ValidateTokenInput rejects an empty raw purpose token.
func ValidateTokenInput(raw string) error {
	var errs []FieldError
	checkNonEmpty(&errs, "token", raw)
	return validationResult(errs)
}

// ValidateResetConfirm rejects bad reset confirmation input, including a new
// password below the policy floor.
func ValidateResetConfirm(raw, newPassword string, minLength int) error {
	var errs []FieldError
	checkNonEmpty(&errs, "token", raw)
	checkNewPassword(&errs, "new_password", newPassword, minLength)
	return validationResult(errs)
}

// ValidatePasswordChange rejects bad password-change input.
func ValidatePasswordChange(userID, currentPassword, newPassword string, minLength int) error {
	var errs []FieldError
	checkNonEmpty(&errs, "user_id", userID)
	checkNonEmpty(&errs, "current_password", currentPassword)
	checkNewPassword(&errs, "new_password", newPassword, minLength)
	return validationResult(errs)
}

// ValidateEmailChange rejects bad email-change input.
func ValidateEmailChange(userID, currentPassword, newEmail string) error {
	var errs []FieldError
	checkNonEmpty(&errs, "user_id", userID)
	checkNonEmpty(&errs, "current_password", currentPassword)
	checkEmail(&errs, "new_email", newEmail)
	return validationResult(errs)
}

// ValidateResetRequest rejects a structurally invalid reset email.
func ValidateResetRequest(email string) error {
	var errs []FieldError
	checkEmail(&errs, "email", email)
	return validationResult(errs)
}
