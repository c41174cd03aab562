package application

import (
	"errors"
	"strings"
)

// Identity error codes reported by RoleManager and UserManager.
const (
	CodeInvalidEmail                    = "InvalidEmail"
	CodeInvalidUserName                 = "InvalidUserName"
	CodeDuplicateUserName               = "DuplicateUserName"
	CodeDuplicateEmail                  = "DuplicateEmail"
	CodeInvalidRoleName                 = "InvalidRoleName"
	CodeDuplicateRoleName               = "DuplicateRoleName"
	CodeRoleNotFound                    = "RoleNotFound"
	CodeUserAlreadyInRole               = "UserAlreadyInRole"
	CodeUserNotInRole                   = "UserNotInRole"
	CodePasswordTooShort                = "PasswordTooShort"
	CodePasswordTooLong                 = "PasswordTooLong"
	CodePasswordRequiresDigit           = "PasswordRequiresDigit"
	CodePasswordRequiresUpper           = "PasswordRequiresUpper"
	CodePasswordRequiresLower           = "PasswordRequiresLower"
	CodePasswordRequiresNonAlphanumeric = "PasswordRequiresNonAlphanumeric"
	CodePasswordMismatch                = "PasswordMismatch"
)

// IdentityError is a single rejection reason from the identity provider.
type IdentityError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// IdentityErrors is returned when an identity operation is rejected.
// Storage failures are returned as plain wrapped errors instead.
type IdentityErrors []IdentityError

func (e IdentityErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, ie := range e {
		parts = append(parts, ie.Code+": "+ie.Description)
	}
	return "identity: " + strings.Join(parts, "; ")
}

// Has reports whether code is among the errors.
func (e IdentityErrors) Has(code string) bool {
	for _, ie := range e {
		if ie.Code == code {
			return true
		}
	}
	return false
}

// ErrorDetails extracts the individual identity errors carried by err, if any.
func ErrorDetails(err error) []IdentityError {
	var ie IdentityErrors
	if errors.As(err, &ie) {
		return ie
	}
	return nil
}

// ErrorMap renders identity errors as code -> description for API error details.
func ErrorMap(err error) map[string]string {
	details := ErrorDetails(err)
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]string, len(details))
	for _, d := range details {
		out[d.Code] = d.Description
	}
	return out
}

func identityErr(code, description string) IdentityErrors {
	return IdentityErrors{{Code: code, Description: description}}
}
