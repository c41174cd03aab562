package application

import "fmt"

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordPolicy describes the rules a new password must satisfy.
type PasswordPolicy struct {
	RequiredLength         int
	RequireDigit           bool
	RequireUppercase       bool
	RequireLowercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordPolicy: at least 6 characters with an upper, a lower and a digit; symbols optional.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		RequiredLength:   6,
		RequireDigit:     true,
		RequireUppercase: true,
		RequireLowercase: true,
	}
}

// Validate returns every rule the password violates, or nil.
func (p PasswordPolicy) Validate(password string) error {
	var errs IdentityErrors
	if len([]rune(password)) < p.RequiredLength {
		errs = append(errs, IdentityError{
			Code:        CodePasswordTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", p.RequiredLength),
		})
	}
	if len(password) > MaxPasswordBytes {
		errs = append(errs, IdentityError{
			Code:        CodePasswordTooLong,
			Description: fmt.Sprintf("Passwords must be at most %d bytes.", MaxPasswordBytes),
		})
	}

	var hasDigit, hasUpper, hasLower, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		default:
			hasSymbol = true
		}
	}

	if p.RequireNonAlphanumeric && !hasSymbol {
		errs = append(errs, IdentityError{Code: CodePasswordRequiresNonAlphanumeric, Description: "Passwords must have at least one non alphanumeric character."})
	}
	if p.RequireDigit && !hasDigit {
		errs = append(errs, IdentityError{Code: CodePasswordRequiresDigit, Description: "Passwords must have at least one digit ('0'-'9')."})
	}
	if p.RequireLowercase && !hasLower {
		errs = append(errs, IdentityError{Code: CodePasswordRequiresLower, Description: "Passwords must have at least one lowercase ('a'-'z')."})
	}
	if p.RequireUppercase && !hasUpper {
		errs = append(errs, IdentityError{Code: CodePasswordRequiresUpper, Description: "Passwords must have at least one uppercase ('A'-'Z')."})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
