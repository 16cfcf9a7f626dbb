// Package validator contains the pure field validators for extracted contact
// records. Every function is total: absent or empty input reports MISSING,
// nothing panics, nothing does I/O. The functions are deliberately
// stateless so an external orchestrator can expose them as tools without
// touching the rest of the service.
package validator

import (
	"regexp"
	"strings"

	"github.com/ashwinpo/email-review-workshop/internal/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// SAPIDPrefix is the fixed prefix of a customer identifier.
	SAPIDPrefix = "SAP"
	// sapIDDigits is the exact digit count following the prefix.
	sapIDDigits = 6
	// phoneDigits is the exact digit count of a valid phone number.
	phoneDigits = 10
)

var (
	sapIDPattern = regexp.MustCompile(`^SAP\d{6}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	nonDigit     = regexp.MustCompile(`\D`)

	titleCaser = cases.Title(language.English)
)

// SAPID validates a customer identifier: the SAP prefix followed by exactly
// six digits. Input is trimmed and upper-cased before matching; the
// normalized form is returned on success.
func SAPID(value string) domain.FieldValidation {
	fv := domain.FieldValidation{Field: domain.FieldSAPID}
	cleaned := strings.ToUpper(strings.TrimSpace(value))
	if cleaned == "" {
		fv.Reason = domain.ReasonMissing
		fv.Detail = "SAP ID is missing"
		return fv
	}
	if !sapIDPattern.MatchString(cleaned) {
		fv.Reason = domain.ReasonInvalidFormat
		fv.Detail = "expected SAP followed by 6 digits (SAPXXXXXX)"
		return fv
	}
	fv.Valid = true
	fv.Normalized = cleaned
	return fv
}

// Name validates a contact name: at least two whitespace-separated tokens.
// The normalized form is Title Case.
func Name(value string) domain.FieldValidation {
	fv := domain.FieldValidation{Field: domain.FieldContactName}
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		fv.Reason = domain.ReasonMissing
		fv.Detail = "contact name is missing"
		return fv
	}
	if len(strings.Fields(cleaned)) < 2 {
		fv.Reason = domain.ReasonInvalidFormat
		fv.Detail = "name must include first and last name"
		return fv
	}
	fv.Valid = true
	fv.Normalized = titleCaser.String(cleaned)
	return fv
}

// Email validates an address against a local@domain.tld shape. No network
// lookup is performed.
func Email(value string) domain.FieldValidation {
	fv := domain.FieldValidation{Field: domain.FieldContactEmail}
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		fv.Reason = domain.ReasonMissing
		fv.Detail = "email is missing"
		return fv
	}
	if !emailPattern.MatchString(cleaned) {
		fv.Reason = domain.ReasonInvalidFormat
		fv.Detail = "invalid email format"
		return fv
	}
	fv.Valid = true
	fv.Normalized = cleaned
	return fv
}

// Phone validates a phone number: exactly ten digits must remain after
// stripping every non-digit character. The normalized form is the canonical
// (XXX) XXX-XXXX rendering.
func Phone(value string) domain.FieldValidation {
	fv := domain.FieldValidation{Field: domain.FieldContactPhone}
	if strings.TrimSpace(value) == "" {
		fv.Reason = domain.ReasonMissing
		fv.Detail = "phone number is missing"
		return fv
	}
	digits := nonDigit.ReplaceAllString(value, "")
	if len(digits) != phoneDigits {
		fv.Reason = domain.ReasonInvalidFormat
		fv.Detail = "phone must have exactly 10 digits"
		return fv
	}
	fv.Valid = true
	fv.Normalized = FormatPhone(digits)
	return fv
}

// FormatPhone renders a 10-digit string as (XXX) XXX-XXXX. Strings of any
// other length are returned unchanged.
func FormatPhone(digits string) string {
	if len(digits) != phoneDigits {
		return digits
	}
	return "(" + digits[0:3] + ") " + digits[3:6] + "-" + digits[6:10]
}

// Fields runs every validator over the reviewable fields and returns the
// per-field results keyed by field name.
func Fields(fields domain.ContactFields) map[string]domain.FieldValidation {
	return map[string]domain.FieldValidation{
		domain.FieldSAPID:        SAPID(fields.SAPID),
		domain.FieldContactName:  Name(fields.ContactName),
		domain.FieldContactEmail: Email(fields.ContactEmail),
		domain.FieldContactPhone: Phone(fields.ContactPhone),
	}
}

// Normalize returns the fields with each valid value replaced by its
// canonical form. Invalid values are passed through untouched so the
// reviewer sees what was extracted.
func Normalize(fields domain.ContactFields) domain.ContactFields {
	out := fields
	if fv := SAPID(fields.SAPID); fv.Valid {
		out.SAPID = fv.Normalized
	}
	if fv := Name(fields.ContactName); fv.Valid {
		out.ContactName = fv.Normalized
	}
	if fv := Email(fields.ContactEmail); fv.Valid {
		out.ContactEmail = fv.Normalized
	}
	if fv := Phone(fields.ContactPhone); fv.Valid {
		out.ContactPhone = fv.Normalized
	}
	return out
}
