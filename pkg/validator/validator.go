package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/arhen/satset.io/pkg/response"
	"github.com/go-playground/validator/v10"
)

const (
	AliasMinLength = 1
	AliasMaxLength = 16
	MaxURLLength   = 2048
)

var validate *validator.Validate

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

func init() {
	validate = validator.New()

	validate.RegisterValidation("alias", validateAliasField)
	validate.RegisterValidation("shorturl", validateURLField)
}

func Validate(data interface{}) []response.ValidationError {
	var validationErrors []response.ValidationError

	err := validate.Struct(data)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, response.ValidationError{
				Field:   err.Field(),
				Message: getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

// IsValidAlias reports whether s is an acceptable alias: 1-16 characters,
// alphanumeric only.
func IsValidAlias(s string) bool {
	if len(s) < AliasMinLength || len(s) > AliasMaxLength {
		return false
	}
	return aliasPattern.MatchString(s)
}

// IsValidURL applies the validity rules shared by client and server: the URL
// must parse, be at most 2048 characters, use https, and point at a real
// public domain rather than an IP literal or a local name.
func IsValidURL(rawURL string) bool {
	if len(rawURL) > MaxURLLength {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "https" {
		return false
	}

	return isValidDomain(parsed.Hostname())
}

func isIPAddress(hostname string) bool {
	if ipv4Pattern.MatchString(hostname) {
		return true
	}
	// Any colon means an IPv6 literal; url.Hostname strips the brackets.
	return strings.Contains(hostname, ":")
}

func isValidDomain(hostname string) bool {
	lower := strings.ToLower(hostname)
	if isIPAddress(lower) {
		return false
	}
	if lower == "localhost" || lower == "localhost.localdomain" {
		return false
	}
	if strings.HasSuffix(lower, ".local") || strings.HasSuffix(lower, ".internal") {
		return false
	}
	if !strings.Contains(lower, ".") {
		return false
	}

	parts := strings.Split(lower, ".")
	tld := parts[len(parts)-1]
	return len(tld) >= 2
}

func validateAliasField(fl validator.FieldLevel) bool {
	return IsValidAlias(fl.Field().String())
}

func validateURLField(fl validator.FieldLevel) bool {
	return IsValidURL(fl.Field().String())
}

func getErrorMessage(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "shorturl":
		return fmt.Sprintf("%s must be a valid https URL with a public hostname", field)
	case "alias":
		return fmt.Sprintf("%s must be 1-16 alphanumeric characters", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
