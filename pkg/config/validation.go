package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidMethods lists the accepted HTTP methods, lowercase.
var ValidMethods = []string{"get", "put", "post", "patch", "delete", "head", "options"}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validator handles configuration validation.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates a decoded command tree.
func (v *Validator) Validate(tree *CommandTree) error {
	v.errors = make(ValidationErrors, 0)

	if tree.Version == "" {
		v.addError("version", "version is required")
	}
	if tree.MaxRecursionCount < 0 {
		v.addError("max_recursion_count", "max_recursion_count must be non-negative")
	}
	if tree.OAuth != nil {
		v.validateOAuth(tree.OAuth)
	}

	seen := make(map[string]bool, len(tree.Subcommands))
	for _, scmd := range tree.Subcommands {
		field := "subcommands." + scmd.Name
		if scmd.Name == "" {
			v.addError("subcommands", "subcommand name is required")
		}
		if seen[scmd.Name] {
			v.addError(field, "duplicate subcommand")
		}
		seen[scmd.Name] = true
		v.validateSubcommand(field, scmd)
	}

	if len(v.errors) > 0 {
		return v.errors
	}

	return nil
}

func (v *Validator) validateOAuth(o *OAuth) {
	if o.ClientID == "" {
		v.addError("oauth.client_id", "client_id is required")
	}
	if o.AuthURL == "" {
		v.addError("oauth.auth_url", "auth_url is required")
	}
	if o.TokenURL == "" {
		v.addError("oauth.token_url", "token_url is required")
	}
	if o.HeaderKey == "" {
		v.addError("oauth.header_key", "header_key is required")
	}
	switch o.TokenStorage {
	case "", "file", "keyring":
	default:
		v.addError("oauth.token_storage", "token_storage must be file or keyring")
	}
}

func (v *Validator) validateSubcommand(field string, scmd *Subcommand) {
	if req, ok := scmd.Action.(*RequestAction); ok {
		if req.Path == "" {
			v.addError(field+".path", "path is required unless script is set")
		}
		// Templated methods are checked once expanded.
		if !strings.Contains(req.Method, "{{") && !IsValidMethod(req.Method) {
			v.addError(field+".method", fmt.Sprintf("method must be one of %s", strings.Join(ValidMethods, ", ")))
		}
	}

	args := make(map[string]bool, len(scmd.Args))
	flags := make(map[string]bool, len(scmd.Args))
	shorts := make(map[string]bool, len(scmd.Args))
	for _, arg := range scmd.Args {
		argField := field + ".args." + arg.Name
		if args[arg.Name] {
			v.addError(argField, "duplicate argument")
		}
		args[arg.Name] = true

		if arg.IsPositional() {
			continue
		}
		if flags[arg.FlagName()] {
			v.addError(argField, fmt.Sprintf("flag --%s is declared twice", arg.FlagName()))
		}
		flags[arg.FlagName()] = true

		if arg.Short != "" {
			if len([]rune(arg.Short)) != 1 {
				v.addError(argField+".short", "short must be a single character")
			}
			if shorts[arg.Short] {
				v.addError(argField+".short", fmt.Sprintf("flag -%s is declared twice", arg.Short))
			}
			shorts[arg.Short] = true
		}
	}
}

// IsValidMethod reports whether method names an accepted HTTP method,
// ignoring case.
func IsValidMethod(method string) bool {
	return slices.Contains(ValidMethods, strings.ToLower(method))
}

// addError adds a validation error.
func (v *Validator) addError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}
