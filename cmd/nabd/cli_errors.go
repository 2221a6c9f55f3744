package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/jllopis/nabd/pkg/errors"
)

// CLIError wraps NabdError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.NabdError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(ne *errors.NabdError, hint string) *CLIError {
	return &CLIError{NabdError: ne, Hint: hint}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.NabdError == nil {
		return "unknown error"
	}
	msg := e.NabdError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the NabdError to errors.As.
func (e *CLIError) Unwrap() error {
	return e.NabdError
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	ne := errors.New(errors.CodeInvalidInput, "configuration error", err).
		WithContext("config_path", configPath)
	hint := "check the --set values and NABD_ environment variables"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(ne, hint)
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	ne := errors.New(errors.CodeInvalidInput, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg)
	return NewCLIError(ne, "run 'nabd help' for usage information")
}

// NewSetupError reports a component that could not be built.
func NewSetupError(err error, component string) *CLIError {
	ne := errors.AsNabdError(err)
	hint := fmt.Sprintf("check the %s section of the configuration", component)
	return NewCLIError(errors.New(ne.Code, component+" setup failed", err).WithContext("component", component), hint)
}

// printError prints err to stderr, as JSON when asked.
func printError(err error, asJSON bool) {
	code, message, hint := errors.CodeInternal, err.Error(), ""
	var cliErr *CLIError
	var ne *errors.NabdError
	switch {
	case stderrors.As(err, &cliErr) && cliErr.NabdError != nil:
		code, message, hint = cliErr.Code, errors.UserMessage(cliErr.NabdError), cliErr.Hint
	case stderrors.As(err, &ne):
		code, message = ne.Code, errors.UserMessage(ne)
	}

	if asJSON {
		payload, _ := json.Marshal(map[string]any{"error": map[string]string{
			"code":    string(code),
			"message": message,
			"hint":    hint,
		}})
		fmt.Fprintln(os.Stderr, string(payload))
		return
	}
	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", code, message)
	if hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", hint)
	}
}
