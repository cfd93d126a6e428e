package ussd

import "fmt"

// Code classifies engine failures so the transport layer can pick the right
// reply without inspecting error text.
type Code string

const (
	// CodeInvalidInput marks input that matched no choice or failed a
	// validator. Recoverable; the caller is reprompted.
	CodeInvalidInput Code = "invalid_input"
	// CodeSessionExpired marks a callback against an expired or abandoned
	// conversation. Recoverable; the caller restarts at the root.
	CodeSessionExpired Code = "session_expired"
	// CodeDependency marks a store or repository failure. The session stays
	// ACTIVE so the gateway's redelivery can retry.
	CodeDependency Code = "dependency"
	// CodeConfig marks a broken menu tree or wiring. Not recoverable at
	// runtime.
	CodeConfig Code = "config"
)

// Error is the engine's typed failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ussd: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("ussd: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func dependencyErr(msg string, err error) *Error {
	return &Error{Code: CodeDependency, Message: msg, Err: err}
}

func configErr(msg string) *Error {
	return &Error{Code: CodeConfig, Message: msg}
}
