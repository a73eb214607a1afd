package application

import "fmt"

// UserError is the closed set of expected failures returned by Service.
// Only the types in this file implement it; anything else a Service method
// returns is an internal error.
type UserError interface {
	error
	userError()
}

// UserNotFoundError means no user matches Key (an id or an email).
type UserNotFoundError struct {
	Key string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user not found: %s", e.Key)
}

// UserValidationError means the input is well-formed but breaks a field rule.
type UserValidationError struct {
	Message string
	Details map[string]string
}

func (e *UserValidationError) Error() string {
	return e.Message
}

// UserAlreadyExistsError means another user already has Email.
type UserAlreadyExistsError struct {
	Email string
}

func (e *UserAlreadyExistsError) Error() string {
	return fmt.Sprintf("user with email %s already exists", e.Email)
}

func (*UserNotFoundError) userError()      {}
func (*UserValidationError) userError()    {}
func (*UserAlreadyExistsError) userError() {}
