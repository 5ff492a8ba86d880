package service

import (
	"errors"
)

// Error kinds the HTTP layer maps to status codes
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// kindError carries a client-facing message and unwraps to its kind
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

var (
	ErrUserNotFound       error = &kindError{ErrNotFound, "user not found"}
	ErrRecipeNotFound     error = &kindError{ErrNotFound, "recipe not found"}
	ErrTagNotFound        error = &kindError{ErrNotFound, "tag not found"}
	ErrIngredientNotFound error = &kindError{ErrNotFound, "ingredient not found"}

	ErrAlreadyFavorited  error = &kindError{ErrAlreadyExists, "recipe is already in favorites"}
	ErrAlreadyInCart     error = &kindError{ErrAlreadyExists, "recipe is already in the shopping cart"}
	ErrAlreadySubscribed error = &kindError{ErrAlreadyExists, "you are already subscribed to this author"}

	ErrNotFavorited    error = &kindError{ErrNotFound, "recipe is not in favorites"}
	ErrNotInCart       error = &kindError{ErrNotFound, "recipe is not in the shopping cart"}
	ErrNotSubscribed   error = &kindError{ErrNotFound, "you are not subscribed to this author"}
	ErrWrongPassword   error = &ValidationError{Field: "current_password", Message: "current password is incorrect"}
	ErrSelfSubscription      = errors.New("you cannot subscribe to yourself")
)

// ValidationError rejects a request because of one field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
