// Package common holds error values shared across features.
package common

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the caller is authenticated but not allowed to act
	// on this entity.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState means the operation is not valid for the entity's
	// current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument means the input is malformed or out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInsufficientFunds means the payer's points balance cannot cover the
	// operation.
	ErrInsufficientFunds = errors.New("insufficient points")
)

// HTTPStatus maps a taxonomy error to its response status code. Anything
// outside the taxonomy is an internal failure.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrInsufficientFunds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
