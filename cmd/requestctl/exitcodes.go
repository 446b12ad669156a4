package main

import (
	"errors"

	"github.com/iota-uz/projecthub/modules/requests/services"
	"github.com/iota-uz/projecthub/pkg/serrors"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitForbidden  = 4
	exitStale      = 5
	exitTransport  = 6
	exitPartial    = 7
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	var verrs serrors.ValidationErrors
	var partial *services.PartialFailureError
	switch {
	case errors.As(err, &partial):
		return exitPartial
	case errors.As(err, &verrs), errors.Is(err, services.ErrRejected):
		return exitValidation
	case errors.Is(err, services.ErrForbidden):
		return exitForbidden
	case errors.Is(err, services.ErrStale), errors.Is(err, services.ErrTaskApproved):
		return exitStale
	case errors.Is(err, services.ErrTransport), errors.Is(err, services.ErrInFlight):
		return exitTransport
	case errors.Is(err, services.ErrNotLoaded):
		return exitUsage
	}
	return exitFailure
}
