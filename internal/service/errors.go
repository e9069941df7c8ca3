package service

import (
	"context"
	"errors"

	"github.com/alexanderramin/planmigrate/internal/domain"
)

// readFailure makes sure a source failure is classified as a read error.
func readFailure(op string, err error) error {
	var re *domain.ReadError
	if errors.As(err, &re) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.ReadError{Op: op, Err: err}
}
