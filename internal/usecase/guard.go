package usecase

import (
	"errors"
	"fmt"

	"github.com/achupradeep3050/crypto/internal/domain"
)

// guard runs a strategy call and turns a panic or error into ErrStrategy.
// ErrInsufficientHistory passes through untouched.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", domain.ErrStrategy, op, r)
		}
	}()
	if err := fn(); err != nil {
		if errors.Is(err, domain.ErrInsufficientHistory) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrStrategy, op, err)
	}
	return nil
}
