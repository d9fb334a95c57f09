package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/car_dealership/internal/validation"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("access denied")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = validation.ErrValidation
)

// Principal is the authenticated caller.
type Principal struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// CanAccess reports whether p may touch a record created by owner.
func (p Principal) CanAccess(owner uuid.UUID) bool {
	return p.IsAdmin || p.UserID == owner
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
