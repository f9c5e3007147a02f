package repository

import "errors"

var (
	// ErrNotFound: no existe la cuenta, identidad o sesión pedida.
	ErrNotFound = errors.New("not found")

	// ErrConflict: colisión de unicidad (sid repetido, identidad ya vinculada).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput: provider o subject vacíos, payload sin userId.
	ErrInvalidInput = errors.New("invalid input")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
