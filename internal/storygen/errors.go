package storygen

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence - ошибка записи дерева в хранилище.
	ErrPersistence = errors.New("failed to persist story")
	// ErrFallbackFailed - не удалось сохранить даже резервную историю.
	ErrFallbackFailed = errors.New("fallback story generation failed")
)

// PersistenceError описывает операцию хранилища, которая не удалась.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistErr(op string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
