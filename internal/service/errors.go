package service

import (
	"errors"
	"fmt"
)

var (
	// ErrHealthCheckFailed - backend недоступен или не отвечает на health probe.
	ErrHealthCheckFailed = errors.New("generation backend is unhealthy")
	// ErrInvocationTimeout - backend не ответил за отведенное время.
	ErrInvocationTimeout = errors.New("generation backend call timed out")
	// ErrInvocation - любая другая ошибка вызова backend.
	ErrInvocation = errors.New("generation backend call failed")
)

// InvocationError несет сообщение backend о неудачном вызове.
type InvocationError struct {
	Backend string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%v (%s): %v", ErrInvocation, e.Backend, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrInvocation }
