package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"adventure-server/internal/prompt"
)

// Invoker вызывает backend с жестким ограничением времени ожидания.
//
// Вызов выполняется в отдельной горутине с собственным контекстом. По истечении
// таймаута контекст отменяется, но остановка вызова не гарантирована: горутина
// может доработать в фоне, ее результат уходит в буферизованный канал и
// отбрасывается.
type Invoker struct {
	backend        Backend
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewInvoker создает Invoker с таймаутом по умолчанию (AI_TIMEOUT).
func NewInvoker(backend Backend, defaultTimeout time.Duration, logger *zap.Logger) *Invoker {
	return &Invoker{
		backend:        backend,
		defaultTimeout: defaultTimeout,
		logger:         logger.Named("Invoker"),
	}
}

type invokeResult struct {
	text string
	err  error
}

// Invoke возвращает сырой текст ответа. timeout <= 0 означает таймаут по умолчанию.
// Ошибки: ErrInvocationTimeout при истечении времени, *InvocationError в остальных случаях.
func (i *Invoker) Invoke(ctx context.Context, payload prompt.Payload, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = i.defaultTimeout
	}
	callCtx, cancel := context.WithCancel(ctx)

	results := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- invokeResult{err: fmt.Errorf("backend panicked: %v", r)}
			}
		}()
		text, err := i.backend.Generate(callCtx, payload)
		results <- invokeResult{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-results:
		cancel()
		if r.err != nil {
			return "", &InvocationError{Backend: i.backend.Name(), Err: r.err}
		}
		if r.text == "" {
			return "", &InvocationError{Backend: i.backend.Name(), Err: errors.New("empty response")}
		}
		return r.text, nil
	case <-timer.C:
		cancel()
		i.logger.Warn("Backend call abandoned after timeout",
			zap.String("backend", i.backend.Name()),
			zap.Duration("timeout", timeout))
		return "", fmt.Errorf("%w after %s", ErrInvocationTimeout, timeout)
	case <-ctx.Done():
		cancel()
		return "", &InvocationError{Backend: i.backend.Name(), Err: ctx.Err()}
	}
}
