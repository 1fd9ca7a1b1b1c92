// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"

	"github.com/example/ecoprog/internal/core/effects"
	"github.com/example/ecoprog/internal/ports/secondary"
)

// EffectExecutor delivers committed signals.
// This is the "Imperative Shell" - the only place signal I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, sig effects.Signal) error
}

// DefaultEffectExecutor fans a signal out to every registered subscriber.
type DefaultEffectExecutor struct {
	subscribers []secondary.SignalSubscriber
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(subscribers ...secondary.SignalSubscriber) *DefaultEffectExecutor {
	return &DefaultEffectExecutor{subscribers: subscribers}
}

// Execute hands the signal to each subscriber. Every subscriber is tried even
// when an earlier one fails; failures are joined.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, sig effects.Signal) error {
	var errs []error
	for _, sub := range e.subscribers {
		if err := sub.HandleSignal(ctx, sig); err != nil {
			errs = append(errs, &subscriberError{name: sub.Name(), err: err})
		}
	}
	return errors.Join(errs...)
}

// subscriberError names the subscriber behind a delivery failure.
type subscriberError struct {
	name string
	err  error
}

func (e *subscriberError) Error() string {
	return fmt.Sprintf("subscriber %s: %v", e.name, e.err)
}

func (e *subscriberError) Unwrap() error { return e.err }

// isPermanent reports whether err, or every error it joins, was marked
// permanent with backoff.Permanent.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) == 0 {
			return false
		}
		for _, e := range errs {
			if !isPermanent(e) {
				return false
			}
		}
		return true
	}
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}
