package sink

import (
	"context"
	"errors"
)

// Tee fans every call out to several sinks. All sinks see every call; their
// errors are joined.
type Tee []Sink

func (t Tee) SendStart(ctx context.Context, h Header) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.SendStart(ctx, h))
	}
	return errors.Join(errs...)
}

func (t Tee) SendFrame(ctx context.Context, f Frame) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.SendFrame(ctx, f))
	}
	return errors.Join(errs...)
}

func (t Tee) SendStop(ctx context.Context) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.SendStop(ctx))
	}
	return errors.Join(errs...)
}
