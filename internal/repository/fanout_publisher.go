package repository

import (
	"context"
	"errors"

	domrepo "CryptoEdge/internal/domain/repository"
)

// FanoutPublisher delivers every event to all sinks. A failing sink does not
// stop delivery to the others.
type FanoutPublisher struct {
	sinks []domrepo.Publisher
}

var _ domrepo.Publisher = (*FanoutPublisher)(nil)

// NewFanoutPublisher ignores nil sinks.
func NewFanoutPublisher(sinks ...domrepo.Publisher) *FanoutPublisher {
	f := &FanoutPublisher{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *FanoutPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
