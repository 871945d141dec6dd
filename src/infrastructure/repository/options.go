package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option configures a repository.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator overrides the id generator used on create.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		o.newID = newID
	}
}
