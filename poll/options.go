package poll

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// defaultEventBufferSize is the number of OS events fetched per wait, when
// not limited by the caller's buffer.
const defaultEventBufferSize = 256

// pollerOptions holds configuration options for Poller creation.
type pollerOptions struct {
	logger          *logiface.Logger[logiface.Event]
	eventBufferSize int
}

// Option configures a Poller instance.
type Option interface {
	applyPoller(*pollerOptions) error
}

// pollerOptionImpl implements Option.
type pollerOptionImpl struct {
	applyPollerFunc func(*pollerOptions) error
}

func (x *pollerOptionImpl) applyPoller(opts *pollerOptions) error {
	return x.applyPollerFunc(opts)
}

// WithLogger configures structured logging. A nil logger disables logging,
// which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &pollerOptionImpl{func(opts *pollerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithEventBufferSize sets the size of the internal buffer used to receive
// events from the OS. Each Poll fetches at most min(size, len(events)).
// Defaults to 256.
func WithEventBufferSize(size int) Option {
	return &pollerOptionImpl{func(opts *pollerOptions) error {
		if size <= 0 {
			return fmt.Errorf("poll: invalid event buffer size: %d", size)
		}
		opts.eventBufferSize = size
		return nil
	}}
}

// resolvePollerOptions applies Option instances to pollerOptions.
func resolvePollerOptions(opts []Option) (*pollerOptions, error) {
	cfg := &pollerOptions{
		eventBufferSize: defaultEventBufferSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPoller(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
