package pollchan

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// channelOptions holds configuration options for channel creation.
type channelOptions struct {
	logger *logiface.Logger[logiface.Event]
	shards int
}

// Option configures a channel, see [New] and [NewBounded].
type Option interface {
	applyChannel(*channelOptions) error
}

// channelOptionImpl implements Option.
type channelOptionImpl struct {
	applyChannelFunc func(*channelOptions) error
}

func (x *channelOptionImpl) applyChannel(opts *channelOptions) error {
	return x.applyChannelFunc(opts)
}

// WithLogger configures structured logging. A nil logger disables logging,
// which is the default.
//
// The channel logs lifecycle events at debug level, and failures to wake a
// registered poller at error level. The latter use [logiface.Builder.Limit],
// so they are subject to any rate limit configured on the logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &channelOptionImpl{func(opts *channelOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithShards sets the number of shards backing a bounded channel. More shards
// reduce contention between producers, at the cost of cross-producer
// ordering. Each Sender always writes to the same shard, so per-Sender order
// is preserved regardless.
//
// The count must be a power of two, otherwise ErrInvalidShards is returned.
// Defaults to 1, which gives a single FIFO across all producers. Ignored by
// unbounded channels.
func WithShards(shards int) Option {
	return &channelOptionImpl{func(opts *channelOptions) error {
		if shards <= 0 || shards&(shards-1) != 0 {
			return fmt.Errorf("%w: %d", ErrInvalidShards, shards)
		}
		opts.shards = shards
		return nil
	}}
}

// resolveChannelOptions applies Option instances to channelOptions.
func resolveChannelOptions(opts []Option) (*channelOptions, error) {
	cfg := &channelOptions{
		shards: 1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyChannel(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
