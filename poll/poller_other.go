//go:build !linux && !darwin && !windows

package poll

import (
	"errors"
)

// fastPoller is unavailable on this platform, New always fails.
type fastPoller struct{}

func (p *fastPoller) init(int) error { return errors.ErrUnsupported }

func (p *fastPoller) close() error { return nil }

func (p *fastPoller) add(int, IOEvents) error { return errors.ErrUnsupported }

func (p *fastPoller) modify(int, IOEvents, IOEvents) error { return errors.ErrUnsupported }

func (p *fastPoller) remove(int, IOEvents) error { return errors.ErrUnsupported }

func (p *fastPoller) wait(int, int, func(int, IOEvents)) error { return errors.ErrUnsupported }

func (p *fastPoller) newWake() (int, int, error) { return 0, 0, errors.ErrUnsupported }

func (p *fastPoller) addWake(int) error { return errors.ErrUnsupported }

func (p *fastPoller) removeWake(int) error { return nil }

func (p *fastPoller) wake(int) error { return errors.ErrUnsupported }

func (p *fastPoller) drainWake(int) {}

func (p *fastPoller) closeWake(int, int) error { return nil }
