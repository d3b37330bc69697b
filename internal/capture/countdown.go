package capture

import (
	"sync"
	"time"
)

// Countdown defaults.
const (
	DefaultCountdownStart    = 3
	DefaultCountdownInterval = time.Second
)

// CountdownState is a snapshot of a Countdown. Value is nil when idle.
type CountdownState struct {
	Value      *int
	IsCounting bool
}

// CountdownOptions configures a Countdown. Zero values use the defaults.
type CountdownOptions struct {
	Start    int
	Interval time.Duration
	// OnTick receives the remaining count after each tick except the last
	// (N-1 down to 1).
	OnTick func(remaining int)
	// OnComplete fires once, on the Nth tick.
	OnComplete func()
}

// Countdown ticks from Start down to zero and then fires OnComplete exactly
// once. Callbacks run on the countdown goroutine without locks held; one that
// is already running when Stop is called still finishes.
type Countdown struct {
	opts CountdownOptions

	mu       sync.Mutex
	value    int
	counting bool
	gen      uint64
	stop     chan struct{}
}

// NewCountdown returns an idle Countdown.
func NewCountdown(opts CountdownOptions) *Countdown {
	if opts.Start <= 0 {
		opts.Start = DefaultCountdownStart
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultCountdownInterval
	}
	return &Countdown{opts: opts}
}

// Start begins counting. It is a no-op returning false while a countdown is
// already active.
func (c *Countdown) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counting {
		return false
	}
	c.counting = true
	c.value = c.opts.Start
	c.gen++
	c.stop = make(chan struct{})

	go c.run(c.gen, c.stop)
	return true
}

// Stop cancels an active countdown: no further ticks and no completion.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.counting {
		return
	}
	c.counting = false
	c.value = 0
	c.gen++
	close(c.stop)
	c.stop = nil
}

// State returns the current value and whether a countdown is running.
func (c *Countdown) State() CountdownState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.counting {
		return CountdownState{}
	}
	v := c.value
	return CountdownState{Value: &v, IsCounting: true}
}

func (c *Countdown) run(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.value--
		if c.value > 0 {
			remaining := c.value
			c.mu.Unlock()
			if c.opts.OnTick != nil {
				c.opts.OnTick(remaining)
			}
			continue
		}

		c.value = 0
		c.counting = false
		c.stop = nil
		c.mu.Unlock()

		if c.opts.OnComplete != nil {
			c.opts.OnComplete()
		}
		return
	}
}
