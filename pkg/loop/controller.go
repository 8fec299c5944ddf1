// Package loop drives batch exploration runs. A controller polls the store's
// solution count on a ticker and tells the host, over a channel, when to
// recompute and when the armed budget has been spent. The host owns the
// recompute itself; the controller never calls back into it, so nothing here
// can deadlock against the host's solve loop.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
)

// Counter is the slice of the store the controller depends on.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// State of the controller's run.
type State int

const (
	// StateIdle: no run armed; ticks are not being observed.
	StateIdle State = iota
	// StateArmed: a run is in progress and the store is being polled.
	StateArmed
	// StateExhausted: the armed budget was met; polling has stopped.
	StateExhausted
)

func (s State) String() string {
	return [...]string{"idle", "armed", "exhausted"}[s]
}

// EventKind classifies controller events.
type EventKind int

const (
	// Recompute: a new solution landed and budget remains; the host should
	// trigger the next evaluation.
	Recompute EventKind = iota
	// Exhausted: the budget was met; the run is over.
	Exhausted
)

// Event is one observation emitted to the host.
type Event struct {
	Kind  EventKind
	Count int64 // solutions observed at emission time
	Limit int64 // count at which the run ends
}

// DefaultPollInterval is used when Arm is given a non-positive interval.
const DefaultPollInterval = time.Second

// Controller runs at most one armed batch at a time.
type Controller struct {
	mu        sync.Mutex
	state     State
	counter   Counter
	logger    *logging.Logger
	lastCount int64
	limit     int64
	events    chan Event
	stop      chan struct{}
	done      chan struct{}
}

// NewController creates an idle controller over the given counter.
func NewController(counter Counter) *Controller {
	return &Controller{
		counter: counter,
		logger:  logging.GetLogger(),
		events:  make(chan Event, 16),
	}
}

// Events is the channel the host drains for recompute and exhaustion signals.
// Recompute events are coalesced if the host falls behind; state is always
// queryable through State.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the controller's current run state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastCount returns the most recent solution count the controller observed.
func (c *Controller) LastCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCount
}

// Arm starts a run of the given budget: the controller snapshots the current
// count as a baseline and polls until budget solutions have been added. A
// non-positive interval falls back to DefaultPollInterval. Arming an already
// armed controller is rejected.
func (c *Controller) Arm(ctx context.Context, budget int64, interval time.Duration) error {
	if budget <= 0 {
		return errors.New(errors.InvalidInput, "budget must be positive")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateArmed {
		return errors.New(errors.ValidationFailed, "controller is already armed")
	}

	baseline, err := c.counter.Count(ctx)
	if err != nil {
		if !errors.HasCode(err, errors.StoreBusy) {
			return err
		}
		// Busy store at arm time: start from the last known count.
		baseline = c.lastCount
	}

	c.state = StateArmed
	c.lastCount = baseline
	c.limit = baseline + budget
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go c.poll(ctx, interval, c.stop, c.done)
	return nil
}

// Disarm stops an armed run and returns the controller to idle. Safe to call
// in any state.
func (c *Controller) Disarm() {
	c.mu.Lock()
	if c.state != StateArmed {
		c.state = StateIdle
		c.mu.Unlock()
		return
	}
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

// poll is the timer goroutine. It only ever touches the store and the events
// channel; all host interaction happens on the host's side of the channel.
func (c *Controller) poll(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.mu.Lock()
			c.state = StateIdle
			c.mu.Unlock()
			return
		case <-ticker.C:
			if c.tick(ctx) {
				return
			}
		}
	}
}

// tick observes the count once and reports whether the run finished.
func (c *Controller) tick(ctx context.Context) bool {
	count, err := c.counter.Count(ctx)
	if err != nil {
		if errors.HasCode(err, errors.StoreBusy) {
			// A writer holds the file; reuse the cached count and try
			// again next tick.
			c.mu.Lock()
			count = c.lastCount
			c.mu.Unlock()
		} else {
			c.logger.Warn(ctx, "poll failed: %v", err)
			return false
		}
	}

	c.mu.Lock()
	if count <= c.lastCount {
		c.mu.Unlock()
		return false
	}
	c.lastCount = count
	finished := count >= c.limit
	limit := c.limit
	if finished {
		c.state = StateExhausted
	}
	c.mu.Unlock()

	// Every observed increase is acknowledged with a recompute signal, the
	// final one included; exhaustion follows it.
	c.send(Event{Kind: Recompute, Count: count, Limit: limit})
	if finished {
		c.send(Event{Kind: Exhausted, Count: count, Limit: limit})
		return true
	}
	return false
}

// send never blocks the timer goroutine. A full channel drops the event; the
// host can recover the run's position from State and LastCount.
func (c *Controller) send(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
