// Package flow sequences one onboarding session: collecting a profile,
// resolving it into schemes, and presenting the result.
package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/metrics"
	"github.com/ppiankov/yojana/internal/model"
	"go.uber.org/zap"
)

// State of the onboarding flow
type State string

const (
	StateCollecting State = "collecting"
	StateResolving  State = "resolving"
	StatePresenting State = "presenting"
)

// DefaultMinResolving is how long the resolving state lasts at minimum
const DefaultMinResolving = 3 * time.Second

var (
	ErrResolutionInFlight = errors.New("a resolution is already in flight")
	ErrNotCollecting      = errors.New("profile already submitted; restart to submit a new one")
	ErrClosed             = errors.New("flow controller closed")
)

// Resolver maps a profile to schemes without failing
type Resolver interface {
	Resolve(ctx context.Context, p model.Profile) []model.SchemeRecord
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, p model.Profile) []model.SchemeRecord

// Resolve calls f(ctx, p)
func (f ResolverFunc) Resolve(ctx context.Context, p model.Profile) []model.SchemeRecord {
	return f(ctx, p)
}

// Snapshot is a consistent view of the controller
type Snapshot struct {
	State      State                `json:"state"`
	Profile    *model.Profile       `json:"profile,omitempty"`
	Result     []model.SchemeRecord `json:"result"`
	Generation uint64               `json:"generation"`
	EnteredAt  time.Time            `json:"enteredAt"`
}

// Option configures a Controller
type Option func(*Controller)

// WithMinResolving sets the floor on the resolving state. Zero disables it.
func WithMinResolving(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.minResolving = d
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.log = logger.OrNop(l)
	}
}

// Controller owns the state of one session. All methods are safe for
// concurrent use; at most one resolution is in flight.
type Controller struct {
	resolver     Resolver
	minResolving time.Duration
	log          *zap.Logger

	mu         sync.Mutex
	state      State
	profile    *model.Profile
	result     []model.SchemeRecord
	generation uint64
	enteredAt  time.Time
	cancel     context.CancelFunc
	changed    chan struct{}
	closed     bool

	wg sync.WaitGroup
}

// New creates a controller in the collecting state
func New(resolver Resolver, opts ...Option) *Controller {
	c := &Controller{
		resolver:     resolver,
		minResolving: DefaultMinResolving,
		log:          zap.NewNop(),
		state:        StateCollecting,
		enteredAt:    time.Now(),
		changed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Named("flow")
	return c
}

// MinResolving returns the configured floor
func (c *Controller) MinResolving() time.Duration {
	return c.minResolving
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Profile returns the submitted profile; ok is false while collecting
func (c *Controller) Profile() (p model.Profile, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return model.Profile{}, false
	}
	return *c.profile, true
}

// Result returns the resolved schemes; ok is false until presenting
func (c *Controller) Result() (schemes []model.SchemeRecord, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePresenting {
		return nil, false
	}
	return cloneSchemes(c.result), true
}

// Snapshot returns the current state, profile and result together
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:      c.state,
		Generation: c.generation,
		EnteredAt:  c.enteredAt,
	}
	if c.profile != nil {
		p := *c.profile
		s.Profile = &p
	}
	if c.state == StatePresenting {
		s.Result = cloneSchemes(c.result)
	}
	return s
}

// Changed returns a channel that is closed on the next state transition
func (c *Controller) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// SubmitProfile validates p against every step and starts its resolution.
// It returns immediately; observe progress through Changed or WaitFor.
func (c *Controller) SubmitProfile(p model.Profile) error {
	if err := CheckProfile(p); err != nil {
		return err
	}
	p = p.Normalized()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	switch c.state {
	case StateResolving:
		return ErrResolutionInFlight
	case StatePresenting:
		return ErrNotCollecting
	}

	c.generation++
	gen := c.generation

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.profile = &p
	c.result = nil
	c.transitionLocked(StateResolving)

	c.wg.Add(1)
	go c.resolve(ctx, gen, p, c.enteredAt)

	return nil
}

// resolve runs on its own goroutine. The result is applied only if the
// generation is still current when both the resolver and the floor are done.
func (c *Controller) resolve(ctx context.Context, gen uint64, p model.Profile, started time.Time) {
	defer c.wg.Done()

	result := c.resolver.Resolve(ctx, p)

	if remaining := c.minResolving - time.Since(started); remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	}

	c.complete(gen, result)
}

func (c *Controller) complete(gen uint64, result []model.SchemeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != StateResolving {
		metrics.StaleResultsTotal.Inc()
		c.log.Debug("discarding stale resolution result",
			zap.Uint64("generation", gen),
			zap.Uint64("current", c.generation))
		return
	}

	if result == nil {
		result = []model.SchemeRecord{}
	}
	c.result = result
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.transitionLocked(StatePresenting)
}

// Restart discards the session's profile and result and returns to
// collecting. An in-flight resolution is cancelled and its result ignored.
func (c *Controller) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.profile = nil
	c.result = nil
	if c.state != StateCollecting {
		c.transitionLocked(StateCollecting)
	}
}

// WaitFor blocks until the controller reaches state or ctx is done
func (c *Controller) WaitFor(ctx context.Context, state State) (Snapshot, error) {
	for {
		c.mu.Lock()
		snap := c.snapshotLocked()
		ch := c.changed
		c.mu.Unlock()

		if snap.State == state {
			return snap, nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Wait blocks until no resolution goroutine is running
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels any in-flight resolution, waits for it to unwind and
// rejects further submissions
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.resetLocked()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) transitionLocked(to State) {
	from := c.state
	c.state = to
	c.enteredAt = time.Now()
	close(c.changed)
	c.changed = make(chan struct{})

	metrics.FlowTransitionsTotal.WithLabelValues(string(to)).Inc()
	c.log.Debug("flow transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Uint64("generation", c.generation))
}

func cloneSchemes(in []model.SchemeRecord) []model.SchemeRecord {
	if in == nil {
		return nil
	}
	out := make([]model.SchemeRecord, len(in))
	copy(out, in)
	return out
}
