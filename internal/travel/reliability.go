package travel

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"voyager/internal/travel/saga"
)

// ErrCircuitOpen indicates the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// RetryPolicy controls retry behavior for outbound calls.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      func(time.Duration) time.Duration
	Sleep       func(context.Context, time.Duration) error
	ShouldRetry func(error) bool
}

// Do executes the function with retries according to the policy.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = func(err error) bool {
			return !errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded) &&
				!errors.Is(err, ErrCircuitOpen)
		}
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn()
		if err == nil {
			return nil
		}
		if attempt == attempts || !shouldRetry(err) {
			return err
		}

		delay := p.BaseDelay
		if delay > 0 {
			delay = delay << (attempt - 1)
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		delay = jitter(delay)
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
	Now          func() time.Time
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// CircuitBreaker stops calls after repeated failures.
type CircuitBreaker struct {
	mu         sync.Mutex
	maxFails   int
	resetAfter time.Duration
	now        func() time.Time

	state          circuitState
	failures       int
	openedAt       time.Time
	halfOpenFlight bool
}

// NewCircuitBreaker constructs a circuit breaker with sane defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	maxFails := cfg.MaxFailures
	if maxFails < 1 {
		maxFails = 1
	}
	resetAfter := cfg.ResetTimeout
	if resetAfter <= 0 {
		resetAfter = 2 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		maxFails:   maxFails,
		resetAfter: resetAfter,
		now:        now,
		state:      circuitClosed,
	}
}

// Execute runs the given function while enforcing breaker state.
func (c *CircuitBreaker) Execute(fn func() error) error {
	if c == nil {
		return fn()
	}

	now := c.now()

	c.mu.Lock()
	switch c.state {
	case circuitOpen:
		if now.Sub(c.openedAt) < c.resetAfter {
			c.mu.Unlock()
			return ErrCircuitOpen
		}
		c.state = circuitHalfOpen
	case circuitHalfOpen:
		if c.halfOpenFlight {
			c.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	if c.state == circuitHalfOpen {
		c.halfOpenFlight = true
	}
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == circuitHalfOpen {
		c.halfOpenFlight = false
	}

	if err == nil {
		c.state = circuitClosed
		c.failures = 0
		return nil
	}

	if c.state == circuitHalfOpen {
		c.state = circuitOpen
		c.openedAt = now
		c.failures = 0
		return err
	}

	c.failures++
	if c.failures >= c.maxFails {
		c.state = circuitOpen
		c.openedAt = now
	}
	return err
}

// RateLimiter is a token-bucket limiter.
type RateLimiter struct {
	mu     sync.Mutex
	rate   time.Duration
	burst  int
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	onWait func(time.Duration)

	tokens int
	last   time.Time
}

// NewRateLimiter constructs a limiter that refills one token every rate.
func NewRateLimiter(rate time.Duration, burst int) *RateLimiter {
	limiter := &RateLimiter{
		rate:  rate,
		burst: burst,
		now:   time.Now,
		sleep: sleepWithContext,
	}
	limiter.tokens = burst
	limiter.last = limiter.now()
	return limiter
}

// OnWait registers a hook invoked with each wait before sleeping.
func (r *RateLimiter) OnWait(fn func(time.Duration)) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.onWait = fn
	r.mu.Unlock()
}

// Wait blocks until a token is available or the context ends.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.rate <= 0 || r.burst <= 0 {
		if ctx == nil {
			return nil
		}
		return ctx.Err()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		now := r.now()
		r.refill(now)
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		wait := r.rate - now.Sub(r.last)
		onWait := r.onWait
		r.mu.Unlock()
		if wait <= 0 {
			continue
		}
		if onWait != nil {
			onWait(wait)
		}
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *RateLimiter) refill(now time.Time) {
	if r.rate <= 0 {
		r.tokens = r.burst
		r.last = now
		return
	}
	elapsed := now.Sub(r.last)
	if elapsed < r.rate {
		return
	}
	add := int(elapsed / r.rate)
	if add <= 0 {
		return
	}
	r.tokens += add
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.last = r.last.Add(time.Duration(add) * r.rate)
}

// Guard bundles the three reliability controls applied to a provider call:
// rate limit first, then circuit breaker, with the retry policy around both.
type Guard struct {
	Limiter *RateLimiter
	Breaker *CircuitBreaker
	Retry   RetryPolicy
}

// Do runs the function under the guard's controls.
func (g Guard) Do(ctx context.Context, fn func() error) error {
	attempt := func() error {
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if g.Breaker != nil {
			return g.Breaker.Execute(fn)
		}
		return fn()
	}
	return g.Retry.Do(ctx, attempt)
}

// ReliableFlightClient wraps a FlightService with reliability controls.
type ReliableFlightClient struct {
	base  FlightService
	guard Guard
}

// NewReliableFlightClient constructs a reliability-wrapped flight client.
func NewReliableFlightClient(base FlightService, guard Guard) *ReliableFlightClient {
	return &ReliableFlightClient{base: base, guard: guard}
}

func (c *ReliableFlightClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails) (string, error) {
	var id string
	err := c.guard.Do(ctx, func() error {
		var callErr error
		id, callErr = c.base.Reserve(ctx, traveler, trip)
		return callErr
	})
	return id, err
}

func (c *ReliableFlightClient) Cancel(ctx context.Context, reservationID string) error {
	return c.guard.Do(ctx, func() error {
		return c.base.Cancel(ctx, reservationID)
	})
}

// ReliableHotelClient wraps a HotelService with reliability controls.
type ReliableHotelClient struct {
	base  HotelService
	guard Guard
}

// NewReliableHotelClient constructs a reliability-wrapped hotel client.
func NewReliableHotelClient(base HotelService, guard Guard) *ReliableHotelClient {
	return &ReliableHotelClient{base: base, guard: guard}
}

func (c *ReliableHotelClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.AccommodationPreferences) (string, error) {
	var id string
	err := c.guard.Do(ctx, func() error {
		var callErr error
		id, callErr = c.base.Reserve(ctx, traveler, trip, prefs)
		return callErr
	})
	return id, err
}

func (c *ReliableHotelClient) Cancel(ctx context.Context, reservationID string) error {
	return c.guard.Do(ctx, func() error {
		return c.base.Cancel(ctx, reservationID)
	})
}

// ReliableCarClient wraps a CarRentalService with reliability controls.
type ReliableCarClient struct {
	base  CarRentalService
	guard Guard
}

// NewReliableCarClient constructs a reliability-wrapped car rental client.
func NewReliableCarClient(base CarRentalService, guard Guard) *ReliableCarClient {
	return &ReliableCarClient{base: base, guard: guard}
}

func (c *ReliableCarClient) Reserve(ctx context.Context, traveler saga.TravelerInfo, trip saga.TripDetails, prefs saga.CarRentalPreferences) (string, error) {
	var id string
	err := c.guard.Do(ctx, func() error {
		var callErr error
		id, callErr = c.base.Reserve(ctx, traveler, trip, prefs)
		return callErr
	})
	return id, err
}

func (c *ReliableCarClient) Cancel(ctx context.Context, reservationID string) error {
	return c.guard.Do(ctx, func() error {
		return c.base.Cancel(ctx, reservationID)
	})
}

// ReliablePaymentClient wraps a PaymentService with reliability controls.
type ReliablePaymentClient struct {
	base  PaymentService
	guard Guard
}

// NewReliablePaymentClient constructs a reliability-wrapped payment client.
func NewReliablePaymentClient(base PaymentService, guard Guard) *ReliablePaymentClient {
	return &ReliablePaymentClient{base: base, guard: guard}
}

func (c *ReliablePaymentClient) Charge(ctx context.Context, traveler saga.TravelerInfo, details saga.PaymentDetails, amount float64) (string, error) {
	var id string
	err := c.guard.Do(ctx, func() error {
		var callErr error
		id, callErr = c.base.Charge(ctx, traveler, details, amount)
		return callErr
	})
	return id, err
}

func (c *ReliablePaymentClient) Refund(ctx context.Context, confirmationID string) error {
	return c.guard.Do(ctx, func() error {
		return c.base.Refund(ctx, confirmationID)
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
