// Package pool implements a synchronous, thread-safe database connection
// pool: it acquires physical connections from a Provider, keeps them alive
// across logical checkouts, enforces concurrency limits, reclaims
// connections held too long, validates liveness, and hands out proxies
// that recycle the underlying connection on Close instead of destroying
// it.
//
// The pool is purely reactive — work happens only on caller goroutines, via
// one mutex and one condition variable. There is no background eviction
// thread; Shutdown, ForceCloseAll, the configuration setters and the
// finalizer fallback are the only ways connections are closed outside of
// Acquire/release.
package pool

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Config enumerates pool behavior, with documented defaults.
type Config struct {
	// MaxActive caps concurrent checked-out connections.
	MaxActive int
	// MaxIdle caps retained idle connections.
	MaxIdle int
	// MaxCheckoutMillis is the threshold after which an active handle
	// becomes reclaimable by a waiting Acquire.
	MaxCheckoutMillis time.Duration
	// WaitMillis bounds a single iteration of the condition-variable wait.
	WaitMillis time.Duration
	// LocalBadTolerance is the number of extra bad-connection retries
	// allowed per Acquire call beyond MaxIdle.
	LocalBadTolerance int

	// PingQuery, PingEnabled and PingIdleThresholdMillis gate the
	// liveness probe. PingIdleThresholdMillis < 0 disables idle-gating
	// (the probe always runs when PingEnabled is true).
	PingQuery               string
	PingEnabled             bool
	PingIdleThresholdMillis time.Duration

	// URL, User, Password make up the pool's expected type code. An
	// Acquire call with an empty user and password uses User and Password
	// in their place, both for Provider.Open and for the handle's type
	// code; URL is not passed to Provider.Open. Mutating them (via the
	// Set* methods) forces the pool closed and fresh.
	URL      string
	User     string
	Password string

	// Logger receives Debug lines for swallowed rollback, close and probe
	// failures. Lifecycle events (force-close, overdue reclamation) are
	// not logged. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxActive:               10,
		MaxIdle:                 5,
		MaxCheckoutMillis:       20 * time.Second,
		WaitMillis:              20 * time.Second,
		LocalBadTolerance:       3,
		PingIdleThresholdMillis: -1,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxActive <= 0 {
		c.MaxActive = 10
	}
	if c.MaxIdle < 0 {
		c.MaxIdle = 0
	}
	if c.MaxCheckoutMillis <= 0 {
		c.MaxCheckoutMillis = 20 * time.Second
	}
	if c.WaitMillis <= 0 {
		c.WaitMillis = 20 * time.Second
	}
	if c.LocalBadTolerance < 0 {
		c.LocalBadTolerance = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats is a read-only snapshot of the pool's counters and list sizes,
// for diagnostics and tests.
type Stats struct {
	Idle   int
	Active int

	RequestCount                                int64
	HadToWaitCount                               int64
	BadConnectionCount                           int64
	ClaimedOverdueConnectionCount                int64
	AccumulatedRequestTime                       time.Duration
	AccumulatedWaitTime                          time.Duration
	AccumulatedCheckoutTime                      time.Duration
	AccumulatedCheckoutTimeOfOverdueConnections  time.Duration

	ExpectedTypeCode int64
}

// Pool is the synchronized container holding idle and active connection
// handles. All mutable fields below are guarded by mu; cond is tied to the
// same mutex and is broadcast whenever a connection enters the idle set or
// the pool is closed, per a notify-all discipline.
type Pool struct {
	cfg      Config
	provider Provider
	logger   *slog.Logger
	probe    *livenessProbe

	mu   sync.Mutex
	cond *sync.Cond

	url, user, password string
	expectedTypeCode     int64

	idle   []*connectionHandle
	active []*connectionHandle

	closed bool

	requestCount                                 int64
	hadToWaitCount                                int64
	accumulatedRequestTime                        time.Duration
	accumulatedWaitTime                           time.Duration
	accumulatedCheckoutTime                       time.Duration
	badConnectionCount                            int64
	claimedOverdueConnectionCount                 int64
	accumulatedCheckoutTimeOfOverdueConnections   time.Duration
}

// NewPool creates a Pool against the given Provider. Non-positive
// MaxActive, MaxCheckoutMillis and WaitMillis are replaced with the
// documented defaults, negative MaxIdle and LocalBadTolerance are clamped
// to zero, and a nil Logger becomes slog.Default(); other zero values are
// kept as given.
func NewPool(cfg Config, provider Provider) (*Pool, error) {
	if provider == nil {
		return nil, errors.New("connpool: provider is required")
	}
	cfg.applyDefaults()

	p := &Pool{
		cfg:      cfg,
		provider: provider,
		logger:   cfg.Logger,
		url:      cfg.URL,
		user:     cfg.User,
		password: cfg.Password,
	}
	p.cond = sync.NewCond(&p.mu)
	p.expectedTypeCode = typeCode(p.url, p.user, p.password)
	p.probe = &livenessProbe{
		enabled:       cfg.PingEnabled,
		query:         cfg.PingQuery,
		idleThreshold: cfg.PingIdleThresholdMillis,
		logger:        p.logger,
	}

	runtime.SetFinalizer(p, finalizePool)
	return p, nil
}

// finalizePool is the escape-hatch cleanup: if the Pool itself becomes
// unreachable, close whatever physical connections remain.
// This is not a correctness mechanism — callers should call Shutdown.
func finalizePool(p *Pool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forceCloseAllLocked()
}

// Acquire implements idle reuse, then grow, then overdue reclamation, then
// a bounded condition-variable wait, with a liveness check on every
// candidate and a bounded number of bad-connection retries. ctx
// cancellation aborts a blocked wait cleanly; it does not cancel
// in-flight physical I/O (Provider.Open, the probe, rollback).
func (p *Pool) Acquire(ctx context.Context, user, password string) (Conn, error) {
	requestStart := time.Now()
	localBadCount := 0
	waitCounted := false

	p.mu.Lock()
	if user == "" && password == "" {
		user, password = p.user, p.password
	}
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}

		var candidate *connectionHandle

		switch {
		case len(p.idle) > 0:
			candidate = p.idle[0]
			p.idle = p.idle[1:]

		case len(p.active) < p.cfg.MaxActive:
			// The mutex is held across the provider's Open call,
			// accepting the throughput cost for simpler reasoning
			// about the active-count cap.
			phys, err := p.provider.Open(ctx, user, password)
			if err != nil {
				p.mu.Unlock()
				return nil, errors.Wrap(err, "connpool: opening physical connection")
			}
			candidate = newConnectionHandle(phys, typeCode(p.url, user, password))

		case p.overdueLocked():
			candidate = p.reclaimLocked()

		default:
			if !waitCounted {
				p.hadToWaitCount++
				waitCounted = true
			}
			if err := p.waitLocked(ctx); err != nil {
				p.mu.Unlock()
				return nil, err
			}
			continue
		}

		if p.probe.check(candidate) {
			if autoCommit, err := candidate.physical.AutoCommit(); err == nil && !autoCommit {
				if rerr := candidate.physical.Rollback(); rerr != nil {
					p.logger.Debug("acquire: rollback before handoff failed", "conn_id", candidate.connID, "err", rerr)
				}
			}
			candidate.typeCode = typeCode(p.url, user, password)
			now := time.Now()
			candidate.checkedOutAt = now
			candidate.lastUsedAt = now

			p.active = append(p.active, candidate)
			p.requestCount++
			p.accumulatedRequestTime += time.Since(requestStart)
			p.mu.Unlock()
			return &connProxy{handle: candidate, pool: p}, nil
		}

		p.badConnectionCount++
		localBadCount++
		if localBadCount > p.cfg.MaxIdle+p.cfg.LocalBadTolerance {
			p.mu.Unlock()
			return nil, ErrNoGoodConnection
		}
		// Candidate discarded; loop retries from the top with mu held.
	}
}

// overdueLocked reports whether the oldest active handle has been checked
// out longer than MaxCheckoutMillis. Must be called with mu held.
func (p *Pool) overdueLocked() bool {
	if len(p.active) == 0 {
		return false
	}
	return time.Since(p.active[0].checkedOutAt) > p.cfg.MaxCheckoutMillis
}

// reclaimLocked steals the oldest overdue active handle's physical
// connection for a new handle. Must be called with mu held; the returned
// handle is not yet in any set.
func (p *Pool) reclaimLocked() *connectionHandle {
	old := p.active[0]
	p.active = p.active[1:]

	now := time.Now()
	dur := old.checkoutDuration(now)
	p.claimedOverdueConnectionCount++
	p.accumulatedCheckoutTimeOfOverdueConnections += dur
	p.accumulatedCheckoutTime += dur

	if autoCommit, err := old.physical.AutoCommit(); err == nil && !autoCommit {
		if rerr := old.physical.Rollback(); rerr != nil {
			p.logger.Debug("reclaim: rollback failed, reusing connection anyway", "conn_id", old.connID, "err", rerr)
		}
	}

	return old.succeed()
}

// waitLocked blocks on the pool's condition variable for at most
// WaitMillis, or until ctx is done, or until the pool is closed. It must
// be called with mu held and returns with mu held. A non-nil error means
// Acquire should abandon cleanly without a connection.
func (p *Pool) waitLocked(ctx context.Context) error {
	waitStart := time.Now()

	timer := time.AfterFunc(p.cfg.WaitMillis, p.cond.Broadcast)
	defer timer.Stop()

	if done := ctx.Done(); done != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-done:
				p.cond.Broadcast()
			case <-stop:
			}
		}()
	}

	p.cond.Wait() // releases mu, blocks, reacquires mu before returning

	p.accumulatedWaitTime += time.Since(waitStart)

	if p.closed {
		return ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// release returns a handle to the pool: recycle into idle if there is
// room and the identity still matches, otherwise roll back, close, and
// invalidate. It never returns an error to the caller: Conn.Close always
// reports success.
func (p *Pool) release(h *connectionHandle) {
	p.mu.Lock()

	idx := -1
	for i, a := range p.active {
		if a == h {
			idx = i
			break
		}
	}
	if idx >= 0 {
		p.active = append(p.active[:idx], p.active[idx+1:]...)
	}

	if !h.isValid() {
		p.badConnectionCount++
		p.mu.Unlock()
		return
	}

	p.accumulatedCheckoutTime += h.checkoutDuration(time.Now())

	if len(p.idle) < p.cfg.MaxIdle && h.typeCode == p.expectedTypeCode {
		if autoCommit, err := h.physical.AutoCommit(); err == nil && !autoCommit {
			if rerr := h.physical.Rollback(); rerr != nil {
				p.logger.Debug("release: rollback before recycle failed", "conn_id", h.connID, "err", rerr)
			}
		}
		p.idle = append(p.idle, h.succeed())
		p.cond.Broadcast()
		p.mu.Unlock()
		return
	}

	if autoCommit, err := h.physical.AutoCommit(); err == nil && !autoCommit {
		if rerr := h.physical.Rollback(); rerr != nil {
			p.logger.Debug("release: rollback before close failed", "conn_id", h.connID, "err", rerr)
		}
	}
	if err := h.physical.Close(); err != nil {
		p.logger.Debug("release: close failed", "conn_id", h.connID, "err", err)
	}
	h.invalidate()
	p.mu.Unlock()
}

// ForceCloseAll invalidates every handle, rolls back non-autocommit
// physical connections, closes them, and recomputes the expected type
// code. It is called on any configuration mutation and may also be
// called directly.
func (p *Pool) ForceCloseAll() {
	p.mu.Lock()
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) forceCloseAllLocked() {
	all := make([]*connectionHandle, 0, len(p.idle)+len(p.active))
	all = append(all, p.idle...)
	all = append(all, p.active...)

	var errs *multierror.Error
	for _, h := range all {
		if autoCommit, err := h.physical.AutoCommit(); err == nil && !autoCommit {
			if rerr := h.physical.Rollback(); rerr != nil {
				errs = multierror.Append(errs, errors.Wrapf(rerr, "rollback conn %s", h.connID))
			}
		}
		if err := h.physical.Close(); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "close conn %s", h.connID))
		}
		h.invalidate()
	}

	if errs.ErrorOrNil() != nil {
		p.logger.Debug("forceCloseAll: some physical connections failed to roll back or close", "err", errs.ErrorOrNil())
	}

	p.idle = nil
	p.active = nil
	p.expectedTypeCode = typeCode(p.url, p.user, p.password)
	p.cond.Broadcast()
}

// Shutdown stops accepting new acquires, waits (bounded by ctx) for
// in-flight active connections to be released, then force-closes whatever
// remains. Unlike ForceCloseAll this permanently closes the pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		remaining := len(p.active)
		p.mu.Unlock()
		if remaining == 0 {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			p.mu.Lock()
			p.forceCloseAllLocked()
			p.mu.Unlock()
			return ctx.Err()
		}
	}

	p.mu.Lock()
	p.forceCloseAllLocked()
	p.mu.Unlock()
	return nil
}

// Stats returns a snapshot of the pool's counters and list sizes.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Idle:                                         len(p.idle),
		Active:                                       len(p.active),
		RequestCount:                                 p.requestCount,
		HadToWaitCount:                                p.hadToWaitCount,
		BadConnectionCount:                            p.badConnectionCount,
		ClaimedOverdueConnectionCount:                 p.claimedOverdueConnectionCount,
		AccumulatedRequestTime:                        p.accumulatedRequestTime,
		AccumulatedWaitTime:                           p.accumulatedWaitTime,
		AccumulatedCheckoutTime:                       p.accumulatedCheckoutTime,
		AccumulatedCheckoutTimeOfOverdueConnections:   p.accumulatedCheckoutTimeOfOverdueConnections,
		ExpectedTypeCode:                              p.expectedTypeCode,
	}
}

// SetURL, SetUser and SetPassword update the identity components that feed
// typeCode and force-close the pool.
func (p *Pool) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetUser(user string) {
	p.mu.Lock()
	p.user = user
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetPassword(password string) {
	p.mu.Lock()
	p.password = password
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

// SetMaxActive, SetMaxIdle, SetMaxCheckoutMillis and SetWaitMillis update
// pool caps and force-close the pool.
func (p *Pool) SetMaxActive(n int) {
	p.mu.Lock()
	if n > 0 {
		p.cfg.MaxActive = n
	}
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetMaxIdle(n int) {
	p.mu.Lock()
	if n >= 0 {
		p.cfg.MaxIdle = n
	}
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetMaxCheckoutMillis(d time.Duration) {
	p.mu.Lock()
	if d > 0 {
		p.cfg.MaxCheckoutMillis = d
	}
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetWaitMillis(d time.Duration) {
	p.mu.Lock()
	if d > 0 {
		p.cfg.WaitMillis = d
	}
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

// SetLocalBadTolerance is the sole setter that does not force-close the
// pool: it affects only per-Acquire retry bookkeeping.
func (p *Pool) SetLocalBadTolerance(n int) {
	p.mu.Lock()
	if n >= 0 {
		p.cfg.LocalBadTolerance = n
	}
	p.mu.Unlock()
}

// SetPingQuery, SetPingEnabled and SetPingIdleThresholdMillis update the
// liveness-probe gating and force-close the pool.
func (p *Pool) SetPingQuery(query string) {
	p.mu.Lock()
	p.cfg.PingQuery = query
	p.probe.query = query
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetPingEnabled(enabled bool) {
	p.mu.Lock()
	p.cfg.PingEnabled = enabled
	p.probe.enabled = enabled
	p.forceCloseAllLocked()
	p.mu.Unlock()
}

func (p *Pool) SetPingIdleThresholdMillis(d time.Duration) {
	p.mu.Lock()
	p.cfg.PingIdleThresholdMillis = d
	p.probe.idleThreshold = d
	p.forceCloseAllLocked()
	p.mu.Unlock()
}
