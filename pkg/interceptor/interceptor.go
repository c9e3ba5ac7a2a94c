// Package interceptor coordinates requests that fail because the session
// token expired.
//
// One Interceptor is constructed at process start and shared by reference with
// the engine (as its Retrier) and every API client (as their Finisher). Failed
// 401 requests are parked until a refresh or new-session request completes,
// then all of them are retried or abandoned together.
package interceptor

import (
	"net/http"
	"sync"
	"sync/atomic"

	nethttp "github.com/milan604/netlayer/pkg/http"
	"github.com/milan604/netlayer/pkg/logger"
	"github.com/milan604/netlayer/pkg/metrics"
)

// State of the interceptor. It always matches the emptiness of the queue.
type State int

const (
	Idle State = iota
	AwaitingRefresh
)

func (s State) String() string {
	if s == AwaitingRefresh {
		return "awaiting_refresh"
	}
	return "idle"
}

// Outcome is applied uniformly to every waiter of an episode.
type Outcome int

const (
	OutcomeRetry Outcome = iota
	OutcomeAbandon
)

func (o Outcome) String() string {
	if o == OutcomeAbandon {
		return "abandon"
	}
	return "retry"
}

type waiter struct {
	request *http.Request
	resolve func(nethttp.RetryResult)
}

type delegateRef struct {
	d Delegate
}

// Interceptor is the process-wide token refresh coordinator.
type Interceptor struct {
	mu      sync.Mutex
	state   State
	queue   []*waiter
	episode uint64

	delegate atomic.Pointer[delegateRef]

	logger  logger.LogManager
	metrics *metrics.Collector
	notify  func(func())
	onEnded func(Outcome)
}

// Option configures the Interceptor.
type Option func(*Interceptor)

func WithDelegate(d Delegate) Option {
	return func(i *Interceptor) { i.SetDelegate(d) }
}

func WithLogger(l logger.LogManager) Option {
	return func(i *Interceptor) { i.logger = l }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(i *Interceptor) { i.metrics = c }
}

// WithEpisodeEnded registers a hook called after every drain, outside the lock.
func WithEpisodeEnded(fn func(Outcome)) Option {
	return func(i *Interceptor) { i.onEnded = fn }
}

// WithNotifier replaces how the episode-start notification is scheduled.
// The default runs it on a new goroutine.
func WithNotifier(schedule func(func())) Option {
	return func(i *Interceptor) { i.notify = schedule }
}

// New builds an Interceptor in the Idle state.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{
		logger: logger.NewNop(),
		notify: func(fn func()) { go fn() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var (
	_ nethttp.Retrier = (*Interceptor)(nil)
	_ Finisher        = (*Interceptor)(nil)
)

// SetDelegate replaces the delegate. A nil delegate turns every decision into
// do-not-retry; waiters already queued stay queued until drained or Reset.
func (i *Interceptor) SetDelegate(d Delegate) {
	if d == nil {
		i.delegate.Store(nil)
		return
	}
	i.delegate.Store(&delegateRef{d: d})
}

func (i *Interceptor) currentDelegate() Delegate {
	if ref := i.delegate.Load(); ref != nil {
		return ref.d
	}
	return nil
}

// State reports whether an expiry episode is in progress.
func (i *Interceptor) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Pending returns the number of parked requests.
func (i *Interceptor) Pending() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.queue)
}

// Retry parks a request that failed with 401 until the episode resolves.
// Anything else, and requests that were already retried once, resolve
// immediately to do-not-retry.
func (i *Interceptor) Retry(attempt *nethttp.Attempt, err error, completion func(nethttp.RetryResult)) {
	if !nethttp.IsStatus(err, http.StatusUnauthorized) {
		completion(nethttp.DoNotRetry)
		return
	}
	if attempt == nil || attempt.Request == nil || attempt.Cancelled() || attempt.RetryCount > 0 {
		completion(nethttp.DoNotRetry)
		return
	}

	d := i.currentDelegate()
	if d == nil || d.ClassifyRequest(attempt.Request) != RequestDefault {
		completion(nethttp.DoNotRetry)
		return
	}

	i.mu.Lock()
	d = i.currentDelegate()
	if d == nil {
		i.mu.Unlock()
		completion(nethttp.DoNotRetry)
		return
	}
	refreshed := d.Refresh(attempt.Request)
	if refreshed == nil {
		refreshed = attempt.Request
	}
	started, episode, pending := i.enqueueLocked(&waiter{request: refreshed, resolve: completion})
	i.mu.Unlock()

	i.logger.DebugF("parked %s %s for token refresh (episode %d, pending %d)",
		attempt.Request.Method, attempt.Request.URL.Redacted(), episode, pending)

	if started {
		i.metrics.EpisodeStarted()
		i.logger.InfoF("token expiry episode %d started", episode)
		i.notify(d.ExpiryEpisodeStarted)
	}
}

// enqueueLocked appends w and reports whether this opened a new episode.
func (i *Interceptor) enqueueLocked(w *waiter) (started bool, episode uint64, pending int) {
	if (i.state == Idle) != (len(i.queue) == 0) {
		panic("interceptor: state out of sync with queue")
	}
	started = i.state == Idle
	if started {
		i.episode++
		i.state = AwaitingRefresh
	}
	i.queue = append(i.queue, w)
	// The pending gauge changes only under the lock so it never disagrees with the queue.
	i.metrics.WaiterEnqueued(len(i.queue))
	return started, i.episode, len(i.queue)
}

// Finish inspects a completed request and drains the queue when it proves
// the session was refreshed or replaced. It returns only after every waiter
// has been resolved.
func (i *Interceptor) Finish(req *http.Request, responseData any, statusCode int) {
	if statusCode == http.StatusUnauthorized || req == nil {
		return
	}
	d := i.currentDelegate()
	if d == nil || i.State() == Idle {
		return
	}

	switch d.ClassifyRequest(req) {
	case RequestRefreshSession:
		i.drain(OutcomeRetry)
	case RequestNewSession:
		if d.ClassifyResponseData(responseData) == ResponseDataNewUser {
			i.drain(OutcomeAbandon)
		} else {
			i.drain(OutcomeRetry)
		}
	}
}

// Reset abandons every parked request and returns to Idle.
func (i *Interceptor) Reset() {
	i.drain(OutcomeAbandon)
}

// drain resolves every queued waiter exactly once, in FIFO order. The queue
// is swapped out under the lock; later arrivals open a new episode.
func (i *Interceptor) drain(outcome Outcome) {
	i.mu.Lock()
	waiters := i.queue
	episode := i.episode
	i.queue = nil
	i.state = Idle
	if len(waiters) > 0 {
		i.metrics.Drained(outcome.String(), len(waiters))
	}
	i.mu.Unlock()

	if len(waiters) == 0 {
		return
	}

	for _, w := range waiters {
		if outcome == OutcomeRetry {
			w.resolve(nethttp.RetryWith(w.request))
		} else {
			w.resolve(nethttp.DoNotRetry)
		}
	}

	i.logger.InfoF("token expiry episode %d ended: %d request(s) resolved with %s", episode, len(waiters), outcome)
	if i.onEnded != nil {
		i.onEnded(outcome)
	}
}
