// Package reconnect supervises the tool server connection, reconnecting
// with exponential backoff when the channel drops.
package reconnect

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of the supervised connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateGivenUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateGivenUp:
		return "given_up"
	default:
		return "unknown"
	}
}

// ErrGivenUp is returned once the supervisor has exhausted its attempts.
// Only an explicit restart of the daemon clears this state.
var ErrGivenUp = errors.New("reconnect attempts exhausted")

// ErrStopped is returned from WaitOpen after Stop.
var ErrStopped = errors.New("supervisor stopped")

const maxBackoff = 30 * time.Second

// Options configures a Supervisor.
type Options struct {
	BaseDelay      time.Duration
	MaxAttempts    int
	ConnectTimeout time.Duration

	// OnEvent, if set, observes state changes. attempt is the consecutive
	// failure count when entering Connecting after a failure, 0 otherwise.
	OnEvent func(state State, attempt int)
}

// Supervisor owns the connect/disconnect lifecycle of the tool server
// channel. Callers never connect themselves; they wait for Open and report
// transport failures back.
type Supervisor struct {
	connect        func(ctx context.Context) error
	disconnect     func() error
	baseDelay      time.Duration
	maxAttempts    int
	connectTimeout time.Duration
	onEvent        func(state State, attempt int)

	mu     sync.Mutex
	state  State
	openCh chan struct{}

	givenUp  chan struct{}
	failCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Supervisor driving the given connect and disconnect
// functions. connect receives a context bounded by ConnectTimeout.
func New(connect func(ctx context.Context) error, disconnect func() error, opts Options) *Supervisor {
	return &Supervisor{
		connect:        connect,
		disconnect:     disconnect,
		baseDelay:      opts.BaseDelay,
		maxAttempts:    opts.MaxAttempts,
		connectTimeout: opts.ConnectTimeout,
		onEvent:        opts.OnEvent,
		state:          StateIdle,
		openCh:         make(chan struct{}),
		givenUp:        make(chan struct{}),
		failCh:         make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
}

// Start launches the supervision loop and the first connection attempt.
func (s *Supervisor) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
}

// Stop ends supervision and releases the connection. Safe to call more
// than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	_ = s.disconnect()
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitOpen blocks until the connection is open, the supervisor gives up or
// stops, or ctx expires.
func (s *Supervisor) WaitOpen(ctx context.Context) error {
	for {
		s.mu.Lock()
		switch s.state {
		case StateOpen:
			s.mu.Unlock()
			return nil
		case StateGivenUp:
			s.mu.Unlock()
			return ErrGivenUp
		}
		open := s.openCh
		s.mu.Unlock()

		select {
		case <-open:
		case <-s.givenUp:
			return ErrGivenUp
		case <-s.stopCh:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NotifyFailure reports that the open connection died mid-use. The
// supervisor tears it down and starts reconnecting.
func (s *Supervisor) NotifyFailure() {
	select {
	case s.failCh <- struct{}{}:
	default:
	}
}

func (s *Supervisor) run() {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	go func() {
		<-s.stopCh
		cancelBase()
	}()

	failures := 0
	for {
		s.setState(StateConnecting, failures)

		ctx, cancel := context.WithTimeout(base, s.connectTimeout)
		err := s.connect(ctx)
		cancel()

		if err != nil {
			select {
			case <-s.stopCh:
				s.setState(StateClosed, 0)
				return
			default:
			}
			failures++
			if failures >= s.maxAttempts {
				s.setState(StateGivenUp, failures)
				close(s.givenUp)
				return
			}
			select {
			case <-time.After(backoffDelay(s.baseDelay, failures)):
			case <-s.stopCh:
				s.setState(StateClosed, 0)
				return
			}
			continue
		}

		failures = 0
		s.setOpen()

		select {
		case <-s.failCh:
			s.setClosedForRetry()
			_ = s.disconnect()
		case <-s.stopCh:
			s.setState(StateClosed, 0)
			return
		}
	}
}

func (s *Supervisor) setState(state State, attempt int) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.onEvent != nil {
		s.onEvent(state, attempt)
	}
}

func (s *Supervisor) setOpen() {
	s.mu.Lock()
	s.state = StateOpen
	open := s.openCh
	s.mu.Unlock()
	close(open)
	if s.onEvent != nil {
		s.onEvent(StateOpen, 0)
	}
}

func (s *Supervisor) setClosedForRetry() {
	s.mu.Lock()
	s.state = StateClosed
	s.openCh = make(chan struct{})
	s.mu.Unlock()
	if s.onEvent != nil {
		s.onEvent(StateClosed, 0)
	}
}

// backoffDelay is the wait before retry number failures+1: the base delay
// doubled per consecutive failure, capped at maxBackoff.
func backoffDelay(base time.Duration, failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := base << (failures - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
