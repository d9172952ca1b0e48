// Package gateway serves the client socket: it accepts connections, reads
// query envelopes, and multiplexes progress, result and error events back,
// correlated by query id.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wirecraft-dev/wirebridge/internal/eventlog"
	"github.com/wirecraft-dev/wirebridge/internal/session"
	"github.com/wirecraft-dev/wirebridge/internal/wire"
)

// ProgressFunc emits one progress update for the running query.
type ProgressFunc func(wire.Progress)

// Handler runs one query against the tool server and returns the assistant's
// final content. Progress emitted through emit is forwarded to the client as
// it happens. The context is canceled when the query times out or the client
// disconnects.
type Handler func(ctx context.Context, query string, emit ProgressFunc) (string, error)

var peerUIDMatchesCurrentUserFn = peerUIDMatchesCurrentUser

var errQueryTimeout = errors.New("query timed out")

// Server listens for client connections and runs queries through a Handler,
// persisting every outcome in the session store.
type Server struct {
	network  string
	addr     string
	handler  Handler
	store    *session.Store
	log      *eventlog.Logger
	watchdog *Watchdog
	listener net.Listener
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer creates a gateway server. network and addr follow net.Listen;
// unix listeners get owner-only permissions and a peer uid check.
func NewServer(network, addr string, queryTimeout time.Duration, store *session.Store, log *eventlog.Logger, handler Handler) *Server {
	return &Server{
		network:  network,
		addr:     addr,
		handler:  handler,
		store:    store,
		log:      log,
		watchdog: NewWatchdog(queryTimeout),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Start begins listening for connections. A stale unix socket file is
// removed first.
func (s *Server) Start() error {
	if s.network == "unix" {
		os.Remove(s.addr)
	}

	ln, err := net.Listen(s.network, s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	if s.network == "unix" {
		if err := os.Chmod(s.addr, 0600); err != nil {
			ln.Close()
			os.Remove(s.addr)
			return fmt.Errorf("setting socket permissions: %w", err)
		}
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// Addr returns the listener address, useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for their
// goroutines. Connections are long-lived streams, so they must be closed
// here or their decode loops would hold the shutdown forever.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	s.watchdog.Stop()
	if s.network == "unix" {
		os.Remove(s.addr)
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return // listener closed
		}
		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				conn.Close()
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
			}()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	c := &clientConn{
		srv:      s,
		enc:      json.NewEncoder(conn),
		inFlight: make(map[string]context.CancelCauseFunc),
	}

	if s.network == "unix" {
		ok, err := peerUIDMatchesCurrentUserFn(conn)
		if err != nil {
			c.send(wire.NewError("", "peer uid check failed"))
			return
		}
		if !ok {
			c.send(wire.NewError("", "peer uid mismatch"))
			return
		}
	}

	s.logEvent(eventlog.LogEvent{Event: eventlog.EventClientAccepted})

	connCtx, cancelConn := context.WithCancelCause(context.Background())
	defer cancelConn(nil)

	dec := json.NewDecoder(conn)
	for {
		var env wire.Envelope
		if err := dec.Decode(&env); err != nil {
			break
		}

		switch env.Type {
		case wire.TypePing:
			c.send(&wire.Envelope{Type: wire.TypePong, ID: env.ID})
		case wire.TypeQuery:
			c.startQuery(connCtx, &env)
		default:
			c.send(wire.NewError(env.ID, fmt.Sprintf("unsupported message type %q", env.Type)))
		}
	}

	// The client is gone. Cancel its queries so their sessions resolve to
	// a terminal status instead of dangling as active forever.
	cancelConn(errors.New("client disconnected"))
	c.wg.Wait()
	s.logEvent(eventlog.LogEvent{Event: eventlog.EventClientClosed})
}

func (s *Server) logEvent(ev eventlog.LogEvent) {
	if s.log != nil {
		_ = s.log.Append(ev)
	}
}

// clientConn is the per-connection state: a serialized writer and the set of
// in-flight query ids.
type clientConn struct {
	srv   *Server
	encMu sync.Mutex
	enc   *json.Encoder

	mu       sync.Mutex
	inFlight map[string]context.CancelCauseFunc
	wg       sync.WaitGroup
}

func (c *clientConn) send(env *wire.Envelope) {
	c.encMu.Lock()
	defer c.encMu.Unlock()
	_ = c.enc.Encode(env)
}

func (c *clientConn) startQuery(connCtx context.Context, env *wire.Envelope) {
	id := env.ID
	if id == "" {
		id = uuid.New().String()
	}
	if env.Query == "" {
		c.send(wire.NewError(id, "empty query"))
		return
	}

	c.mu.Lock()
	if _, dup := c.inFlight[id]; dup {
		c.mu.Unlock()
		c.send(wire.NewError(id, fmt.Sprintf("query id %s already in flight", id)))
		return
	}
	qctx, cancel := context.WithCancelCause(connCtx)
	c.inFlight[id] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inFlight, id)
			c.mu.Unlock()
			cancel(nil)
		}()
		c.runQuery(qctx, cancel, id, env.Query, env.SessionID)
	}()
}

func (c *clientConn) runQuery(ctx context.Context, cancel context.CancelCauseFunc, id, query, sessionID string) {
	srv := c.srv

	sess, err := c.resolveSession(query, sessionID)
	if err != nil {
		c.send(wire.NewError(id, err.Error()))
		return
	}

	srv.logEvent(eventlog.LogEvent{Event: eventlog.EventQueryStarted, QueryID: id, SessionID: sess.ID})

	srv.watchdog.Begin(id, func() { cancel(errQueryTimeout) })
	defer srv.watchdog.End(id)

	emit := func(p wire.Progress) {
		c.send(wire.NewProgress(id, p))
	}

	content, err := srv.handler(ctx, query, emit)
	if err != nil {
		msg := err.Error()
		if errors.Is(context.Cause(ctx), errQueryTimeout) {
			msg = errQueryTimeout.Error()
			srv.logEvent(eventlog.LogEvent{Event: eventlog.EventQueryTimeout, QueryID: id, SessionID: sess.ID})
		}
		_, _ = srv.store.AppendMessage(sess.ID, "system", msg)
		_ = srv.store.SetStatus(sess.ID, session.StatusError)
		c.send(wire.NewError(id, msg))
		srv.logEvent(eventlog.LogEvent{Event: eventlog.EventQueryFinished, QueryID: id, SessionID: sess.ID, Status: session.StatusError, Error: msg})
		return
	}

	if _, err := srv.store.AppendMessage(sess.ID, "assistant", content); err != nil {
		c.send(wire.NewError(id, err.Error()))
		return
	}
	_ = srv.store.SetStatus(sess.ID, session.StatusCompleted)

	msgs, err := srv.store.GetMessages(sess.ID)
	if err != nil {
		c.send(wire.NewError(id, err.Error()))
		return
	}
	c.send(wire.NewResult(id, wire.Result{
		SessionID: sess.ID,
		Messages:  toWireMessages(msgs),
	}))
	srv.logEvent(eventlog.LogEvent{Event: eventlog.EventQueryFinished, QueryID: id, SessionID: sess.ID, Status: session.StatusCompleted})
}

// resolveSession creates a fresh session, or continues an existing active one
// by appending the query as its next user message. Finished sessions cannot
// be continued.
func (c *clientConn) resolveSession(query, sessionID string) (*session.Session, error) {
	store := c.srv.store

	if sessionID == "" {
		return store.CreateSession(query)
	}

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.Terminal(sess.Status) {
		return nil, fmt.Errorf("session %s is %s and cannot be continued", sess.ID, sess.Status)
	}
	if _, err := store.AppendMessage(sess.ID, "user", query); err != nil {
		return nil, err
	}
	return sess, nil
}

func toWireMessages(msgs []session.Message) []wire.Message {
	out := make([]wire.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, wire.Message{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return out
}
