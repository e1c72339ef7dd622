package imap

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
)

var (
	nextConnNum      = 0
	nextConnNumMutex = sync.Mutex{}
)

// State is the lifecycle phase of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateIdle
	StateAuthenticating
	StateMailboxSelecting
	StateCommandInFlight
	StateCompleted
	StateFailed
	StateTimedOut
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateMailboxSelecting:
		return "mailbox-selecting"
	case StateCommandInFlight:
		return "command-in-flight"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed-out"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// command is an entry of the active command table.
type command struct {
	tag     string
	name    string
	started time.Time
	cancel  context.CancelCauseFunc
}

// continuationFunc answers a "+" continuation request with the next line
// to send.
type continuationFunc func(prompt string) (string, error)

// Session is one IMAP connection. Commands are serialized: each one holds
// the session until its tagged completion arrives, its deadline passes or
// its context is cancelled.
type Session struct {
	ID      string
	ConnNum int

	opts      Options
	transport Transport
	sleep     func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex // serializes commands and guards the fields below
	connected     bool
	authenticated bool
	caps          map[string]struct{}
	mailbox       *Mailbox
	restore       *Mailbox
	delimiter     string
	tagSeq        uint64
	lastCode      string
	connecting    bool
	reconnecting  bool
	loggingOut    bool
	closed        bool

	live  atomic.Bool
	state atomic.Int32

	activeMu sync.Mutex
	active   map[string]*command
}

// NewSession returns a disconnected session over t.
func NewSession(t Transport, opts Options) *Session {
	nextConnNumMutex.Lock()
	connNum := nextConnNum
	nextConnNum++
	nextConnNumMutex.Unlock()

	return &Session{
		ID:        xid.New().String(),
		ConnNum:   connNum,
		opts:      opts.withDefaults(),
		transport: t,
		sleep:     sleepContext,
		active:    make(map[string]*command),
	}
}

// Dial connects over TLS using cfg and authenticates when credentials are
// configured.
func Dial(ctx context.Context, cfg *Config) (*Session, error) {
	s := NewSession(NewTLSTransport(cfg.Host, cfg.Port, cfg.TLSSkipVerify), cfg.Options())
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Connected reports whether the transport is up. It does not wait for an
// in-flight command.
func (s *Session) Connected() bool {
	return s.live.Load()
}

// Connect opens the transport, reads the greeting, loads capabilities and
// authenticates when credentials are configured.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.connect(ctx)
}

func (s *Session) connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	s.connecting = true
	defer func() { s.connecting = false }()
	if err := s.transport.Connect(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	s.connected = true
	s.live.Store(true)

	if err := s.greet(ctx); err != nil {
		s.disconnect()
		return err
	}
	if s.caps == nil {
		if err := s.capability(ctx); err != nil {
			s.disconnect()
			return err
		}
	}
	if !s.authenticated && s.opts.Username != "" {
		if err := s.authenticate(ctx, s.opts.Mechanism); err != nil {
			s.disconnect()
			return err
		}
	}
	s.setState(StateIdle)
	s.debugLog("connected")
	return nil
}

func (s *Session) greet(ctx context.Context) error {
	resp, err := s.run(ctx, "greeting", "*", func() (*Response, error) {
		line, err := s.transport.ReadLine()
		if err != nil {
			return nil, &ConnectionError{Err: err}
		}
		sl, ok := parseStatusLine(line)
		if !ok || sl.Tag != "*" {
			return nil, &ConnectionError{Err: parseErrorf(line, "unexpected greeting")}
		}
		return &Response{Tag: sl.Tag, Status: sl.Status, Code: sl.Code, Text: sl.Text}, nil
	})
	if err != nil {
		return err
	}
	switch resp.Status {
	case "BYE":
		return &ConnectionError{Err: fmt.Errorf("server refused connection: %s", resp.Text)}
	case "PREAUTH":
		s.authenticated = true
	}
	if codeName(resp.Code) == "CAPABILITY" {
		s.caps = parseCapabilities(codeArg(resp.Code))
	}
	return nil
}

// Disconnect drops the transport. The selected mailbox is remembered so a
// later Reconnect can restore it.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnect()
	return nil
}

func (s *Session) disconnect() {
	if s.mailbox != nil {
		s.restore = s.mailbox
	}
	s.mailbox = nil
	s.caps = nil
	s.authenticated = false
	if !s.connected {
		return
	}
	s.connected = false
	s.live.Store(false)
	if err := s.transport.Disconnect(); err != nil {
		s.debugLog("closing transport", "error", err)
	}
	s.setState(StateDisconnected)
}

// Close cancels in-flight commands and drops the connection. A closed
// session cannot be reconnected.
func (s *Session) Close() error {
	s.cancelActive(ErrSessionClosed)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.restore = nil
	s.disconnect()
	return nil
}

// Exec sends a raw command and waits for its tagged completion.
func (s *Session) Exec(ctx context.Context, command string) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec(ctx, command, nil)
}

// Noop sends NOOP, which also collects pending mailbox updates.
func (s *Session) Noop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.exec(ctx, "NOOP", nil)
	return err
}

// Logout ends the session politely and drops the connection.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	s.loggingOut = true
	defer func() { s.loggingOut = false }()

	_, err := s.exec(ctx, "LOGOUT", nil)
	s.restore = nil
	s.disconnect()
	if isConnectionError(err) {
		// The server may close before the tagged OK arrives.
		return nil
	}
	return err
}

// Capabilities returns the advertised capabilities, sorted.
func (s *Session) Capabilities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	caps := make([]string, 0, len(s.caps))
	for c := range s.caps {
		caps = append(caps, c)
	}
	slices.Sort(caps)
	return caps
}

// HasCapability reports whether the server advertised name.
func (s *Session) HasCapability(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasCap(name)
}

func (s *Session) hasCap(name string) bool {
	_, ok := s.caps[strings.ToUpper(name)]
	return ok
}

// Capability refreshes the capability list from the server.
func (s *Session) Capability(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	err := s.capability(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Capabilities(), nil
}

func (s *Session) capability(ctx context.Context) error {
	s.caps = nil
	if _, err := s.exec(ctx, "CAPABILITY", nil); err != nil {
		return err
	}
	if s.caps == nil {
		s.caps = map[string]struct{}{}
	}
	return nil
}

func (s *Session) nextTag() string {
	s.tagSeq++
	return fmt.Sprintf("A%06d", s.tagSeq)
}

func (s *Session) track(c *command) {
	s.activeMu.Lock()
	s.active[c.tag] = c
	s.activeMu.Unlock()
}

func (s *Session) untrack(tag string) {
	s.activeMu.Lock()
	delete(s.active, tag)
	s.activeMu.Unlock()
}

func (s *Session) cancelActive(cause error) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	for _, c := range s.active {
		c.cancel(cause)
	}
}

func (s *Session) activeCount() int {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return len(s.active)
}

// requireMailbox returns the selected mailbox or ErrNoMailboxSelected.
func (s *Session) requireMailbox() (*Mailbox, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.mailbox == nil {
		return nil, ErrNoMailboxSelected
	}
	return s.mailbox, nil
}

// recover reconnects after a timeout or transport failure when the session
// is configured to. It returns an error only when reconnecting failed.
func (s *Session) recover(ctx context.Context) error {
	if !s.opts.AutoReconnect || s.connecting || s.reconnecting || s.loggingOut || s.closed {
		return nil
	}
	if err := s.reconnect(ctx); err != nil && !errors.Is(err, ErrReconnectInProgress) {
		return err
	}
	return nil
}
