package imap

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
)

// Reconnect drops the connection and establishes a new one, waiting
// ReconnectDelay * 2^attempt before each attempt. The previously selected
// mailbox is selected again. After MaxReconnectAttempts failures the result
// is a ConnectionError wrapping ErrReconnectExhausted.
func (s *Session) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.reconnect(ctx)
}

func (s *Session) reconnect(ctx context.Context) error {
	if s.reconnecting {
		return ErrReconnectInProgress
	}
	s.reconnecting = true
	defer func() { s.reconnecting = false }()

	s.disconnect()
	restore := s.restore
	s.setState(StateReconnecting)

	b := &backoff.Backoff{
		Min:    s.opts.ReconnectDelay,
		Max:    time.Duration(math.MaxInt64),
		Factor: 2,
	}
	attempts := s.opts.MaxReconnectAttempts
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		wait := b.ForAttempt(float64(attempt))
		s.warnLog("reconnecting", "attempt", attempt+1, "max", attempts, "wait", wait)
		if err := s.sleep(ctx, wait); err != nil {
			s.setState(StateDisconnected)
			return err
		}

		if err := s.connect(ctx); err != nil {
			lastErr = err
			var ae *AuthError
			if errors.As(err, &ae) {
				// Credentials will not get better by retrying.
				s.setState(StateDisconnected)
				return err
			}
			s.debugLog("reconnect attempt failed", "attempt", attempt+1, "error", err)
			continue
		}
		if restore != nil {
			if _, err := s.selectMailbox(ctx, restore.Name, restore.ReadOnly, false); err != nil {
				lastErr = err
				s.disconnect()
				continue
			}
		}
		s.setState(StateIdle)
		s.infoLog("reconnected", "attempt", attempt+1)
		return nil
	}

	s.setState(StateDisconnected)
	s.errorLog("reconnect attempts exhausted", "attempts", attempts, "error", lastErr)
	return &ConnectionError{Err: fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, attempts, lastErr)}
}
