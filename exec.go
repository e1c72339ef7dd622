package imap

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type result struct {
	resp *Response
	err  error
}

// run executes fn on its own goroutine and races it against ctx and the
// command deadline. When the race is lost the connection is dropped, since
// the stream position is unknown, and run waits for fn to return so it can
// never consume lines of a later connection.
func (s *Session) run(ctx context.Context, op, tag string, fn func() (*Response, error)) (*Response, error) {
	cctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if t := s.opts.CommandTimeout; t > 0 {
		var stop context.CancelFunc
		cctx, stop = context.WithTimeoutCause(cctx, t, &TimeoutError{Operation: op, Timeout: t})
		defer stop()
	}

	s.track(&command{tag: tag, name: op, started: time.Now(), cancel: cancel})
	defer s.untrack(tag)

	done := make(chan result, 1)
	go func() {
		resp, err := fn()
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-cctx.Done():
		cause := context.Cause(cctx)
		s.disconnect()
		<-done
		return nil, cause
	}
}

// exec sends one tagged command and collects its response. Timeouts and
// transport failures drop the connection and, when enabled, reconnect. The
// command itself is never resent.
func (s *Session) exec(ctx context.Context, command string, cont continuationFunc) (*Response, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	tag := s.nextTag()
	name := commandName(command)
	s.setState(StateCommandInFlight)

	log := s.log()
	resp, err := s.run(ctx, name, tag, func() (*Response, error) {
		return s.roundTrip(log, tag, command, cont)
	})
	if err == nil {
		s.absorb(resp)
		s.setState(StateCompleted)
		return resp, nil
	}

	var ce *CommandError
	var te *TimeoutError
	switch {
	case errors.As(err, &ce):
		s.absorb(resp)
		s.setState(StateFailed)
		s.debugLog("command failed", "command", ce.Command, "response", ce.Response)
		return resp, err
	case errors.As(err, &te), isConnectionError(err):
		if te != nil {
			s.setState(StateTimedOut)
			s.warnLog("command timed out", "command", name, "timeout", te.Timeout)
		} else {
			s.setState(StateFailed)
			s.warnLog("connection lost during command", "command", name, "error", err)
		}
		s.disconnect()
		if rerr := s.recover(ctx); rerr != nil {
			s.errorLog("could not recover connection", "command", name, "error", rerr)
			return nil, rerr
		}
		return nil, err
	}

	s.setState(StateFailed)
	s.debugLog("command cancelled", "command", name, "cause", err)
	return nil, err
}

// roundTrip writes the tagged command and reads until its completion. It
// runs on the goroutine started by run and only touches the transport.
func (s *Session) roundTrip(log Logger, tag, command string, cont continuationFunc) (*Response, error) {
	if Verbose {
		log.Debug("sending command", "tag", tag, "command", redactCommand(command))
	}
	if err := s.transport.WriteLine(tag + " " + command); err != nil {
		return nil, &ConnectionError{Err: err}
	}

	resp := &Response{Tag: tag}
	var lt literalTracker
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			return nil, &ConnectionError{Err: err}
		}
		if Verbose && !SkipResponses {
			log.Debug("server response", "response", line)
		}

		if lt.feed(line) {
			resp.Lines = append(resp.Lines, line)
			continue
		}

		if strings.HasPrefix(line, "+") {
			if cont == nil {
				return nil, &ConnectionError{Err: errors.Errorf("unexpected continuation request for %s", commandName(command))}
			}
			reply, err := cont(strings.TrimSpace(strings.TrimPrefix(line, "+")))
			if err != nil {
				return nil, &ConnectionError{Err: err}
			}
			if err := s.transport.WriteLine(reply); err != nil {
				return nil, &ConnectionError{Err: err}
			}
			continue
		}

		if strings.HasPrefix(line, tag+" ") {
			sl, ok := parseStatusLine(line)
			if !ok {
				return nil, &ConnectionError{Err: parseErrorf(line, "malformed completion for %s", tag)}
			}
			resp.Status, resp.Code, resp.Text = sl.Status, sl.Code, sl.Text
			if sl.Status != "OK" {
				return resp, &CommandError{
					Command:  redactCommand(command),
					Status:   sl.Status,
					Code:     sl.Code,
					Response: strings.TrimPrefix(line, tag+" "),
				}
			}
			return resp, nil
		}

		resp.Lines = append(resp.Lines, line)
	}
}

// absorb applies untagged data that changes session state: capability
// lists and mailbox size updates.
func (s *Session) absorb(resp *Response) {
	if resp == nil {
		return
	}
	if codeName(resp.Code) == "CAPABILITY" {
		s.caps = parseCapabilities(codeArg(resp.Code))
	}
	for _, line := range resp.Logical() {
		if data, ok := untaggedData(line, "CAPABILITY"); ok {
			s.caps = parseCapabilities(data)
			continue
		}
		if s.mailbox == nil {
			continue
		}
		if n, kind, ok := parseUntaggedCount(line); ok {
			switch kind {
			case "EXISTS":
				s.mailbox.Exists = n
			case "RECENT":
				s.mailbox.Recent = n
			case "EXPUNGE":
				if s.mailbox.Exists > 0 {
					s.mailbox.Exists--
				}
			}
		}
	}
}
