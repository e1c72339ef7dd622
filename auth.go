package imap

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/pkg/errors"
)

// Mechanism is an authentication mechanism name.
type Mechanism string

const (
	MechanismPlain   Mechanism = "PLAIN"
	MechanismLogin   Mechanism = "LOGIN"
	MechanismOAuth2  Mechanism = "OAUTH2"
	MechanismXOAuth2 Mechanism = "XOAUTH2"
)

// Authenticate authenticates with the configured credentials. The server
// must advertise AUTH=<mechanism>; otherwise a CapabilityError is returned
// and nothing is sent.
func (s *Session) Authenticate(ctx context.Context, mech Mechanism) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticate(ctx, mech)
}

func (s *Session) authenticate(ctx context.Context, mech Mechanism) error {
	mech = Mechanism(strings.ToUpper(string(mech)))
	switch mech {
	case MechanismOAuth2, MechanismXOAuth2:
		return errors.Wrapf(ErrMechanismNotImplemented, "%s", mech)
	case MechanismPlain, MechanismLogin:
	default:
		return &AuthError{Mechanism: mech, Detail: "unsupported mechanism"}
	}
	if !s.connected {
		return ErrNotConnected
	}
	if !s.hasCap("AUTH=" + string(mech)) {
		return &CapabilityError{Name: "AUTH=" + string(mech)}
	}

	s.setState(StateAuthenticating)
	var err error
	switch mech {
	case MechanismPlain:
		err = s.authPlain(ctx)
	case MechanismLogin:
		err = s.login(ctx)
	}
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) {
			return &AuthError{Mechanism: mech, Detail: ce.Response, Err: err}
		}
		return err
	}

	s.authenticated = true
	s.debugLog("authenticated", "mechanism", mech)
	// Servers may change their capability list after authentication.
	if codeName(s.lastCode) != "CAPABILITY" {
		if err := s.capability(ctx); err != nil {
			s.warnLog("could not refresh capabilities", "error", err)
		}
	}
	return nil
}

// authPlain runs SASL PLAIN, with an initial response when the server
// supports SASL-IR and through a continuation otherwise.
func (s *Session) authPlain(ctx context.Context) error {
	client := sasl.NewPlainClient("", s.opts.Username, s.opts.Password)
	_, ir, err := client.Start()
	if err != nil {
		return &AuthError{Mechanism: MechanismPlain, Detail: "could not build initial response", Err: err}
	}
	encoded := base64.StdEncoding.EncodeToString(ir)

	if s.hasCap("SASL-IR") {
		return s.execCode(ctx, "AUTHENTICATE PLAIN "+encoded, nil)
	}
	sent := false
	return s.execCode(ctx, "AUTHENTICATE PLAIN", func(string) (string, error) {
		if sent {
			// A second challenge means the server rejected the response;
			// "*" cancels the exchange.
			return "*", nil
		}
		sent = true
		return encoded, nil
	})
}

// login performs LOGIN authentication using username and password
func (s *Session) login(ctx context.Context) error {
	return s.execCode(ctx, "LOGIN "+quoteString(s.opts.Username)+" "+quoteString(s.opts.Password), nil)
}

// execCode runs a command and remembers the response code of its completion.
func (s *Session) execCode(ctx context.Context, command string, cont continuationFunc) error {
	resp, err := s.exec(ctx, command, cont)
	s.lastCode = ""
	if resp != nil {
		s.lastCode = resp.Code
	}
	return err
}
