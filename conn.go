package imap

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"

	retry "github.com/StirlingMarketingGroup/go-retry"
	"github.com/pkg/errors"
)

// Transport is the line-oriented stream a Session drives. Lines are passed
// without their CRLF. Disconnect must unblock a pending ReadLine or WriteLine.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	ReadLine() (string, error)
	WriteLine(line string) error
}

// DialFunc opens the connection behind a Transport.
type DialFunc func(ctx context.Context) (net.Conn, error)

type connTransport struct {
	dial DialFunc

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// NewConnTransport returns a Transport over connections opened by dial.
func NewConnTransport(dial DialFunc) Transport {
	return &connTransport{dial: dial}
}

// NewTLSTransport returns a Transport over TLS to host:port. Failed dials are
// retried RetryCount times.
func NewTLSTransport(host string, port int, skipVerify bool) Transport {
	return NewConnTransport(func(ctx context.Context) (conn net.Conn, err error) {
		err = retry.Retry(func() error {
			debugLog("establishing connection", "host", host, "port", port)
			conn, err = dialHost(ctx, host, port, skipVerify || TLSSkipVerify)
			if err != nil {
				debugLog("failed to connect", "host", host, "error", err)
			}
			return err
		}, RetryCount, func(err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			debugLog("failed to connect, retrying shortly", "host", host)
			return nil
		}, func() error {
			return ctx.Err()
		})
		if err != nil {
			return nil, errors.Wrapf(err, "imap dial %s:%d", host, port)
		}
		return conn, nil
	})
}

// dialHost establishes a TLS connection to the IMAP server
func dialHost(ctx context.Context, host string, port int, skipVerify bool) (net.Conn, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: DialTimeout},
		Config:    &tls.Config{ServerName: host, InsecureSkipVerify: skipVerify},
	}
	return dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

func (t *connTransport) Connect(ctx context.Context) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = conn
	t.r = bufio.NewReader(conn)
	return nil
}

func (t *connTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.r = nil
	return err
}

func (t *connTransport) ReadLine() (string, error) {
	t.mu.Lock()
	r := t.r
	t.mu.Unlock()
	if r == nil {
		return "", ErrNotConnected
	}
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return dropNl(line), nil
}

func (t *connTransport) WriteLine(line string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	_, err := conn.Write([]byte(line + nl))
	return err
}
