package imap

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
)

// Options configure a Session.
type Options struct {
	Username  string
	Password  string
	Mechanism Mechanism

	// CommandTimeout bounds every command. Zero disables the deadline.
	CommandTimeout time.Duration

	// AutoReconnect re-establishes the connection after a timeout or a
	// transport failure. Waits grow as ReconnectDelay * 2^attempt.
	AutoReconnect        bool
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// FetchBatchSize caps the messages requested per FETCH.
	FetchBatchSize int

	// Logger overrides the package logger for this session.
	Logger Logger
}

func (o Options) withDefaults() Options {
	if o.Mechanism == "" {
		o.Mechanism = MechanismLogin
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = time.Second
	}
	if o.MaxReconnectAttempts <= 0 {
		o.MaxReconnectAttempts = 3
	}
	if o.FetchBatchSize <= 0 {
		o.FetchBatchSize = FetchBatchSize
	}
	return o
}

// Config is the environment driven configuration used by Dial.
type Config struct {
	Host                 string        `env:"IMAP_HOST,required"`
	Port                 int           `env:"IMAP_PORT" envDefault:"993"`
	Username             string        `env:"IMAP_USERNAME"`
	Password             string        `env:"IMAP_PASSWORD"`
	Mechanism            string        `env:"IMAP_AUTH_MECHANISM" envDefault:"LOGIN"`
	CommandTimeout       time.Duration `env:"IMAP_COMMAND_TIMEOUT" envDefault:"30s"`
	AutoReconnect        bool          `env:"IMAP_AUTO_RECONNECT" envDefault:"true"`
	ReconnectDelay       time.Duration `env:"IMAP_RECONNECT_DELAY" envDefault:"1s"`
	MaxReconnectAttempts int           `env:"IMAP_RECONNECT_ATTEMPTS" envDefault:"3"`
	FetchBatchSize       int           `env:"IMAP_FETCH_BATCH_SIZE" envDefault:"100"`
	TLSSkipVerify        bool          `env:"IMAP_TLS_SKIP_VERIFY" envDefault:"false"`
}

// LoadConfig reads a Config from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "imap config")
	}
	return cfg, nil
}

// Options converts the configuration into session options.
func (c *Config) Options() Options {
	return Options{
		Username:             c.Username,
		Password:             c.Password,
		Mechanism:            Mechanism(strings.ToUpper(c.Mechanism)),
		CommandTimeout:       c.CommandTimeout,
		AutoReconnect:        c.AutoReconnect,
		ReconnectDelay:       c.ReconnectDelay,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
		FetchBatchSize:       c.FetchBatchSize,
	}
}
