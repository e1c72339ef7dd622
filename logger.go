package imap

import (
	"log/slog"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// Logger defines the minimal logging interface used by the engine.
//
// Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithAttrs(args ...any) Logger
}

const logComponent = "imap/engine"

type loggerRef struct{ Logger }

var packageLogger atomic.Pointer[loggerRef]

func init() {
	SetLogger(nil)
}

// SetLogger replaces the logger used by sessions without their own
// Options.Logger and by the decoders. Passing nil restores the default
// slog text logger on stderr at info level.
func SetLogger(logger Logger) {
	if logger == nil {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
		logger = SlogLogger(slog.New(handler))
	}
	packageLogger.Store(&loggerRef{logger.WithAttrs("component", logComponent)})
}

// SetSlogLogger is SetLogger for a *slog.Logger.
func SetSlogLogger(logger *slog.Logger) {
	SetLogger(SlogLogger(logger))
}

// SetZapLogger is SetLogger for a *zap.Logger.
func SetZapLogger(logger *zap.Logger) {
	SetLogger(ZapLogger(logger))
}

func getLogger() Logger {
	return packageLogger.Load().Logger
}

// SlogLogger adapts a *slog.Logger to Logger.
func SlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return nil
	}
	return slogAdapter{logger: logger}
}

type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }

func (s slogAdapter) Info(msg string, args ...any) { s.logger.Info(msg, args...) }

func (s slogAdapter) Warn(msg string, args ...any) { s.logger.Warn(msg, args...) }

func (s slogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

func (s slogAdapter) WithAttrs(args ...any) Logger {
	return slogAdapter{logger: s.logger.With(args...)}
}

// ZapLogger adapts a *zap.Logger to Logger. Arguments are alternating keys
// and values, as with slog.
func ZapLogger(logger *zap.Logger) Logger {
	if logger == nil {
		return nil
	}
	return zapAdapter{logger: logger.Sugar()}
}

type zapAdapter struct {
	logger *zap.SugaredLogger
}

func (z zapAdapter) Debug(msg string, args ...any) { z.logger.Debugw(msg, args...) }

func (z zapAdapter) Info(msg string, args ...any) { z.logger.Infow(msg, args...) }

func (z zapAdapter) Warn(msg string, args ...any) { z.logger.Warnw(msg, args...) }

func (z zapAdapter) Error(msg string, args ...any) { z.logger.Errorw(msg, args...) }

func (z zapAdapter) WithAttrs(args ...any) Logger {
	return zapAdapter{logger: z.logger.With(args...)}
}

// withConnection tags logger with a connection number and the selected
// mailbox. A negative connNum is left out.
func withConnection(logger Logger, connNum int, mailbox string) Logger {
	var args []any
	if connNum >= 0 {
		args = append(args, "conn", connNum)
	}
	if mailbox != "" {
		args = append(args, "mailbox", mailbox)
	}
	if len(args) == 0 {
		return logger
	}
	return logger.WithAttrs(args...)
}

// debugLog and warnLog report from code that runs outside a session, such
// as the decoders and the query compiler. Debug output needs Verbose.
func debugLog(msg string, args ...any) {
	if Verbose {
		getLogger().Debug(msg, args...)
	}
}

func warnLog(msg string, args ...any) {
	getLogger().Warn(msg, args...)
}

// log returns the session's logger carrying its id, connection number and
// selected mailbox.
func (s *Session) log() Logger {
	base := s.opts.Logger
	if base == nil {
		base = getLogger()
	}
	mailbox := ""
	if s.mailbox != nil {
		mailbox = s.mailbox.Name
	}
	return withConnection(base, s.ConnNum, mailbox).WithAttrs("session", s.ID)
}

func (s *Session) debugLog(msg string, args ...any) {
	if Verbose {
		s.log().Debug(msg, args...)
	}
}

func (s *Session) infoLog(msg string, args ...any) { s.log().Info(msg, args...) }

func (s *Session) warnLog(msg string, args ...any) { s.log().Warn(msg, args...) }

func (s *Session) errorLog(msg string, args ...any) { s.log().Error(msg, args...) }
