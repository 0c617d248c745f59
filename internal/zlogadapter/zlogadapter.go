// Package zlogadapter bridges github.com/rs/zerolog into the
// github.com/pion/logging.LeveledLogger/LoggerFactory interfaces the
// core library expects, so cmd/saltecho can drive
// both the protocol's logging and its own CLI output through one
// zerolog.Logger.
package zlogadapter

import (
	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// Factory builds scoped LeveledLoggers backed by a shared zerolog.Logger.
type Factory struct {
	Base zerolog.Logger
}

// NewFactory wraps base.
func NewFactory(base zerolog.Logger) *Factory {
	return &Factory{Base: base}
}

// NewLogger implements logging.LoggerFactory, tagging every record
// from this scope with a "scope" field.
func (f *Factory) NewLogger(scope string) logging.LeveledLogger {
	return &leveledLogger{log: f.Base.With().Str("scope", scope).Logger()}
}

type leveledLogger struct {
	log zerolog.Logger
}

func (l *leveledLogger) Trace(msg string)                          { l.log.Trace().Msg(msg) }
func (l *leveledLogger) Tracef(format string, args ...interface{}) { l.log.Trace().Msgf(format, args...) }
func (l *leveledLogger) Debug(msg string)                          { l.log.Debug().Msg(msg) }
func (l *leveledLogger) Debugf(format string, args ...interface{}) { l.log.Debug().Msgf(format, args...) }
func (l *leveledLogger) Info(msg string)                           { l.log.Info().Msg(msg) }
func (l *leveledLogger) Infof(format string, args ...interface{})  { l.log.Info().Msgf(format, args...) }
func (l *leveledLogger) Warn(msg string)                           { l.log.Warn().Msg(msg) }
func (l *leveledLogger) Warnf(format string, args ...interface{})  { l.log.Warn().Msgf(format, args...) }
func (l *leveledLogger) Error(msg string)                          { l.log.Error().Msg(msg) }
func (l *leveledLogger) Errorf(format string, args ...interface{}) { l.log.Error().Msgf(format, args...) }
