package actor

import "go.uber.org/zap"

// Logger is the runtime's four-level logging contract (spec.md §6): each
// method returns the Logger so calls chain, e.g. `a.logger.Info("x").
// Log("y")`. The default implementation adapts a zap.SugaredLogger
// (SPEC_FULL §1).
type Logger interface {
	Debug(args ...interface{}) Logger
	Info(args ...interface{}) Logger
	Log(args ...interface{}) Logger
	Error(args ...interface{}) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger adapts a *zap.SugaredLogger to the Logger contract.
func NewZapLogger(sugar *zap.SugaredLogger) Logger {
	return &zapLogger{sugar: sugar}
}

func (l *zapLogger) Debug(args ...interface{}) Logger {
	l.sugar.Debug(args...)
	return l
}

func (l *zapLogger) Info(args ...interface{}) Logger {
	l.sugar.Info(args...)
	return l
}

// Log is the contract's fourth level, between Info and Error; mapped to
// zap's Info level with a distinguishing field since zap has no "log"
// level of its own.
func (l *zapLogger) Log(args ...interface{}) Logger {
	l.sugar.With("level", "log").Info(args...)
	return l
}

func (l *zapLogger) Error(args ...interface{}) Logger {
	l.sugar.Error(args...)
	return l
}

// NopLogger discards everything; useful in tests that don't care about log
// output.
func NopLogger() Logger {
	return NewZapLogger(zap.NewNop().Sugar())
}
