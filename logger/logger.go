package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base  = zap.NewNop()
	sugar = base.Sugar()
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process logger. Production uses the JSON encoder, anything
// else the colored console encoder.
func Init(lvl string, production bool) error {
	SetLevel(lvl)

	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = level

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}
	base = built
	sugar = built.Sugar()
	return nil
}

// L returns the structured logger.
func L() *zap.Logger {
	return base
}

// Set replaces the process logger, e.g. with an observer in tests.
func Set(l *zap.Logger) {
	base = l
	sugar = l.Sugar()
}

func SetLevel(lvl string) {
	var parsed zapcore.Level
	if err := parsed.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(lvl)))); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q, using info\n", lvl)
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

func IsDebugEnabled() bool {
	return level.Enabled(zapcore.DebugLevel)
}

func Debugf(format string, v ...any) {
	sugar.Debugf(format, v...)
}

func Infof(format string, v ...any) {
	sugar.Infof(format, v...)
}

func Warnf(format string, v ...any) {
	sugar.Warnf(format, v...)
}

func Errorf(format string, v ...any) {
	sugar.Errorf(format, v...)
}

// Fatalf logs and exits the process.
func Fatalf(format string, v ...any) {
	sugar.Fatalf(format, v...)
}

func Sync() {
	_ = base.Sync()
}
