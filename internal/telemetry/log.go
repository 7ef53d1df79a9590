// Package telemetry constructs the structured logger used throughout
// replicore, mirroring the teacher's zap + lumberjack setup but as an
// explicit constructor rather than a config-dependent init(), so callers
// can build a logger from whatever internal/config.Session they loaded.
package telemetry

import (
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig holds the subset of internal/config.Session needed to build a
// logger, kept separate so this package never imports internal/config.
type LogConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var levelMap = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

// New builds a *zap.Logger that writes JSON records to a lumberjack-rotated
// file at cfg.Path, filtered at cfg.Level. If cfg.Path is empty, logs go to
// stderr instead (useful for tests and short-lived tools).
func New(cfg LogConfig) *zap.Logger {
	level, ok := levelMap[cfg.Level]
	if !ok {
		level = zapcore.InfoLevel
	}
	enabler := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool { return lvl >= level })

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     millisTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	var sink zapcore.WriteSyncer
	if cfg.Path == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		maxSize := cfg.MaxSizeMB
		if maxSize == 0 {
			maxSize = 128
		}
		maxBackups := cfg.MaxBackups
		if maxBackups == 0 {
			maxBackups = 5
		}
		maxAge := cfg.MaxAgeDays
		if maxAge == 0 {
			maxAge = 30
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   cfg.Compress,
		})
	}

	core := zapcore.NewTee(zapcore.NewCore(encoder, sink, enabler))
	return zap.New(core, zap.AddCaller())
}

// millisTimeEncoder matches the teacher's human-readable, millisecond
// precision timestamp format.
func millisTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}
