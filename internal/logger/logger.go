// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// Adept login writes lifecycle, attempt, and error events to one JSON log
// per day under `<dir>/YYYY-MM-DD.log`.  When running in an interactive TTY
// we tee the same events, colorized, to stdout.  Rotation, compression, and
// retention are handled by Lumberjack; no external log-rotate job is
// required.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Dir: dir, Level: "info", Tee: true})
//	if err != nil { … }
//	log.Infow("login attempt", "username", u, "outcome", "success")
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • Passwords never reach a log call; callers log usernames only.
// • Oxford commas, two spaces after periods.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options mirrors config.Log plus the resolved root so callers pass only
// what the logger needs.
type Options struct {
	Dir   string // absolute, or relative to Root
	Root  string
	Level string // debug | info | warn | error
	Tee   bool
}

// ParseLevel maps the config string to a zapcore.Level.  Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zap.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("logger: level %q: %w", s, err)
	}
	return lvl, nil
}

// New returns a *zap.SugaredLogger that writes JSON to <dir>/YYYY-MM-DD.log.
// When opt.Tee is set, a colored console core is also attached.  The logger
// is installed as the process-wide default via zap.ReplaceGlobals.
func New(opt Options) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(opt.Level)
	if err != nil {
		return nil, err
	}

	logDir := opt.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(opt.Root, logDir)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	fileName := time.Now().Format("2006-01-02") + ".log"
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), lvl),
	}

	if opt.Tee {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stdout),
			lvl,
		))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
	).Sugar()

	// Make this the global logger so zap.S() works everywhere after startup.
	zap.ReplaceGlobals(z.Desugar())

	z.Infow("logger online", "dir", logDir, "level", lvl.String(), "tee", opt.Tee)
	return z, nil
}
