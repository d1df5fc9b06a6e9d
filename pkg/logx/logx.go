package logx

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors the zap levels exposed to callers
type Level int8

const (
	LevelDebug Level = Level(zapcore.DebugLevel)
	LevelInfo  Level = Level(zapcore.InfoLevel)
	LevelWarn  Level = Level(zapcore.WarnLevel)
	LevelError Level = Level(zapcore.ErrorLevel)
)

// Config controls encoding and output of the process logger
type Config struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`

	// File enables size-based rotation when set
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = newConsole(level)
	sugar  = logger.Sugar()
)

func newConsole(lvl zap.AtomicLevel) *zap.Logger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), lvl)
	return zap.New(core)
}

// Init replaces the process logger according to cfg
func Init(cfg Config) error {
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return err
		}
	}

	var encoder zapcore.Encoder
	if cfg.JSON {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	SetLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
	return nil
}

// SetLogger installs l as the process logger
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	sugar = l.Sugar()
	mu.Unlock()
}

// L returns the structured logger
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLevel changes the minimum enabled level
func SetLevel(l Level) {
	level.SetLevel(zapcore.Level(l))
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}

func s() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(args ...any)                 { s().Debug(args...) }
func Debugf(format string, args ...any) { s().Debugf(format, args...) }
func Debugw(msg string, kv ...any)      { s().Debugw(msg, kv...) }

func Info(args ...any)                 { s().Info(args...) }
func Infof(format string, args ...any) { s().Infof(format, args...) }
func Infow(msg string, kv ...any)      { s().Infow(msg, kv...) }

func Warn(args ...any)                 { s().Warn(args...) }
func Warnf(format string, args ...any) { s().Warnf(format, args...) }
func Warnw(msg string, kv ...any)      { s().Warnw(msg, kv...) }

func Error(args ...any)                 { s().Error(args...) }
func Errorf(format string, args ...any) { s().Errorf(format, args...) }
func Errorw(msg string, kv ...any)      { s().Errorw(msg, kv...) }

func Fatalf(format string, args ...any) { s().Fatalf(format, args...) }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
