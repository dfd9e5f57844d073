package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

type ConsoleFormat int

const (
	ConsoleOff ConsoleFormat = iota
	ConsoleText
	ConsoleJSON
)

// Options describes where log entries go. An empty FilePath disables the
// file sink.
type Options struct {
	FilePath  string
	FileLevel zapcore.Level
	Console   ConsoleFormat

	// Rotation, in megabytes, files and days.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (o Options) withDefaults() Options {
	if o.MaxSizeMB == 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups == 0 {
		o.MaxBackups = 5
	}
	if o.MaxAgeDays == 0 {
		o.MaxAgeDays = 30
	}
	return o
}

type ZapLogger struct {
	logger *zap.Logger
}

var _ ILogger = (*ZapLogger)(nil)

func New(opts Options) *ZapLogger {
	opts = opts.withDefaults()

	var cores []zapcore.Core
	if opts.FilePath != "" {
		cores = append(cores, zapcore.NewCore(
			jsonEncoder(),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.FilePath,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAgeDays,
				Compress:   true,
			}),
			opts.FileLevel,
		))
	}

	switch opts.Console {
	case ConsoleText:
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stdout),
			zap.DebugLevel,
		))
	case ConsoleJSON:
		cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.Lock(os.Stdout), zap.DebugLevel))
	}

	if len(cores) == 0 {
		return NewNopLogger()
	}

	// Skip the wrapper frames so the caller field points at the service.
	return &ZapLogger{
		logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2)),
	}
}

// NewZapLogger is the application logger: a rotated JSON file at info and
// stdout at debug, JSON in production.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	console := ConsoleText
	if isProd {
		console = ConsoleJSON
	}
	return New(Options{FilePath: logFilePath, FileLevel: zap.InfoLevel, Console: console})
}

// NewIsolatedLogger writes only to its file. The event audit trail uses it
// so events stay out of the console.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	return New(Options{FilePath: logFilePath, FileLevel: zap.InfoLevel})
}

func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.LevelKey = "level"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.write(zap.DebugLevel, module, message, details)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.write(zap.InfoLevel, module, message, details)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.write(zap.WarnLevel, module, message, details)
}

// Error also lifts details["error"] to a top level error_ref field.
func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.write(zap.ErrorLevel, module, message, details)
}

func (l *ZapLogger) write(level zapcore.Level, module, message string, details map[string]interface{}) {
	ce := l.logger.Check(level, message)
	if ce == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}

	fields := []zap.Field{zap.String("module", module), zap.Any("details", details)}
	if level >= zap.ErrorLevel {
		if ref, ok := details["error"]; ok {
			fields = append(fields, zap.Any("error_ref", ref))
		}
	}
	ce.Write(fields...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
