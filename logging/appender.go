package logging

import (
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface, so an
// observer core can be added directly to a logger.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender will create human readable (tab separated) log lines and write them to the
// underlying writer.
type ConsoleAppender struct {
	encoder zapcore.Encoder
	out     zapcore.WriteSyncer
}

func newEncoderConfig(colored bool) zapcore.EncoderConfig {
	levelEncoder := zapcore.CapitalLevelEncoder
	if colored {
		levelEncoder = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(DefaultTimeFormatStr),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewStdoutAppender creates a new appender that outputs to stdout.
func NewStdoutAppender() ConsoleAppender {
	return NewWriterAppender(zapcore.Lock(os.Stdout), true)
}

// NewWriterAppender creates a new appender that outputs to the input writer.
func NewWriterAppender(writer zapcore.WriteSyncer, colored bool) ConsoleAppender {
	return ConsoleAppender{
		encoder: zapcore.NewConsoleEncoder(newEncoderConfig(colored)),
		out:     writer,
	}
}

// NewFileAppender creates an appender that writes to a size-rotated file. The returned closer
// must be called when logging is done.
func NewFileAppender(filename string) (ConsoleAppender, func() error) {
	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return NewWriterAppender(zapcore.AddSync(rotator), false), rotator.Close
}

// Write outputs the log entry to the underlying stream.
func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	_, err = appender.out.Write(buf.Bytes())
	return err
}

// Sync flushes the underlying writer.
func (appender ConsoleAppender) Sync() error {
	return appender.out.Sync()
}

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns a logger appender that logs to the underlying `testing.TB`
// object. Logging with `tb.Log` associates the line with the running test, which matters for
// tests that run in parallel.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	toPrint := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		toPrint = append(toPrint, entry.Caller.TrimmedPath())
	}
	toPrint = append(toPrint, entry.Message)
	if len(fields) == 0 {
		tapp.tb.Log(strings.Join(toPrint, "\t"))
		return nil
	}

	// Call the json encoder with an empty Entry such that only the fields get encoded, in order.
	jsonEncoder := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := jsonEncoder.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		tapp.tb.Log(strings.Join(toPrint, "\t"))
		return err
	}
	toPrint = append(toPrint, string(buf.Bytes()))
	tapp.tb.Log(strings.Join(toPrint, "\t"))
	return nil
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
