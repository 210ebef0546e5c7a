package logging

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
}

func (imp *impl) newLogEntry(logLevel Level, msg string) (zapcore.Entry, []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      logLevel.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	return entry, nil
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	// The level is shared so that `--debug` applies to every sublogger handed out before it was set.
	return &impl{
		name:      newName,
		level:     imp.level,
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	}
}

func (imp *impl) Sync() error {
	var errs error
	for _, appender := range imp.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	cores := make([]zapcore.Core, 0, len(imp.appenders))
	for _, appender := range imp.appenders {
		cores = append(cores, &appenderCore{appender: appender, level: imp.level})
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar().Named(imp.name)
}

func (imp *impl) shouldLog(logLevel Level) bool {
	return logLevel >= imp.level.Get()
}

func (imp *impl) log(entry zapcore.Entry, fields []zapcore.Field) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprint(os.Stderr, err)
		}
	}
}

func (imp *impl) format(logLevel Level, args ...interface{}) {
	entry, fields := imp.newLogEntry(logLevel, fmt.Sprint(args...))
	imp.log(entry, fields)
}

func (imp *impl) formatf(logLevel Level, template string, args ...interface{}) {
	entry, fields := imp.newLogEntry(logLevel, fmt.Sprintf(template, args...))
	imp.log(entry, fields)
}

// Turns `keysAndValues` into zap fields where the odd elements are the keys and their following
// even counterpart is the value.
func (imp *impl) formatw(logLevel Level, msg string, keysAndValues ...interface{}) {
	entry, _ := imp.newLogEntry(logLevel, msg)
	fields := make([]zapcore.Field, 0, len(keysAndValues)/2)
	for keyIdx := 0; keyIdx < len(keysAndValues); keyIdx += 2 {
		keyObj := keysAndValues[keyIdx]
		var keyStr string
		if stringer, ok := keyObj.(fmt.Stringer); ok {
			keyStr = stringer.String()
		} else {
			keyStr = fmt.Sprintf("%v", keyObj)
		}

		if keyIdx+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(keyStr, keysAndValues[keyIdx+1]))
		} else {
			// API mis-use. Slip in an error message rather than silently discarding the key.
			fields = append(fields, zap.Any(keyStr, errors.New("unpaired log key")))
		}
	}
	imp.log(entry, fields)
}

func (imp *impl) Debug(args ...interface{}) {
	if imp.shouldLog(DEBUG) {
		imp.format(DEBUG, args...)
	}
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	if imp.shouldLog(DEBUG) {
		imp.formatf(DEBUG, template, args...)
	}
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(DEBUG) {
		imp.formatw(DEBUG, msg, keysAndValues...)
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.shouldLog(INFO) {
		imp.format(INFO, args...)
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.shouldLog(INFO) {
		imp.formatf(INFO, template, args...)
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(INFO) {
		imp.formatw(INFO, msg, keysAndValues...)
	}
}

func (imp *impl) Warn(args ...interface{}) {
	if imp.shouldLog(WARN) {
		imp.format(WARN, args...)
	}
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	if imp.shouldLog(WARN) {
		imp.formatf(WARN, template, args...)
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(WARN) {
		imp.formatw(WARN, msg, keysAndValues...)
	}
}

func (imp *impl) Error(args ...interface{}) {
	if imp.shouldLog(ERROR) {
		imp.format(ERROR, args...)
	}
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	if imp.shouldLog(ERROR) {
		imp.formatf(ERROR, template, args...)
	}
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if imp.shouldLog(ERROR) {
		imp.formatw(ERROR, msg, keysAndValues...)
	}
}

// appenderCore adapts an Appender to a zapcore.Core for AsZap.
type appenderCore struct {
	appender Appender
	level    AtomicLevel
	fields   []zapcore.Field
}

func (c *appenderCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.level.Get().AsZap()
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	combined := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	combined = append(combined, c.fields...)
	combined = append(combined, fields...)
	return &appenderCore{appender: c.appender, level: c.level, fields: combined}
}

func (c *appenderCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if len(c.fields) == 0 {
		return c.appender.Write(entry, fields)
	}
	return c.appender.Write(entry, append(append([]zapcore.Field{}, c.fields...), fields...))
}

func (c *appenderCore) Sync() error {
	return c.appender.Sync()
}

// Return example: "logging/impl_test.go:36".
func getCaller() zapcore.EntryCaller {
	var ok bool
	var entryCaller zapcore.EntryCaller
	const skipToLogCaller = 4
	entryCaller.PC, entryCaller.File, entryCaller.Line, ok = runtime.Caller(skipToLogCaller)
	if !ok {
		return entryCaller
	}
	entryCaller.Defined = true

	if runtimeFunc := runtime.FuncForPC(entryCaller.PC); runtimeFunc != nil {
		entryCaller.Function = runtimeFunc.Name()
	}

	return entryCaller
}
