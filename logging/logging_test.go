package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestLevelFromString(t *testing.T) {
	for input, expected := range map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warn":    WARN,
		"warning": WARN,
		"error":   ERROR,
	} {
		level, err := LevelFromString(input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}

	_, err := LevelFromString("verbose")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")
}

func TestLevelAsZap(t *testing.T) {
	test.That(t, DEBUG.AsZap(), test.ShouldEqual, zapcore.DebugLevel)
	test.That(t, INFO.AsZap(), test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, WARN.AsZap(), test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, ERROR.AsZap(), test.ShouldEqual, zapcore.ErrorLevel)
}

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("frame scored", "frame", 3, "detections", 2)
	logger.Info("done")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entries := logs.FilterMessage("frame scored").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["frame"], test.ShouldEqual, int64(3))
	test.That(t, entries[0].Level, test.ShouldEqual, zapcore.DebugLevel)
}

func TestLevelFiltering(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(WARN)
	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Errorf("shown %d", 2)
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
}

func TestSubloggerSharesLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(INFO)
	sub := logger.Sublogger("source")
	sub.Debug("hidden")
	logger.SetLevel(DEBUG)
	sub.Debug("shown")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].LoggerName, test.ShouldEqual, "source")
}

func TestWriterAppender(t *testing.T) {
	var buf bufferSyncer
	logger := NewBlankLogger("videodetect")
	logger.AddAppender(NewWriterAppender(&buf, false))
	logger.Infow("device used", "device", "cpu")
	test.That(t, logger.Sync(), test.ShouldBeNil)

	parts := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\t")
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "videodetect")
	test.That(t, parts[3], test.ShouldContainSubstring, "logging/logging_test.go")
	test.That(t, parts[4], test.ShouldEqual, "device used")
	test.That(t, parts[5], test.ShouldEqual, `{"device": "cpu"}`)
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("oops", "dangling")
	test.That(t, logs.All()[0].ContextMap()["dangling"], test.ShouldNotBeNil)
}

func TestAsZap(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(INFO)
	zl := logger.AsZap()
	zl.Debugw("hidden")
	zl.Infow("visible", "k", "v")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["k"], test.ShouldEqual, "v")
}
