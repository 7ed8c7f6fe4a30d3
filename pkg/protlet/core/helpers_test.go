package core_test

import (
	"log"
	"os"

	"github.com/go-protlet/protlet/pkg/protlet/types"
)

// testLogger discards Debug/Info noise and prints everything else to
// stderr, matching the verbosity the teacher's test harness used for its
// default logger.
type testLogger struct {
	*log.Logger
}

func newTestLogger() types.Logger {
	return &testLogger{Logger: log.New(os.Stderr, "test ", log.LstdFlags)}
}

func (l *testLogger) Info(v ...interface{})                 {}
func (l *testLogger) Infof(format string, v ...interface{}) {}
func (l *testLogger) Warn(v ...interface{})                 { l.Println(v...) }
func (l *testLogger) Warnf(f string, v ...interface{})      { l.Printf(f, v...) }
func (l *testLogger) Error(v ...interface{})                { l.Println(v...) }
func (l *testLogger) Errorf(f string, v ...interface{})     { l.Printf(f, v...) }
func (l *testLogger) Debug(v ...interface{})                {}
func (l *testLogger) Debugf(f string, v ...interface{})     {}
func (l *testLogger) Fatal(v ...interface{})                { l.Println(v...) }
func (l *testLogger) Fatalf(f string, v ...interface{})     { l.Printf(f, v...) }
func (l *testLogger) Panic(v ...interface{})                { l.Println(v...) }
func (l *testLogger) Panicf(f string, v ...interface{})     { l.Printf(f, v...) }
func (l *testLogger) ToggleDebug(bool) bool                 { return false }
