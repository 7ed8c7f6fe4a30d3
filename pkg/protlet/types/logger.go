package types

// Logger is the logging surface every Protlet and the engine itself use.
// It is deliberately narrow so a host can plug in whatever backend it
// already uses, while definition.NewDefaultLogger provides a stdlib-backed
// implementation out of the box.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	Panic(v ...interface{})
	Panicf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}
