package service

import "github.com/labstack/gommon/log"

var logLevel = log.INFO

// SetLogLevel sets the level of loggers created by the service constructors.
// Call it before constructing services.
func SetLogLevel(lvl log.Lvl) {
	logLevel = lvl
}

func newLogger(prefix string) *log.Logger {
	l := log.New(prefix)
	l.SetLevel(logLevel)
	return l
}
