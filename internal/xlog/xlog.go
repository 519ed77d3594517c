// Package xlog is the process-wide debug logger shared by the spawner,
// broker and communicator. It is a thin, mutex-guarded wrapper over
// logrus, sized down to the handful of levels this library actually
// emits.
package xlog

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.Mutex
	log = logrus.New()
)

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
}

// SetOutput redirects all package logging. Tests use this to silence or
// capture log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

// SetDebug toggles debug-level logging, which covers broker registration,
// fan-out and communicate-loop state transitions.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	if enabled {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

func Debugf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	log.Errorf(format, args...)
}
