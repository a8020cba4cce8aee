package hides

import "log"

// Reporter receives the device layer's log lines. The daemon passes a
// component-tagged logger from pkg/logging; tests use StdReporter or a
// recording fake.
type Reporter interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StdReporter logs through the standard library logger.
type StdReporter struct{}

// Debugf logs a debug message.
func (StdReporter) Debugf(format string, args ...interface{}) {
	log.Printf("HiDes: "+format, args...)
}

// Infof logs an informational message.
func (StdReporter) Infof(format string, args ...interface{}) {
	log.Printf("HiDes: "+format, args...)
}

// Errorf logs an error message.
func (StdReporter) Errorf(format string, args ...interface{}) {
	log.Printf("HiDes: ERROR: "+format, args...)
}
