// Package audit is the event log for lottery state changes and rejected
// operations.
package audit

import (
	"fmt"

	"github.com/google/logger"
)

// Level is the severity of an audit line.
type Level int

const (
	INFO Level = iota
	WARNING
	ERROR
)

// String returns the level name used in audit lines.
func (l Level) String() string {
	switch l {
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Policy selects which levels reach the sink.
type Policy struct {
	Info    bool
	Warning bool
	Error   bool
}

// DefaultPolicy drops INFO and keeps WARNING and ERROR.
var DefaultPolicy = Policy{Info: false, Warning: true, Error: true}

// Allows reports whether level passes the policy.
func (p Policy) Allows(level Level) bool {
	switch level {
	case INFO:
		return p.Info
	case WARNING:
		return p.Warning
	case ERROR:
		return p.Error
	default:
		return false
	}
}

// Sink receives the formatted lines that passed the policy.
type Sink interface {
	Emit(level Level, line string)
}

// Log filters events by Policy and forwards them to a Sink.
type Log struct {
	policy Policy
	sink   Sink
}

// New returns a Log that writes lines allowed by policy to sink.
func New(policy Policy, sink Sink) *Log {
	return &Log{policy: policy, sink: sink}
}

// Discard is a Log that emits nothing.
func Discard() *Log {
	return &Log{}
}

// Policy returns the active level policy.
func (l *Log) Policy() Policy {
	return l.policy
}

// Log formats message as "[LEVEL]: message" and emits it if the policy allows.
func (l *Log) Log(level Level, message string) {
	if l == nil || l.sink == nil || !l.policy.Allows(level) {
		return
	}
	l.sink.Emit(level, fmt.Sprintf("[%s]: %s", level, message))
}

// StateChange records an INFO line for a mutated state variable.
func (l *Log) StateChange(variable, value string, changedBy fmt.Stringer) {
	l.Log(INFO, fmt.Sprintf("State change: %s changed to %s by %s", variable, value, changedBy))
}

// Event records an INFO line for a notable event.
func (l *Log) Event(event string) {
	l.Log(INFO, "Event: "+event)
}

// Warning records a WARNING line.
func (l *Log) Warning(message string) {
	l.Log(WARNING, message)
}

// Error records a rejected operation at ERROR.
func (l *Log) Error(err error) {
	l.Log(ERROR, fmt.Sprintf("ERROR: %v", err))
}

// LoggerSink writes to a google/logger Logger, mapping levels one to one.
type LoggerSink struct {
	l *logger.Logger
}

// NewLoggerSink returns a Sink that writes to l.
func NewLoggerSink(l *logger.Logger) *LoggerSink {
	return &LoggerSink{l: l}
}

// Emit writes line at the matching google/logger level.
func (s *LoggerSink) Emit(level Level, line string) {
	switch level {
	case ERROR:
		s.l.Error(line)
	case WARNING:
		s.l.Warning(line)
	default:
		s.l.Info(line)
	}
}
