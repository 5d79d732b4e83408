package logging

import (
	"fmt"
	"strings"
)

// LeveledLogger routes key/value style log calls (as emitted by
// hashicorp/go-retryablehttp) into this package under a fixed subsystem.
type LeveledLogger struct {
	subsystem string
}

// NewLeveledLogger returns a LeveledLogger that tags records with subsystem.
func NewLeveledLogger(subsystem string) *LeveledLogger {
	return &LeveledLogger{subsystem: subsystem}
}

func (l *LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logInternal(LevelError, l.subsystem, nil, "%s", withFields(msg, keysAndValues))
}

func (l *LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logInternal(LevelInfo, l.subsystem, nil, "%s", withFields(msg, keysAndValues))
}

func (l *LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logInternal(LevelDebug, l.subsystem, nil, "%s", withFields(msg, keysAndValues))
}

func (l *LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logInternal(LevelWarn, l.subsystem, nil, "%s", withFields(msg, keysAndValues))
}

// withFields renders alternating keys and values as "msg k1=v1 k2=v2".
// A trailing key without a value is rendered with an empty value.
func withFields(msg string, keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		var value interface{} = ""
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], value)
	}
	return b.String()
}
