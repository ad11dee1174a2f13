package logger

import (
	"fmt"
	"strings"
)

// CronLogger adapts Logger to the key/value logger interface used by
// robfig/cron job wrappers.
type CronLogger struct {
	Logger   *Logger
	Category string
}

func (c CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.Logger.Debug(c.category(), msg+formatKV(keysAndValues))
}

func (c CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.Logger.Error(c.category(), fmt.Sprintf("%s: %v%s", msg, err, formatKV(keysAndValues)))
}

func (c CronLogger) category() string {
	if c.Category == "" {
		return "SCHEDULER"
	}
	return c.Category
}

func formatKV(kv []interface{}) string {
	if len(kv) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		b.WriteString(" ")
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, "%v", kv[i])
		}
	}
	return b.String()
}
