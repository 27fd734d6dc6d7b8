package logger

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName is stamped on every entry
const ServiceName = "truthlens"

const maxStackBytes = 64 << 10

var Log *logrus.Logger

func init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	Log.SetOutput(os.Stdout)
	Log.AddHook(serviceHook{})
}

// serviceHook tags entries so server and worker logs can share a sink
type serviceHook struct{}

func (serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = ServiceName
	}
	return nil
}

// SetLevel sets the logging level. Unknown names fall back to INFO.
func SetLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		Log.SetLevel(logrus.DebugLevel)
	case "INFO":
		Log.SetLevel(logrus.InfoLevel)
	case "WARN", "WARNING":
		Log.SetLevel(logrus.WarnLevel)
	case "ERROR":
		Log.SetLevel(logrus.ErrorLevel)
	default:
		Log.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects log output, mostly for tests
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}

// WithCorrelationID creates a logger with correlation ID
func WithCorrelationID(correlationID string) *logrus.Entry {
	return Log.WithField("correlation_id", correlationID)
}

// WithHistoryItem scopes a logger to one query and its history entry
func WithHistoryItem(correlationID, historyID string) *logrus.Entry {
	return Log.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"history_id":     historyID,
	})
}

// GetStackTrace captures the calling goroutine's stack. Its own frame and
// the next skip frames are left out.
func GetStackTrace(skip int) string {
	buf := make([]byte, 4096)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) || len(buf) >= maxStackBytes {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	// header line, then a function line and a file line per frame
	drop := 2 * (skip + 1)
	if len(lines) <= 1+drop {
		return string(buf)
	}
	return lines[0] + "\n" + strings.Join(lines[1+drop:], "\n")
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["stack_trace"] = GetStackTrace(1)
	Log.WithFields(fields).WithError(err).Error("Error occurred")
}

// LogErrorWithStackAndCorrelation logs an error with stack trace and correlation ID
func LogErrorWithStackAndCorrelation(err error, correlationID string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["correlation_id"] = correlationID
	fields["stack_trace"] = GetStackTrace(1)
	Log.WithFields(fields).WithError(err).Error("Error occurred")
}
