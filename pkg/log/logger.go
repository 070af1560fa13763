package log

// Logger receives journal events. Log is called from bus and link
// goroutines concurrently and must not block for long.
type Logger interface {
	Log(event Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// NoopLogger drops every event. The zero value is ready to use.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(Event) {}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
