package log

// MultiLogger copies every event to a fixed set of journals, for example a
// FileLogger for mesh-log and a SlogAdapter for the console.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger returns a MultiLogger over the non-nil loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Tee combines loggers into one. It returns nil when every logger is nil
// and the logger itself when only one is set.
func Tee(loggers ...Logger) Logger {
	m := NewMultiLogger(loggers...)
	switch len(m.loggers) {
	case 0:
		return nil
	case 1:
		return m.loggers[0]
	default:
		return m
	}
}

// Log hands event to each logger in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Len returns the number of loggers.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

var _ Logger = (*MultiLogger)(nil)
