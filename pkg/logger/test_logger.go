package logger

import "sync"

// TestLogger captures log entries in memory for assertions in tests.
type TestLogger struct {
	mu      sync.Mutex
	Entries []TestEntry
	fields  map[string]interface{}
}

// TestEntry is one captured log call.
type TestEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a capturing logger for tests.
func NewTestLogger() *TestLogger {
	return &TestLogger{fields: make(map[string]interface{})}
}

func (t *TestLogger) record(level, msg string, fields map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	merged := make(map[string]interface{}, len(t.fields)+len(fields))
	for k, v := range t.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	t.Entries = append(t.Entries, TestEntry{Level: level, Message: msg, Fields: merged})
}

// HasMessage reports whether any entry carries the given message.
func (t *TestLogger) HasMessage(msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.Entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func (t *TestLogger) Debug(msg string) { t.record("debug", msg, nil) }
func (t *TestLogger) Info(msg string)  { t.record("info", msg, nil) }
func (t *TestLogger) Warn(msg string)  { t.record("warn", msg, nil) }
func (t *TestLogger) Error(msg string) { t.record("error", msg, nil) }
func (t *TestLogger) Fatal(msg string) { t.record("fatal", msg, nil) }

func (t *TestLogger) withField(key string, value interface{}) *TestLogger {
	t.mu.Lock()
	defer t.mu.Unlock()
	fields := make(map[string]interface{}, len(t.fields)+1)
	for k, v := range t.fields {
		fields[k] = v
	}
	fields[key] = value
	return &TestLogger{Entries: t.Entries, fields: fields}
}

func (t *TestLogger) WithField(key string, value interface{}) Logger {
	return t.withField(key, value)
}

func (t *TestLogger) WithFields(fields map[string]interface{}) Logger {
	l := t
	for k, v := range fields {
		l = l.withField(k, v)
	}
	return l
}

func (t *TestLogger) WithError(err error) Logger {
	return t.withField("error", err)
}

func (t *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	t.record("debug", msg, fields)
}

func (t *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	t.record("info", msg, fields)
}

func (t *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	t.record("warn", msg, fields)
}

func (t *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	t.record("error", msg, fields)
}
