package logging

// LogEntry represents a structured log record.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Campaign-specific fields
	Project   string // The project the record belongs to
	Directory string // The campaign directory, when known

	// General structured data
	Fields map[string]interface{}
}
