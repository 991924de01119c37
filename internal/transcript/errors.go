package transcript

import "fmt"

// DataError marks a malformed utterance or segment. Consumers skip and count
// these; they are never fatal to a batch.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "malformed transcript data: " + e.Reason
}

// ValidationError is returned when a write-boundary check fails, such as a
// role update carrying a value outside {coach, client}. Prior state must be
// left untouched by the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}
