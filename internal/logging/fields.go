package logging

import (
	"strings"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Stage adds the compositing stage.
func Stage(stage string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("stage", stage)
	}
}

// Role adds which document an event concerns (template, source, output).
func Role(role string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("document", role)
	}
}

// PageIndex adds a zero-based page index.
func PageIndex(index int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("page_index", index)
	}
}

// PageCount adds a document's page count.
func PageCount(count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("page_count", count)
	}
}

// Size adds a byte size.
func Size(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// RequestID adds a request ID field.
func RequestID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("request_id", id)
	}
}

// Filename adds a file name field.
func Filename(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("filename", name)
	}
}

// States adds the visited states of a state machine run.
func States(states []string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("states", strings.Join(states, ">"))
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an integer field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
