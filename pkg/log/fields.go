package log

import "time"

// Field is a single structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Context keys shared across components.
const (
	RequestIDKey = "request_id"
	ComponentKey = "component"
	QueueKey     = "queue"
)

func Str(key, value string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Dur(key string, value time.Duration) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }
func Component(name string) Field { return Field{Key: ComponentKey, Value: name} }
func Queue(name string) Field { return Field{Key: QueueKey, Value: name} }
func RequestID(id string) Field { return Field{Key: RequestIDKey, Value: id} }

// Err attaches an error under the "error" key. A nil error yields an empty value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}
