package events

import "time"

type Event interface {
	EventType() string
	Timestamp() time.Time
}

// TemplateChangedEvent is an event type for analyzer testing.
type TemplateChangedEvent struct {
	Template string
	Count    int
	At       time.Time
}

func (e *TemplateChangedEvent) EventType() string    { return "template.changed" }
func (e *TemplateChangedEvent) Timestamp() time.Time { return e.At }

// Touch may set fields of its own receiver.
func (e *TemplateChangedEvent) Touch() {
	e.At = time.Now()
}

// Options has no EventType method and is not an event.
type Options struct {
	Name string
}
