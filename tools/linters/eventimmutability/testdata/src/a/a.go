package a

import (
	"time"

	"ftlvars/pkg/events"
)

func mutateEventField(event *events.TemplateChangedEvent) {
	event.Template = "modified" // want `event field mutation detected`
}

func mutateMultipleFields(event *events.TemplateChangedEvent) {
	event.Template = "modified" // want `event field mutation detected`
	event.Count = 42            // want `event field mutation detected`
	event.At = time.Now()       // want `event field mutation detected`
}

func mutateInConditional(event *events.TemplateChangedEvent, condition bool) {
	if condition {
		event.Template = "conditional" // want `event field mutation detected`
	}
}

func mutateInTypeSwitch(ev events.Event) {
	switch e := ev.(type) {
	case *events.TemplateChangedEvent:
		e.Count++               // want `event field mutation detected`
		e.Template = "switched" // want `event field mutation detected`
	}
}

func mutateFromChannel(ch <-chan *events.TemplateChangedEvent) {
	for ev := range ch {
		ev.Template = "received" // want `event field mutation detected`
	}
}

func readEventField(event *events.TemplateChangedEvent) string {
	return event.Template
}

func useEventField(event *events.TemplateChangedEvent) {
	name := event.Template
	count := event.Count
	_ = name
	_ = count
}

func mutateOptions(opts events.Options) events.Options {
	opts.Name = "fine"
	return opts
}

func buildLocalEvent() *events.TemplateChangedEvent {
	event := &events.TemplateChangedEvent{}
	event.Template = "local"
	event.Count = 1
	return event
}
