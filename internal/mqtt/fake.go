package mqtt

import (
	"github.com/sweeney/iono/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events contains all channel events that were published.
	Events []logic.Event

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Sent contains every command delivered with Send.
	Sent []Command

	commands chan Command
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{commands: make(chan Command)}
}

// Commands delivers the commands passed to Send.
func (f *FakePublisher) Commands() <-chan Command {
	return f.commands
}

// Send records cmd and blocks until a reader of Commands receives it, as if
// it had arrived on a set topic.
func (f *FakePublisher) Send(cmd Command) {
	f.Sent = append(f.Sent, cmd)
	f.commands <- cmd
}

// Publish records the channel event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// EventsFor returns the published events of one channel, in order.
func (f *FakePublisher) EventsFor(id string) []logic.Event {
	var out []logic.Event
	for _, e := range f.Events {
		if e.Channel == id {
			out = append(out, e)
		}
	}
	return out
}
