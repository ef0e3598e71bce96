// Package messaging defines the event publishing contract shared by services.
package messaging

import (
	"context"
)

// Subjects events are published on.
const (
	CartUpdatedSubject = "cart.updated"
	// CartSubjects matches every cart event, used when declaring streams.
	CartSubjects = "cart.>"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
