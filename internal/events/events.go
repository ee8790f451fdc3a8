// Package events carries the admin notification fanout. Emission is
// fire-and-forget from the services' perspective: delivery failures
// are logged by the emitter and never propagate back into the
// operation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification event names.
const (
	EventMemoryCreated = "memory:created"
)

// Notification target types.
const (
	TargetTypeMemory = "memory"
)

// Notification is the payload pushed to the admin dashboard when a
// family member creates content.
type Notification struct {
	// Type is the target entity type ("memory" or "letter")
	Type string `json:"type"`

	// TargetID is the ID of the created entity
	TargetID uuid.UUID `json:"id"`

	// Title is a short human-readable headline
	Title string `json:"title"`

	// Description is the (possibly truncated) entity content
	Description string `json:"description"`

	// FamilyName is the display name of the owning family
	FamilyName string `json:"family_name"`

	// AuthorName is the nickname of the creating member
	AuthorName string `json:"author_name"`

	// CreatedAt is the entity creation timestamp
	CreatedAt time.Time `json:"created_at"`
}

// Handler processes emitted notifications, e.g. by pushing them over a
// dashboard socket.
type Handler interface {
	// HandleNotification processes the notification within the provided context.
	// Returns an error if the notification cannot be handled successfully.
	HandleNotification(ctx context.Context, event string, notification *Notification) error
}

// Emitter publishes notifications without knowledge of the delivery
// mechanism. Services call Emit and move on; they never inspect the
// result beyond logging.
type Emitter interface {
	// Emit publishes the notification under the given event name.
	// Returns an error if the notification cannot be emitted.
	Emit(ctx context.Context, event string, notification *Notification) error
}

// Truncate shortens a description to at most max runes, appending an
// ellipsis when content was cut.
func Truncate(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
