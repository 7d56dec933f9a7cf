package domain

import "time"

// PushEventKind discriminates the variants of PushEvent.
type PushEventKind string

const (
	PushRegistered         PushEventKind = "registration"
	PushRegistrationFailed PushEventKind = "registration_error"
	PushMessageReceived    PushEventKind = "message_received"
	PushActionPerformed    PushEventKind = "action_performed"
)

// PushEvent is a tagged variant delivered on a push subscription.
// Only the fields belonging to Kind are set.
type PushEvent struct {
	Kind PushEventKind `json:"kind"`

	// PushRegistered
	Token string `json:"token,omitempty"`

	// PushRegistrationFailed
	Error string `json:"error,omitempty"`

	// PushMessageReceived
	Title string            `json:"title,omitempty"`
	Body  string            `json:"body,omitempty"`
	Data  map[string]string `json:"data,omitempty"`

	// PushActionPerformed
	ActionID string `json:"action_id,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}
