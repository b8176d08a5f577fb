package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef names whoever caused an event: a signed-in user, a guest session or
// a background process.
type ActorRef struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
	Guest  bool       `json:"guest,omitempty"`
	System string     `json:"system,omitempty"`
}

func UserActor(id uuid.UUID) *ActorRef { return &ActorRef{UserID: &id} }

func GuestActor() *ActorRef { return &ActorRef{Guest: true} }

func SystemActor(process string) *ActorRef { return &ActorRef{System: process} }

// PayloadEnvelope is what lands in outbox_events.payload. Consumers key
// deduplication on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
