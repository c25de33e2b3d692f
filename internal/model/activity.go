package model

import "time"

// Entity types recorded in the activity log.
const (
	EntityListing      = "listing"
	EntityOffer        = "offer"
	EntityVerification = "verification"
	EntityUser         = "user"
)

// ActivityEvent is one append-only entry of the activity log.
type ActivityEvent struct {
	ID         int64     `json:"id"`
	ActorID    int64     `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ActorName string `json:"actor_name,omitempty"`
}

// ActivityFilter narrows the activity feed.
type ActivityFilter struct {
	EntityType string
	Search     string
	Limit      int
}
