package domain

import (
	"encoding/json"
	"time"
)

// Event types emitted by the API.
const (
	EventHTTPRequest       = "http_request"
	EventInviteCreated     = "invite_created"
	EventInviteAccepted    = "invite_accepted"
	EventInviteRejected    = "invite_rejected"
	EventInviteRevoked     = "invite_revoked"
	EventMemberRoleChanged = "member_role_changed"
	EventMemberRemoved     = "member_removed"
	EventOrgCreated        = "organization_created"
	EventOrgShutdown       = "organization_shutdown"
	EventOwnerTransferred  = "organization_owner_transferred"
	EventUserSignedUp      = "user_signed_up"
	EventUserSignedIn      = "user_signed_in"
)

// Event is a domain event. Metadata is a JSON object specific to EventType.
type Event struct {
	OrgID     string          `json:"org_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent builds an Event stamped with the current UTC time. meta is marshaled to JSON;
// a value that cannot be marshaled is dropped rather than failing the caller.
func NewEvent(eventType, source, orgID, userID string, meta any) *Event {
	e := &Event{
		OrgID:     orgID,
		UserID:    userID,
		EventType: eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			e.Metadata = b
		}
	}
	return e
}
