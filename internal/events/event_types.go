package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProviderCreated       EventType = "provider_created"
	EventProviderUpdated       EventType = "provider_updated"
	EventProviderDeactivated   EventType = "provider_deactivated"
	EventProviderImageAttached EventType = "provider_image_attached"
	EventProviderImageRemoved  EventType = "provider_image_removed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ProviderID int64       `json:"provider_id"`
	ActorID    int64       `json:"actor_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// ProviderCreatedPayload payload.
type ProviderCreatedPayload struct {
	NPI       string `json:"npi"`
	FullName  string `json:"full_name"`
	Specialty string `json:"specialty"`
}

// ProviderUpdatedPayload payload.
type ProviderUpdatedPayload struct {
	ChangedFields []string `json:"changed_fields"`
}

// ProviderDeactivatedPayload payload.
type ProviderDeactivatedPayload struct {
	NPI string `json:"npi"`
}

// ProviderImageAttachedPayload payload.
type ProviderImageAttachedPayload struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// ProviderImageRemovedPayload payload.
type ProviderImageRemovedPayload struct {
	FileName string `json:"file_name"`
}
