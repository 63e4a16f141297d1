package events

import "time"

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetOrgID() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregateId"`
	EventType   string    `json:"eventType"`
	OrgID       string    `json:"orgId"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetOrgID() string        { return e.OrgID }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeConnectionCreated  = "connection.created"
	TypeConnectionDeleted  = "connection.deleted"
	TypeConnectionRecorded = "connection.recorded"
	TypeDocumentIndexed    = "document.indexed"
)

// ConnectionCreated is raised when a user curates a manual connection
type ConnectionCreated struct {
	BaseEvent
	SourceDocumentID string `json:"sourceDocumentId"`
	TargetDocumentID string `json:"targetDocumentId"`
	UserID           string `json:"userId"`
	Reason           string `json:"reason,omitempty"`
}

// NewConnectionCreated creates a ConnectionCreated event
func NewConnectionCreated(connectionID, orgID, sourceID, targetID, userID, reason string, timestamp time.Time) ConnectionCreated {
	return ConnectionCreated{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionCreated,
			OrgID:       orgID,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceDocumentID: sourceID,
		TargetDocumentID: targetID,
		UserID:           userID,
		Reason:           reason,
	}
}

// ConnectionDeleted is raised when a connection is removed
type ConnectionDeleted struct {
	BaseEvent
	ConnectionType string `json:"connectionType"`
	DeletedBy      string `json:"deletedBy"`
}

// NewConnectionDeleted creates a ConnectionDeleted event
func NewConnectionDeleted(connectionID, orgID, connectionType, deletedBy string, timestamp time.Time) ConnectionDeleted {
	return ConnectionDeleted{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionDeleted,
			OrgID:       orgID,
			Timestamp:   timestamp,
			Version:     1,
		},
		ConnectionType: connectionType,
		DeletedBy:      deletedBy,
	}
}

// ConnectionRecorded is raised when an automatic connection is created or refreshed
type ConnectionRecorded struct {
	BaseEvent
	SourceDocumentID string  `json:"sourceDocumentId"`
	TargetDocumentID string  `json:"targetDocumentId"`
	SimilarityScore  float64 `json:"similarityScore"`
}

// NewConnectionRecorded creates a ConnectionRecorded event
func NewConnectionRecorded(connectionID, orgID, sourceID, targetID string, score float64, timestamp time.Time) ConnectionRecorded {
	return ConnectionRecorded{
		BaseEvent: BaseEvent{
			AggregateID: connectionID,
			EventType:   TypeConnectionRecorded,
			OrgID:       orgID,
			Timestamp:   timestamp,
			Version:     1,
		},
		SourceDocumentID: sourceID,
		TargetDocumentID: targetID,
		SimilarityScore:  score,
	}
}

// DocumentIndexed is emitted by the ingestion pipeline once a document's
// embedding is stored. The connection discovery worker consumes it.
type DocumentIndexed struct {
	BaseEvent
	DocumentID string `json:"documentId"`
	SpaceID    string `json:"spaceId,omitempty"`
}
