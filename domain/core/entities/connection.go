package entities

import (
	"strings"
	"time"

	"docgraph/domain/core/valueobjects"
	"docgraph/domain/events"
	pkgerrors "docgraph/pkg/errors"

	"github.com/google/uuid"
)

// ConnectionType distinguishes similarity-derived from user-curated connections
type ConnectionType string

const (
	ConnectionTypeAutomatic ConnectionType = "automatic"
	ConnectionTypeManual    ConnectionType = "manual"
)

// ParseConnectionType validates a connection type string
func ParseConnectionType(s string) (ConnectionType, error) {
	switch ConnectionType(strings.ToLower(strings.TrimSpace(s))) {
	case ConnectionTypeAutomatic:
		return ConnectionTypeAutomatic, nil
	case ConnectionTypeManual:
		return ConnectionTypeManual, nil
	default:
		return "", pkgerrors.NewInvalidArgumentErrorf("invalid connection type %q", s)
	}
}

// automaticConnectionNamespace seeds deterministic ids for automatic connections
var automaticConnectionNamespace = uuid.MustParse("6f1c1c4e-3a7d-5d8e-9b0a-2f4e7c1d9a51")

// AutomaticConnectionID derives the id of the automatic connection for a pair.
// Recording the same pair twice therefore targets the same record.
func AutomaticConnectionID(orgID string, pair valueobjects.DocumentPair) string {
	return uuid.NewSHA1(automaticConnectionNamespace, []byte(orgID+"|"+pair.Key())).String()
}

// DocumentConnection is a relationship between two documents of one org
type DocumentConnection struct {
	id               string
	orgID            string
	sourceDocumentID string
	targetDocumentID string
	connectionType   ConnectionType
	similarityScore  *float64
	reason           string
	metadata         map[string]interface{}
	userID           string
	createdAt        time.Time
	updatedAt        time.Time

	events []events.DomainEvent
}

// NewManualConnection creates a user-curated connection
func NewManualConnection(orgID, sourceID, targetID, userID, reason string, metadata map[string]interface{}) (*DocumentConnection, error) {
	if orgID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("orgID cannot be empty")
	}
	if userID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("userID cannot be empty for a manual connection")
	}
	if _, err := valueobjects.NewDocumentPair(sourceID, targetID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conn := &DocumentConnection{
		id:               uuid.New().String(),
		orgID:            orgID,
		sourceDocumentID: sourceID,
		targetDocumentID: targetID,
		connectionType:   ConnectionTypeManual,
		reason:           strings.TrimSpace(reason),
		metadata:         metadata,
		userID:           userID,
		createdAt:        now,
		updatedAt:        now,
	}
	conn.events = append(conn.events, events.NewConnectionCreated(
		conn.id, orgID, sourceID, targetID, userID, conn.reason, now,
	))
	return conn, nil
}

// NewAutomaticConnection creates a similarity-derived connection with no creator
func NewAutomaticConnection(orgID, sourceID, targetID string, score float64, reason string) (*DocumentConnection, error) {
	if orgID == "" {
		return nil, pkgerrors.NewInvalidArgumentError("orgID cannot be empty")
	}
	pair, err := valueobjects.NewDocumentPair(sourceID, targetID)
	if err != nil {
		return nil, err
	}

	score = ClampScore(score)
	now := time.Now().UTC()
	conn := &DocumentConnection{
		id:               AutomaticConnectionID(orgID, pair),
		orgID:            orgID,
		sourceDocumentID: sourceID,
		targetDocumentID: targetID,
		connectionType:   ConnectionTypeAutomatic,
		similarityScore:  &score,
		reason:           strings.TrimSpace(reason),
		createdAt:        now,
		updatedAt:        now,
	}
	conn.events = append(conn.events, events.NewConnectionRecorded(
		conn.id, orgID, sourceID, targetID, score, now,
	))
	return conn, nil
}

// ConnectionSnapshot is the persisted form of a connection
type ConnectionSnapshot struct {
	ID               string
	OrgID            string
	SourceDocumentID string
	TargetDocumentID string
	ConnectionType   ConnectionType
	SimilarityScore  *float64
	Reason           string
	Metadata         map[string]interface{}
	UserID           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReconstructConnection rebuilds a connection from storage without raising events
func ReconstructConnection(s ConnectionSnapshot) *DocumentConnection {
	return &DocumentConnection{
		id:               s.ID,
		orgID:            s.OrgID,
		sourceDocumentID: s.SourceDocumentID,
		targetDocumentID: s.TargetDocumentID,
		connectionType:   s.ConnectionType,
		similarityScore:  s.SimilarityScore,
		reason:           s.Reason,
		metadata:         s.Metadata,
		userID:           s.UserID,
		createdAt:        s.CreatedAt,
		updatedAt:        s.UpdatedAt,
	}
}

// Snapshot returns the persisted form of the connection
func (c *DocumentConnection) Snapshot() ConnectionSnapshot {
	return ConnectionSnapshot{
		ID:               c.id,
		OrgID:            c.orgID,
		SourceDocumentID: c.sourceDocumentID,
		TargetDocumentID: c.targetDocumentID,
		ConnectionType:   c.connectionType,
		SimilarityScore:  c.similarityScore,
		Reason:           c.reason,
		Metadata:         c.metadata,
		UserID:           c.userID,
		CreatedAt:        c.createdAt,
		UpdatedAt:        c.updatedAt,
	}
}

func (c *DocumentConnection) ID() string                       { return c.id }
func (c *DocumentConnection) OrgID() string                    { return c.orgID }
func (c *DocumentConnection) SourceDocumentID() string         { return c.sourceDocumentID }
func (c *DocumentConnection) TargetDocumentID() string         { return c.targetDocumentID }
func (c *DocumentConnection) Type() ConnectionType             { return c.connectionType }
func (c *DocumentConnection) SimilarityScore() *float64        { return c.similarityScore }
func (c *DocumentConnection) Reason() string                   { return c.reason }
func (c *DocumentConnection) Metadata() map[string]interface{} { return c.metadata }
func (c *DocumentConnection) UserID() string                   { return c.userID }
func (c *DocumentConnection) CreatedAt() time.Time             { return c.createdAt }
func (c *DocumentConnection) UpdatedAt() time.Time             { return c.updatedAt }

// IsManual reports whether a user curated the connection
func (c *DocumentConnection) IsManual() bool {
	return c.connectionType == ConnectionTypeManual
}

// Pair returns the unordered document pair the connection links
func (c *DocumentConnection) Pair() valueobjects.DocumentPair {
	pair, _ := valueobjects.NewDocumentPair(c.sourceDocumentID, c.targetDocumentID)
	return pair
}

// OtherDocumentID returns the end of the connection that is not documentID
func (c *DocumentConnection) OtherDocumentID(documentID string) string {
	if c.sourceDocumentID == documentID {
		return c.targetDocumentID
	}
	return c.sourceDocumentID
}

// Score returns the similarity score, treating manual connections as 1
func (c *DocumentConnection) Score() float64 {
	if c.similarityScore == nil {
		return 1
	}
	return *c.similarityScore
}

// AuthorizeDelete checks whether userID may delete the connection. Manual
// connections belong to their creator; automatic ones have no creator.
func (c *DocumentConnection) AuthorizeDelete(userID string) error {
	switch c.connectionType {
	case ConnectionTypeManual:
		if userID == "" || userID != c.userID {
			return pkgerrors.NewForbiddenError("only the creator can delete a manual connection")
		}
		return nil
	case ConnectionTypeAutomatic:
		return nil
	default:
		return pkgerrors.NewInternalError("unknown connection type " + string(c.connectionType))
	}
}

// MarkDeleted records the deletion event once authorization succeeded
func (c *DocumentConnection) MarkDeleted(userID string) {
	c.events = append(c.events, events.NewConnectionDeleted(
		c.id, c.orgID, string(c.connectionType), userID, time.Now().UTC(),
	))
}

// GetUncommittedEvents returns events raised since the last commit
func (c *DocumentConnection) GetUncommittedEvents() []events.DomainEvent {
	return c.events
}

// MarkEventsAsCommitted clears pending events
func (c *DocumentConnection) MarkEventsAsCommitted() {
	c.events = nil
}

// ClampScore forces a similarity value into [0,1]. NaN becomes 0.
func ClampScore(score float64) float64 {
	switch {
	case score != score:
		return 0
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
