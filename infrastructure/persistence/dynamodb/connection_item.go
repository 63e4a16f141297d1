package dynamodb

import (
	"fmt"
	"strings"

	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	"docgraph/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	entityTypeConnection = "CONNECTION"
	entityTypePairGuard  = "PAIR_GUARD"
)

// connectionItem is the DynamoDB item of one connection. All connections of
// an org share a partition; GSI1 and GSI2 index them by source and target
// document, newest first.
type connectionItem struct {
	PK               string                 `dynamodbav:"PK"`     // ORG#<org>
	SK               string                 `dynamodbav:"SK"`     // CONN#<id>
	GSI1PK           string                 `dynamodbav:"GSI1PK"` // ORG#<org>#DOC#<source>
	GSI1SK           string                 `dynamodbav:"GSI1SK"` // CONN#<createdAt>#<id>
	GSI2PK           string                 `dynamodbav:"GSI2PK"` // ORG#<org>#DOC#<target>
	GSI2SK           string                 `dynamodbav:"GSI2SK"`
	EntityType       string                 `dynamodbav:"EntityType"`
	ConnectionID     string                 `dynamodbav:"ConnectionID"`
	OrgID            string                 `dynamodbav:"OrgID"`
	SourceDocumentID string                 `dynamodbav:"SourceDocumentID"`
	TargetDocumentID string                 `dynamodbav:"TargetDocumentID"`
	ConnectionType   string                 `dynamodbav:"ConnectionType"`
	SimilarityScore  *float64               `dynamodbav:"SimilarityScore,omitempty"`
	Reason           string                 `dynamodbav:"Reason,omitempty"`
	Metadata         map[string]interface{} `dynamodbav:"Metadata,omitempty"`
	UserID           string                 `dynamodbav:"UserID,omitempty"`
	CreatedAt        string                 `dynamodbav:"CreatedAt"`
	UpdatedAt        string                 `dynamodbav:"UpdatedAt"`
}

// pairGuardItem reserves an unordered document pair for a manual connection
type pairGuardItem struct {
	PK           string `dynamodbav:"PK"` // ORG#<org>
	SK           string `dynamodbav:"SK"` // PAIR#MANUAL#<low>#<high>
	EntityType   string `dynamodbav:"EntityType"`
	ConnectionID string `dynamodbav:"ConnectionID"`
}

func orgKey(orgID string) string {
	return fmt.Sprintf("ORG#%s", orgID)
}

func connectionKey(connectionID string) string {
	return fmt.Sprintf("CONN#%s", connectionID)
}

func documentKey(orgID, documentID string) string {
	return fmt.Sprintf("ORG#%s#DOC#%s", orgID, documentID)
}

func pairGuardKey(pair valueobjects.DocumentPair) string {
	return fmt.Sprintf("PAIR#MANUAL#%s", pair.Key())
}

func primaryKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func newConnectionItem(conn *entities.DocumentConnection) connectionItem {
	s := conn.Snapshot()
	createdAt := utils.FormatRFC3339Nano(s.CreatedAt)
	sortKey := fmt.Sprintf("CONN#%s#%s", createdAt, s.ID)
	return connectionItem{
		PK:               orgKey(s.OrgID),
		SK:               connectionKey(s.ID),
		GSI1PK:           documentKey(s.OrgID, s.SourceDocumentID),
		GSI1SK:           sortKey,
		GSI2PK:           documentKey(s.OrgID, s.TargetDocumentID),
		GSI2SK:           sortKey,
		EntityType:       entityTypeConnection,
		ConnectionID:     s.ID,
		OrgID:            s.OrgID,
		SourceDocumentID: s.SourceDocumentID,
		TargetDocumentID: s.TargetDocumentID,
		ConnectionType:   string(s.ConnectionType),
		SimilarityScore:  s.SimilarityScore,
		Reason:           s.Reason,
		Metadata:         s.Metadata,
		UserID:           s.UserID,
		CreatedAt:        createdAt,
		UpdatedAt:        utils.FormatRFC3339Nano(s.UpdatedAt),
	}
}

func (item connectionItem) toEntity() (*entities.DocumentConnection, error) {
	connType, err := entities.ParseConnectionType(item.ConnectionType)
	if err != nil {
		return nil, err
	}
	createdAt, err := utils.ParseRFC3339(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on connection %s: %w", item.ConnectionID, err)
	}
	updatedAt, err := utils.ParseRFC3339(item.UpdatedAt)
	if err != nil {
		updatedAt = createdAt
	}
	return entities.ReconstructConnection(entities.ConnectionSnapshot{
		ID:               item.ConnectionID,
		OrgID:            item.OrgID,
		SourceDocumentID: item.SourceDocumentID,
		TargetDocumentID: item.TargetDocumentID,
		ConnectionType:   connType,
		SimilarityScore:  item.SimilarityScore,
		Reason:           item.Reason,
		Metadata:         item.Metadata,
		UserID:           item.UserID,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}), nil
}

// unmarshalConnections converts query results, skipping items that are not
// connections
func unmarshalConnections(items []map[string]types.AttributeValue) ([]*entities.DocumentConnection, error) {
	conns := make([]*entities.DocumentConnection, 0, len(items))
	for _, raw := range items {
		var item connectionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
		}
		if item.EntityType != entityTypeConnection || !strings.HasPrefix(item.SK, "CONN#") {
			continue
		}
		conn, err := item.toEntity()
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, nil
}
