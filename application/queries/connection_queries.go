package queries

import (
	"docgraph/domain/core/entities"
	"docgraph/pkg/utils"
)

// FindSimilarDocumentsQuery ranks the documents of an org by similarity to
// one document
type FindSimilarDocumentsQuery struct {
	OrgID      string  `validate:"required"`
	DocumentID string  `validate:"required"`
	Threshold  float64 `validate:"gte=0,lte=1"`
	Limit      int     `validate:"gte=1"`
}

// Validate validates the query
func (q FindSimilarDocumentsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListConnectionsQuery lists the connections touching a document. Limit 0
// selects the configured default.
type ListConnectionsQuery struct {
	OrgID      string `validate:"required"`
	DocumentID string `validate:"required"`
	Type       *entities.ConnectionType
	Limit      int `validate:"gte=0"`
}

// Validate validates the query
func (q ListConnectionsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetConnectionEdgesQuery loads stored connections among a set of documents
// as a document-document edge batch. ViewerKey scopes superseding: a newer
// query from the same viewer makes an in-flight one stale.
type GetConnectionEdgesQuery struct {
	OrgID       string   `validate:"required"`
	ViewerKey   string   `validate:"required"`
	DocumentIDs []string `validate:"dive,required"`
}

// Validate validates the query
func (q GetConnectionEdgesQuery) Validate() error {
	return utils.ValidateStruct(q)
}
