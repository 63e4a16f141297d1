package commands

import (
	"docgraph/pkg/utils"
)

// CreateManualConnectionCommand links two documents on a user's behalf
type CreateManualConnectionCommand struct {
	OrgID            string                 `validate:"required"`
	UserID           string                 `validate:"required"`
	SourceDocumentID string                 `validate:"required"`
	TargetDocumentID string                 `validate:"required"`
	Reason           string                 `validate:"max=1000"`
	Metadata         map[string]interface{} `validate:"-"`
}

// Validate validates the command
func (c CreateManualConnectionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteConnectionCommand removes a connection
type DeleteConnectionCommand struct {
	OrgID        string `validate:"required"`
	UserID       string `validate:"required"`
	ConnectionID string `validate:"required"`
}

// Validate validates the command
func (c DeleteConnectionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// RecordAutomaticConnectionCommand stores a connection found by similarity
// discovery. Recording the same pair again refreshes its score.
type RecordAutomaticConnectionCommand struct {
	OrgID            string  `validate:"required"`
	SourceDocumentID string  `validate:"required"`
	TargetDocumentID string  `validate:"required"`
	SimilarityScore  float64 `validate:"gte=0,lte=1"`
	Reason           string
}

// Validate validates the command
func (c RecordAutomaticConnectionCommand) Validate() error {
	return utils.ValidateStruct(c)
}
