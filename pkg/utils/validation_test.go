package utils

import (
	"testing"
	"time"

	pkgerrors "docgraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectionInput struct {
	SourceDocumentID string  `validate:"required"`
	TargetDocumentID string  `validate:"required,nefield=SourceDocumentID"`
	Threshold        float64 `validate:"gte=0,lte=1"`
	Kind             string  `validate:"omitempty,oneof=manual automatic"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      connectionInput
		wantFields []string
		wantMsg    string
	}{
		{
			name:  "valid",
			input: connectionInput{SourceDocumentID: "a", TargetDocumentID: "b", Threshold: 0.7},
		},
		{
			name:       "missing source",
			input:      connectionInput{TargetDocumentID: "b"},
			wantFields: []string{"sourceDocumentID"},
			wantMsg:    "sourceDocumentID is required",
		},
		{
			name:       "same document",
			input:      connectionInput{SourceDocumentID: "a", TargetDocumentID: "a"},
			wantFields: []string{"targetDocumentID"},
			wantMsg:    "targetDocumentID must differ from sourceDocumentID",
		},
		{
			name:       "several failures",
			input:      connectionInput{SourceDocumentID: "a", TargetDocumentID: "b", Threshold: 1.5, Kind: "other"},
			wantFields: []string{"threshold", "kind"},
			wantMsg:    "threshold must be less than or equal to 1; kind must be one of: manual automatic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			appErr := pkgerrors.GetAppError(err)
			assert.Equal(t, pkgerrors.ErrorTypeInvalidArgument, appErr.Type)
			assert.Equal(t, "VALIDATION_FAILED", appErr.Code)
			assert.Equal(t, tt.wantMsg, appErr.Message)

			fields, ok := appErr.Details["fields"].(map[string]interface{})
			require.True(t, ok)
			assert.Len(t, fields, len(tt.wantFields))
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestRFC3339RoundTripKeepsOrdering(t *testing.T) {
	earlier := time.Date(2024, 3, 1, 12, 0, 0, 100, time.FixedZone("CET", 3600))
	later := earlier.Add(time.Microsecond)

	a, b := FormatRFC3339Nano(earlier), FormatRFC3339Nano(later)
	assert.Less(t, a, b)
	assert.Less(t, FormatRFC3339Nano(earlier.Truncate(time.Second)), a)
	assert.Equal(t, "2024-03-01T11:00:00.000000100Z", a)

	parsed, err := ParseRFC3339(a)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(earlier))

	parsed, err = ParseRFC3339(FormatRFC3339(earlier))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T11:00:00Z", FormatRFC3339(parsed))
}
