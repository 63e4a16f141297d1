package entities

import (
	"math"
	"testing"

	"docgraph/domain/core/valueobjects"
	"docgraph/domain/events"
	pkgerrors "docgraph/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManualConnection(t *testing.T) {
	conn, err := NewManualConnection("org-1", "doc-a", "doc-b", "user-1", "  same topic ", nil)
	require.NoError(t, err)

	assert.NotEmpty(t, conn.ID())
	assert.Equal(t, ConnectionTypeManual, conn.Type())
	assert.Nil(t, conn.SimilarityScore())
	assert.Equal(t, "same topic", conn.Reason())
	assert.Equal(t, "user-1", conn.UserID())

	evts := conn.GetUncommittedEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, events.TypeConnectionCreated, evts[0].GetEventType())

	conn.MarkEventsAsCommitted()
	assert.Empty(t, conn.GetUncommittedEvents())
}

func TestNewManualConnectionValidation(t *testing.T) {
	tests := []struct {
		name                  string
		org, src, tgt, userID string
	}{
		{"missing org", "", "a", "b", "u"},
		{"missing user", "org", "a", "b", ""},
		{"self connection", "org", "a", "a", "u"},
		{"missing source", "org", "", "b", "u"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManualConnection(tt.org, tt.src, tt.tgt, tt.userID, "", nil)
			assert.True(t, pkgerrors.IsInvalidArgument(err))
		})
	}
}

func TestAutomaticConnectionIDIsOrderIndependent(t *testing.T) {
	ab, err := NewAutomaticConnection("org-1", "doc-a", "doc-b", 0.81, "")
	require.NoError(t, err)
	ba, err := NewAutomaticConnection("org-1", "doc-b", "doc-a", 0.79, "")
	require.NoError(t, err)
	other, err := NewAutomaticConnection("org-2", "doc-a", "doc-b", 0.81, "")
	require.NoError(t, err)

	assert.Equal(t, ab.ID(), ba.ID())
	assert.NotEqual(t, ab.ID(), other.ID())
	assert.Empty(t, ab.UserID())
	require.NotNil(t, ab.SimilarityScore())
	assert.InDelta(t, 0.81, *ab.SimilarityScore(), 1e-9)
}

func TestAutomaticConnectionClampsScore(t *testing.T) {
	conn, err := NewAutomaticConnection("org-1", "doc-a", "doc-b", 1.7, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, *conn.SimilarityScore())
}

func TestAuthorizeDelete(t *testing.T) {
	manual, err := NewManualConnection("org-1", "doc-a", "doc-b", "owner", "", nil)
	require.NoError(t, err)
	auto, err := NewAutomaticConnection("org-1", "doc-a", "doc-b", 0.9, "")
	require.NoError(t, err)

	tests := []struct {
		name      string
		conn      *DocumentConnection
		userID    string
		forbidden bool
	}{
		{"manual by owner", manual, "owner", false},
		{"manual by someone else", manual, "intruder", true},
		{"manual with no caller", manual, "", true},
		{"automatic by anyone", auto, "intruder", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conn.AuthorizeDelete(tt.userID)
			if tt.forbidden {
				assert.True(t, pkgerrors.IsForbidden(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOtherDocumentAndPair(t *testing.T) {
	conn, err := NewManualConnection("org-1", "doc-b", "doc-a", "u", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "doc-a", conn.OtherDocumentID("doc-b"))
	assert.Equal(t, "doc-b", conn.OtherDocumentID("doc-a"))

	want, _ := valueobjects.NewDocumentPair("doc-a", "doc-b")
	assert.Equal(t, want, conn.Pair())
}

func TestReconstructRoundTripsSnapshot(t *testing.T) {
	conn, err := NewAutomaticConnection("org-1", "doc-a", "doc-b", 0.75, "similar")
	require.NoError(t, err)

	rebuilt := ReconstructConnection(conn.Snapshot())
	assert.Equal(t, conn.Snapshot(), rebuilt.Snapshot())
	assert.Empty(t, rebuilt.GetUncommittedEvents())
}

func TestParseConnectionType(t *testing.T) {
	ct, err := ParseConnectionType(" Manual ")
	require.NoError(t, err)
	assert.Equal(t, ConnectionTypeManual, ct)

	_, err = ParseConnectionType("mystery")
	assert.True(t, pkgerrors.IsInvalidArgument(err))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-0.2))
	assert.Equal(t, 1.0, ClampScore(3))
	assert.Equal(t, 0.0, ClampScore(math.NaN()))
	assert.Equal(t, 0.5, ClampScore(0.5))
}
