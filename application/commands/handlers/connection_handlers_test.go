package handlers

import (
	"context"
	"testing"

	"docgraph/application/commands"
	"docgraph/application/commands/bus"
	"docgraph/application/services"
	"docgraph/domain/config"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	pkgerrors "docgraph/pkg/errors"
	"docgraph/tests/fixtures"
	"docgraph/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBus(t *testing.T) (*bus.CommandBus, *mocks.MockConnectionRepository, *mocks.MockDocumentRepository) {
	conns := new(mocks.MockConnectionRepository)
	docs := new(mocks.MockDocumentRepository)
	publisher := new(mocks.MockEventPublisher)
	publisher.On("PublishBatch", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := services.NewConnectionService(conns, docs, publisher, mocks.NopMetrics{}, config.DefaultDomainConfig(), nil, zap.NewNop())
	b := bus.NewCommandBus(bus.LoggingMiddleware(zap.NewNop()))
	require.NoError(t, NewConnectionCommandHandler(svc).Register(b))
	return b, conns, docs
}

func TestCreateManualConnectionCommand(t *testing.T) {
	b, conns, docs := newBus(t)
	pair, _ := valueobjects.NewDocumentPair("doc-a", "doc-b")
	docs.On("GetByIDs", mock.Anything, "org-1", []string{"doc-a", "doc-b"}).Return(map[string]*entities.Document{
		"doc-a": fixtures.NewDocumentBuilder("doc-a").Build(),
		"doc-b": fixtures.NewDocumentBuilder("doc-b").Build(),
	}, nil)
	conns.On("FindByPair", mock.Anything, "org-1", pair).Return([]*entities.DocumentConnection{}, nil)
	conns.On("CreateManual", mock.Anything, mock.Anything).Return(nil)

	result, err := b.Send(context.Background(), commands.CreateManualConnectionCommand{
		OrgID:            "org-1",
		UserID:           "user-1",
		SourceDocumentID: "doc-a",
		TargetDocumentID: "doc-b",
	})

	require.NoError(t, err)
	view, ok := result.(services.ConnectionView)
	require.True(t, ok)
	assert.Equal(t, entities.ConnectionTypeManual, view.ConnectionType)
	require.NotNil(t, view.UserID)
	assert.Equal(t, "user-1", *view.UserID)
}

func TestConnectionCommands_Validation(t *testing.T) {
	b, _, _ := newBus(t)

	tests := []struct {
		name string
		cmd  bus.Command
	}{
		{"create without org", commands.CreateManualConnectionCommand{UserID: "u", SourceDocumentID: "a", TargetDocumentID: "b"}},
		{"create without target", commands.CreateManualConnectionCommand{OrgID: "o", UserID: "u", SourceDocumentID: "a"}},
		{"delete without id", commands.DeleteConnectionCommand{OrgID: "o", UserID: "u"}},
		{"record with score above one", commands.RecordAutomaticConnectionCommand{OrgID: "o", SourceDocumentID: "a", TargetDocumentID: "b", SimilarityScore: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Send(context.Background(), tt.cmd)
			assert.True(t, pkgerrors.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestDeleteConnectionCommand_ForeignManualConnection(t *testing.T) {
	b, conns, _ := newBus(t)
	conn, err := entities.NewManualConnection("org-1", "doc-a", "doc-b", "owner", "", nil)
	require.NoError(t, err)
	conns.On("GetByID", mock.Anything, "org-1", conn.ID()).Return(conn, nil)

	_, err = b.Send(context.Background(), commands.DeleteConnectionCommand{
		OrgID:        "org-1",
		UserID:       "someone-else",
		ConnectionID: conn.ID(),
	})

	assert.True(t, pkgerrors.IsForbidden(err))
	conns.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRecordAutomaticConnectionCommand(t *testing.T) {
	b, conns, _ := newBus(t)
	conns.On("UpsertAutomatic", mock.Anything, mock.Anything).Return(
		func(_ context.Context, c *entities.DocumentConnection) *entities.DocumentConnection { return c }, nil)

	result, err := b.Send(context.Background(), commands.RecordAutomaticConnectionCommand{
		OrgID:            "org-1",
		SourceDocumentID: "doc-b",
		TargetDocumentID: "doc-a",
		SimilarityScore:  0.91,
	})

	require.NoError(t, err)
	view := result.(services.ConnectionView)
	assert.Equal(t, entities.ConnectionTypeAutomatic, view.ConnectionType)
	require.NotNil(t, view.SimilarityScore)
	assert.InDelta(t, 0.91, *view.SimilarityScore, 1e-9)
	assert.Nil(t, view.UserID)
}
