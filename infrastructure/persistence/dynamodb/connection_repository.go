package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/core/entities"
	"docgraph/domain/core/valueobjects"
	pkgerrors "docgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// API is the subset of the DynamoDB client the repositories use
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ConnectionRepository implements ports.ConnectionRepository on a single
// DynamoDB table
type ConnectionRepository struct {
	client      API
	tableName   string
	sourceIndex string
	targetIndex string
	maxRetries  int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewConnectionRepository creates a new ConnectionRepository
func NewConnectionRepository(client API, tableName, sourceIndex, targetIndex string, logger *zap.Logger) *ConnectionRepository {
	return &ConnectionRepository{
		client:      client,
		tableName:   tableName,
		sourceIndex: sourceIndex,
		targetIndex: targetIndex,
		maxRetries:  3,
		backoff:     50 * time.Millisecond,
		logger:      logger,
	}
}

var _ ports.ConnectionRepository = (*ConnectionRepository)(nil)

// CreateManual writes the connection together with a guard item for its
// unordered pair. Both puts are conditional, so two concurrent requests for
// the same pair cannot both succeed.
func (r *ConnectionRepository) CreateManual(ctx context.Context, conn *entities.DocumentConnection) error {
	item, err := attributevalue.MarshalMap(newConnectionItem(conn))
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}
	guard, err := attributevalue.MarshalMap(pairGuardItem{
		PK:           orgKey(conn.OrgID()),
		SK:           pairGuardKey(conn.Pair()),
		EntityType:   entityTypePairGuard,
		ConnectionID: conn.ID(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal pair guard: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                guard,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           aws.String(r.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
		},
	}

	if _, err := r.client.TransactWriteItems(ctx, input); err != nil {
		if isConditionalFailure(err) {
			return pkgerrors.NewAlreadyExistsError("connection between these documents")
		}
		r.logger.Error("Failed to create manual connection",
			zap.String("connectionID", conn.ID()),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("create connection", err)
	}

	r.logger.Debug("Manual connection stored",
		zap.String("connectionID", conn.ID()),
		zap.String("orgID", conn.OrgID()),
	)
	return nil
}

// UpsertAutomatic inserts the automatic connection of a pair or refreshes
// its score. Creation time, direction and index keys of an existing record
// are kept.
func (r *ConnectionRepository) UpsertAutomatic(ctx context.Context, conn *entities.DocumentConnection) (*entities.DocumentConnection, error) {
	item := newConnectionItem(conn)

	ifNew := func(name string, value interface{}) expression.SetValueBuilder {
		return expression.Name(name).IfNotExists(expression.Value(value))
	}
	update := expression.Set(expression.Name("SimilarityScore"), expression.Value(item.SimilarityScore)).
		Set(expression.Name("Reason"), expression.Value(item.Reason)).
		Set(expression.Name("UpdatedAt"), expression.Value(item.UpdatedAt)).
		Set(expression.Name("EntityType"), ifNew("EntityType", item.EntityType)).
		Set(expression.Name("ConnectionID"), ifNew("ConnectionID", item.ConnectionID)).
		Set(expression.Name("OrgID"), ifNew("OrgID", item.OrgID)).
		Set(expression.Name("ConnectionType"), ifNew("ConnectionType", item.ConnectionType)).
		Set(expression.Name("SourceDocumentID"), ifNew("SourceDocumentID", item.SourceDocumentID)).
		Set(expression.Name("TargetDocumentID"), ifNew("TargetDocumentID", item.TargetDocumentID)).
		Set(expression.Name("GSI1PK"), ifNew("GSI1PK", item.GSI1PK)).
		Set(expression.Name("GSI1SK"), ifNew("GSI1SK", item.GSI1SK)).
		Set(expression.Name("GSI2PK"), ifNew("GSI2PK", item.GSI2PK)).
		Set(expression.Name("GSI2SK"), ifNew("GSI2SK", item.GSI2SK)).
		Set(expression.Name("CreatedAt"), ifNew("CreatedAt", item.CreatedAt))
	condition := expression.Or(
		expression.AttributeNotExists(expression.Name("PK")),
		expression.Name("ConnectionType").Equal(expression.Value(string(entities.ConnectionTypeAutomatic))),
	)

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       primaryKey(item.PK, item.SK),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionalFailure(err) {
			return nil, pkgerrors.NewAlreadyExistsError(fmt.Sprintf("connection %s with a different type", item.ConnectionID))
		}
		return nil, pkgerrors.NewDatabaseError("upsert automatic connection", err)
	}

	var stored connectionItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
	}
	return stored.toEntity()
}

// GetByID returns the connection or NotFound
func (r *ConnectionRepository) GetByID(ctx context.Context, orgID, connectionID string) (*entities.DocumentConnection, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            primaryKey(orgKey(orgID), connectionKey(connectionID)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get connection", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("connection")
	}

	var item connectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
	}
	return item.toEntity()
}

// FindByPair resolves the automatic connection and the manual pair guard
// in one batch read, then follows the guard to its connection.
func (r *ConnectionRepository) FindByPair(ctx context.Context, orgID string, pair valueobjects.DocumentPair) ([]*entities.DocumentConnection, error) {
	pk := orgKey(orgID)
	autoID := entities.AutomaticConnectionID(orgID, pair)

	items, err := r.batchGet(ctx, []map[string]types.AttributeValue{
		primaryKey(pk, connectionKey(autoID)),
		primaryKey(pk, pairGuardKey(pair)),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("find connection by pair", err)
	}

	var conns []*entities.DocumentConnection
	for _, raw := range items {
		var guard pairGuardItem
		if err := attributevalue.UnmarshalMap(raw, &guard); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		if guard.EntityType == entityTypePairGuard {
			manual, err := r.GetByID(ctx, orgID, guard.ConnectionID)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					r.logger.Warn("Pair guard without connection",
						zap.String("orgID", orgID),
						zap.String("pair", pair.Key()),
					)
					continue
				}
				return nil, err
			}
			conns = append(conns, manual)
			continue
		}
		found, err := unmarshalConnections([]map[string]types.AttributeValue{raw})
		if err != nil {
			return nil, err
		}
		conns = append(conns, found...)
	}

	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })
	return conns, nil
}

// batchGet reads keys with consistent reads, retrying unprocessed keys
// with exponential backoff. Keys still unprocessed after the last retry are
// an error; a partial answer would hide the items that were not read.
func (r *ConnectionRepository) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for attempt := 0; ; attempt++ {
		out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				r.tableName: {Keys: keys, ConsistentRead: aws.Bool(true)},
			},
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Responses[r.tableName]...)

		keys = out.UnprocessedKeys[r.tableName].Keys
		if len(keys) == 0 {
			return items, nil
		}
		if attempt >= r.maxRetries {
			return nil, fmt.Errorf("%d keys still unprocessed after %d retries", len(keys), attempt)
		}
		r.logger.Debug("Retrying unprocessed batch keys",
			zap.Int("unprocessed", len(keys)),
			zap.Int("attempt", attempt+1),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff << attempt):
		}
	}
}

// Delete removes the connection and, for manual ones, the pair guard
func (r *ConnectionRepository) Delete(ctx context.Context, conn *entities.DocumentConnection) error {
	pk := orgKey(conn.OrgID())
	items := []types.TransactWriteItem{
		{
			Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 primaryKey(pk, connectionKey(conn.ID())),
				ConditionExpression: aws.String("attribute_exists(PK)"),
			},
		},
	}
	if conn.IsManual() {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       primaryKey(pk, pairGuardKey(conn.Pair())),
			},
		})
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if isConditionalFailure(err) {
			return pkgerrors.NewNotFoundError("connection")
		}
		return pkgerrors.NewDatabaseError("delete connection", err)
	}
	return nil
}

// ListByDocument queries both indexes in parallel and merges the results,
// newest first
func (r *ConnectionRepository) ListByDocument(ctx context.Context, orgID, documentID string, filter ports.ConnectionFilter) ([]*entities.DocumentConnection, error) {
	key := documentKey(orgID, documentID)

	var (
		wg       sync.WaitGroup
		outgoing []*entities.DocumentConnection
		incoming []*entities.DocumentConnection
		outErr   error
		inErr    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		outgoing, outErr = r.queryIndex(ctx, r.sourceIndex, "GSI1PK", key, filter)
	}()
	go func() {
		defer wg.Done()
		incoming, inErr = r.queryIndex(ctx, r.targetIndex, "GSI2PK", key, filter)
	}()
	wg.Wait()

	if err := errors.Join(outErr, inErr); err != nil {
		return nil, pkgerrors.NewDatabaseError("list connections", err)
	}

	seen := make(map[string]struct{}, len(outgoing)+len(incoming))
	merged := make([]*entities.DocumentConnection, 0, len(outgoing)+len(incoming))
	for _, c := range append(outgoing, incoming...) {
		if _, dup := seen[c.ID()]; dup {
			continue
		}
		seen[c.ID()] = struct{}{}
		merged = append(merged, c)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt().After(merged[j].CreatedAt())
	})
	if filter.Limit > 0 && len(merged) > filter.Limit {
		merged = merged[:filter.Limit]
	}
	return merged, nil
}

// queryIndex pages through one index until limit matching items are read.
// The type filter is applied server side after the page limit, so paging
// continues while pages come back short.
func (r *ConnectionRepository) queryIndex(ctx context.Context, index, keyAttr, key string, filter ports.ConnectionFilter) ([]*entities.DocumentConnection, error) {
	builder := expression.NewBuilder().WithKeyCondition(expression.Key(keyAttr).Equal(expression.Value(key)))
	if filter.Type != nil {
		builder = builder.WithFilter(expression.Name("ConnectionType").Equal(expression.Value(string(*filter.Type))))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if filter.Limit > 0 {
		input.Limit = aws.Int32(int32(filter.Limit))
	}

	var conns []*entities.DocumentConnection
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		page, err := unmarshalConnections(out.Items)
		if err != nil {
			return nil, err
		}
		conns = append(conns, page...)
		if len(out.LastEvaluatedKey) == 0 || (filter.Limit > 0 && len(conns) >= filter.Limit) {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return conns, nil
}

// ListAmong reads the org partition and keeps connections whose both ends
// are in documentIDs
func (r *ConnectionRepository) ListAmong(ctx context.Context, orgID string, documentIDs []string) ([]*entities.DocumentConnection, error) {
	wanted := make(map[string]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		wanted[id] = struct{}{}
	}

	keyCond := expression.Key("PK").Equal(expression.Value(orgKey(orgID))).
		And(expression.Key("SK").BeginsWith("CONN#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	start := time.Now()
	var among []*entities.DocumentConnection
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list connections among documents", err)
		}
		page, err := unmarshalConnections(out.Items)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			_, src := wanted[c.SourceDocumentID()]
			_, tgt := wanted[c.TargetDocumentID()]
			if src && tgt {
				among = append(among, c)
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	r.logger.Debug("Loaded connections among documents",
		zap.String("orgID", orgID),
		zap.Int("documents", len(documentIDs)),
		zap.Int("connections", len(among)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return among, nil
}

// isConditionalFailure reports whether a write failed its condition, either
// directly or as a cancellation reason of a transaction
func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
