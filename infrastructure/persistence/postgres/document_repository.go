package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"docgraph/application/ports"
	"docgraph/domain/core/entities"
	pkgerrors "docgraph/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

const documentColumns = `id, org_id, space_id, title, summary, type, url, embedding, created_at`

// DocumentRepository reads documents and their memories from Postgres
type DocumentRepository struct {
	db     DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

// GetByID returns the document or NotFound when it does not exist in the org
func (r *DocumentRepository) GetByID(ctx context.Context, orgID, documentID string) (*entities.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE org_id = $1 AND id = $2`,
		orgID, documentID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.NewNotFoundError("document")
		}
		return nil, pkgerrors.NewDatabaseError("get document", err)
	}
	return doc, nil
}

// GetByIDs resolves many documents in a single query
func (r *DocumentRepository) GetByIDs(ctx context.Context, orgID string, documentIDs []string) (map[string]*entities.Document, error) {
	found := make(map[string]*entities.Document, len(documentIDs))
	if len(documentIDs) == 0 {
		return found, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE org_id = $1 AND id = ANY($2)`,
		orgID, documentIDs)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get documents", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan document", err)
		}
		found[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("get documents", err)
	}
	return found, nil
}

// ListWithMemories loads the documents of a graph view, oldest first, and
// attaches their active memories
func (r *DocumentRepository) ListWithMemories(ctx context.Context, orgID string, filter ports.GraphDocumentFilter) ([]entities.DocumentWithMemories, error) {
	query, args := buildDocumentListQuery(orgID, filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list documents", err)
	}
	var docs []entities.DocumentWithMemories
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, pkgerrors.NewDatabaseError("scan document", err)
		}
		docs = append(docs, entities.DocumentWithMemories{Document: *doc})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("list documents", err)
	}
	if len(docs) == 0 {
		return []entities.DocumentWithMemories{}, nil
	}

	ids := make([]string, len(docs))
	position := make(map[string]int, len(docs))
	for i, d := range docs {
		ids[i] = d.Document.ID
		position[d.Document.ID] = i
	}

	memRows, err := r.db.Query(ctx, `
SELECT id, document_id, space_id, content, is_forgotten, parent_relations, parent_memory_id, created_at
FROM memory_entries
WHERE org_id = $1 AND document_id = ANY($2) AND NOT is_forgotten
ORDER BY document_id, created_at, id`, orgID, ids)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list memories", err)
	}
	defer memRows.Close()

	count := 0
	for memRows.Next() {
		m, err := scanMemory(memRows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan memory", err)
		}
		i, ok := position[m.DocumentID]
		if !ok {
			continue
		}
		docs[i].Memories = append(docs[i].Memories, m)
		count++
	}
	if err := memRows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("list memories", err)
	}

	r.logger.Debug("Loaded graph documents",
		zap.String("orgID", orgID),
		zap.String("space", filter.Space),
		zap.Int("documents", len(docs)),
		zap.Int("memories", count),
	)
	return docs, nil
}

// buildDocumentListQuery narrows by space and explicit ids when given. A
// document belongs to a space through its own space or any of its memories.
func buildDocumentListQuery(orgID string, filter ports.GraphDocumentFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + documentColumns + ` FROM documents d WHERE d.org_id = $1`)
	args := []any{orgID}

	if filter.Space != "" && filter.Space != "all" {
		args = append(args, filter.Space)
		n := len(args)
		fmt.Fprintf(&sb, ` AND (d.space_id = $%d OR EXISTS (SELECT 1 FROM memory_entries m WHERE m.document_id = d.id AND m.space_id = $%d))`, n, n)
	}
	if len(filter.DocumentIDs) > 0 {
		args = append(args, filter.DocumentIDs)
		fmt.Fprintf(&sb, ` AND d.id = ANY($%d)`, len(args))
	}
	sb.WriteString(` ORDER BY d.created_at, d.id`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	return sb.String(), args
}

func scanDocument(row pgx.Row) (*entities.Document, error) {
	var (
		doc       entities.Document
		embedding *pgvector.Vector
	)
	if err := row.Scan(&doc.ID, &doc.OrgID, &doc.SpaceID, &doc.Title, &doc.Summary, &doc.Type, &doc.URL, &embedding, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if embedding != nil {
		doc.Embedding = embedding.Slice()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return &doc, nil
}

func scanMemory(row pgx.Row) (entities.MemoryEntry, error) {
	var (
		m         entities.MemoryEntry
		relations []byte
		parentID  *string
		createdAt time.Time
	)
	if err := row.Scan(&m.ID, &m.DocumentID, &m.SpaceID, &m.Content, &m.IsForgotten, &relations, &parentID, &createdAt); err != nil {
		return m, err
	}
	m.CreatedAt = createdAt.UTC()
	if parentID != nil {
		m.ParentMemoryID = *parentID
	}
	rel, err := decodeParentRelations(relations)
	if err != nil {
		return m, fmt.Errorf("memory %s: %w", m.ID, err)
	}
	m.ParentRelations = rel
	return m, nil
}

// decodeParentRelations reads the parent-id to relation-type object. NULL
// and empty objects decode to nil.
func decodeParentRelations(raw []byte) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rel map[string]string
	if err := json.Unmarshal(raw, &rel); err != nil {
		return nil, fmt.Errorf("invalid parent relations: %w", err)
	}
	if len(rel) == 0 {
		return nil, nil
	}
	return rel, nil
}
