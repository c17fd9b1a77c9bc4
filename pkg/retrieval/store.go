// Package retrieval implements vector search over the pgvector collections
// backing the knowledge base and the scan history, and merges results from
// multiple collections into one ranked context.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Document is one embedded entry in a collection.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// Result is a search hit with its cosine similarity score.
type Result struct {
	Document   Document `json:"document"`
	Score      float64  `json:"score"`
	Collection string   `json:"collection,omitempty"`

	// rank is the registration order of the collection that produced the hit,
	// used to break score ties deterministically.
	rank int
}

// Store handles pgvector operations for one collection table.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Table names must start with a letter or underscore and stay within the
	// 63 character PostgreSQL limit.
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// NewStore creates a store bound to one collection table.
func NewStore(pool *pgxpool.Pool, tableName string) (*Store, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &Store{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// TableName returns the collection table this store is bound to.
func (s *Store) TableName() string {
	return s.tableName
}

// Upsert inserts documents, replacing any existing row with the same id.
// Deterministic ids make re-indexing idempotent.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		embedding := pgvector.NewVector(doc.Embedding)
		batch.Queue(query, doc.ID, doc.Content, metadataJSON, embedding)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}
	}

	return nil
}

// Search performs a cosine similarity search, optionally constrained by a
// metadata filter (see buildMetadataQuery for the supported operators).
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, topK int, filter map[string]any) ([]Result, error) {
	args := []any{pgvector.NewVector(queryEmbedding)}

	whereClause := "TRUE"
	if len(filter) > 0 {
		var err error
		whereClause, err = s.buildMetadataQuery(filter, &args)
		if err != nil {
			return nil, fmt.Errorf("failed to build metadata query: %w", err)
		}
	}

	args = append(args, topK)
	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) as similarity
		FROM %s
		WHERE %s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, pgx.Identifier{s.tableName}.Sanitize(), whereClause, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var doc Document
		var metadataJSON []byte
		var similarity float64

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		results = append(results, Result{
			Document:   doc,
			Score:      similarity,
			Collection: s.tableName,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// DocumentsByMetadata retrieves documents matching a JSON filter without a
// similarity ranking. Supports logical operators $and, $or, $not.
func (s *Store) DocumentsByMetadata(ctx context.Context, filter map[string]any) ([]Document, error) {
	var args []any
	whereClause, err := s.buildMetadataQuery(filter, &args)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE %s
		ORDER BY id
	`, pgx.Identifier{s.tableName}.Sanitize(), whereClause)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		var doc Document
		var metadataJSON []byte

		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		documents = append(documents, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return documents, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{s.tableName}.Sanitize())

	var count int64
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// buildMetadataQuery recursively builds a SQL WHERE clause for a filter map.
func (s *Store) buildMetadataQuery(filter map[string]any, args *[]any) (string, error) {
	if len(filter) == 0 {
		return "TRUE", nil
	}

	var conditions []string

	for key, value := range filter {
		switch key {
		case "$and", "$or":
			list, ok := value.([]any)
			if !ok {
				return "", fmt.Errorf("value for %s must be a list of conditions", key)
			}
			var subConditions []string
			for _, item := range list {
				subMap, ok := item.(map[string]any)
				if !ok {
					return "", fmt.Errorf("item in %s list must be a JSON object", key)
				}
				subQuery, err := s.buildMetadataQuery(subMap, args)
				if err != nil {
					return "", err
				}
				subConditions = append(subConditions, "("+subQuery+")")
			}

			if len(subConditions) == 0 {
				continue
			}

			op := " AND "
			if key == "$or" {
				op = " OR "
			}
			conditions = append(conditions, "("+strings.Join(subConditions, op)+")")

		case "$not":
			subMap, ok := value.(map[string]any)
			if !ok {
				return "", fmt.Errorf("value for $not must be a JSON object")
			}
			subQuery, err := s.buildMetadataQuery(subMap, args)
			if err != nil {
				return "", err
			}
			conditions = append(conditions, "NOT ("+subQuery+")")

		default:
			// Simple equality match: metadata @> '{"key": value}'
			pair := map[string]any{key: value}
			jsonBytes, err := json.Marshal(pair)
			if err != nil {
				return "", fmt.Errorf("failed to marshal metadata pair: %w", err)
			}
			*args = append(*args, jsonBytes)
			conditions = append(conditions, fmt.Sprintf("metadata @> $%d", len(*args)))
		}
	}

	if len(conditions) == 0 {
		return "TRUE", nil
	}

	return strings.Join(conditions, " AND "), nil
}
