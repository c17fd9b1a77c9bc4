// Package scanstore persists completed scan reports into the scan history
// collection so later chats and scans can retrieve them.
package scanstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/lucamori/seo-agent/pkg/embeddings"
	"github.com/lucamori/seo-agent/pkg/retrieval"
)

// ErrPersistence wraps failures writing scan history. Callers report it and
// carry on: a finished scan is still delivered even when it cannot be saved.
var ErrPersistence = errors.New("scan persistence failed")

// Record is one completed scan ready for persistence. Sections map report
// section names to their generated text.
type Record struct {
	ScanID    string
	URL       string
	Domain    string
	ScannedAt time.Time
	Score     int
	Sections  map[string]string
}

// Summary identifies one stored scan for history listings.
type Summary struct {
	ScanID    string    `json:"scan_id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	ScannedAt time.Time `json:"scanned_at"`
	Score     int       `json:"score"`
}

// SectionID derives the stable document id for one section of a scanned URL.
// Re-scanning the same URL overwrites the previous report section by section.
func SectionID(url, section string) string {
	sum := md5.Sum([]byte(url + "::" + section))
	return hex.EncodeToString(sum[:])
}

// Store writes scan reports into the vector store and queries them back.
type Store struct {
	store    *retrieval.Store
	embedder embeddings.Embedder
	splitter textsplitter.RecursiveCharacter
	logger   *slog.Logger
}

func NewStore(store *retrieval.Store, embedder embeddings.Embedder, chunkSize, chunkOverlap int, logger *slog.Logger) *Store {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		store:    store,
		embedder: embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
		logger: logger,
	}
}

// Save chunks each section, embeds the chunks and upserts them. All failures
// come back wrapped in ErrPersistence.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ScanID == "" || rec.URL == "" {
		return fmt.Errorf("%w: record missing scan id or url", ErrPersistence)
	}

	var docs []retrieval.Document
	var texts []string

	sections := make([]string, 0, len(rec.Sections))
	for section := range rec.Sections {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	for _, section := range sections {
		text := rec.Sections[section]
		if text == "" {
			continue
		}

		chunks, err := s.splitter.SplitText(text)
		if err != nil {
			return fmt.Errorf("%w: splitting section %s: %v", ErrPersistence, section, err)
		}

		baseID := SectionID(rec.URL, section)
		for i, chunk := range chunks {
			id := baseID
			if len(chunks) > 1 {
				id = fmt.Sprintf("%s::%d", baseID, i)
			}
			docs = append(docs, retrieval.Document{
				ID:      id,
				Content: chunk,
				Metadata: map[string]any{
					"scan_id":    rec.ScanID,
					"url":        rec.URL,
					"domain":     rec.Domain,
					"section":    section,
					"chunk":      i,
					"score":      rec.Score,
					"scanned_at": rec.ScannedAt.UTC().Format(time.RFC3339),
				},
			})
			texts = append(texts, chunk)
		}
	}

	if len(docs) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding report: %v", ErrPersistence, err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrPersistence, len(vectors), len(docs))
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	if err := s.store.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Info("Persisted scan report",
		"scan_id", rec.ScanID, "url", rec.URL, "chunks", len(docs))
	return nil
}

// History returns the stored report documents for one scan, or for a whole
// domain when scanID is empty.
func (s *Store) History(ctx context.Context, scanID, domain string) ([]retrieval.Document, error) {
	filter := map[string]any{}
	if scanID != "" {
		filter["scan_id"] = scanID
	} else if domain != "" {
		filter["domain"] = domain
	}
	return s.store.DocumentsByMetadata(ctx, filter)
}

// Scans lists stored scans, most recent first, deduplicated by scan id.
func (s *Store) Scans(ctx context.Context) ([]Summary, error) {
	docs, err := s.store.DocumentsByMetadata(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Summary)
	for _, doc := range docs {
		summary := summaryFromMetadata(doc.Metadata)
		if summary.ScanID == "" {
			continue
		}
		byID[summary.ScanID] = summary
	}

	out := make([]Summary, 0, len(byID))
	for _, summary := range byID {
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScannedAt.Equal(out[j].ScannedAt) {
			return out[i].ScannedAt.After(out[j].ScannedAt)
		}
		return out[i].ScanID < out[j].ScanID
	})
	return out, nil
}

// LatestScanID returns the id of the most recent stored scan, or empty when
// nothing has been stored yet.
func (s *Store) LatestScanID(ctx context.Context) (string, error) {
	scans, err := s.Scans(ctx)
	if err != nil {
		return "", err
	}
	if len(scans) == 0 {
		return "", nil
	}
	return scans[0].ScanID, nil
}

func summaryFromMetadata(metadata map[string]any) Summary {
	summary := Summary{}
	if v, ok := metadata["scan_id"].(string); ok {
		summary.ScanID = v
	}
	if v, ok := metadata["url"].(string); ok {
		summary.URL = v
	}
	if v, ok := metadata["domain"].(string); ok {
		summary.Domain = v
	}
	if v, ok := metadata["score"].(float64); ok {
		summary.Score = int(v)
	}
	if v, ok := metadata["scanned_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			summary.ScannedAt = ts
		}
	}
	return summary
}
