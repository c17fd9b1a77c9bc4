// Package chat maintains bounded per-conversation memory and answers
// questions with a layered retrieval context, streaming tokens as they
// arrive. Sessions live in memory only; history survives for the lifetime of
// the process.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lucamori/seo-agent/pkg/events"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/retrieval"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Message is one inbound question. ScanID pins the context to a specific
// stored scan; Domain widens it to the most recent scans of that domain when
// no scan id is given. Both are optional.
type Message struct {
	ConversationID string
	Content        string
	ScanID         string
	Domain         string
}

// Streamer is the provider surface chat generates with.
type Streamer interface {
	GenerateStream(ctx context.Context, req llm.Request, emit func(token string) error) (string, error)
}

// ContextRetriever queries the retrieval collections for context snippets.
type ContextRetriever interface {
	Query(ctx context.Context, text string, collections []string, topK int) ([]retrieval.Result, error)
}

// ScanReader loads stored report sections for a specific scan.
type ScanReader interface {
	History(ctx context.Context, scanID, domain string) ([]retrieval.Document, error)
}

type session struct {
	mu    sync.Mutex
	turns []Turn
}

// Manager owns all conversation sessions. Concurrent messages on the same
// conversation id are serialized; different conversations proceed in
// parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	streamer   Streamer
	retriever  ContextRetriever
	scans      ScanReader
	maxHistory int
	topK       int
	logger     *slog.Logger

	knowledgeCollection string
	historyCollection   string
}

type Options struct {
	Streamer            Streamer
	Retriever           ContextRetriever
	Scans               ScanReader
	MaxHistory          int
	ContextTopK         int
	KnowledgeCollection string
	HistoryCollection   string
	Logger              *slog.Logger
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		sessions:            make(map[string]*session),
		streamer:            opts.Streamer,
		retriever:           opts.Retriever,
		scans:               opts.Scans,
		maxHistory:          opts.MaxHistory,
		topK:                opts.ContextTopK,
		knowledgeCollection: opts.KnowledgeCollection,
		historyCollection:   opts.HistoryCollection,
		logger:              opts.Logger,
	}
	if m.maxHistory <= 0 {
		m.maxHistory = 20
	}
	if m.topK <= 0 {
		m.topK = 5
	}
	if m.knowledgeCollection == "" {
		m.knowledgeCollection = "seo_knowledge"
	}
	if m.historyCollection == "" {
		m.historyCollection = "scan_history"
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

func (m *Manager) session(conversationID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[conversationID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[conversationID]; ok {
		return s
	}
	s = &session{}
	m.sessions[conversationID] = s
	return s
}

// History returns the stored turns for a conversation, oldest first.
func (m *Manager) History(conversationID string) []Turn {
	s := m.session(conversationID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Clear removes all turns for a conversation.
func (m *Manager) Clear(conversationID string) {
	s := m.session(conversationID)
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()
}

// errStreamAborted signals that the consumer stopped pulling mid-stream.
var errStreamAborted = errors.New("stream aborted by consumer")

// Handle answers one message, streaming tokens. The full exchange is
// appended to history only after the stream completes cleanly; a failed or
// cancelled stream leaves history untouched.
func (m *Manager) Handle(ctx context.Context, msg Message) events.Stream {
	return func(yield func(events.Event, error) bool) {
		s := m.session(msg.ConversationID)
		s.mu.Lock()
		defer s.mu.Unlock()

		aborted := false
		emit := func(ev events.Event) bool {
			if aborted {
				return false
			}
			if !yield(ev, nil) {
				aborted = true
				return false
			}
			return true
		}

		contextLines := m.buildContext(ctx, msg, emit)
		if aborted {
			return
		}

		prompt := m.buildPrompt(s.turns, msg.Content)

		full, err := m.streamer.GenerateStream(ctx, llm.Request{
			System:  chatSystemPrompt,
			Prompt:  prompt,
			Context: contextLines,
		}, func(token string) error {
			if !emit(events.Token(token)) {
				return errStreamAborted
			}
			return nil
		})

		if err != nil {
			if errors.Is(err, errStreamAborted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			kind := events.KindUpstreamError
			if errors.Is(err, llm.ErrProviderUnavailable) {
				kind = events.KindProviderUnavailable
			}
			m.logger.Error("Chat generation failed", "conversation_id", msg.ConversationID, "error", err)
			emit(events.Error(kind, err.Error()))
			emit(events.Done(events.StatusFailed, nil))
			return
		}

		now := time.Now().UTC()
		s.turns = append(s.turns,
			Turn{Role: RoleUser, Content: msg.Content, At: now},
			Turn{Role: RoleAssistant, Content: full, At: now},
		)
		if len(s.turns) > m.maxHistory {
			s.turns = s.turns[len(s.turns)-m.maxHistory:]
		}

		emit(events.Done(events.StatusCompleted, nil))
	}
}

// buildContext assembles the layered context: live scan data first, then
// knowledge, then prior scan history. Each layer degrades independently.
func (m *Manager) buildContext(ctx context.Context, msg Message, emit func(events.Event) bool) []string {
	var lines []string

	if (msg.ScanID != "" || msg.Domain != "") && m.scans != nil {
		docs, err := m.scans.History(ctx, msg.ScanID, msg.Domain)
		if err != nil {
			m.logger.Warn("Failed to load scan context",
				"scan_id", msg.ScanID, "domain", msg.Domain, "error", err)
			emit(events.Error(events.KindRetrievalUnavailable, err.Error()))
		} else {
			for _, doc := range docs {
				section, _ := doc.Metadata["section"].(string)
				lines = append(lines, fmt.Sprintf("[scan:%s] %s", section, doc.Content))
			}
		}
	}

	if m.retriever != nil {
		for _, collection := range []string{m.knowledgeCollection, m.historyCollection} {
			results, err := m.retriever.Query(ctx, msg.Content, []string{collection}, m.topK)
			if err != nil {
				m.logger.Warn("Retrieval layer unavailable", "collection", collection, "error", err)
				emit(events.Error(events.KindRetrievalUnavailable, err.Error()))
				continue
			}
			lines = append(lines, retrieval.BuildContext(results)...)
		}
	}

	return lines
}

const chatSystemPrompt = "You are an SEO assistant. Answer using the provided scan data " +
	"and knowledge context when relevant; say so plainly when the context does not " +
	"cover the question."

func (m *Manager) buildPrompt(turns []Turn, message string) string {
	if len(turns) == 0 {
		return message
	}
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, turn := range turns {
		fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
	}
	sb.WriteString("\nuser: ")
	sb.WriteString(message)
	return sb.String()
}
