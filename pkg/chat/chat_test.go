package chat

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucamori/seo-agent/pkg/events"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/retrieval"
)

type fakeStreamer struct {
	tokens []string
	err    error
	failAt int // emit this many tokens before failing, when err is set
	reqs   []llm.Request
}

func (f *fakeStreamer) GenerateStream(ctx context.Context, req llm.Request, emit func(string) error) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil && f.failAt == 0 {
		return "", f.err
	}
	var sb strings.Builder
	for i, token := range f.tokens {
		if f.err != nil && i == f.failAt {
			return sb.String(), f.err
		}
		if err := emit(token); err != nil {
			return sb.String(), err
		}
		sb.WriteString(token)
	}
	return sb.String(), nil
}

type stubRetriever struct {
	err error
}

func (s *stubRetriever) Query(ctx context.Context, text string, collections []string, topK int) ([]retrieval.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []retrieval.Result{
		{Document: retrieval.Document{Content: "Answer from " + collections[0]}, Score: 0.8, Collection: collections[0]},
	}, nil
}

type stubScans struct {
	docs []retrieval.Document
	err  error
}

func (s *stubScans) History(ctx context.Context, scanID, domain string) ([]retrieval.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func collect(t *testing.T, stream events.Stream) []events.Event {
	t.Helper()
	var out []events.Event
	for ev, err := range stream {
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func ask(conversationID, content string) Message {
	return Message{ConversationID: conversationID, Content: content}
}

func tokens(evs []events.Event) []string {
	var out []string
	for _, ev := range evs {
		if ev.Type == events.TypeToken {
			out = append(out, ev.Payload.(string))
		}
	}
	return out
}

func TestHandleStreamsTokensAndSavesHistory(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"Keep ", "titles ", "short."}}
	m := NewManager(Options{Streamer: streamer, Retriever: &stubRetriever{}})

	evs := collect(t, m.Handle(context.Background(), ask("conv-1", "How long should titles be?")))

	assert.Equal(t, []string{"Keep ", "titles ", "short."}, tokens(evs))

	last := evs[len(evs)-1]
	require.Equal(t, events.TypeDone, last.Type)
	assert.Equal(t, events.StatusCompleted, last.Payload.(events.DonePayload).Status)

	history := m.History("conv-1")
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "How long should titles be?", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "Keep titles short.", history[1].Content)
}

func TestHandleProviderUnavailable(t *testing.T) {
	streamer := &fakeStreamer{err: fmt.Errorf("%w: no active provider", llm.ErrProviderUnavailable)}
	m := NewManager(Options{Streamer: streamer, Retriever: &stubRetriever{}})

	evs := collect(t, m.Handle(context.Background(), ask("conv-1", "hello")))

	assert.Empty(t, tokens(evs), "no tokens on provider failure")

	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeError, evs[0].Type)
	assert.Equal(t, events.KindProviderUnavailable, evs[0].Payload.(events.ErrorPayload).Kind)
	assert.Equal(t, events.TypeDone, evs[1].Type)
	assert.Equal(t, events.StatusFailed, evs[1].Payload.(events.DonePayload).Status)

	assert.Empty(t, m.History("conv-1"), "failed stream must not touch history")
}

func TestHandleMidStreamFailureLeavesHistoryUntouched(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"partial ", "answer"}, err: llm.ErrUpstream, failAt: 1}
	m := NewManager(Options{Streamer: streamer, Retriever: &stubRetriever{}})

	evs := collect(t, m.Handle(context.Background(), ask("conv-1", "question")))

	assert.Equal(t, []string{"partial "}, tokens(evs))
	last := evs[len(evs)-1]
	assert.Equal(t, events.StatusFailed, last.Payload.(events.DonePayload).Status)
	assert.Empty(t, m.History("conv-1"))
}

func TestHistoryCapKeepsMostRecentTurns(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"reply"}}
	m := NewManager(Options{Streamer: streamer, MaxHistory: 20})

	// Seed 19 turns, then one exchange pushes the total to 21.
	s := m.session("conv-1")
	for i := 1; i <= 19; i++ {
		s.turns = append(s.turns, Turn{Role: RoleUser, Content: fmt.Sprintf("turn %d", i), At: time.Now()})
	}

	collect(t, m.Handle(context.Background(), ask("conv-1", "turn 20")))

	history := m.History("conv-1")
	require.Len(t, history, 20)
	assert.Equal(t, "turn 2", history[0].Content, "oldest turn evicted")
	assert.Equal(t, "reply", history[19].Content)
	assert.Equal(t, RoleAssistant, history[19].Role)
}

func TestClearRemovesAllTurns(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"reply"}}
	m := NewManager(Options{Streamer: streamer})

	collect(t, m.Handle(context.Background(), ask("conv-1", "hi")))
	require.NotEmpty(t, m.History("conv-1"))

	m.Clear("conv-1")
	assert.Empty(t, m.History("conv-1"))
}

func TestHandleLayersScanContextFirst(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"reply"}}
	scans := &stubScans{docs: []retrieval.Document{
		{Content: "Scan found 3 errors.", Metadata: map[string]any{"section": "errors"}},
	}}
	m := NewManager(Options{Streamer: streamer, Retriever: &stubRetriever{}, Scans: scans})

	collect(t, m.Handle(context.Background(), Message{
		ConversationID: "conv-1",
		Content:        "what did my scan find?",
		ScanID:         "scan-42",
	}))

	require.Len(t, streamer.reqs, 1)
	ctxLines := streamer.reqs[0].Context
	require.NotEmpty(t, ctxLines)
	assert.Equal(t, "[scan:errors] Scan found 3 errors.", ctxLines[0], "live scan data comes first")
	assert.Contains(t, ctxLines[1], "seo_knowledge")
	assert.Contains(t, ctxLines[2], "scan_history")
}

func TestHandleDomainLoadsScanContext(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"reply"}}
	scans := &stubScans{docs: []retrieval.Document{
		{Content: "Latest scan scored 82.", Metadata: map[string]any{"section": "overview"}},
	}}
	m := NewManager(Options{Streamer: streamer, Scans: scans})

	collect(t, m.Handle(context.Background(), Message{
		ConversationID: "conv-1",
		Content:        "how is my site doing?",
		Domain:         "example.com",
	}))

	require.Len(t, streamer.reqs, 1)
	require.NotEmpty(t, streamer.reqs[0].Context)
	assert.Equal(t, "[scan:overview] Latest scan scored 82.", streamer.reqs[0].Context[0])
}

func TestHandleRetrievalFailureDegrades(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"reply"}}
	m := NewManager(Options{Streamer: streamer, Retriever: &stubRetriever{err: retrieval.ErrUnavailable}})

	evs := collect(t, m.Handle(context.Background(), ask("conv-1", "question")))

	retrievalErrors := 0
	for _, ev := range evs {
		if ev.Type == events.TypeError && ev.Payload.(events.ErrorPayload).Kind == events.KindRetrievalUnavailable {
			retrievalErrors++
		}
	}
	assert.Equal(t, 2, retrievalErrors, "both collections degrade independently")

	// Generation still ran with no context.
	require.Len(t, streamer.reqs, 1)
	assert.Empty(t, streamer.reqs[0].Context)
	assert.Equal(t, events.StatusCompleted, evs[len(evs)-1].Payload.(events.DonePayload).Status)
}

func TestSeparateConversationsAreIsolated(t *testing.T) {
	streamer := &fakeStreamer{tokens: []string{"reply"}}
	m := NewManager(Options{Streamer: streamer})

	collect(t, m.Handle(context.Background(), ask("conv-a", "first")))
	collect(t, m.Handle(context.Background(), ask("conv-b", "second")))

	assert.Len(t, m.History("conv-a"), 2)
	assert.Len(t, m.History("conv-b"), 2)
	assert.Equal(t, "first", m.History("conv-a")[0].Content)
	assert.Equal(t, "second", m.History("conv-b")[0].Content)
}
