package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucamori/seo-agent/pkg/chat"
	"github.com/lucamori/seo-agent/pkg/events"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/scanstore"
	"github.com/lucamori/seo-agent/pkg/workflow"
)

type fakeScanRunner struct {
	lastReq workflow.Request
}

func (f *fakeScanRunner) RunScan(ctx context.Context, req workflow.Request) events.Stream {
	f.lastReq = req
	return func(yield func(events.Event, error) bool) {
		if !yield(events.StageStarted(workflow.StageScraping), nil) {
			return
		}
		if !yield(events.StageCompleted(workflow.StageScraping, nil), nil) {
			return
		}
		yield(events.Done(events.StatusCompleted, nil), nil)
	}
}

type fakeAgentRunner struct{}

func (f *fakeAgentRunner) Run(ctx context.Context, url string) events.Stream {
	return func(yield func(events.Event, error) bool) {
		yield(events.Done(events.StatusBreakerTripped, nil), nil)
	}
}

type fakeChat struct {
	cleared string
	history []chat.Turn
}

func (f *fakeChat) Handle(ctx context.Context, msg chat.Message) events.Stream {
	return func(yield func(events.Event, error) bool) {
		if !yield(events.Token("hello"), nil) {
			return
		}
		yield(events.Done(events.StatusCompleted, nil), nil)
	}
}

func (f *fakeChat) History(conversationID string) []chat.Turn { return f.history }
func (f *fakeChat) Clear(conversationID string)               { f.cleared = conversationID }

type fakeRegistry struct {
	err error
}

func (f *fakeRegistry) SetActive(cfg llm.Config) (llm.Config, error) {
	if f.err != nil {
		return llm.Config{}, f.err
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return cfg, nil
}

func (f *fakeRegistry) ListAvailable() llm.Catalog {
	return llm.Catalog{ActiveProvider: "openai", ActiveModel: "gpt-4o-mini"}
}

type fakeLister struct {
	scans []scanstore.Summary
}

func (f *fakeLister) Scans(ctx context.Context) ([]scanstore.Summary, error) {
	return f.scans, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func defaultHandler() (*Handler, *fakeScanRunner, *fakeChat, *fakeRegistry) {
	scans := &fakeScanRunner{}
	chatSvc := &fakeChat{}
	registry := &fakeRegistry{}
	h := NewHandler(scans, &fakeAgentRunner{}, chatSvc, registry, &fakeLister{}, nil)
	return h, scans, chatSvc, registry
}

func TestScanStreamEmitsSSE(t *testing.T) {
	h, scans, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/scan/stream?url=https://example.com&mode=quick", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "https://example.com", scans.lastReq.URL)
	assert.Equal(t, workflow.ModeQuick, scans.lastReq.Mode)

	body := w.Body.String()
	assert.Contains(t, body, "event: stage-started\n")
	assert.Contains(t, body, "event: done\n")
	assert.Contains(t, body, `"type":"stage-started"`)
	assert.True(t, strings.HasSuffix(body, "\n\n"))
}

func TestScanStreamForwardsCompetitorAndKeywords(t *testing.T) {
	h, scans, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/scan/stream?url=https://example.com&mode=full&competitor_url=https://rival.com&keywords=seo,%20audit%20tool,", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://rival.com", scans.lastReq.CompetitorURL)
	assert.Equal(t, []string{"seo", "audit tool"}, scans.lastReq.Keywords)
}

func TestScanStreamRequiresURL(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scan/stream", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanStreamRejectsUnknownMode(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scan/stream?url=https://example.com&mode=deep", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentStream(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agent-scan/stream?url=https://example.com", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"breaker_tripped"`)
}

func TestChatMessageAssignsConversationID(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Conversation-Id"))
	assert.Contains(t, w.Body.String(), "event: token\n")
}

func TestChatMessageRequiresMessage(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHistoryAndClear(t *testing.T) {
	h, _, chatSvc, _ := defaultHandler()
	chatSvc.history = []chat.Turn{{Role: chat.RoleUser, Content: "hi"}}
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/history?conversation_id=conv-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"hi"`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/clear", strings.NewReader(`{"conversation_id": "conv-1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conv-1", chatSvc.cleared)
}

func TestListProviders(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/providers", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_provider":"openai"`)
}

func TestSetProviderDoesNotEchoCredential(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/providers",
		strings.NewReader(`{"provider": "openai", "credential": "sk-secret"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-secret")
	assert.Contains(t, w.Body.String(), `"model":"gpt-4o-mini"`)
}

func TestSetProviderUnavailable(t *testing.T) {
	h, _, _, registry := defaultHandler()
	registry.err = llm.ErrProviderUnavailable
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/providers", strings.NewReader(`{"provider": "openai"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChatScans(t *testing.T) {
	scans := &fakeScanRunner{}
	lister := &fakeLister{scans: []scanstore.Summary{{ScanID: "scan-1", URL: "https://example.com"}}}
	h := NewHandler(scans, &fakeAgentRunner{}, &fakeChat{}, &fakeRegistry{}, lister, nil)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/scans", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scan_id":"scan-1"`)
}

func TestHealth(t *testing.T) {
	h, _, _, _ := defaultHandler()
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
