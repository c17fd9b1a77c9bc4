// Package server exposes the REST surface and adapts event streams to
// server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lucamori/seo-agent/pkg/chat"
	"github.com/lucamori/seo-agent/pkg/events"
	"github.com/lucamori/seo-agent/pkg/llm"
	"github.com/lucamori/seo-agent/pkg/scanstore"
	"github.com/lucamori/seo-agent/pkg/workflow"
)

// ScanRunner runs the fixed-stage workflow.
type ScanRunner interface {
	RunScan(ctx context.Context, req workflow.Request) events.Stream
}

// AgentRunner runs the autonomous analysis loop.
type AgentRunner interface {
	Run(ctx context.Context, url string) events.Stream
}

// ChatService is the conversation surface.
type ChatService interface {
	Handle(ctx context.Context, msg chat.Message) events.Stream
	History(conversationID string) []chat.Turn
	Clear(conversationID string)
}

// ProviderRegistry reconfigures and lists LLM providers.
type ProviderRegistry interface {
	SetActive(cfg llm.Config) (llm.Config, error)
	ListAvailable() llm.Catalog
}

// ScanLister lists stored scans for the history picker.
type ScanLister interface {
	Scans(ctx context.Context) ([]scanstore.Summary, error)
}

type Handler struct {
	Scans     ScanRunner
	Agent     AgentRunner
	Chat      ChatService
	Providers ProviderRegistry
	History   ScanLister
	Logger    *slog.Logger
}

func NewHandler(scans ScanRunner, agent AgentRunner, chatSvc ChatService, providers ProviderRegistry, history ScanLister, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Scans:     scans,
		Agent:     agent,
		Chat:      chatSvc,
		Providers: providers,
		History:   history,
		Logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	{
		api.GET("/scan/stream", h.scanStream)
		api.GET("/agent-scan/stream", h.agentStream)

		api.POST("/chat", h.chatMessage)
		api.GET("/chat/history", h.chatHistory)
		api.POST("/chat/clear", h.chatClear)
		api.GET("/chat/scans", h.chatScans)

		api.GET("/providers", h.listProviders)
		api.POST("/providers", h.setProvider)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) scanStream(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}
	mode, err := workflow.ParseMode(c.Query("mode"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := workflow.Request{
		URL:           url,
		Mode:          mode,
		CompetitorURL: c.Query("competitor_url"),
		Keywords:      splitKeywords(c.Query("keywords")),
	}
	h.streamEvents(c, h.Scans.RunScan(c.Request.Context(), req))
}

// splitKeywords parses the comma-separated keywords query param.
func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func (h *Handler) agentStream(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	h.streamEvents(c, h.Agent.Run(c.Request.Context(), url))
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
	ScanID         string `json:"scan_id"`
	Domain         string `json:"domain"`
}

func (h *Handler) chatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}

	c.Header("X-Conversation-Id", req.ConversationID)
	h.streamEvents(c, h.Chat.Handle(c.Request.Context(), chat.Message{
		ConversationID: req.ConversationID,
		Content:        req.Message,
		ScanID:         req.ScanID,
		Domain:         req.Domain,
	}))
}

func (h *Handler) chatHistory(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id is required"})
		return
	}
	turns := h.Chat.History(conversationID)
	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "turns": turns})
}

func (h *Handler) chatClear(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Chat.Clear(req.ConversationID)
	c.JSON(http.StatusOK, gin.H{"cleared": req.ConversationID})
}

func (h *Handler) chatScans(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusOK, gin.H{"scans": []scanstore.Summary{}})
		return
	}
	scans, err := h.History.Scans(c.Request.Context())
	if err != nil {
		h.Logger.Error("Failed to list scans", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scans"})
		return
	}
	if scans == nil {
		scans = []scanstore.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans})
}

func (h *Handler) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, h.Providers.ListAvailable())
}

func (h *Handler) setProvider(c *gin.Context) {
	var cfg llm.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolved, err := h.Providers.SetActive(cfg)
	if err != nil {
		if errors.Is(err, llm.ErrProviderUnavailable) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Never echo the credential back.
	resolved.Credential = ""
	c.JSON(http.StatusOK, gin.H{"provider": resolved.Provider, "model": resolved.Model})
}

// streamEvents relays a typed event stream as SSE. Each event goes out as
// `event: <type>` plus a JSON data line; the client disconnecting stops the
// producer at its next emit.
func (h *Handler) streamEvents(c *gin.Context, stream events.Stream) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Transfer-Encoding", "chunked")

	for event, err := range stream {
		if err != nil {
			h.writeEvent(c, events.Error(events.KindInternal, err.Error()))
			return
		}
		if !h.writeEvent(c, event) {
			return
		}
	}
}

func (h *Handler) writeEvent(c *gin.Context, event events.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		h.Logger.Error("Failed to marshal event", "type", event.Type, "error", err)
		return false
	}

	if _, err := c.Writer.Write([]byte("event: " + string(event.Type) + "\n")); err != nil {
		return false
	}
	if _, err := c.Writer.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := c.Writer.Write(data); err != nil {
		return false
	}
	if _, err := c.Writer.Write([]byte("\n\n")); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}
