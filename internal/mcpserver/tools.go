package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/duet/internal/article"
	"github.com/apresai/duet/internal/discuss"
	"github.com/apresai/duet/internal/ingest"
	"github.com/apresai/duet/internal/observability"
	"github.com/apresai/duet/internal/session"
)

var tracer = otel.Tracer("duet-mcp")

// Service is the slice of discuss.Service the tools use.
type Service interface {
	Discuss(ctx context.Context, req discuss.Request) (*discuss.Response, error)
	Session(ctx context.Context, id string) (*session.Session, error)
	Sessions(ctx context.Context) ([]session.Summary, error)
}

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "discuss_article",
			Description: "Run one turn of a two-host conversation (Mike and Miley) about an article. Returns both hosts' lines and the session_id to continue with. Omit session_id to start a new conversation.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "Session to continue; empty or unknown starts a new one",
					},
					"user_input": map[string]any{
						"type":        "string",
						"description": "What the listener says this turn (may be empty)",
					},
					"user_name": map[string]any{
						"type":        "string",
						"description": "Listener's name",
						"default":     discuss.DefaultUserName,
					},
					"topic": map[string]any{
						"type":        "string",
						"description": "Conversation topic",
						"default":     discuss.DefaultTopic,
					},
					"step": map[string]any{
						"type":        "integer",
						"description": "Override the session's phase step (0 intro, 1 greeting, 2 overview, 3 code, 4+ open)",
					},
					"article": map[string]any{
						"type":        "object",
						"description": "Article content: {title, description: [{type, content}], code, language}",
					},
					"article_source": map[string]any{
						"type":        "string",
						"description": "URL or file path of an article; it is revealed progressively with the session step (alternative to article)",
					},
					"include_audio": map[string]any{
						"type":        "boolean",
						"description": "Return base64 MP3 audio for both lines",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "get_session",
			Description: "Get the full state of a conversation: history, topic, user name, step and article snapshots.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": "The session ID returned from discuss_article",
					},
				},
				Required: []string{"session_id"},
			},
		},
		{
			Name:        "list_sessions",
			Description: "List conversations, most recently updated first.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results (default 20)",
						"default":     20,
					},
				},
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	svc     Service
	baseCtx context.Context
	ingest  func(ctx context.Context, source string) (*ingest.Document, error)
	log     *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(svc Service, baseCtx context.Context, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, baseCtx: baseCtx, ingest: ingest.Ingest, log: logger}
}

// HandleDiscussArticle runs one dialogue turn.
func (h *Handlers) HandleDiscussArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.discuss_article")
	defer span.End()

	dreq := discuss.Request{
		SessionID: mcp.ParseString(req, "session_id", ""),
		UserInput: mcp.ParseString(req, "user_input", ""),
		UserName:  mcp.ParseString(req, "user_name", ""),
		Topic:     mcp.ParseString(req, "topic", ""),
	}
	if step, ok := intParam(req, "step"); ok {
		dreq.Step = &step
	}
	includeAudio := mcp.ParseBoolean(req, "include_audio", false)

	span.SetAttributes(
		attribute.String("session_id", dreq.SessionID),
		attribute.Bool("include_audio", includeAudio),
	)

	content, err := h.articleFor(ctx, req, dreq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "article")
		return mcp.NewToolResultError(err.Error()), nil
	}
	dreq.ArticleContent = content

	resp, err := h.svc.Discuss(h.detach(ctx), dreq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
	}

	span.SetAttributes(attribute.String("session_id", resp.SessionID), attribute.Int("step", resp.Step))
	h.log.InfoContext(ctx, "MCP turn complete", "session_id", resp.SessionID, "step", resp.Step)

	result := map[string]any{
		"session_id":    resp.SessionID,
		"step":          resp.Step,
		"mike_message":  resp.MikeMessage,
		"miley_message": resp.MileyMessage,
	}
	if includeAudio {
		result["mike_voice"] = resp.MikeVoice
		result["miley_voice"] = resp.MileyVoice
	}
	return jsonResult(result)
}

// articleFor resolves the article for this turn: an explicit article
// object wins; otherwise article_source is ingested and revealed up to the
// step the turn will run at.
func (h *Handlers) articleFor(ctx context.Context, req mcp.CallToolRequest, dreq discuss.Request) (*article.Content, error) {
	args := req.GetArguments()
	if raw, ok := args["article"]; ok && raw != nil {
		data, err := sonic.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid article: %w", err)
		}
		var c article.Content
		if err := sonic.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("invalid article: %w", err)
		}
		return &c, nil
	}

	source := mcp.ParseString(req, "article_source", "")
	if source == "" {
		return nil, nil
	}
	doc, err := h.ingest(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("could not read article: %w", err)
	}

	step := 0
	switch {
	case dreq.Step != nil:
		step = *dreq.Step
	case dreq.SessionID != "":
		if sess, err := h.svc.Session(ctx, dreq.SessionID); err == nil {
			step = sess.Step
		}
	}
	return article.Reveal(&doc.Article, step), nil
}

// HandleGetSession returns the stored state of a session.
func (h *Handlers) HandleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.get_session")
	defer span.End()

	id := mcp.ParseString(req, "session_id", "")
	if id == "" {
		span.SetStatus(codes.Error, "missing session_id")
		return mcp.NewToolResultError("session_id is required"), nil
	}
	span.SetAttributes(attribute.String("session_id", id))

	sess, err := h.svc.Session(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get session failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to get session %s: %v", id, err)), nil
	}
	return jsonResult(sess)
}

// HandleListSessions returns session summaries, newest first.
func (h *Handlers) HandleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, span := tracer.Start(ctx, "tool.list_sessions")
	defer span.End()

	limit := parseIntParam(req, "limit", 20)
	span.SetAttributes(attribute.Int("limit", limit))

	sums, err := h.svc.Sessions(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list sessions failed")
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if limit > 0 && len(sums) > limit {
		sums = sums[:limit]
	}
	span.SetAttributes(attribute.Int("result_count", len(sums)))

	sessions := make([]map[string]any, 0, len(sums))
	for _, s := range sums {
		sessions = append(sessions, map[string]any{
			"session_id": s.ID,
			"topic":      s.Topic,
			"user_name":  s.UserName,
			"step":       s.Step,
			"turns":      s.Turns,
			"updated_at": s.UpdatedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (h *Handlers) detach(ctx context.Context) context.Context {
	if h.baseCtx == nil {
		return observability.DetachTraceContext(ctx)
	}
	return observability.DetachTraceContextFrom(ctx, h.baseCtx)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intParam reports an integer argument and whether it was supplied.
func intParam(req mcp.CallToolRequest, key string) (int, bool) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	if v, ok := intParam(req, key); ok {
		return v
	}
	return defaultVal
}
