package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/memory"
	"github.com/jllopis/nabd/pkg/orchestrator"
	"github.com/jllopis/nabd/pkg/prompts"
	"github.com/jllopis/nabd/pkg/skills"
	"github.com/jllopis/nabd/pkg/telemetry"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type messageRequest struct {
	Content        string `json:"content"`
	Role           string `json:"role"`
	SystemPrompt   string `json:"systemPrompt"`
	SystemPromptID string `json:"systemPromptId"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"modelConfigured": s.deps.Assistant.ModelConfigured(),
	})
}

func (s *Server) handlePromptProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, prompts.List())
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Conversations.GetMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []memory.ConversationMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handlePostMessage stores the user message, runs a turn over the prior
// history and stores the reply. It answers with both messages.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := r.PathValue("id")

	var body messageRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		s.writeError(w, r, errors.New(errors.CodeInvalidInput, "المحتوى مطلوب", nil).WithContext("field", "content"))
		return
	}
	systemPrompt, err := prompts.Resolve(body.SystemPrompt, body.SystemPromptID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	previous, err := s.deps.Conversations.GetMessages(ctx, conversationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	role := strings.TrimSpace(body.Role)
	if role == "" {
		role = "user"
	}
	userMsg, err := s.deps.Conversations.AddMessage(ctx, conversationID, memory.ConversationMessage{Role: role, Content: body.Content})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Assistant.Reply(ctx, orchestrator.Request{
		ConversationID: conversationID,
		Content:        body.Content,
		SystemPrompt:   systemPrompt,
		History:        memory.Turns(previous),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	assistantMsg, err := s.deps.Conversations.AddMessage(ctx, conversationID, memory.ConversationMessage{Role: "assistant", Content: res.Content})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.InfoContext(ctx, "server.message.replied",
		telemetry.ConversationAttr(conversationID),
		slog.String("user_id", UserID(ctx)),
		slog.String("source", string(res.Source)),
	)
	writeJSON(w, http.StatusOK, []memory.ConversationMessage{userMsg, assistantMsg})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Conversations.Clear(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// debug gates h behind the debug token. With no token configured the debug
// surface does not exist.
func (s *Server) debug(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DebugToken == "" {
			http.NotFound(w, r)
			return
		}
		token := r.Header.Get("X-Debug-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.DebugToken)) != 1 {
			s.writeError(w, r, errors.New(errors.CodeUnauthorized, "رمز التصحيح غير صالح", nil))
			return
		}
		h(w, r)
	})
}

func (s *Server) handleDebugPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Content) == "" {
		s.writeError(w, r, errors.New(errors.CodeInvalidInput, "المحتوى مطلوب", nil).WithContext("field", "content"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Assistant.Preview(r.Context(), body.Content))
}

func (s *Server) handleDebugLatestTrace(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversationId")
	trace, ok := s.deps.Traces.Latest(conversationID)
	if !ok {
		s.writeError(w, r, errors.New(errors.CodeNotFound, "لا يوجد تتبع لهذه المحادثة", nil).
			WithContext("conversationId", conversationID))
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (s *Server) handleDebugTraces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.CodeInvalidInput, "قيمة limit غير صالحة", err).WithContext("field", "limit"))
			return
		}
		limit = n
	}
	conversationID := q.Get("conversationId")
	items := s.deps.Traces.History(conversationID, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": conversationID,
		"count":          len(items),
		"traces":         items,
	})
}

func (s *Server) handleDebugListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.deps.Knowledge.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"count": len(docs), "documents": docs})
}

func (s *Server) handleDebugUpsertDocuments(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Documents []memory.Document `json:"documents"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Knowledge.Upsert(r.Context(), body.Documents); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upserted": len(body.Documents),
		"count":    len(s.deps.Knowledge.List(r.Context())),
	})
}

func (s *Server) handleDebugSkills(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{
		"diagnostics": s.deps.Skills.Diagnostics(),
		"skills":      s.deps.Skills.List(),
	}
	if s.deps.Upstreams != nil {
		out["upstreams"] = s.deps.Upstreams()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDebugReloadSkills(w http.ResponseWriter, r *http.Request) {
	s.deps.Skills.Refresh(true)
	d := s.deps.Skills.Diagnostics()
	s.logger.InfoContext(r.Context(), "server.skills.reloaded", slog.Int("count", d.Count))
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDebugSkillsPrompt(w http.ResponseWriter, _ *http.Request) {
	out := map[string]string{"catalog": skills.AvailableSkillsXML(s.deps.Skills.List())}
	if s.deps.ToolsPrompt != nil {
		out["tools"] = s.deps.ToolsPrompt()
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New(errors.CodeInvalidInput, "جسم الطلب ليس JSON صالحاً", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {message} and the status of the error's code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ne := errors.AsNabdError(err)
	status := ne.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "server.request.error",
			slog.String("path", r.URL.Path),
			slog.String("code", string(ne.Code)),
			slog.String("error", err.Error()),
		)
	}
	message := ne.Message
	if ne.Code == errors.CodeInternal {
		message = fmt.Sprintf("خطأ داخلي: %s", errors.UserMessage(err))
	}
	writeJSON(w, status, map[string]string{"message": message})
}
