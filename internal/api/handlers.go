// Package api exposes the chatbot and its operator actions over HTTP and MCP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/awarebot/internal/analyze"
	"github.com/kalambet/awarebot/internal/errlog"
	"github.com/kalambet/awarebot/internal/knowledge"
	"github.com/kalambet/awarebot/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the collaborators the HTTP layer serves.
type Deps struct {
	Session   *session.Session
	Log       *errlog.Log
	Knowledge *knowledge.Base
	Token     string
}

// NewHandler builds the router: the chat endpoint and health check are
// open (the daemon binds to loopback); operator/management routes require
// the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/v1/chat", handleChat(deps))

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(deps.Token))
		r.Get("/v1/log", handleLogView(deps))
		r.Delete("/v1/log", handleLogClear(deps))
		r.Post("/v1/log/{index}/feedback", handleFeedback(deps))
		r.Get("/v1/analysis", handleAnalysis(deps))
		r.Get("/v1/knowledge", handleKnowledgeView(deps))
		r.Post("/v1/knowledge", handleKnowledgeLearn(deps))
		r.Post("/v1/knowledge/reset", handleKnowledgeReset(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Input string `json:"input"`
}

// ChatResponse is one finished interaction. LogIndex is present only when
// a failure record was durably logged; it can be fed back via the
// feedback endpoint.
type ChatResponse struct {
	ID        string `json:"id"`
	Reply     string `json:"reply"`
	ErrorType string `json:"error_type,omitempty"`
	LogIndex  *int   `json:"log_index,omitempty"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		turn := deps.Session.Respond(r.Context(), req.Input)

		resp := ChatResponse{
			ID:        "turn-" + uuid.NewString(),
			Reply:     turn.Text,
			ErrorType: string(turn.Category),
		}
		if turn.LogIndex != session.NoLogIndex {
			idx := turn.LogIndex
			resp.LogIndex = &idx
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleLogView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"records": deps.Log.Records(),
		})
	}
}

func handleLogClear(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Log.Clear(); err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "clearing log: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

// FeedbackRequest attaches user feedback to a logged interaction. Skip
// marks the prompt as explicitly declined instead.
type FeedbackRequest struct {
	Text string `json:"text"`
	Skip bool   `json:"skip"`
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid log index: %v", err)
			return
		}

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if !req.Skip && req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "feedback text is required unless skip is set")
			return
		}

		var attachErr error
		if req.Skip {
			attachErr = deps.Log.Skip(index)
		} else {
			attachErr = deps.Log.AttachFeedback(index, req.Text)
		}
		if attachErr != nil {
			status := http.StatusInternalServerError
			errType := "storage_error"
			if errorsIsIndex(attachErr) {
				status = http.StatusNotFound
				errType = "invalid_request_error"
			}
			httpError(w, status, errType, "attaching feedback: %v", attachErr)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
	}
}

func handleAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := analyze.Run(deps.Log.Records())
		writeJSON(w, http.StatusOK, report)
	}
}

func handleKnowledgeView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"entries": deps.Knowledge.Entries(),
		})
	}
}

// LearnRequest promotes an input/response pair into the knowledge base.
type LearnRequest struct {
	Input    string `json:"input"`
	Response string `json:"response"`
}

func handleKnowledgeLearn(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LearnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := deps.Knowledge.Learn(req.Input, req.Response); err != nil {
			status := http.StatusInternalServerError
			errType := "storage_error"
			if errorsIsEmpty(err) {
				status = http.StatusBadRequest
				errType = "invalid_request_error"
			}
			httpError(w, status, errType, "learning entry: %v", err)
			return
		}
		slog.Info("knowledge entry learned", "input", knowledge.Normalize(req.Input))
		writeJSON(w, http.StatusOK, map[string]string{"status": "learned"})
	}
}

func handleKnowledgeReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Knowledge.Reset(); err != nil {
			httpError(w, http.StatusInternalServerError, "storage_error", "resetting knowledge: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
