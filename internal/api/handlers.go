package api

import (
	"encoding/json"
	"io"
	"net/http"

	"cattle-chatbot/internal/chatbot"
	apperrors "cattle-chatbot/internal/common/errors"
	"cattle-chatbot/internal/models"
)

const maxRequestBytes = 4 << 10

type AskResponse struct {
	RequestID string `json:"requestId"`
	chatbot.Answer
}

type CowsResponse struct {
	Cows  []models.Entity `json:"cows"`
	Count int             `json:"count"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, apperrors.NewInvalidRequestError(err.Error()), nil)
		return
	}

	req, details := s.decodeRequest(raw)
	if details != nil {
		respondError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("request does not match schema"), details)
		return
	}

	ans := s.chatbot.Answer(r.Context(), *req)
	respondJSON(w, http.StatusOK, AskResponse{RequestID: requestIDFrom(r.Context()), Answer: ans})
}

// decodeRequest returns the validation messages when raw is rejected.
func (s *Server) decodeRequest(raw []byte) (*chatbot.Request, []string) {
	if result := s.validator.ValidateJSON(raw); !result.Valid {
		return nil, result.GetErrorMessages()
	}
	var req chatbot.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, []string{err.Error()}
	}
	return &req, nil
}

func (s *Server) explain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondError(w, http.StatusBadRequest, apperrors.NewInvalidRequestError("query parameter q is required"), nil)
		return
	}
	respondJSON(w, http.StatusOK, s.chatbot.Explain(q, r.URL.Query().Get("window")))
}

func (s *Server) cows(w http.ResponseWriter, r *http.Request) {
	var (
		cows []models.Entity
		err  error
	)
	if r.URL.Query().Get("refresh") == "true" {
		cows, err = s.store.RefreshCatalog(r.Context())
	} else {
		cows, err = s.chatbot.Catalog(r.Context())
	}
	if err != nil {
		s.logger.Error("catalog lookup failed", map[string]interface{}{
			"requestId": requestIDFrom(r.Context()),
			"error":     err.Error(),
		})
		respondError(w, http.StatusServiceUnavailable, err, nil)
		return
	}
	if cows == nil {
		cows = []models.Entity{}
	}
	respondJSON(w, http.StatusOK, CowsResponse{Cows: cows, Count: len(cows)})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "cattle-chatbot",
		"version": s.version,
	})
}

// ready reports whether the readings store answers and how many cows it knows.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Ping(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"code":   string(apperrors.CodeOf(err)),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"cows":   count,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError never exposes driver details, only the code and message.
func respondError(w http.ResponseWriter, status int, err error, details []string) {
	stdErr := apperrors.AsStandardError(err)
	respondJSON(w, status, errorResponse{
		Error:   stdErr.Message,
		Code:    string(stdErr.Code),
		Details: details,
	})
}
