package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pharmalens/research-assistant/internal/domain"
)

// Request validation constants.
const (
	maxQueryLength     = 1000
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// chatRequest is the JSON request body for a research chat turn. The
// conversation ID is an opaque client token: any non-empty value is
// carried through unchanged, and one is generated when absent.
type chatRequest struct {
	Query          string `json:"query" validate:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// chatResponse is the JSON response body for a research chat turn.
type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// chatHandler handles POST /api/v1/chat. It runs the full research
// pipeline and returns the generated summary.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, validationMessage(verrs[0]))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", maxQueryLength))
		return
	}

	result, err := s.service.Respond(ctx, domain.Query{
		Term:           req.Query,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       result.Text,
		ConversationID: result.ConversationID,
	})
}

// writeServiceError maps pipeline errors to HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var generationErr *domain.GenerationError

	switch {
	case errors.As(err, &validationErr), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &generationErr), errors.Is(err, domain.ErrGenerationUnavailable):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("summary generation failed")
		writeError(w, http.StatusBadGateway, "summary generation is temporarily unavailable")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("chat request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// validationMessage renders a single field validation failure.
func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
