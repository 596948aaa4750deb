package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ordersuite/orderflow/internal/models"
)

// simulationRequest is the JSON body accepted in simulation mode.
type simulationRequest struct {
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	MediaURL string `json:"mediaUrl,omitempty"`
}

// simulationState is the conversation position after the message was folded
// in: the new state plus the full accumulated context.
type simulationState struct {
	CurrentState models.StateType `json:"currentState"`
	Context      models.Context   `json:"context"`
}

// simulationResponse echoes the bot's replies back in the HTTP response so
// integration tests can drive full conversations without a WhatsApp gateway.
// Responses carry the complete SEND_MESSAGE payloads, templates included.
type simulationResponse struct {
	Success   bool                        `json:"success"`
	Responses []models.SendMessagePayload `json:"responses"`
	NewState  simulationState             `json:"newState"`
}

// webhookHandler is the single inbound entry point. Requests carrying the
// simulation header take the JSON path; everything else is parsed as a
// Twilio form post.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if secret := r.Header.Get(SimulationHeader); secret != "" {
		s.simulationWebhook(w, r, secret)
		return
	}
	s.twilioWebhook(w, r)
}

func (s *Server) simulationWebhook(w http.ResponseWriter, r *http.Request, secret string) {
	if s.opts.SimulationSecret == "" {
		writeJSONError(w, http.StatusForbidden, "simulation mode is not enabled")
		return
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.opts.SimulationSecret)) != 1 {
		writeJSONError(w, http.StatusUnauthorized, "invalid simulation secret")
		return
	}

	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Phone == "" || (req.Message == "" && req.MediaURL == "") {
		writeJSONError(w, http.StatusBadRequest, "phone and message are required")
		return
	}

	result, err := s.bot.HandleMessage(r.Context(), models.InboundMessage{
		From:     req.Phone,
		Body:     req.Message,
		MediaURL: req.MediaURL,
	})
	if err != nil {
		slog.Error("Server.simulationWebhook: message handling failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSONResponse(w, http.StatusOK, simulationResponse{
		Success:   true,
		Responses: result.Responses,
		NewState: simulationState{
			CurrentState: result.NewState,
			Context:      result.Context,
		},
	})
}

// twilioWebhook parses the Twilio inbound message form post. Twilio only
// needs a 2xx; replies go out through the messaging service, not the webhook
// response.
func (s *Server) twilioWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")
	mediaURL := r.PostFormValue("MediaUrl0")
	if from == "" {
		http.Error(w, "From is required", http.StatusBadRequest)
		return
	}

	if _, err := s.bot.HandleMessage(r.Context(), models.InboundMessage{
		From:     from,
		Body:     body,
		MediaURL: mediaURL,
	}); err != nil {
		slog.Error("Server.twilioWebhook: message handling failed", "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("<Response></Response>")); err != nil {
		slog.Error("Server.twilioWebhook: failed to write response", "error", err)
	}
}

func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	conv, err := s.bot.GetConversation(phone)
	if err != nil {
		slog.Error("Server.conversationHandler: lookup failed", "phone", phone, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	if conv == nil {
		writeJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, conv)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
