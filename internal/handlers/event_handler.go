package handlers

import (
	"encoding/json"
	"net/http"

	"escaperoom/internal/engine"
)

// EventProcessor handles one classified event and always yields a response.
type EventProcessor interface {
	Handle(event engine.Event) engine.Response
}

// EventHandler serves the voice-platform webhook. Each request carries one
// event; the session context comes from the verified bearer token, never
// from the body.
type EventHandler struct {
	engine EventProcessor
	hub    *DisplayHub
}

// NewEventHandler creates a new event handler
func NewEventHandler(engine EventProcessor, hub *DisplayHub) *EventHandler {
	return &EventHandler{engine: engine, hub: hub}
}

// HandleEvent handles POST /api/v1/events
func (h *EventHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	claims := GetClaimsFromContext(r.Context())
	if claims == nil {
		respondWithError(w, http.StatusUnauthorized, "missing session context", "", nil)
		return
	}

	var event engine.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}
	event.UserID = claims.UserID
	event.SessionID = claims.SessionID

	response := h.engine.Handle(event)

	// Directives reach the display over its websocket as well, so a
	// voice-originated event can change what the screen shows.
	if response.Directive != nil && h.hub != nil {
		h.hub.Send(claims.UserID, claims.SessionID, response.Directive)
	}

	respondWithJSON(w, http.StatusOK, response)
}
