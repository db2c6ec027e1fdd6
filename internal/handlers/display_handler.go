package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"escaperoom/internal/engine"
	"escaperoom/internal/models"
	"escaperoom/internal/security"
)

// DisplayHub tracks the websocket connection of each session's companion
// display so directives can be pushed to it.
type DisplayHub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewDisplayHub creates an empty hub
func NewDisplayHub() *DisplayHub {
	return &DisplayHub{conns: make(map[string]*websocket.Conn)}
}

func displayKey(userID, sessionID string) string {
	return userID + "/" + sessionID
}

func (h *DisplayHub) register(userID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// A reconnect replaces the previous display.
	if old, ok := h.conns[displayKey(userID, sessionID)]; ok {
		old.Close()
	}
	h.conns[displayKey(userID, sessionID)] = conn
}

func (h *DisplayHub) unregister(userID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[displayKey(userID, sessionID)] == conn {
		delete(h.conns, displayKey(userID, sessionID))
	}
}

// Send pushes a directive to the session's display, if one is connected.
func (h *DisplayHub) Send(userID, sessionID string, directive *engine.Directive) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[displayKey(userID, sessionID)]
	if !ok {
		return
	}
	if err := conn.WriteJSON(directive); err != nil {
		log.Printf("Failed to push directive to display %s/%s: %v", userID, sessionID, err)
		conn.Close()
		delete(h.conns, displayKey(userID, sessionID))
	}
}

// write serializes websocket writes with directive pushes, since gorilla
// connections allow only one concurrent writer.
func (h *DisplayHub) write(conn *websocket.Conn, v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteJSON(v)
}

// displayMessage is what the companion display sends over its websocket.
type displayMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// DisplayHandler upgrades display connections and feeds their messages into
// the engine. The display authenticates with the same session token as the
// voice webhook, so both event sources resolve to the same session.
type DisplayHandler struct {
	engine   EventProcessor
	tokens   *security.TokenManager
	hub      *DisplayHub
	upgrader websocket.Upgrader
}

// NewDisplayHandler creates a new display handler. When displayPageURL is
// set, only connections from that origin are accepted.
func NewDisplayHandler(engine EventProcessor, tokens *security.TokenManager, hub *DisplayHub, displayPageURL string) *DisplayHandler {
	return &DisplayHandler{
		engine: engine,
		tokens: tokens,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if displayPageURL == "" {
					return true
				}
				return strings.HasPrefix(r.Header.Get("Origin"), displayPageURL)
			},
		},
	}
}

// HandleWS handles GET /display/ws
func (h *DisplayHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "invalid or expired token", "", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade display connection: %v", err)
		return
	}

	h.hub.register(claims.UserID, claims.SessionID, conn)
	defer func() {
		h.hub.unregister(claims.UserID, claims.SessionID, conn)
		conn.Close()
	}()

	log.Printf("Display connected: %s/%s", claims.UserID, claims.SessionID)

	// Acknowledge the channel so the display leaves its login screen.
	if err := h.hub.write(conn, &engine.Directive{Action: engine.ActionLoginOK}); err != nil {
		log.Printf("Failed to acknowledge display %s/%s: %v", claims.UserID, claims.SessionID, err)
		return
	}

	for {
		var msg displayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Display connection error for %s/%s: %v", claims.UserID, claims.SessionID, err)
			}
			return
		}

		event, ok := h.classify(claims, msg)
		if !ok {
			log.Printf("Ignoring unknown display action %q from %s/%s", msg.Action, claims.UserID, claims.SessionID)
			continue
		}

		response := h.engine.Handle(event)

		if err := h.hub.write(conn, response); err != nil {
			log.Printf("Failed to respond to display %s/%s: %v", claims.UserID, claims.SessionID, err)
			return
		}
	}
}

// classify maps a display message onto an engine event.
func (h *DisplayHandler) classify(claims *security.Claims, msg displayMessage) (engine.Event, bool) {
	event := engine.Event{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
	}

	switch msg.Action {
	case "timeout":
		event.Type = engine.EventTimeout
	case "save_game":
		event.Type = engine.EventSaveGame
		var game models.Game
		if err := json.Unmarshal(msg.Data, &game); err != nil {
			return engine.Event{}, false
		}
		event.Game = &game
	case "close_session":
		event.Type = engine.EventCloseSession
	default:
		return engine.Event{}, false
	}

	return event, true
}
