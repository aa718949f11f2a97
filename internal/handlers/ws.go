package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/security"
	"github.com/knowsyapp/knowsy-server/internal/services"
)

type WSHandler struct {
	hub         *services.Hub
	roomManager *services.RoomManager
	coordinator *services.GameCoordinator
	sessions    *services.SessionManager
	origins     *security.OriginValidator
	logger      *slog.Logger
}

func NewWSHandler(hub *services.Hub, rm *services.RoomManager, gc *services.GameCoordinator, sm *services.SessionManager, origins *security.OriginValidator, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub:         hub,
		roomManager: rm,
		coordinator: gc,
		sessions:    sm,
		origins:     origins,
		logger:      logger,
	}
}

func (h *WSHandler) HandleWebSocket(re *core.RequestEvent) error {
	roomID := re.Request.PathValue("roomId")

	// Verify room exists
	if _, err := h.roomManager.GetRoom(roomID); err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "Room not found"})
	}

	// Resolve the player seat behind the session cookie
	var playerID string
	if sessionCookie := getSessionCookie(re.Request); sessionCookie != "" {
		if player, err := h.roomManager.GetPlayerBySession(roomID, sessionCookie); err == nil {
			playerID = player.Id
		}
	}

	conn, err := websocket.Accept(re.Response, re.Request, &websocket.AcceptOptions{
		OriginPatterns: h.origins.Patterns(),
	})
	if err != nil {
		return err
	}

	client := services.NewClient(conn, h.hub, roomID, playerID, h.handleMessage)
	h.hub.Register(client)

	if playerID != "" {
		h.roomManager.UpdatePlayerConnection(playerID, true)
		h.sessions.StartSession(roomID, playerID)
	}

	// Initial state sync
	h.sendRoomState(client, roomID)

	client.Start()
	client.Wait()

	if playerID != "" {
		h.sessions.StopSession(playerID)
		// Disconnect is not departure; the seat stays until an explicit
		// leave, a kick, or external cleanup.
		h.roomManager.UpdatePlayerConnection(playerID, false)
	}
	return nil
}

func (h *WSHandler) sendRoomState(client *services.Client, roomID string) {
	room, err := h.roomManager.GetRoom(roomID)
	if err != nil {
		return
	}
	players, err := h.roomManager.ListActivePlayers(roomID)
	if err != nil {
		return
	}
	h.hub.SendToClient(client, &models.WSMessage{
		Type:   models.MsgTypeRoomState,
		RoomID: roomID,
		Payload: map[string]any{
			"room":    services.RoomFromRecord(room),
			"players": services.PlayersFromRecords(players),
		},
	})
}

func (h *WSHandler) handleMessage(client *services.Client, data []byte) {
	var msg models.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Warn("unparseable websocket message", "room", client.RoomID(), "error", err)
		return
	}

	if !security.IsValidMessageType(msg.Type) {
		h.sendError(client, "unknown message type")
		return
	}

	roomID := client.RoomID()
	playerID := client.PlayerID()
	if playerID == "" {
		h.sendError(client, "no seat in this room")
		return
	}

	switch msg.Type {
	case models.MsgTypeSubmitSelection:
		var payload struct {
			TopicID string        `json:"topicId"`
			Items   []models.Item `json:"items"`
		}
		if err := decodePayload(msg.Payload, &payload); err != nil {
			h.sendError(client, "invalid payload")
			return
		}
		if _, err := h.coordinator.SubmitSelection(roomID, playerID, payload.TopicID, payload.Items); err != nil {
			h.sendError(client, security.SanitizeErrorMessage(err))
			return
		}
		if session := h.sessions.GetSession(playerID); session != nil {
			session.MarkSelectionSubmitted()
		}
		h.sessions.NotifyRoom(roomID)

	case models.MsgTypeStageGuess:
		var payload struct {
			Order []string `json:"order"`
		}
		if err := decodePayload(msg.Payload, &payload); err != nil {
			h.sendError(client, "invalid payload")
			return
		}
		if session := h.sessions.GetSession(playerID); session != nil {
			session.StageGuess(payload.Order)
		}

	case models.MsgTypeSubmitGuess:
		var payload struct {
			Order []string `json:"order"`
		}
		if err := decodePayload(msg.Payload, &payload); err != nil {
			h.sendError(client, "invalid payload")
			return
		}
		if _, _, err := h.coordinator.SubmitGuess(roomID, playerID, payload.Order); err != nil {
			h.sendError(client, security.SanitizeErrorMessage(err))
			return
		}
		if session := h.sessions.GetSession(playerID); session != nil {
			session.MarkGuessSubmitted()
		}
		h.sessions.NotifyRoom(roomID)

	case models.MsgTypeStartGame:
		if err := h.coordinator.StartGame(roomID, playerID); err != nil {
			h.sendError(client, security.SanitizeErrorMessage(err))
			return
		}
		h.sessions.NotifyRoom(roomID)

	case models.MsgTypeNextRound:
		var guard *services.TransitionGuard
		if session := h.sessions.GetSession(playerID); session != nil {
			guard = session.Guard()
		}
		if err := h.coordinator.NextRound(roomID, playerID, guard); err != nil {
			h.sendError(client, security.SanitizeErrorMessage(err))
			return
		}
		h.sessions.NotifyRoom(roomID)

	case models.MsgTypeLeave:
		h.sessions.StopSession(playerID)
		if err := h.roomManager.RemovePlayer(playerID); err != nil {
			h.sendError(client, security.SanitizeErrorMessage(err))
			return
		}
		h.sessions.NotifyRoom(roomID)
		client.Close()
	}
}

func (h *WSHandler) sendError(client *services.Client, message string) {
	h.hub.SendToClient(client, &models.WSMessage{
		Type:    models.MsgTypeError,
		Payload: map[string]string{"message": message},
	})
}

// decodePayload re-marshals an untyped payload into a typed struct.
func decodePayload(payload interface{}, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
