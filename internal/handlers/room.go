package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/security"
	"github.com/knowsyapp/knowsy-server/internal/services"
)

const sessionCookieName = "knowsy_session"

type RoomHandlers struct {
	roomManager *services.RoomManager
	coordinator *services.GameCoordinator
	sessions    *services.SessionManager
	hub         *services.Hub
	metrics     *services.Metrics
}

func NewRoomHandlers(rm *services.RoomManager, gc *services.GameCoordinator, sm *services.SessionManager, hub *services.Hub, metrics *services.Metrics) *RoomHandlers {
	return &RoomHandlers{
		roomManager: rm,
		coordinator: gc,
		sessions:    sm,
		hub:         hub,
		metrics:     metrics,
	}
}

// getSessionCookie extracts the player session cookie, if any.
func getSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setSessionCookie(re *core.RequestEvent, value string) {
	http.SetCookie(re.Response, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CreateRoom creates a room and seats the creating player as host.
// When the request carries an authenticated organization user, the room
// is branded with that organization.
func (h *RoomHandlers) CreateRoom(re *core.RequestEvent) error {
	var body struct {
		HostName    string `json:"hostName"`
		TotalRounds int    `json:"totalRounds"`
	}
	if err := re.BindBody(&body); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	name, err := security.ValidatePlayerName(body.HostName)
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	organizationID := ""
	userID := ""
	if re.Auth != nil {
		userID = re.Auth.Id
		organizationID = re.Auth.GetString("organization_id")
	}

	room, err := h.roomManager.CreateRoom(organizationID, body.TotalRounds)
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	sessionCookie := uuid.New().String()
	player, err := h.roomManager.AddPlayer(room.Id, name, false, userID, sessionCookie)
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	setSessionCookie(re, sessionCookie)
	return re.JSON(http.StatusCreated, map[string]any{
		"room":   services.RoomFromRecord(room),
		"player": services.PlayerFromRecord(player),
	})
}

// ValidateJoinCode is the server-side join-code check.
func (h *RoomHandlers) ValidateJoinCode(re *core.RequestEvent) error {
	code, err := security.ValidateJoinCode(re.Request.PathValue("code"))
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	status, err := h.roomManager.ValidateJoinCode(code, getSessionCookie(re.Request))
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}
	return re.JSON(http.StatusOK, status)
}

// JoinRoom seats a player in a waiting room by join code.
func (h *RoomHandlers) JoinRoom(re *core.RequestEvent) error {
	var body struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := re.BindBody(&body); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	code, err := security.ValidateJoinCode(body.Code)
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	name, err := security.ValidatePlayerName(body.Name)
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	room, err := h.roomManager.GetRoomByJoinCode(code)
	if err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "Room not found"})
	}
	roomDTO := services.RoomFromRecord(room)
	if roomDTO.IsPlaying() {
		return re.JSON(http.StatusConflict, map[string]string{"error": "Game already in progress"})
	}
	if roomDTO.GamePhase.IsTerminal() {
		return re.JSON(http.StatusConflict, map[string]string{"error": "Game already finished"})
	}

	userID := ""
	if re.Auth != nil {
		userID = re.Auth.Id
	}

	sessionCookie := getSessionCookie(re.Request)
	if sessionCookie != "" {
		// Re-join: same browser session returns the existing seat.
		if existing, err := h.roomManager.GetPlayerBySession(room.Id, sessionCookie); err == nil {
			return re.JSON(http.StatusOK, map[string]any{
				"room":   services.RoomFromRecord(room),
				"player": services.PlayerFromRecord(existing),
			})
		}
	} else {
		sessionCookie = uuid.New().String()
	}

	player, err := h.roomManager.AddPlayer(room.Id, name, false, userID, sessionCookie)
	if err != nil {
		return re.JSON(http.StatusConflict, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	h.hub.BroadcastToRoom(room.Id, &models.WSMessage{
		Type:   models.MsgTypePlayerJoined,
		RoomID: room.Id,
		Payload: map[string]any{
			"playerId": player.Id,
			"name":     player.GetString("name"),
		},
	})
	h.sessions.NotifyRoom(room.Id)

	setSessionCookie(re, sessionCookie)
	return re.JSON(http.StatusCreated, map[string]any{
		"room":   services.RoomFromRecord(room),
		"player": services.PlayerFromRecord(player),
	})
}

// AddAIPlayer seats an AI player. Host only.
func (h *RoomHandlers) AddAIPlayer(re *core.RequestEvent) error {
	roomID := re.Request.PathValue("id")

	player, err := h.requirePlayer(re, roomID)
	if err != nil {
		return re.JSON(http.StatusUnauthorized, map[string]string{"error": "not a player in this room"})
	}
	if !player.GetBool("is_host") {
		return re.JSON(http.StatusForbidden, map[string]string{"error": "only the host can add AI players"})
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := re.BindBody(&body); err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	name, err := security.ValidatePlayerName(body.Name)
	if err != nil {
		return re.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	aiPlayer, err := h.roomManager.AddPlayer(roomID, name, true, "", uuid.New().String())
	if err != nil {
		return re.JSON(http.StatusConflict, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	h.hub.BroadcastToRoom(roomID, &models.WSMessage{
		Type:   models.MsgTypePlayerJoined,
		RoomID: roomID,
		Payload: map[string]any{
			"playerId": aiPlayer.Id,
			"name":     aiPlayer.GetString("name"),
			"isAi":     true,
		},
	})
	h.sessions.NotifyRoom(roomID)

	return re.JSON(http.StatusCreated, map[string]any{"player": services.PlayerFromRecord(aiPlayer)})
}

// RoomState returns a snapshot of the room, its players and, for branded
// rooms, the organization branding.
func (h *RoomHandlers) RoomState(re *core.RequestEvent) error {
	roomID := re.Request.PathValue("id")

	room, err := h.roomManager.GetRoom(roomID)
	if err != nil {
		return re.JSON(http.StatusNotFound, map[string]string{"error": "Room not found"})
	}

	players, err := h.roomManager.ListActivePlayers(roomID)
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	payload := map[string]any{
		"room":    services.RoomFromRecord(room),
		"players": services.PlayersFromRecords(players),
	}

	if orgID := room.GetString("organization_id"); orgID != "" {
		if org, err := h.roomManager.App().FindRecordById("organizations", orgID); err == nil {
			payload["branding"] = services.OrganizationFromRecord(org)
		}
	}

	return re.JSON(http.StatusOK, payload)
}

// ListTopics returns the global topic catalog with each topic's items.
// Authenticated organization users also get their organization's own
// topics. Items carry no ranking; order here is catalog order.
func (h *RoomHandlers) ListTopics(re *core.RequestEvent) error {
	organizationID := ""
	if re.Auth != nil {
		organizationID = re.Auth.GetString("organization_id")
	}

	topics, err := h.roomManager.ListTopics(organizationID)
	if err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	out := make([]map[string]any, 0, len(topics))
	for _, topic := range topics {
		items, err := h.roomManager.ListTopicItems(topic.Id)
		if err != nil {
			return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
		}
		out = append(out, map[string]any{
			"topic": services.TopicFromRecord(topic),
			"items": services.TopicItemsFromRecords(items),
		})
	}

	return re.JSON(http.StatusOK, map[string]any{"topics": out})
}

// StartGame begins play. Host only (enforced by the coordinator).
func (h *RoomHandlers) StartGame(re *core.RequestEvent) error {
	roomID := re.Request.PathValue("id")

	player, err := h.requirePlayer(re, roomID)
	if err != nil {
		return re.JSON(http.StatusUnauthorized, map[string]string{"error": "not a player in this room"})
	}

	if err := h.coordinator.StartGame(roomID, player.Id); err != nil {
		return re.JSON(http.StatusConflict, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	h.metrics.IncrementGamesStarted()
	h.sessions.NotifyRoom(roomID)
	return re.JSON(http.StatusOK, map[string]string{"status": "started"})
}

// NextRound advances out of the scoring phase. Host only.
func (h *RoomHandlers) NextRound(re *core.RequestEvent) error {
	roomID := re.Request.PathValue("id")

	player, err := h.requirePlayer(re, roomID)
	if err != nil {
		return re.JSON(http.StatusUnauthorized, map[string]string{"error": "not a player in this room"})
	}

	var guard *services.TransitionGuard
	if session := h.sessions.GetSession(player.Id); session != nil {
		guard = session.Guard()
	}

	if err := h.coordinator.NextRound(roomID, player.Id, guard); err != nil {
		return re.JSON(http.StatusConflict, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	h.sessions.NotifyRoom(roomID)
	return re.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// LeaveRoom removes the player's seat. Departure side effects (host
// migration, VIP round reset, early termination) run off the delete hook.
func (h *RoomHandlers) LeaveRoom(re *core.RequestEvent) error {
	roomID := re.Request.PathValue("id")

	player, err := h.requirePlayer(re, roomID)
	if err != nil {
		return re.JSON(http.StatusUnauthorized, map[string]string{"error": "not a player in this room"})
	}

	h.sessions.StopSession(player.Id)
	if err := h.roomManager.RemovePlayer(player.Id); err != nil {
		return re.JSON(http.StatusInternalServerError, map[string]string{"error": security.SanitizeErrorMessage(err)})
	}

	h.sessions.NotifyRoom(roomID)
	return re.JSON(http.StatusOK, map[string]string{"status": "left"})
}

func (h *RoomHandlers) requirePlayer(re *core.RequestEvent, roomID string) (*core.Record, error) {
	sessionCookie := getSessionCookie(re.Request)
	if sessionCookie == "" {
		return nil, http.ErrNoCookie
	}
	return h.roomManager.GetPlayerBySession(roomID, sessionCookie)
}
