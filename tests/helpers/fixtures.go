package helpers

import (
	"fmt"
	"testing"

	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/services"
)

// SetupTestApp creates a test PocketBase app with the game schema and
// returns it with a cleanup function.
func SetupTestApp(t *testing.T) (core.App, func()) {
	t.Helper()
	ts := NewTestServer(t)
	return ts.App, ts.Cleanup
}

// CreateTestRoom creates a room record directly through the room manager.
func CreateTestRoom(t *testing.T, app core.App, totalRounds int) *core.Record {
	t.Helper()

	rm := services.NewRoomManager(app)
	record, err := rm.CreateRoom("", totalRounds)
	if err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}
	return record
}

// CreateTestRoomWithPlayers creates a room and seats playerCount human
// players. The first seated player is the host. Returns the room ID and
// the player IDs in join order.
func CreateTestRoomWithPlayers(t *testing.T, app core.App, playerCount, totalRounds int) (string, []string) {
	t.Helper()

	room := CreateTestRoom(t, app, totalRounds)
	rm := services.NewRoomManager(app)

	playerIDs := make([]string, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		name := fmt.Sprintf("Player%d", i+1)
		sessionCookie := fmt.Sprintf("session-%d", i+1)
		player, err := rm.AddPlayer(room.Id, name, false, "", sessionCookie)
		if err != nil {
			t.Fatalf("Failed to add player %s: %v", name, err)
		}
		playerIDs = append(playerIDs, player.Id)
	}

	return room.Id, playerIDs
}

// CatalogItems returns n distinct catalog items for a ranked selection.
func CatalogItems(n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			ID:   fmt.Sprintf("item0000%06d", i+1),
			Name: fmt.Sprintf("Item %d", i+1),
			Kind: models.ItemKindCatalog,
		}
	}
	return items
}

// SubmitAllSelections submits a 5-item ranked list for every given player
// in the room's current round.
func SubmitAllSelections(t *testing.T, gc *services.GameCoordinator, roomID string, playerIDs []string) {
	t.Helper()

	for _, playerID := range playerIDs {
		if _, err := gc.SubmitSelection(roomID, playerID, "", CatalogItems(5)); err != nil {
			t.Fatalf("Failed to submit selection for %s: %v", playerID, err)
		}
	}
}

// CreateTestWSMessage creates a WebSocket message for tests.
func CreateTestWSMessage(msgType string, payload map[string]interface{}) *models.WSMessage {
	return &models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}
