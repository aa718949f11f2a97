package integration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/tests/helpers"
)

func TestVIPDepartureDiscardsRound(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 4, 5)
	vipID := env.advanceToGuessing(t, roomID, playerIDs)

	departPlayer(t, env, roomID, vipID)

	room, err := env.rm.GetRoom(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseTopicSelection, models.GamePhase(room.GetString("game_phase")))
	assert.Equal(t, 2, room.GetInt("current_round"))
	assert.Empty(t, room.GetString("current_vip_id"))

	// The skipped round does not count toward the planned total.
	assert.Equal(t, 0, room.GetInt("vips_completed"))
	assert.NotEmpty(t, env.bus.MessagesOfType(models.MsgTypeRoundReset))
}

func TestNonVIPDepartureKeepsRound(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 4, 5)
	vipID := env.advanceToGuessing(t, roomID, playerIDs)

	var bystander string
	for _, id := range playerIDs[1:] {
		if id != vipID {
			bystander = id
			break
		}
	}
	require.NotEmpty(t, bystander)

	departPlayer(t, env, roomID, bystander)

	room, err := env.rm.GetRoom(roomID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGuessing, models.GamePhase(room.GetString("game_phase")))
	assert.Equal(t, 1, room.GetInt("current_round"))
	assert.Equal(t, vipID, room.GetString("current_vip_id"))
	assert.Empty(t, env.bus.MessagesOfType(models.MsgTypeRoundReset))
}

func TestDepartureShrinksGuessingDenominator(t *testing.T) {
	env := newGameEnv(t)
	defer env.cleanup()

	roomID, playerIDs := helpers.CreateTestRoomWithPlayers(t, env.app, 4, 5)
	hostID := playerIDs[0]
	vipID := env.advanceToGuessing(t, roomID, playerIDs)

	nonVIPs := make([]string, 0, 3)
	for _, id := range playerIDs {
		if id != vipID {
			nonVIPs = append(nonVIPs, id)
		}
	}

	// Two of three non-VIPs guess; the third leaves instead. If the host
	// left, migration keeps a host seat so the advance still happens.
	_, _, err := env.gc.SubmitGuess(roomID, nonVIPs[0], models.ItemIDs(helpers.CatalogItems(5)))
	require.NoError(t, err)
	_, _, err = env.gc.SubmitGuess(roomID, nonVIPs[1], models.ItemIDs(helpers.CatalogItems(5)))
	require.NoError(t, err)

	require.NoError(t, env.gc.Reconcile(roomID, hostID, nil))
	require.Equal(t, models.PhaseGuessing, env.roomPhase(t, roomID))

	departPlayer(t, env, roomID, nonVIPs[2])

	// The denominator recomputes from current players: 3 - VIP = 2
	// guesses needed, both present.
	hosts := listHosts(t, env.app, roomID)
	require.Len(t, hosts, 1)
	require.NoError(t, env.gc.Reconcile(roomID, hosts[0].Id, nil))
	assert.Equal(t, models.PhaseScoring, env.roomPhase(t, roomID))
}
