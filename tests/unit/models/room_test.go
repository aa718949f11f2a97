package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowsyapp/knowsy-server/internal/models"
)

func TestRoom_IsPlaying(t *testing.T) {
	room := &models.Room{Status: models.StatusWaiting, GamePhase: models.PhaseWaiting}
	assert.False(t, room.IsPlaying())

	room.Status = models.StatusPlaying
	room.GamePhase = models.PhaseTopicSelection
	assert.True(t, room.IsPlaying())

	room.GamePhase = models.PhaseScoring
	assert.True(t, room.IsPlaying())

	// A finished room keeps status=playing but is no longer live.
	room.GamePhase = models.PhaseFinished
	assert.False(t, room.IsPlaying())
}
