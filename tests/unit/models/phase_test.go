package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowsyapp/knowsy-server/internal/models"
)

func TestGamePhase_Next(t *testing.T) {
	assert.Equal(t, models.PhaseTopicSelection, models.PhaseWaiting.Next())
	assert.Equal(t, models.PhaseGuessing, models.PhaseTopicSelection.Next())
	assert.Equal(t, models.PhaseScoring, models.PhaseGuessing.Next())
	// Scoring loops back; round bookkeeping decides finished vs next round.
	assert.Equal(t, models.PhaseTopicSelection, models.PhaseScoring.Next())
	assert.Equal(t, models.PhaseFinished, models.PhaseFinished.Next())
}

func TestGamePhase_IsTerminal(t *testing.T) {
	assert.True(t, models.PhaseFinished.IsTerminal())
	assert.False(t, models.PhaseWaiting.IsTerminal())
	assert.False(t, models.PhaseScoring.IsTerminal())
}

func TestGamePhase_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from models.GamePhase
		to   models.GamePhase
		want bool
	}{
		{"waiting to topic selection", models.PhaseWaiting, models.PhaseTopicSelection, true},
		{"topic selection to guessing", models.PhaseTopicSelection, models.PhaseGuessing, true},
		{"guessing to scoring", models.PhaseGuessing, models.PhaseScoring, true},
		{"scoring back to topic selection", models.PhaseScoring, models.PhaseTopicSelection, true},
		{"no skipping ahead", models.PhaseTopicSelection, models.PhaseScoring, false},
		{"no going backwards", models.PhaseGuessing, models.PhaseTopicSelection, false},
		{"early termination from waiting", models.PhaseWaiting, models.PhaseFinished, true},
		{"early termination from guessing", models.PhaseGuessing, models.PhaseFinished, true},
		{"finished is terminal", models.PhaseFinished, models.PhaseTopicSelection, false},
		{"finished cannot re-finish", models.PhaseFinished, models.PhaseFinished, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestGamePhase_IsValid(t *testing.T) {
	assert.True(t, models.PhaseGuessing.IsValid())
	assert.False(t, models.GamePhase("intermission").IsValid())
	assert.False(t, models.GamePhase("").IsValid())
}
