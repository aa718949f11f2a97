package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowsyapp/knowsy-server/internal/services"
)

func TestScoreGuess(t *testing.T) {
	vip := []string{"A", "B", "C", "D", "E"}

	tests := []struct {
		name  string
		guess []string
		want  int
	}{
		{
			"perfect order scores endpoints, middles and bonus",
			[]string{"A", "B", "C", "D", "E"},
			10, // 2 + 1 + 1 + 1 + 2 + 3
		},
		{
			"rotation matches nothing and takes the penalty",
			[]string{"B", "C", "D", "E", "A"},
			-1,
		},
		{
			"full reversal keeps the middle item in place",
			[]string{"E", "D", "C", "B", "A"},
			1,
		},
		{
			"only the favorite matches",
			[]string{"A", "X1", "X2", "X3", "X4"},
			2,
		},
		{
			"only the least favorite matches",
			[]string{"X1", "X2", "X3", "X4", "E"},
			2,
		},
		{
			"single middle match",
			[]string{"X1", "B", "X2", "X3", "X4"},
			1,
		},
		{
			"both endpoints without middles",
			[]string{"A", "X1", "X2", "X3", "E"},
			4,
		},
		{
			"swapped tail loses both endpoint bonus chances",
			[]string{"A", "B", "C", "E", "D"},
			4, // 2 + 1 + 1
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.ScoreGuess(vip, tt.guess))
		})
	}
}

func TestScoreGuess_EmptyInputs(t *testing.T) {
	// Degenerate inputs fall under the zero-matches rule.
	assert.Equal(t, -1, services.ScoreGuess([]string{"A"}, []string{"B"}))
	assert.Equal(t, -1, services.ScoreGuess([]string{"A", "B"}, nil))
}

func TestScoreGuess_ShorterGuessStillScoresMatchedPositions(t *testing.T) {
	vip := []string{"A", "B", "C", "D", "E"}
	// Positions beyond the guess length simply cannot match.
	assert.Equal(t, 3, services.ScoreGuess(vip, []string{"A", "B"}))
}
