package services

// Scoring weights for a guessed ranking compared position-by-position
// against the VIP's true ranking.
const (
	scoreEndpointMatch = 2 // exact match on favorite (rank 1) or least-favorite (rank 5)
	scoreMiddleMatch   = 1 // exact match on ranks 2-4
	scorePerfectBonus  = 3 // all five positions match
	scoreZeroPenalty   = -1
)

// ScoreGuess computes the round score for a guessed order against the
// VIP's true order. Both slices are item IDs in rank order. The penalty
// for zero matches can make the result negative; totals are deliberately
// never clamped.
//
// A guess that is not a permutation of the VIP's items simply scores
// whatever its positional matches are worth; it is not rejected here.
func ScoreGuess(vipOrder, guessedOrder []string) int {
	matches := 0
	score := 0

	for i := 0; i < len(vipOrder) && i < len(guessedOrder); i++ {
		if vipOrder[i] != guessedOrder[i] {
			continue
		}
		matches++
		if i == 0 || i == len(vipOrder)-1 {
			score += scoreEndpointMatch
		} else {
			score += scoreMiddleMatch
		}
	}

	if matches == len(vipOrder) && matches > 0 {
		score += scorePerfectBonus
	}
	if matches == 0 {
		score = scoreZeroPenalty
	}

	return score
}
