package services

import (
	"fmt"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/security"
)

// SelectionValidator provides validation for ranked item lists before
// anything is written to storage. Validation failures are rejected
// locally; they never reach the database.
type SelectionValidator struct{}

func NewSelectionValidator() *SelectionValidator {
	return &SelectionValidator{}
}

// ValidateSelection checks a ranked selection: exactly five items,
// no duplicate IDs, and valid names on custom items.
func (v *SelectionValidator) ValidateSelection(items []models.Item) error {
	if len(items) != config.ItemsPerSelection {
		return fmt.Errorf("selection must contain exactly %d items (got %d)", config.ItemsPerSelection, len(items))
	}

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.ID == "" {
			return fmt.Errorf("item is missing an ID")
		}
		if seen[item.ID] {
			return fmt.Errorf("duplicate item in selection: '%s'", item.ID)
		}
		seen[item.ID] = true

		if item.IsCustom() {
			if _, err := security.ValidateItemName(item.Name); err != nil {
				return fmt.Errorf("invalid custom item name: %w", err)
			}
		}
	}

	return nil
}

// ValidateGuessOrder checks a guessed order has the right item count.
// Whether the guess is actually a permutation of the VIP's items is NOT
// enforced; a mismatched guess just scores badly.
func (v *SelectionValidator) ValidateGuessOrder(order []string) error {
	if len(order) != config.ItemsPerSelection {
		return fmt.Errorf("guess must contain exactly %d items (got %d)", config.ItemsPerSelection, len(order))
	}

	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if id == "" {
			return fmt.Errorf("guess contains an empty item ID")
		}
		if seen[id] {
			return fmt.Errorf("duplicate item in guess: '%s'", id)
		}
		seen[id] = true
	}

	return nil
}

// IsPermutationOf reports whether order is a reordering of the given
// items. Used for logging suspicious guesses, never for rejection.
func (v *SelectionValidator) IsPermutationOf(order []string, items []models.Item) bool {
	if len(order) != len(items) {
		return false
	}
	want := make(map[string]bool, len(items))
	for _, it := range items {
		want[it.ID] = true
	}
	for _, id := range order {
		if !want[id] {
			return false
		}
	}
	return true
}
