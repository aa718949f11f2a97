package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knowsyapp/knowsy-server/internal/models"
	"github.com/knowsyapp/knowsy-server/internal/services"
)

func catalogItems(ids ...string) []models.Item {
	items := make([]models.Item, len(ids))
	for i, id := range ids {
		items[i] = models.Item{ID: id, Name: "Item " + id, Kind: models.ItemKindCatalog}
	}
	return items
}

func TestSelectionValidator_ValidateSelection(t *testing.T) {
	v := services.NewSelectionValidator()

	tests := []struct {
		name    string
		items   []models.Item
		wantErr bool
	}{
		{
			"five distinct catalog items",
			catalogItems("a", "b", "c", "d", "e"),
			false,
		},
		{
			"too few items",
			catalogItems("a", "b", "c", "d"),
			true,
		},
		{
			"too many items",
			catalogItems("a", "b", "c", "d", "e", "f"),
			true,
		},
		{
			"duplicate item id",
			catalogItems("a", "b", "c", "d", "a"),
			true,
		},
		{
			"empty item id",
			catalogItems("a", "b", "c", "d", ""),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSelection(tt.items)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectionValidator_CustomItemNames(t *testing.T) {
	v := services.NewSelectionValidator()

	valid := catalogItems("a", "b", "c", "d")
	valid = append(valid, models.Item{ID: "custom-1", Name: "Grandma's Lasagna", Kind: models.ItemKindCustom})
	assert.NoError(t, v.ValidateSelection(valid))

	injected := catalogItems("a", "b", "c", "d")
	injected = append(injected, models.Item{ID: "custom-2", Name: "<script>alert(1)</script>", Kind: models.ItemKindCustom})
	assert.Error(t, v.ValidateSelection(injected))

	// Catalog item names are not validated; they come from our own data.
	catalogWeird := catalogItems("a", "b", "c", "d")
	catalogWeird = append(catalogWeird, models.Item{ID: "e", Name: "Ben & Jerry's", Kind: models.ItemKindCatalog})
	assert.NoError(t, v.ValidateSelection(catalogWeird))
}

func TestSelectionValidator_ValidateGuessOrder(t *testing.T) {
	v := services.NewSelectionValidator()

	assert.NoError(t, v.ValidateGuessOrder([]string{"a", "b", "c", "d", "e"}))
	assert.Error(t, v.ValidateGuessOrder([]string{"a", "b", "c"}))
	assert.Error(t, v.ValidateGuessOrder([]string{"a", "b", "c", "d", "a"}))
	assert.Error(t, v.ValidateGuessOrder([]string{"a", "b", "c", "d", ""}))
}

func TestSelectionValidator_IsPermutationOf(t *testing.T) {
	v := services.NewSelectionValidator()
	items := catalogItems("a", "b", "c", "d", "e")

	assert.True(t, v.IsPermutationOf([]string{"e", "d", "c", "b", "a"}, items))
	assert.False(t, v.IsPermutationOf([]string{"a", "b", "c", "d", "x"}, items))
	assert.False(t, v.IsPermutationOf([]string{"a", "b", "c", "d"}, items))
}
