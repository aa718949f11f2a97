package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowsyapp/knowsy-server/internal/models"
)

func TestItem_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind models.ItemKind
	}{
		{
			"tagged catalog item",
			`{"id":"abc123def456ghi","name":"Pancakes","kind":"catalog"}`,
			models.ItemKindCatalog,
		},
		{
			"tagged custom item",
			`{"id":"0b7cdd41-9c2e-4a6f-8f2d-111111111111","name":"My Thing","kind":"custom"}`,
			models.ItemKindCustom,
		},
		{
			"legacy custom prefix",
			`{"id":"custom-42","name":"Old Client Item"}`,
			models.ItemKindCustom,
		},
		{
			"legacy isCustom flag",
			`{"id":"whatever","name":"Flagged","isCustom":true}`,
			models.ItemKindCustom,
		},
		{
			"untagged defaults to catalog",
			`{"id":"abc123def456ghi","name":"Bacon"}`,
			models.ItemKindCatalog,
		},
		{
			"explicit tag wins over legacy prefix",
			`{"id":"custom-9","name":"Tagged Anyway","kind":"catalog"}`,
			models.ItemKindCatalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item models.Item
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &item))
			assert.Equal(t, tt.wantKind, item.Kind)
			assert.Equal(t, tt.wantKind == models.ItemKindCustom, item.IsCustom())
		})
	}
}

func TestItemIDs(t *testing.T) {
	items := []models.Item{
		{ID: "c", Name: "Third"},
		{ID: "a", Name: "First"},
		{ID: "b", Name: "Second"},
	}
	assert.Equal(t, []string{"c", "a", "b"}, models.ItemIDs(items))
	assert.Empty(t, models.ItemIDs(nil))
}
