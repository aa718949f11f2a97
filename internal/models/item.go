package models

import (
	"encoding/json"
	"strings"
)

// ItemKind distinguishes catalog-backed items from freeform custom items.
// Older clients encoded this as a "custom-" prefix on the item ID; the
// explicit tag replaces that string sniffing.
type ItemKind string

const (
	ItemKindCatalog ItemKind = "catalog"
	ItemKindCustom  ItemKind = "custom"
)

// Item is one entry in a ranked 5-item list. Catalog items reference a
// topic_items row; custom items exist only inside the selection that
// created them.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url,omitempty"`
	Kind     ItemKind `json:"kind"`
}

// IsCustom reports whether the item is a freeform custom item.
func (i Item) IsCustom() bool {
	return i.Kind == ItemKindCustom
}

// UnmarshalJSON accepts both the tagged form and the legacy form where
// custom items were identified only by a "custom-" ID prefix or an
// isCustom boolean.
func (i *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	aux := struct {
		*alias
		IsCustom bool `json:"isCustom"`
	}{alias: (*alias)(i)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if i.Kind == "" {
		if aux.IsCustom || strings.HasPrefix(i.ID, "custom-") {
			i.Kind = ItemKindCustom
		} else {
			i.Kind = ItemKindCatalog
		}
	}
	return nil
}

// ItemIDs extracts the IDs of items in rank order.
func ItemIDs(items []Item) []string {
	ids := make([]string, len(items))
	for n, it := range items {
		ids[n] = it.ID
	}
	return ids
}
