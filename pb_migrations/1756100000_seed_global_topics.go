package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Default catalog available to every room. Organizations layer their own
// topics on top of these.
var defaultTopics = map[string][]string{
	"Breakfast Foods": {
		"Pancakes", "Scrambled Eggs", "Bacon", "Oatmeal", "French Toast",
		"Bagels", "Cereal", "Waffles", "Yogurt Parfait", "Breakfast Burrito",
	},
	"Vacation Destinations": {
		"Paris", "Tokyo", "Hawaii", "Rome", "Bali",
		"New York", "Iceland", "Barcelona", "Sydney", "Cancun",
	},
	"Movie Genres": {
		"Action", "Comedy", "Horror", "Romance", "Documentary",
		"Science Fiction", "Animation", "Thriller", "Musical", "Western",
	},
	"Pizza Toppings": {
		"Pepperoni", "Mushrooms", "Pineapple", "Olives", "Sausage",
		"Extra Cheese", "Onions", "Anchovies", "Bell Peppers", "Jalapenos",
	},
	"Weekend Activities": {
		"Hiking", "Brunch", "Video Games", "Reading", "Farmers Market",
		"Movie Marathon", "Board Games", "Gardening", "Road Trip", "Sleeping In",
	},
	"Superpowers": {
		"Flight", "Invisibility", "Time Travel", "Telepathy", "Super Strength",
		"Teleportation", "Healing", "Shapeshifting", "X-Ray Vision", "Immortality",
	},
}

func init() {
	m.Register(func(app core.App) error {
		topicsCollection, err := app.FindCollectionByNameOrId("topics")
		if err != nil {
			return err
		}
		itemsCollection, err := app.FindCollectionByNameOrId("topic_items")
		if err != nil {
			return err
		}

		for name, items := range defaultTopics {
			topic := core.NewRecord(topicsCollection)
			topic.Set("name", name)
			if err := app.Save(topic); err != nil {
				return err
			}

			for _, itemName := range items {
				item := core.NewRecord(itemsCollection)
				item.Set("topic_id", topic.Id)
				item.Set("name", itemName)
				if err := app.Save(item); err != nil {
					return err
				}
			}
		}

		return nil
	}, func(app core.App) error {
		records, err := app.FindRecordsByFilter("topics", "organization_id = ''", "", 0, 0)
		if err != nil {
			return err
		}
		for _, record := range records {
			if err := app.Delete(record); err != nil {
				return err
			}
		}
		return nil
	})
}
