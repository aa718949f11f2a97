package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		players, err := app.FindCollectionByNameOrId("players")
		if err != nil {
			return err
		}

		players.Fields.Add(&core.BoolField{
			Name: "is_ai",
		})

		return app.Save(players)
	}, func(app core.App) error {
		players, err := app.FindCollectionByNameOrId("players")
		if err != nil {
			return err
		}

		players.Fields.RemoveByName("is_ai")

		return app.Save(players)
	})
}
