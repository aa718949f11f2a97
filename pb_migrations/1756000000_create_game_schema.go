package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		// organizations collection (white-label branding)
		organizations := core.NewBaseCollection("organizations")
		organizations.ListRule = nil
		organizations.ViewRule = nil
		organizations.CreateRule = nil
		organizations.UpdateRule = nil
		organizations.DeleteRule = nil

		organizations.Fields.Add(&core.TextField{
			Name:     "name",
			Required: true,
			Max:      100,
		})
		organizations.Fields.Add(&core.TextField{
			Name:     "slug",
			Required: true,
			Max:      50,
		})
		organizations.Fields.Add(&core.URLField{
			Name: "logo_url",
		})
		organizations.Fields.Add(&core.TextField{
			Name: "primary_color",
			Max:  16,
		})

		organizations.Indexes = []string{
			"CREATE UNIQUE INDEX idx_orgs_slug ON organizations(slug)",
		}

		if err := app.Save(organizations); err != nil {
			return err
		}

		// rooms collection
		rooms := core.NewBaseCollection("rooms")
		rooms.ListRule = nil
		rooms.ViewRule = nil
		rooms.CreateRule = nil
		rooms.UpdateRule = nil
		rooms.DeleteRule = nil

		rooms.Fields.Add(&core.TextField{
			Name:     "join_code",
			Required: true,
			Max:      8,
		})
		rooms.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"waiting", "playing"},
		})
		rooms.Fields.Add(&core.SelectField{
			Name:      "game_phase",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"waiting", "topic_selection", "guessing", "scoring", "finished"},
		})
		rooms.Fields.Add(&core.NumberField{
			Name:    "current_round",
			OnlyInt: true,
		})
		rooms.Fields.Add(&core.NumberField{
			Name:     "total_rounds",
			Required: true,
			OnlyInt:  true,
		})
		// plain id column; a relation here would be circular with players
		rooms.Fields.Add(&core.TextField{
			Name: "current_vip_id",
			Max:  36,
		})
		rooms.Fields.Add(&core.NumberField{
			Name:    "vips_completed",
			OnlyInt: true,
		})
		rooms.Fields.Add(&core.RelationField{
			Name:          "organization_id",
			MaxSelect:     1,
			CollectionId:  organizations.Id,
			CascadeDelete: false,
		})
		rooms.Fields.Add(&core.DateField{
			Name:     "last_activity",
			Required: true,
		})

		rooms.Indexes = []string{
			"CREATE UNIQUE INDEX idx_rooms_join_code ON rooms(join_code)",
			"CREATE INDEX idx_rooms_activity ON rooms(last_activity)",
		}

		if err := app.Save(rooms); err != nil {
			return err
		}

		// players collection
		players := core.NewBaseCollection("players")
		players.ListRule = nil
		players.ViewRule = nil
		players.CreateRule = nil
		players.UpdateRule = nil
		players.DeleteRule = nil

		players.Fields.Add(&core.RelationField{
			Name:          "room_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  rooms.Id,
			CascadeDelete: true,
		})
		players.Fields.Add(&core.TextField{
			Name:     "name",
			Required: true,
			Max:      50,
		})
		players.Fields.Add(&core.NumberField{
			Name:    "score",
			OnlyInt: true,
		})
		players.Fields.Add(&core.BoolField{
			Name: "is_host",
		})
		players.Fields.Add(&core.TextField{
			Name: "user_id",
			Max:  36,
		})
		players.Fields.Add(&core.TextField{
			Name: "session_cookie",
			Max:  64,
		})
		players.Fields.Add(&core.BoolField{
			Name: "connected",
		})
		players.Fields.Add(&core.DateField{
			Name:     "joined_at",
			Required: true,
		})
		players.Fields.Add(&core.DateField{
			Name: "last_seen",
		})

		players.Indexes = []string{
			"CREATE INDEX idx_players_room ON players(room_id)",
			"CREATE INDEX idx_players_session ON players(room_id, session_cookie)",
		}

		if err := app.Save(players); err != nil {
			return err
		}

		// topics collection (item catalogs; organization_id empty = global)
		topics := core.NewBaseCollection("topics")
		topics.ListRule = nil
		topics.ViewRule = nil
		topics.CreateRule = nil
		topics.UpdateRule = nil
		topics.DeleteRule = nil

		topics.Fields.Add(&core.TextField{
			Name:     "name",
			Required: true,
			Max:      100,
		})
		topics.Fields.Add(&core.RelationField{
			Name:          "organization_id",
			MaxSelect:     1,
			CollectionId:  organizations.Id,
			CascadeDelete: true,
		})

		if err := app.Save(topics); err != nil {
			return err
		}

		// topic_items collection
		topicItems := core.NewBaseCollection("topic_items")
		topicItems.ListRule = nil
		topicItems.ViewRule = nil
		topicItems.CreateRule = nil
		topicItems.UpdateRule = nil
		topicItems.DeleteRule = nil

		topicItems.Fields.Add(&core.RelationField{
			Name:          "topic_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  topics.Id,
			CascadeDelete: true,
		})
		topicItems.Fields.Add(&core.TextField{
			Name:     "name",
			Required: true,
			Max:      80,
		})
		topicItems.Fields.Add(&core.URLField{
			Name: "image_url",
		})

		topicItems.Indexes = []string{
			"CREATE INDEX idx_topic_items_topic ON topic_items(topic_id)",
		}

		if err := app.Save(topicItems); err != nil {
			return err
		}

		// selections collection (insert-only, one per player per round)
		selections := core.NewBaseCollection("selections")
		selections.ListRule = nil
		selections.ViewRule = nil
		selections.CreateRule = nil
		selections.UpdateRule = nil
		selections.DeleteRule = nil

		selections.Fields.Add(&core.RelationField{
			Name:          "player_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  players.Id,
			CascadeDelete: true,
		})
		selections.Fields.Add(&core.RelationField{
			Name:          "room_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  rooms.Id,
			CascadeDelete: true,
		})
		selections.Fields.Add(&core.NumberField{
			Name:     "round",
			Required: true,
			OnlyInt:  true,
		})
		selections.Fields.Add(&core.RelationField{
			Name:          "topic_id",
			MaxSelect:     1,
			CollectionId:  topics.Id,
			CascadeDelete: false,
		})
		selections.Fields.Add(&core.JSONField{
			Name:     "ordered_items",
			Required: true,
			MaxSize:  8192,
		})

		selections.Indexes = []string{
			"CREATE UNIQUE INDEX idx_selections_player_round ON selections(player_id, room_id, round)",
			"CREATE INDEX idx_selections_room_round ON selections(room_id, round)",
		}

		if err := app.Save(selections); err != nil {
			return err
		}

		// guesses collection; the unique index is the real double-submit guard
		guesses := core.NewBaseCollection("guesses")
		guesses.ListRule = nil
		guesses.ViewRule = nil
		guesses.CreateRule = nil
		guesses.UpdateRule = nil
		guesses.DeleteRule = nil

		guesses.Fields.Add(&core.RelationField{
			Name:          "player_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  players.Id,
			CascadeDelete: true,
		})
		guesses.Fields.Add(&core.RelationField{
			Name:          "room_id",
			Required:      true,
			MaxSelect:     1,
			CollectionId:  rooms.Id,
			CascadeDelete: true,
		})
		guesses.Fields.Add(&core.NumberField{
			Name:     "round",
			Required: true,
			OnlyInt:  true,
		})
		guesses.Fields.Add(&core.TextField{
			Name:     "vip_player_id",
			Required: true,
			Max:      36,
		})
		guesses.Fields.Add(&core.JSONField{
			Name:     "guessed_order",
			Required: true,
			MaxSize:  2048,
		})
		guesses.Fields.Add(&core.NumberField{
			Name:    "score",
			OnlyInt: true,
		})

		guesses.Indexes = []string{
			"CREATE UNIQUE INDEX idx_guesses_player_round_vip ON guesses(player_id, room_id, round, vip_player_id)",
			"CREATE INDEX idx_guesses_room_round ON guesses(room_id, round, vip_player_id)",
		}

		return app.Save(guesses)
	}, func(app core.App) error {
		for _, name := range []string{"guesses", "selections", "topic_items", "topics", "players", "rooms", "organizations"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				continue
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
