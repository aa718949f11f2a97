package services

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"

	"github.com/knowsyapp/knowsy-server/internal/models"
)

// RoomFromRecord maps a rooms record to its DTO for broadcasting.
func RoomFromRecord(record *core.Record) *models.Room {
	return &models.Room{
		ID:             record.Id,
		JoinCode:       record.GetString("join_code"),
		Status:         models.RoomStatus(record.GetString("status")),
		GamePhase:      models.GamePhase(record.GetString("game_phase")),
		CurrentRound:   record.GetInt("current_round"),
		TotalRounds:    record.GetInt("total_rounds"),
		CurrentVIPID:   record.GetString("current_vip_id"),
		VIPsCompleted:  record.GetInt("vips_completed"),
		OrganizationID: record.GetString("organization_id"),
		CreatedAt:      record.GetDateTime("created").Time(),
		LastActivity:   record.GetDateTime("last_activity").Time(),
	}
}

// PlayerFromRecord maps a players record to its DTO.
func PlayerFromRecord(record *core.Record) *models.Player {
	return &models.Player{
		ID:        record.Id,
		RoomID:    record.GetString("room_id"),
		Name:      record.GetString("name"),
		Score:     record.GetInt("score"),
		IsHost:    record.GetBool("is_host"),
		IsAI:      record.GetBool("is_ai"),
		UserID:    record.GetString("user_id"),
		Connected: record.GetBool("connected"),
		JoinedAt:  record.GetDateTime("joined_at").Time(),
		LastSeen:  record.GetDateTime("last_seen").Time(),
	}
}

// PlayersFromRecords maps a slice of players records.
func PlayersFromRecords(records []*core.Record) []*models.Player {
	players := make([]*models.Player, len(records))
	for i, r := range records {
		players[i] = PlayerFromRecord(r)
	}
	return players
}

// SelectionFromRecord maps a selections record, including its decoded
// item list, to its DTO. Broadcast only once the round's guessing is
// over; the ordered list is the round's answer.
func SelectionFromRecord(record *core.Record) (*models.Selection, error) {
	items, err := SelectionItems(record)
	if err != nil {
		return nil, err
	}
	return &models.Selection{
		ID:           record.Id,
		PlayerID:     record.GetString("player_id"),
		RoomID:       record.GetString("room_id"),
		Round:        record.GetInt("round"),
		TopicID:      record.GetString("topic_id"),
		OrderedItems: items,
		CreatedAt:    record.GetDateTime("created").Time(),
	}, nil
}

// GuessFromRecord maps a guesses record to its DTO.
func GuessFromRecord(record *core.Record) *models.Guess {
	var order []string
	_ = json.Unmarshal([]byte(record.GetString("guessed_order")), &order)
	return &models.Guess{
		ID:           record.Id,
		PlayerID:     record.GetString("player_id"),
		RoomID:       record.GetString("room_id"),
		Round:        record.GetInt("round"),
		VIPPlayerID:  record.GetString("vip_player_id"),
		GuessedOrder: order,
		Score:        record.GetInt("score"),
		CreatedAt:    record.GetDateTime("created").Time(),
	}
}

// GuessesFromRecords maps a slice of guesses records.
func GuessesFromRecords(records []*core.Record) []*models.Guess {
	guesses := make([]*models.Guess, len(records))
	for i, r := range records {
		guesses[i] = GuessFromRecord(r)
	}
	return guesses
}

// TopicFromRecord maps a topics record to its DTO.
func TopicFromRecord(record *core.Record) *models.Topic {
	return &models.Topic{
		ID:             record.Id,
		Name:           record.GetString("name"),
		OrganizationID: record.GetString("organization_id"),
	}
}

// TopicItemsFromRecords maps topic_items records to catalog items.
func TopicItemsFromRecords(records []*core.Record) []models.Item {
	items := make([]models.Item, len(records))
	for i, r := range records {
		items[i] = models.Item{
			ID:       r.Id,
			Name:     r.GetString("name"),
			ImageURL: r.GetString("image_url"),
			Kind:     models.ItemKindCatalog,
		}
	}
	return items
}

// OrganizationFromRecord maps an organizations record to the branding
// capability object handed to the coordinator.
func OrganizationFromRecord(record *core.Record) *models.Organization {
	if record == nil {
		return nil
	}
	return &models.Organization{
		ID:           record.Id,
		Name:         record.GetString("name"),
		Slug:         record.GetString("slug"),
		LogoURL:      record.GetString("logo_url"),
		PrimaryColor: record.GetString("primary_color"),
	}
}
