package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/services"
)

func TestHubRejectsConnectionsOverRoomCap(t *testing.T) {
	hub := services.NewHub(services.NewMetrics(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	clients := make([]*services.Client, 0, config.MaxConnectionsPerRoom)
	for i := 0; i < config.MaxConnectionsPerRoom; i++ {
		client := services.NewClient(nil, hub, "room1", fmt.Sprintf("player-%d", i), nil)
		clients = append(clients, client)
		hub.Register(client)
	}

	over := services.NewClient(nil, hub, "room1", "one-too-many", nil)
	hub.Register(over)

	// The rejected connection is closed, so queuing sends to it fails.
	assert.Eventually(t, func() bool {
		return !over.Send([]byte("{}"))
	}, 2*time.Second, 10*time.Millisecond)

	// Connections under the cap stay open.
	assert.True(t, clients[0].Send([]byte("{}")))
	assert.True(t, clients[len(clients)-1].Send([]byte("{}")))
}

func TestHubFreesRoomSlotOnUnregister(t *testing.T) {
	hub := services.NewHub(services.NewMetrics(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	clients := make([]*services.Client, 0, config.MaxConnectionsPerRoom)
	for i := 0; i < config.MaxConnectionsPerRoom; i++ {
		client := services.NewClient(nil, hub, "room1", fmt.Sprintf("player-%d", i), nil)
		clients = append(clients, client)
		hub.Register(client)
	}
	hub.Unregister(clients[0])

	replacement := services.NewClient(nil, hub, "room1", "replacement", nil)
	hub.Register(replacement)

	// The freed slot admits the new connection, which therefore never
	// gets closed.
	assert.Never(t, func() bool {
		return !replacement.Send([]byte("{}"))
	}, 300*time.Millisecond, 50*time.Millisecond)
}
