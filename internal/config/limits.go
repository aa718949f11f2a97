package config

import "time"

// Game timing
const (
	// PollInterval is the fixed-interval fallback that re-checks room state
	// even when a realtime notification was dropped.
	PollInterval = 2 * time.Second

	// TopicSelectionTimeout removes a player who never submits a ranking.
	TopicSelectionTimeout = 150 * time.Second

	// GuessingTimeout auto-submits whatever order the player has staged.
	// Unlike topic selection, the player is NOT removed.
	GuessingTimeout = 60 * time.Second

	// HostMigrationGrace is how long clients keep the migration overlay up
	// before the new-host broadcast is expected.
	HostMigrationGrace = 5 * time.Second
)

// Game shape
const (
	ItemsPerSelection  = 5
	MinPlayersToStart  = 2
	MaxPlayersPerRoom  = 12
	DefaultTotalRounds = 5
	JoinCodeLength     = 6
)

// WebSocket connection limits and constraints
const (
	MaxConnectionsPerRoom = 50
	MaxRoomsPerInstance   = 1000
	MaxTotalConnections   = 10000

	// Rate limiting
	MaxMessagesPerSecond = 10
	RateLimitWindow      = time.Second

	// Timeouts
	WriteTimeout = 10 * time.Second
	PingInterval = 30 * time.Second
	PongTimeout  = 90 * time.Second // 3x ping interval for network delay tolerance

	// Channel buffers
	ClientSendBufferSize   = 256
	HubBroadcastBufferSize = 256
)

// AI player invocation
const (
	AIInvokeTimeout     = 15 * time.Second
	AIInvokeMaxElapsed  = 45 * time.Second
	AIInvokeInitialWait = 500 * time.Millisecond
)
