package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"

	"github.com/knowsyapp/knowsy-server/internal/handlers"
	"github.com/knowsyapp/knowsy-server/internal/security"
	"github.com/knowsyapp/knowsy-server/internal/services"
	"github.com/knowsyapp/knowsy-server/utils"

	_ "github.com/knowsyapp/knowsy-server/pb_migrations"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	cfg := utils.LoadConfig()

	app := pocketbase.New()

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	ctx, cancel := context.WithCancel(context.Background())

	metrics := services.NewMetrics()
	hub := services.NewHub(metrics, logger)
	roomManager := services.NewRoomManager(app)
	authority := services.NewHostAuthority(roomManager)
	aiService := services.NewAIService(cfg.AIServiceURL, cfg.AIServiceToken, logger)
	coordinator := services.NewGameCoordinator(roomManager, authority, hub, aiService, metrics, logger)
	sessions := services.NewSessionManager(ctx, coordinator, roomManager, services.DefaultSessionConfig(), logger)
	origins := security.NewOriginValidator(cfg.AllowedOrigins)

	roomHandlers := handlers.NewRoomHandlers(roomManager, coordinator, sessions, hub, metrics)
	wsHandler := handlers.NewWSHandler(hub, roomManager, coordinator, sessions, origins, logger)
	metricsHandler := handlers.NewMetricsHandler(metrics, cfg.MetricsToken)

	// Fresh selection and guess rows wake every session in the room so
	// completion counts are recomputed without waiting for the next poll.
	app.OnRecordAfterCreateSuccess("selections").BindFunc(func(e *core.RecordEvent) error {
		sessions.NotifyRoom(e.Record.GetString("room_id"))
		return e.Next()
	})
	app.OnRecordAfterCreateSuccess("guesses").BindFunc(func(e *core.RecordEvent) error {
		sessions.NotifyRoom(e.Record.GetString("room_id"))
		return e.Next()
	})

	// Seat deletion is the single departure mechanism. Every removal path
	// (leave, kick, admin delete) converges here.
	app.OnRecordAfterDeleteSuccess("players").BindFunc(func(e *core.RecordEvent) error {
		departed := services.PlayerFromRecord(e.Record)
		if err := coordinator.HandlePlayerDeparture(departed.RoomID, departed); err != nil {
			logger.Error("player departure handling failed",
				"room", departed.RoomID, "player", departed.ID, "error", err)
		}
		sessions.NotifyRoom(departed.RoomID)
		return e.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		go hub.Run(ctx)

		g := se.Router.Group("/api/knowsy")
		g.Bind(utils.AuthCookieMiddleware())
		g.POST("/rooms", roomHandlers.CreateRoom)
		g.POST("/rooms/join", roomHandlers.JoinRoom)
		g.GET("/rooms/code/{code}", roomHandlers.ValidateJoinCode)
		g.GET("/topics", roomHandlers.ListTopics)
		g.GET("/rooms/{id}", roomHandlers.RoomState)
		g.POST("/rooms/{id}/ai-players", roomHandlers.AddAIPlayer)
		g.POST("/rooms/{id}/start", roomHandlers.StartGame)
		g.POST("/rooms/{id}/next-round", roomHandlers.NextRound)
		g.POST("/rooms/{id}/leave", roomHandlers.LeaveRoom)

		se.Router.GET("/ws/{roomId}", wsHandler.HandleWebSocket)
		se.Router.GET("/health", handlers.Health)
		se.Router.GET("/metrics", metricsHandler.GetMetrics)

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
		cancel()
		if err := sessions.Shutdown(); err != nil {
			logger.Error("session shutdown", "error", err)
		}
		return te.Next()
	})

	if err := app.Start(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
