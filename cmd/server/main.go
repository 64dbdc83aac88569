package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"live-app/internal/auth"
	"live-app/internal/catalog"
	"live-app/internal/config"
	"live-app/internal/database"
	"live-app/internal/handlers"
	"live-app/internal/live"
	"live-app/internal/services"
	"live-app/internal/state"
	"live-app/internal/websocket"
	"live-app/pkg/logger"

	"github.com/go-redis/redis/v8"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := logger.SetLevel(cfg.Server.LogLevel); err != nil {
		logger.Warn("Ignoring LOG_LEVEL %q: %v", cfg.Server.LogLevel, err)
	}

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		cancel()
		logger.Fatal("Failed to migrate database: %v", err)
	}
	cancel()

	// Optional Redis directory of live rooms
	var directory *state.Directory
	var snapshots services.SnapshotReader
	liveOpts := []live.Option{live.WithHostDirectory(services.NewRoomHosts(db))}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis at %s is not reachable yet: %v", cfg.Redis.Addr, err)
		}
		cancel()
		directory = state.NewDirectory(rdb, cfg.Redis.KeyPrefix, cfg.Redis.SnapshotTTL)
		snapshots = directory
		liveOpts = append(liveOpts, live.WithSnapshotSink(directory))
		logger.Info("Publishing room snapshots to Redis at %s", cfg.Redis.Addr)
	}

	// Initialize the live engine
	manager := live.NewManager(live.Config{
		InviteTimeout:    cfg.Live.InviteTimeout,
		PKDuration:       cfg.Live.PKDuration,
		StatsInterval:    cfg.Live.StatsInterval,
		DurationTick:     cfg.Live.DurationTick,
		HeartbeatTimeout: cfg.Live.HeartbeatTimeout,
		PKGiftScoring:    cfg.Live.PKGiftScoring,
	}, liveOpts...)

	// Initialize services
	gifts := catalog.New(db, cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL)
	authService := auth.NewService(db, cfg)
	roomService := services.NewRoomService(db, manager, snapshots)

	wsOpts := websocket.Options{
		SendBuffer: cfg.Live.SendBuffer,
		PingPeriod: websocket.PingPeriodFor(cfg.Live.HeartbeatTimeout),
	}
	if !cfg.Live.TrustClientGiftPrice {
		wsOpts.Gifts = gifts
	}

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	roomHandlers := handlers.NewRoomHandlers(roomService, authService, gifts)
	wsHandlers := handlers.NewWebSocketHandlers(authService, manager, wsOpts)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, roomHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws/live/{roomId}", cfg.Server.Port)
	printAPIEndpoints()

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error: %v", err)
	}
	manager.Shutdown()
	if directory != nil {
		directory.Close()
	}
	logger.Info("Server stopped")
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, roomHandlers *handlers.RoomHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("POST /login", authHandlers.Login)
	mux.HandleFunc("POST /register", authHandlers.Register)

	// Room routes
	mux.HandleFunc("GET /rooms", roomHandlers.ListRooms)
	mux.HandleFunc("POST /rooms", roomHandlers.CreateRoom)
	mux.HandleFunc("GET /rooms/{id}/stats", roomHandlers.RoomStats)
	mux.HandleFunc("DELETE /rooms/{id}", roomHandlers.DeleteRoom)
	mux.HandleFunc("GET /gifts", roomHandlers.ListGifts)

	// WebSocket routes
	mux.HandleFunc("GET /ws/live/{roomId}", wsHandlers.HandleWebSocket)
	mux.HandleFunc("GET /ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /login")
	logger.Info("   POST /register")
	logger.Info("   GET  /rooms")
	logger.Info("   POST /rooms")
	logger.Info("   GET  /rooms/{id}/stats")
	logger.Info("   DELETE /rooms/{id}")
	logger.Info("   GET  /gifts")
	logger.Info("   GET  /ws/live/{roomId}?token=...")
}
